// internal/models/notification.go
package models

import "time"

// Notification is one queued chat-message email waiting to be delivered.
type Notification struct {
	ID               string `json:"id"`
	UserEmail        string `json:"user_email"`
	EventTitle       string `json:"event_title"`
	Message          string `json:"message"`
	SenderName       string `json:"sender_name"`
	OrganizationName string `json:"organization_name,omitempty"`
}

// DispatchResult is the outcome of a single notification within a pass.
type DispatchResult struct {
	NotificationID string `json:"notificationId"`
	Success        bool   `json:"success"`
	Reason         string `json:"reason,omitempty"`
	Error          string `json:"error,omitempty"`
	Attempts       int    `json:"attempts"`
}

// DispatchSummary aggregates one dispatch pass. It is logged, never persisted.
type DispatchSummary struct {
	RunID      string           `json:"runId"`
	Total      int              `json:"total"`
	Processed  int              `json:"processed"`
	Successful int              `json:"successful"`
	Errors     int              `json:"errors"`
	StartedAt  time.Time        `json:"startedAt"`
	Duration   time.Duration    `json:"duration"`
	Results    []DispatchResult `json:"results,omitempty"`
}

// Record adds r to the summary counters.
func (s *DispatchSummary) Record(r DispatchResult) {
	s.Processed++
	if r.Success {
		s.Successful++
	} else {
		s.Errors++
	}
	s.Results = append(s.Results, r)
}

// SplitBatches partitions notifications into consecutive slices of at most size
// elements, preserving queue order.
func SplitBatches(notifications []Notification, size int) [][]Notification {
	if size <= 0 {
		size = 1
	}
	batches := make([][]Notification, 0, (len(notifications)+size-1)/size)
	for start := 0; start < len(notifications); start += size {
		end := start + size
		if end > len(notifications) {
			end = len(notifications)
		}
		batches = append(batches, notifications[start:end])
	}
	return batches
}
