package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func makeNotifications(n int) []Notification {
	out := make([]Notification, n)
	for i := range out {
		out[i] = Notification{ID: fmt.Sprintf("n-%d", i)}
	}
	return out
}

func TestSplitBatches(t *testing.T) {
	tests := []struct {
		name      string
		count     int
		size      int
		wantSizes []int
	}{
		{name: "empty", count: 0, size: 5, wantSizes: []int{}},
		{name: "exact multiple", count: 10, size: 5, wantSizes: []int{5, 5}},
		{name: "remainder", count: 7, size: 5, wantSizes: []int{5, 2}},
		{name: "smaller than batch", count: 3, size: 10, wantSizes: []int{3}},
		{name: "non-positive size treated as one", count: 2, size: 0, wantSizes: []int{1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches := SplitBatches(makeNotifications(tt.count), tt.size)
			sizes := make([]int, 0, len(batches))
			for _, b := range batches {
				sizes = append(sizes, len(b))
			}
			assert.Equal(t, tt.wantSizes, sizes)
		})
	}
}

func TestSplitBatches_PreservesOrder(t *testing.T) {
	batches := SplitBatches(makeNotifications(5), 2)

	var ids []string
	for _, b := range batches {
		for _, n := range b {
			ids = append(ids, n.ID)
		}
	}
	assert.Equal(t, []string{"n-0", "n-1", "n-2", "n-3", "n-4"}, ids)
}

func TestDispatchSummary_Record(t *testing.T) {
	var s DispatchSummary
	s.Total = 3
	s.Record(DispatchResult{NotificationID: "a", Success: true, Attempts: 1})
	s.Record(DispatchResult{NotificationID: "b", Success: false, Reason: "boom", Attempts: 4})

	assert.Equal(t, 2, s.Processed)
	assert.Equal(t, 1, s.Successful)
	assert.Equal(t, 1, s.Errors)
	assert.Equal(t, s.Processed, s.Successful+s.Errors)
	assert.GreaterOrEqual(t, s.Total, s.Processed)
	assert.Len(t, s.Results, 2)
}
