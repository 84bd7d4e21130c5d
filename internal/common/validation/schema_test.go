package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID               string `json:"id"`
	UserEmail        string `json:"user_email"`
	EventTitle       string `json:"event_title"`
	Message          string `json:"message"`
	SenderName       string `json:"sender_name"`
	OrganizationName string `json:"organization_name,omitempty"`
}

func TestNotificationValidator(t *testing.T) {
	v := MustNotificationValidator()

	tests := []struct {
		name      string
		doc       interface{}
		valid     bool
		badFields []string
		codes     []string
	}{
		{
			name:  "valid",
			doc:   row{ID: "n-1", UserEmail: "a@example.org", EventTitle: "Cleanup", Message: "hi", SenderName: "Sam"},
			valid: true,
		},
		{
			name:  "empty message is allowed",
			doc:   row{ID: "n-1", UserEmail: "a@example.org"},
			valid: true,
		},
		{
			name:      "empty id",
			doc:       row{UserEmail: "a@example.org"},
			badFields: []string{"id"},
		},
		{
			name:      "bad email",
			doc:       row{ID: "n-1", UserEmail: "not-an-email"},
			badFields: []string{"user_email"},
		},
		{
			name:  "missing fields",
			doc:   map[string]interface{}{"id": "n-1"},
			codes: []string{"REQUIRED"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := v.Validate(tt.doc)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, res.Valid, res.GetErrorMessages())
			for _, f := range tt.badFields {
				assert.True(t, hasFieldError(res, f), "expected error on %s, got %v", f, res.GetErrorMessages())
			}
			for _, c := range tt.codes {
				found := false
				for _, e := range res.Errors {
					found = found || e.Code == c
				}
				assert.True(t, found, "expected code %s in %v", c, res.Errors)
			}
		})
	}
}

func TestNewValidator_InvalidSchema(t *testing.T) {
	_, err := NewValidator(`{"type": 12}`)
	assert.Error(t, err)
}

func hasFieldError(res *ValidationResult, field string) bool {
	for _, e := range res.Errors {
		if e.Field == field {
			return true
		}
	}
	return false
}
