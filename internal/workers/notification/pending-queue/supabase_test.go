// internal/workers/notification/pending-queue/supabase_test.go
package pendingqueue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"connect-notifier/internal/common/config"
	apperrors "connect-notifier/internal/common/errors"
	"connect-notifier/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSupabaseServer(t *testing.T, handler http.HandlerFunc) (*SupabaseSource, func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		handler(w, r)
	}))

	src, err := NewSupabaseSource(config.SupabaseConfig{
		URL:            srv.URL,
		ServiceRoleKey: "service-key",
		Timeout:        5000,
	}, logger.NewTestLogger(t))
	require.NoError(t, err)
	return src, srv.Close
}

func TestSupabaseSource_FetchPending(t *testing.T) {
	src, done := newSupabaseServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/rpc/get_pending_notifications", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"id":"n-1","user_email":"a@example.org","event_title":"Cleanup","message":"hi","sender_name":"Sam","organization_name":null},
			{"id":"n-2","user_email":"b@example.org","event_title":null,"message":"yo","sender_name":"Kai","organization_name":"Org"}
		]`))
	})
	defer done()

	got, err := src.FetchPending(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "n-1", got[0].ID)
	assert.Empty(t, got[0].OrganizationName)
	assert.Empty(t, got[1].EventTitle)
	assert.Equal(t, "Org", got[1].OrganizationName)
}

func TestSupabaseSource_FetchPending_HTTPError(t *testing.T) {
	src, done := newSupabaseServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid API key"}`))
	})
	defer done()

	_, err := src.FetchPending(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeQueueFetchFailed, apperrors.CodeOf(err))
	assert.Contains(t, err.Error(), "401")
}

func TestSupabaseSource_FetchPending_BadJSON(t *testing.T) {
	src, done := newSupabaseServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"}`))
	})
	defer done()

	_, err := src.FetchPending(context.Background())
	assert.Equal(t, apperrors.ErrCodeQueueFetchFailed, apperrors.CodeOf(err))
}

func TestSupabaseSource_MarkSent(t *testing.T) {
	src, done := newSupabaseServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/rpc/mark_notification_sent", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"p_notification_id": "n-1"}, body)
		w.WriteHeader(http.StatusNoContent)
	})
	defer done()

	assert.NoError(t, src.MarkSent(context.Background(), "n-1"))
}

func TestSupabaseSource_MarkSent_Error(t *testing.T) {
	src, done := newSupabaseServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"PGRST202","message":"Could not find the function"}`))
	})
	defer done()

	err := src.MarkSent(context.Background(), "n-1")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeMarkSentFailed, apperrors.CodeOf(err))
}

func TestNew_UnknownDriver(t *testing.T) {
	_, _, err := New(config.QueueConfig{Driver: "mysql"}, logger.NewNoOpLogger())
	assert.Error(t, err)
}
