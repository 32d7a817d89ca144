package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Sternrassler/workout-api/pkg/cache"
	"github.com/Sternrassler/workout-api/pkg/pagination"
	"github.com/Sternrassler/workout-api/pkg/records"
	"github.com/Sternrassler/workout-api/pkg/workout"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := cache.NewMemoryStore(cache.DefaultMemoryConfig())
	require.NoError(t, err)

	c := cache.New(store, cache.DefaultConfig(), zerolog.Nop())
	svc := workout.NewService(workout.NewMemoryRepository(), c, zerolog.Nop())

	srv := httptest.NewServer(New(svc, zerolog.Nop()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

// call sends body as JSON and returns the response status and body.
func call(t *testing.T, srv *httptest.Server, method, path, body string) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), "body: %s", data)
	return v
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	status, body := call(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", string(body))
}

func TestReadyEndpoint(t *testing.T) {
	srv := newTestServer(t)

	status, body := call(t, srv, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "ready")
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	call(t, srv, http.MethodGet, "/health", "")
	status, body := call(t, srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `workout_http_requests_total{route="GET /health",status="200"}`)
}

func TestWorkoutFlow(t *testing.T) {
	srv := newTestServer(t)

	status, body := call(t, srv, http.MethodPost, "/users", `{"name":"ana"}`)
	require.Equal(t, http.StatusCreated, status, string(body))
	user := decode[workout.User](t, body)
	require.NotEmpty(t, user.ID)

	status, body = call(t, srv, http.MethodPost, "/seances", `{"userId":"`+user.ID+`","date":"2024-01-01T10:00:00Z"}`)
	require.Equal(t, http.StatusCreated, status, string(body))
	first := decode[workout.Seance](t, body)

	status, body = call(t, srv, http.MethodPost, "/seances/"+first.ID+"/sets", `{"exerciseId":"pullup","unit":"repetitions","value":10}`)
	require.Equal(t, http.StatusCreated, status, string(body))
	assert.Equal(t, records.VerdictNewBest, decode[workout.SeanceSet](t, body).Verdict)

	// Warm the records before the next set to check invalidation.
	status, body = call(t, srv, http.MethodGet, "/users/"+user.ID+"/records", "")
	require.Equal(t, http.StatusOK, status)
	summary := decode[records.Summary](t, body)
	require.NotNil(t, summary.Volume.Repetitions)
	assert.Equal(t, 10.0, summary.Volume.Repetitions.Value)

	status, body = call(t, srv, http.MethodPost, "/seances", `{"userId":"`+user.ID+`","date":"2024-01-03T10:00:00Z"}`)
	require.Equal(t, http.StatusCreated, status)
	second := decode[workout.Seance](t, body)

	status, body = call(t, srv, http.MethodPost, "/seances/"+second.ID+"/sets", `{"exerciseId":"pullup","unit":"repetitions","value":12}`)
	require.Equal(t, http.StatusCreated, status, string(body))
	assert.Equal(t, records.VerdictPersonalRecord, decode[workout.SeanceSet](t, body).Verdict)

	status, body = call(t, srv, http.MethodGet, "/users/"+user.ID+"/records", "")
	require.Equal(t, http.StatusOK, status)
	summary = decode[records.Summary](t, body)
	assert.Equal(t, 12.0, summary.Volume.Repetitions.Value)
	assert.Equal(t, 12.0, summary.Last.Repetitions.Value)

	status, body = call(t, srv, http.MethodGet, "/users/"+user.ID+"/sets?category=Volume&from=2024-01-02&limit=5", "")
	require.Equal(t, http.StatusOK, status)
	page := decode[pagination.Page[workout.SeanceSet]](t, body)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 5, page.Limit)

	status, body = call(t, srv, http.MethodGet, "/users/"+user.ID+"/sets?to=2024-01-01", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, decode[pagination.Page[workout.SeanceSet]](t, body).Total, "a plain to date covers the whole day")

	status, body = call(t, srv, http.MethodGet, "/users/"+user.ID+"/stats", "")
	require.Equal(t, http.StatusOK, status)
	stats := decode[workout.Stats](t, body)
	assert.Equal(t, 2, stats.Sets)
	assert.Equal(t, 2, stats.Seances)

	status, body = call(t, srv, http.MethodGet, "/users/"+user.ID+"/top-exercises?limit=1", "")
	require.Equal(t, http.StatusOK, status)
	top := decode[[]workout.ExerciseCount](t, body)
	require.Len(t, top, 1)
	assert.Equal(t, workout.ExerciseCount{ExerciseID: "pullup", Count: 2}, top[0])

	status, body = call(t, srv, http.MethodGet, "/users/"+user.ID+"/top-formats", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]workout.FormatCount](t, body), 1)

	status, body = call(t, srv, http.MethodGet, "/users/"+user.ID+"/seances?page=1&limit=1", "")
	require.Equal(t, http.StatusOK, status)
	seances := decode[pagination.Page[workout.Seance]](t, body)
	assert.Equal(t, 2, seances.Total)
	require.Len(t, seances.Items, 1)
	assert.Equal(t, second.ID, seances.Items[0].ID)

	status, _ = call(t, srv, http.MethodDelete, "/seances/"+second.ID, "")
	require.Equal(t, http.StatusNoContent, status)

	status, body = call(t, srv, http.MethodGet, "/users/"+user.ID+"/records", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 10.0, decode[records.Summary](t, body).Volume.Repetitions.Value)

	status, _ = call(t, srv, http.MethodGet, "/seances/"+second.ID, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestUserEndpoints(t *testing.T) {
	srv := newTestServer(t)

	_, body := call(t, srv, http.MethodPost, "/users", `{"name":"ana"}`)
	user := decode[workout.User](t, body)

	status, body := call(t, srv, http.MethodGet, "/users/"+user.ID, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ana", decode[workout.User](t, body).Name)

	status, body = call(t, srv, http.MethodPatch, "/users/"+user.ID, `{"bio":"climber","private":true}`)
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = call(t, srv, http.MethodGet, "/users/"+user.ID, "")
	require.Equal(t, http.StatusOK, status)
	updated := decode[workout.User](t, body)
	assert.Equal(t, "climber", updated.Bio)
	assert.True(t, updated.Private)

	status, _ = call(t, srv, http.MethodPatch, "/users/"+user.ID, `{}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCommentsAndReactions(t *testing.T) {
	srv := newTestServer(t)

	_, body := call(t, srv, http.MethodPost, "/users", `{"name":"ana"}`)
	user := decode[workout.User](t, body)
	_, body = call(t, srv, http.MethodPost, "/seances", `{"userId":"`+user.ID+`"}`)
	seance := decode[workout.Seance](t, body)
	base := "/seances/" + seance.ID

	status, body := call(t, srv, http.MethodGet, base+"/comments", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))

	status, body = call(t, srv, http.MethodPost, base+"/comments", `{"userId":"`+user.ID+`","text":"solid session"}`)
	require.Equal(t, http.StatusCreated, status, string(body))
	comment := decode[workout.Comment](t, body)
	assert.Equal(t, seance.ID, comment.SeanceID)

	status, _ = call(t, srv, http.MethodPost, base+"/comments", `{"userId":"`+user.ID+`","text":"reply","parentId":"missing"}`)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = call(t, srv, http.MethodGet, base+"/comments", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]workout.Comment](t, body), 1)

	status, _ = call(t, srv, http.MethodPost, base+"/reactions", `{"userId":"`+user.ID+`","kind":"fire"}`)
	require.Equal(t, http.StatusCreated, status)
	status, _ = call(t, srv, http.MethodPost, base+"/reactions", `{"userId":"`+user.ID+`","kind":"clap","commentId":"`+comment.ID+`"}`)
	require.Equal(t, http.StatusCreated, status)

	status, body = call(t, srv, http.MethodGet, base+"/reactions", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]workout.Reaction](t, body), 2)

	status, body = call(t, srv, http.MethodGet, base+"/reactions?comment="+comment.ID, "")
	require.Equal(t, http.StatusOK, status)
	onComment := decode[[]workout.Reaction](t, body)
	require.Len(t, onComment, 1)
	assert.Equal(t, "clap", onComment[0].Kind)
}

func TestFollowsAndNotifications(t *testing.T) {
	srv := newTestServer(t)

	_, body := call(t, srv, http.MethodPost, "/users", `{"name":"ana"}`)
	ana := decode[workout.User](t, body)
	_, body = call(t, srv, http.MethodPost, "/users", `{"name":"bob"}`)
	bob := decode[workout.User](t, body)

	status, body := call(t, srv, http.MethodPut, "/users/"+bob.ID+"/following/"+ana.ID, "")
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, ana.ID, decode[workout.Follow](t, body).FolloweeID)

	status, body = call(t, srv, http.MethodGet, "/users/"+ana.ID+"/followers", "")
	require.Equal(t, http.StatusOK, status)
	followers := decode[[]workout.Follow](t, body)
	require.Len(t, followers, 1)
	assert.Equal(t, bob.ID, followers[0].FollowerID)

	status, body = call(t, srv, http.MethodGet, "/users/"+bob.ID+"/following", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]workout.Follow](t, body), 1)

	status, body = call(t, srv, http.MethodGet, "/users/"+ana.ID+"/notifications?limit=10", "")
	require.Equal(t, http.StatusOK, status)
	inbox := decode[pagination.Page[workout.Notification]](t, body)
	require.Equal(t, 1, inbox.Total)
	note := inbox.Items[0]
	assert.Equal(t, workout.NotifyFollow, note.Kind)
	assert.Equal(t, bob.ID, note.ActorID)

	status, _ = call(t, srv, http.MethodPost, "/users/"+ana.ID+"/notifications/"+note.ID+"/read", "")
	require.Equal(t, http.StatusNoContent, status)
	_, body = call(t, srv, http.MethodGet, "/users/"+ana.ID+"/notifications", "")
	assert.True(t, decode[pagination.Page[workout.Notification]](t, body).Items[0].Read)

	status, _ = call(t, srv, http.MethodDelete, "/users/"+bob.ID+"/following/"+ana.ID, "")
	require.Equal(t, http.StatusNoContent, status)
	_, body = call(t, srv, http.MethodGet, "/users/"+ana.ID+"/followers", "")
	assert.JSONEq(t, `[]`, string(body))
}

func TestErrorResponses(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"unknown user", http.MethodGet, "/users/nobody", "", http.StatusNotFound},
		{"unknown seance", http.MethodGet, "/seances/nothing", "", http.StatusNotFound},
		{"set on unknown seance", http.MethodPost, "/seances/nothing/sets", `{"exerciseId":"pullup","unit":"repetitions","value":1}`, http.StatusNotFound},
		{"seance of unknown user", http.MethodPost, "/seances", `{"userId":"nobody"}`, http.StatusNotFound},
		{"empty body", http.MethodPost, "/users", "", http.StatusBadRequest},
		{"malformed json", http.MethodPost, "/users", `{"name":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/users", `{"name":"ana","age":3}`, http.StatusBadRequest},
		{"two objects", http.MethodPost, "/users", `{"name":"ana"}{"name":"bob"}`, http.StatusBadRequest},
		{"missing name", http.MethodPost, "/users", `{"bio":"x"}`, http.StatusBadRequest},
		{"bad category", http.MethodGet, "/users/u1/sets?category=Speed", "", http.StatusBadRequest},
		{"bad unit", http.MethodGet, "/users/u1/records?unit=kg", "", http.StatusBadRequest},
		{"bad date", http.MethodGet, "/users/u1/sets?from=yesterday", "", http.StatusBadRequest},
		{"inverted range", http.MethodGet, "/users/u1/sets?from=2024-02-01&to=2024-01-01", "", http.StatusBadRequest},
		{"bad top limit", http.MethodGet, "/users/u1/top-exercises?limit=ten", "", http.StatusBadRequest},
		{"wrong method", http.MethodPut, "/users/u1", `{}`, http.StatusMethodNotAllowed},
		{"page past any offset", http.MethodGet, "/users/u1/seances?page=100000000000000000", "", http.StatusOK},
		{"follow self", http.MethodPut, "/users/u1/following/u1", "", http.StatusBadRequest},
		{"follow unknown user", http.MethodPut, "/users/u1/following/u2", "", http.StatusNotFound},
		{"unfollow without follow", http.MethodDelete, "/users/u1/following/u2", "", http.StatusNotFound},
		{"read unknown notification", http.MethodPost, "/users/u1/notifications/n1/read", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, status, string(body))
			if status == http.StatusBadRequest || status == http.StatusNotFound {
				assert.NotEmpty(t, decode[errorResponse](t, body).Error)
			}
		})
	}
}

func TestClearCache(t *testing.T) {
	srv := newTestServer(t)

	status, _ := call(t, srv, http.MethodDelete, "/admin/cache", "")
	assert.Equal(t, http.StatusNoContent, status)
}

func TestRequestID(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	generated := resp.Header.Get(RequestIDHeader)
	assert.Len(t, generated, 36)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp, err = srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get(RequestIDHeader))
}

func TestRecovery(t *testing.T) {
	var logs bytes.Buffer
	logger := zerolog.New(&logs)

	h := withRequestID(logger, withAccessLog(withRecovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal Server Error", decode[errorResponse](t, w.Body.Bytes()).Error)
	assert.Contains(t, logs.String(), "Handler panicked")
	assert.Contains(t, logs.String(), `"status":500`)
}
