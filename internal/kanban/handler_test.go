package kanban_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/autoapply-service/internal/db"
	"jobmate/autoapply-service/internal/events"
	"jobmate/autoapply-service/internal/kanban"
	"jobmate/autoapply-service/internal/model"
	"jobmate/autoapply-service/internal/reconcile"
)

type apiFixture struct {
	srv    *httptest.Server
	store  *reconcile.Engine
	events *events.Recorder
	runs   map[string]any
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	b, err := db.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	now := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	store := reconcile.New(b, reconcile.WithClock(func() time.Time { return now }))

	f := &apiFixture{store: store, events: &events.Recorder{}}
	h := kanban.NewHandler(kanban.NewService(store, f.events), store,
		func() map[string]any { return f.runs }, "test")
	f.srv = httptest.NewServer(h.Router())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *apiFixture) get(t *testing.T, path string, out any) int {
	t.Helper()
	resp, err := http.Get(f.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (f *apiFixture) move(t *testing.T, id, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(f.srv.URL+"/applications/"+id+"/move", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func seedApplied(t *testing.T, store *reconcile.Engine, title, company string, status kanban.Status) {
	t.Helper()
	_, err := store.MarkApplied(context.Background(), model.JobRecord{Title: title, Company: company, Platform: "LinkedIn"}, status, nil)
	require.NoError(t, err)
}

// ── Read endpoints ──────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	f := newAPI(t)
	var body map[string]string
	assert.Equal(t, http.StatusOK, f.get(t, "/health", &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestListJobs_Filters(t *testing.T) {
	f := newAPI(t)
	_, err := f.store.SaveDiscovered(context.Background(), []model.JobRecord{
		{Title: "Gopher", Company: "Acme", Platform: "LinkedIn", Language: "en"},
		{Title: "Dev Go", Company: "Beta", Platform: "Indeed", Language: "fr"},
		{Title: "SRE", Company: "Gamma", Platform: "LinkedIn"},
	}, false)
	require.NoError(t, err)

	var all, linkedin, french []model.JobRecord
	assert.Equal(t, http.StatusOK, f.get(t, "/jobs", &all))
	f.get(t, "/jobs?platform=linkedin", &linkedin)
	f.get(t, "/jobs?language=fr", &french)

	assert.Len(t, all, 3)
	assert.Len(t, linkedin, 2)
	require.Len(t, french, 1)
	assert.Equal(t, "Dev Go", french[0].Title)
}

func TestListJobs_EmptyIsArray(t *testing.T) {
	f := newAPI(t)
	resp, err := http.Get(f.srv.URL + "/jobs")
	require.NoError(t, err)
	defer resp.Body.Close()
	var raw json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.JSONEq(t, `[]`, string(raw))
}

func TestListApplications_StatusFilter(t *testing.T) {
	f := newAPI(t)
	seedApplied(t, f.store, "Gopher", "Acme", kanban.StatusApplied)
	seedApplied(t, f.store, "SRE", "Beta", kanban.StatusInterview)

	var all, interviews []model.AppliedRecord
	f.get(t, "/applications", &all)
	f.get(t, "/applications?status=INTERVIEW", &interviews)

	assert.Len(t, all, 2)
	require.Len(t, interviews, 1)
	assert.Equal(t, "SRE-Beta", interviews[0].JobID)

	var errBody map[string]string
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/applications?status=HIRED", &errBody))
	assert.NotEmpty(t, errBody["error"])
}

func TestUnknownQuestions(t *testing.T) {
	f := newAPI(t)
	var empty []model.UnknownQuestion
	assert.Equal(t, http.StatusOK, f.get(t, "/questions/unknown", &empty))
	assert.Empty(t, empty)

	require.NoError(t, f.store.SaveAnswers(context.Background(), model.AnswerBook{
		Answers: map[string]string{},
		Unknown: []model.UnknownQuestion{{Question: "Expected salary?", JobTitle: "Gopher", Company: "Acme"}},
	}))
	var got []model.UnknownQuestion
	f.get(t, "/questions/unknown", &got)
	require.Len(t, got, 1)
	assert.Equal(t, "Expected salary?", got[0].Question)
}

func TestLastRuns(t *testing.T) {
	f := newAPI(t)
	var errBody map[string]string
	assert.Equal(t, http.StatusNotFound, f.get(t, "/runs/last", &errBody))

	f.runs = map[string]any{"scheduler": map[string]int{"searches": 2}}
	var body map[string]map[string]int
	assert.Equal(t, http.StatusOK, f.get(t, "/runs/last", &body))
	assert.Equal(t, 2, body["scheduler"]["searches"])
}

// ── Move ────────────────────────────────────────────────────────────────────

func TestMoveCard_AllowedTransition(t *testing.T) {
	f := newAPI(t)
	seedApplied(t, f.store, "Gopher", "Acme", kanban.StatusApplied)

	code, body := f.move(t, "Gopher-Acme", `{"newStatus":"SCREENING"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "SCREENING", body["status"])

	rec, ok := f.store.AppliedRecord(context.Background(), "Gopher-Acme")
	require.True(t, ok)
	assert.Equal(t, "SCREENING", rec.Status)

	require.Len(t, f.events.Events, 1)
	assert.Equal(t, events.TypeStatusMoved, f.events.Events[0].Type)
	assert.Equal(t, "Gopher-Acme", f.events.Events[0].JobID)
}

func TestMoveCard_Errors(t *testing.T) {
	f := newAPI(t)
	seedApplied(t, f.store, "Gopher", "Acme", kanban.StatusAccepted)

	cases := []struct {
		name string
		id   string
		body string
		want int
	}{
		{"missing body field", "Gopher-Acme", `{}`, http.StatusBadRequest},
		{"invalid json", "Gopher-Acme", `{`, http.StatusBadRequest},
		{"unknown status", "Gopher-Acme", `{"newStatus":"HIRED"}`, http.StatusBadRequest},
		{"terminal status", "Gopher-Acme", `{"newStatus":"REJECTED"}`, http.StatusBadRequest},
		{"unknown record", "Nobody-Nowhere", `{"newStatus":"SCREENING"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := f.move(t, tc.id, tc.body)
			assert.Equal(t, tc.want, code)
			assert.NotEmpty(t, body["error"])
		})
	}
	assert.Empty(t, f.events.Events)
}
