package answers_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/autoapply-service/internal/answers"
	"jobmate/autoapply-service/internal/model"
)

type memRepo struct {
	book  model.AnswerBook
	saves int
}

func (r *memRepo) LoadAnswers(context.Context) (model.AnswerBook, error) { return r.book, nil }

func (r *memRepo) SaveAnswers(_ context.Context, b model.AnswerBook) error {
	r.book = b
	r.saves++
	return nil
}

func newEngine(t *testing.T, stored map[string]string) (*answers.Engine, *memRepo) {
	t.Helper()
	repo := &memRepo{book: model.AnswerBook{Answers: stored}}
	return answers.New(context.Background(), repo, answers.Config{}), repo
}

// fakeClock advances only when the engine sleeps.
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time                           { return c.now }
func (c *fakeClock) Sleep(_ context.Context, d time.Duration) { c.now = c.now.Add(d) }

// ── Lookup precedence ──────────────────────────────────────────────────────

func TestLookup_SubstringOfNormalizedQuestion(t *testing.T) {
	e, _ := newEngine(t, map[string]string{"years of experience": "3"})

	m, ok := e.Lookup("How many years of experience do you have?")
	require.True(t, ok)
	assert.Equal(t, "3", m.Answer)
	assert.Equal(t, answers.MatchSubstring, m.Kind)
}

func TestLookup_Precedence(t *testing.T) {
	q := "Years of Python experience?"
	exact := map[string]string{
		"years of python experience":    "exact",
		"python":                        "substring",
		"python experience years total": "overlap",
	}

	e, _ := newEngine(t, exact)
	m, ok := e.Lookup(q)
	require.True(t, ok)
	assert.Equal(t, "exact", m.Answer)
	assert.Equal(t, answers.MatchExact, m.Kind)

	delete(exact, "years of python experience")
	e, _ = newEngine(t, exact)
	m, ok = e.Lookup(q)
	require.True(t, ok)
	assert.Equal(t, "substring", m.Answer)

	delete(exact, "python")
	e, _ = newEngine(t, exact)
	m, ok = e.Lookup(q)
	require.True(t, ok)
	assert.Equal(t, "overlap", m.Answer)
	assert.Equal(t, answers.MatchOverlap, m.Kind)
}

func TestLookup_QuestionInsideStoredKey(t *testing.T) {
	e, _ := newEngine(t, map[string]string{"what is your current notice period": "1 month"})
	m, ok := e.Lookup("Notice period")
	require.True(t, ok)
	assert.Equal(t, "1 month", m.Answer)
}

func TestLookup_LongestSubstringWins(t *testing.T) {
	e, _ := newEngine(t, map[string]string{
		"experience":       "short",
		"years experience": "mid",
		"salary":           "never",
	})
	m, ok := e.Lookup("Total years experience in Go")
	require.True(t, ok)
	assert.Equal(t, "mid", m.Answer)
}

func TestLookup_OverlapThreshold(t *testing.T) {
	e, _ := newEngine(t, map[string]string{"commute daily office": "yes"})

	// one shared word out of three is not enough
	_, ok := e.Lookup("Do you live near our office?")
	assert.False(t, ok)

	// two shared words are
	m, ok := e.Lookup("Can you commute to the office?")
	require.True(t, ok)
	assert.Equal(t, "yes", m.Answer)
}

func TestLookup_OverlapPicksMostSharedWords(t *testing.T) {
	e, _ := newEngine(t, map[string]string{
		"remote work":       "Yes",
		"python experience": "5",
	})
	m, ok := e.Lookup("Is fully remote python work ok?")
	require.True(t, ok)
	assert.Equal(t, "Yes", m.Answer)
	assert.Equal(t, "remote work", m.Key)
}

func TestLookup_NoStoreNoMatch(t *testing.T) {
	e, _ := newEngine(t, nil)
	_, ok := e.Lookup("anything")
	assert.False(t, ok)
	_, ok = e.Lookup("")
	assert.False(t, ok)
}

// ── Safe defaults ──────────────────────────────────────────────────────────

func TestSafeDefault(t *testing.T) {
	v, ok := answers.SafeDefault("Portfolio URL", answers.JobContext{})
	assert.True(t, ok)
	assert.Equal(t, "N/A", v)

	v, ok = answers.SafeDefault("Were you referred by an employee?", answers.JobContext{})
	assert.True(t, ok)
	assert.Equal(t, "N/A", v)

	_, ok = answers.SafeDefault("Expected salary", answers.JobContext{})
	assert.False(t, ok, "salary must never get a default")

	_, ok = answers.SafeDefault("Years of experience with Kubernetes", answers.JobContext{})
	assert.False(t, ok)
}

func TestSafeDefault_SourceQuestionUsesJobPlatform(t *testing.T) {
	v, ok := answers.SafeDefault("How did you hear about us?", answers.JobContext{Platform: "Indeed"})
	assert.True(t, ok)
	assert.Equal(t, "Indeed", v)

	_, ok = answers.SafeDefault("How did you hear about us?", answers.JobContext{})
	assert.False(t, ok, "no platform, no default")
}

// ── ChooseOption ───────────────────────────────────────────────────────────

func TestChooseOption_StoredAnswerWins(t *testing.T) {
	e, _ := newEngine(t, map[string]string{"work authorization": "No"})
	c, ok := e.ChooseOption(context.Background(), "Work authorization?", []string{"Select an option", "Yes", "No"}, answers.JobContext{})
	require.True(t, ok)
	assert.Equal(t, "No", c.Option)
	assert.Equal(t, 2, c.Index)
	assert.Equal(t, "stored", c.Source)
	assert.Empty(t, e.Unknowns())
}

func TestChooseOption_Heuristics(t *testing.T) {
	cases := []struct {
		name    string
		options []string
		want    string
	}{
		{"affirmative", []string{"Select an option", "No", "Yes"}, "Yes"},
		{"agree", []string{"I disagree", "I agree"}, "I agree"},
		{"highest bucket", []string{"0-1 years", "2-4 years", "5+ years"}, "5+ years"},
		{"last non negative", []string{"Remote", "Hybrid", "None of these"}, "Hybrid"},
		{"all negative", []string{"No", "Never"}, "Never"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			e, _ := newEngine(t, nil)
			got, ok := e.ChooseOption(context.Background(), "Q "+c.name, c.options, answers.JobContext{})
			require.True(t, ok)
			assert.Equal(t, c.want, got.Option)
			assert.Equal(t, "heuristic", got.Source)
			assert.Len(t, e.Unknowns(), 1, "heuristic picks are logged as unknown")
		})
	}
}

func TestChooseOption_OnlyPlaceholders(t *testing.T) {
	e, _ := newEngine(t, nil)
	_, ok := e.ChooseOption(context.Background(), "q", []string{"Select an option", ""}, answers.JobContext{})
	assert.False(t, ok)
}

// ── Unknown log ────────────────────────────────────────────────────────────

func TestRecordUnknown_DedupByNormalizedQuestion(t *testing.T) {
	e, repo := newEngine(t, nil)
	ctx := context.Background()
	job := answers.JobContext{Title: "Dev", Company: "Co"}

	e.RecordUnknown(ctx, "Visa sponsorship?", job)
	e.RecordUnknown(ctx, "visa   SPONSORSHIP", job)
	e.RecordUnknown(ctx, "Security clearance", job)

	assert.Len(t, e.Unknowns(), 2)
	assert.Len(t, repo.book.Unknown, 2)
	assert.Equal(t, "Dev", repo.book.Unknown[0].JobTitle)
}

func TestRecordUnknown_SavedQuestionStillListedForTheRun(t *testing.T) {
	repo := &memRepo{book: model.AnswerBook{Unknown: []model.UnknownQuestion{{Question: "Visa sponsorship?"}}}}
	e := answers.New(context.Background(), repo, answers.Config{})

	e.RecordUnknown(context.Background(), "visa sponsorship", answers.JobContext{Title: "Dev"})

	require.Len(t, e.Unknowns(), 1)
	assert.Equal(t, "visa sponsorship", e.Unknowns()[0].Question)
	assert.Len(t, repo.book.Unknown, 1, "persisted log is not duplicated")
}

func TestResetRun_ClearsRunListOnly(t *testing.T) {
	repo := &memRepo{}
	e := answers.New(context.Background(), repo, answers.Config{})
	ctx := context.Background()

	e.RecordUnknown(ctx, "Security clearance", answers.JobContext{})
	e.ResetRun()
	assert.Empty(t, e.Unknowns())

	e.RecordUnknown(ctx, "Security clearance", answers.JobContext{})
	assert.Len(t, e.Unknowns(), 1)
	assert.Len(t, repo.book.Unknown, 1)
}

// ── Capture ────────────────────────────────────────────────────────────────

func TestCapture_FilledWithinTimeoutIsLearned(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	repo := &memRepo{}
	e := answers.New(context.Background(), repo,
		answers.Config{CaptureTimeout: 120 * time.Second, CapturePoll: 2 * time.Second},
		answers.WithClock(clk.Now, clk.Sleep))

	reads := 0
	readField := func(context.Context) (string, error) {
		reads++
		if reads < 3 {
			return "", nil
		}
		return " Berlin ", nil
	}

	v, ok := e.Capture(context.Background(), "Preferred city?", answers.JobContext{}, readField)
	require.True(t, ok)
	assert.Equal(t, "Berlin", v)
	assert.Equal(t, "Berlin", repo.book.Answers["preferred city"])
	assert.Empty(t, e.Unknowns())
	assert.Equal(t, 4*time.Second, clk.now.Sub(time.Unix(0, 0)))
}

func TestCapture_TimeoutLogsUnknownAndReturns(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	repo := &memRepo{}
	e := answers.New(context.Background(), repo,
		answers.Config{CaptureTimeout: 10 * time.Second, CapturePoll: 2 * time.Second},
		answers.WithClock(clk.Now, clk.Sleep))

	reads := 0
	_, ok := e.Capture(context.Background(), "Favourite colour?", answers.JobContext{Title: "T"}, func(context.Context) (string, error) {
		reads++
		return "", nil
	})
	assert.False(t, ok)
	assert.Equal(t, 6, reads, "one read per poll until the deadline")
	require.Len(t, e.Unknowns(), 1)
	assert.Equal(t, "Favourite colour?", e.Unknowns()[0].Question)
}

func TestCapture_DisabledLogsImmediately(t *testing.T) {
	e, _ := newEngine(t, nil)
	called := false
	_, ok := e.Capture(context.Background(), "q?", answers.JobContext{}, func(context.Context) (string, error) {
		called = true
		return "x", nil
	})
	assert.False(t, ok)
	assert.False(t, called)
	assert.Len(t, e.Unknowns(), 1)
}

func TestLearn_NormalizesKey(t *testing.T) {
	e, repo := newEngine(t, nil)
	require.NoError(t, e.Learn(context.Background(), "Are you willing to RELOCATE?", " Yes "))
	assert.Equal(t, "Yes", repo.book.Answers["are you willing to relocate"])

	m, ok := e.Lookup("are you willing to relocate")
	require.True(t, ok)
	assert.Equal(t, answers.MatchExact, m.Kind)
}
