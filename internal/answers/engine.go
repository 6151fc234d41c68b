// Package answers resolves application-form questions to stored answers.
//
// Lookup precedence, first hit wins:
//
//  1. exact match on the normalised question;
//  2. substring match in either direction (longest stored key wins);
//  3. keyword overlap: the stored key sharing the most words with the
//     question, accepted when it shares at least two words or all of its own.
//
// Questions that still have no answer get a safe default when one exists,
// otherwise they go through interactive capture and end up in the
// unknown-question log.
package answers

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"jobmate/autoapply-service/internal/model"
	"jobmate/autoapply-service/internal/textnorm"
)

// Repository persists the answer book. The reconciliation engine implements it.
type Repository interface {
	LoadAnswers(ctx context.Context) (model.AnswerBook, error)
	SaveAnswers(ctx context.Context, book model.AnswerBook) error
}

// MatchKind says which precedence rule produced an answer.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchExact
	MatchSubstring
	MatchOverlap
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchSubstring:
		return "substring"
	case MatchOverlap:
		return "overlap"
	}
	return "none"
}

// Match is a resolved answer and the stored key it came from.
type Match struct {
	Answer string
	Key    string
	Kind   MatchKind
}

// JobContext identifies the posting a question was asked for.
type JobContext struct {
	Title    string
	Company  string
	Platform string
}

// Config tunes interactive capture.
type Config struct {
	// CaptureTimeout bounds the wait for a human to fill a field. Zero
	// disables interactive capture. Default through DefaultConfig: 120s.
	CaptureTimeout time.Duration
	// CapturePoll is the interval between field reads. Default: 2s.
	CapturePoll time.Duration
	Logger      *slog.Logger
}

// DefaultConfig returns the production capture settings.
func DefaultConfig() Config {
	return Config{CaptureTimeout: 120 * time.Second, CapturePoll: 2 * time.Second}
}

// Engine answers questions from the answer book and keeps the run's unknown
// questions and conversation.
type Engine struct {
	repo  Repository
	cfg   Config
	log   *slog.Logger
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)

	mu     sync.Mutex
	book   model.AnswerBook
	logged map[string]bool // questions in the persisted unknown log

	unknown []model.UnknownQuestion // this run's unknown questions
	runSeen map[string]bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock and the sleeper used by Capture (for testing).
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration)) Option {
	return func(e *Engine) {
		e.now = now
		e.sleep = sleep
	}
}

// New loads the answer book from repo. A load failure starts from an empty
// book.
func New(ctx context.Context, repo Repository, cfg Config, opts ...Option) *Engine {
	if cfg.CapturePoll <= 0 {
		cfg.CapturePoll = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	e := &Engine{
		repo:    repo,
		cfg:     cfg,
		log:     cfg.Logger,
		now:     time.Now,
		sleep:   sleepCtx,
		logged:  map[string]bool{},
		runSeen: map[string]bool{},
	}
	for _, o := range opts {
		o(e)
	}

	book, err := repo.LoadAnswers(ctx)
	if err != nil {
		e.log.Warn("answers: load failed, starting empty", "err", err)
	}
	if book.Answers == nil {
		book.Answers = map[string]string{}
	}
	for _, u := range book.Unknown {
		e.logged[Normalize(u.Question)] = true
	}
	e.book = book
	return e
}

// Normalize lowercases and strips punctuation and accents.
func Normalize(q string) string { return textnorm.Normalize(q) }

// Lookup resolves a question against the stored answers.
func (e *Engine) Lookup(question string) (Match, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return lookup(e.book.Answers, Normalize(question))
}

func lookup(answers map[string]string, q string) (Match, bool) {
	if q == "" || len(answers) == 0 {
		return Match{}, false
	}

	// Stored keys are normalised on write, but hand-edited books may not be.
	keys := make([]string, 0, len(answers))
	norm := make(map[string]string, len(answers))
	for k := range answers {
		nk := Normalize(k)
		if nk == "" {
			continue
		}
		if _, dup := norm[nk]; !dup {
			keys = append(keys, nk)
		}
		norm[nk] = k
	}
	sort.Strings(keys)

	if orig, ok := norm[q]; ok {
		return Match{Answer: answers[orig], Key: q, Kind: MatchExact}, true
	}

	best := ""
	for _, k := range keys {
		if strings.Contains(q, k) || strings.Contains(k, q) {
			if len(k) > len(best) {
				best = k
			}
		}
	}
	if best != "" {
		return Match{Answer: answers[norm[best]], Key: best, Kind: MatchSubstring}, true
	}

	qWords := textnorm.Words(q)
	bestOverlap := 0
	for _, k := range keys {
		kWords := textnorm.Words(k)
		overlap := 0
		for w := range kWords {
			if _, ok := qWords[w]; ok {
				overlap++
			}
		}
		if overlap == 0 || overlap <= bestOverlap {
			continue
		}
		if overlap >= 2 || overlap == len(kWords) {
			best, bestOverlap = k, overlap
		}
	}
	if best != "" {
		return Match{Answer: answers[norm[best]], Key: best, Kind: MatchOverlap}, true
	}
	return Match{}, false
}

// Learn stores an answer under the normalised question and persists the book.
func (e *Engine) Learn(ctx context.Context, question, answer string) error {
	q := Normalize(question)
	if q == "" || strings.TrimSpace(answer) == "" {
		return nil
	}
	e.mu.Lock()
	e.book.Answers[q] = strings.TrimSpace(answer)
	book := e.snapshotLocked()
	e.mu.Unlock()
	return e.repo.SaveAnswers(ctx, book)
}

// RecordUnknown logs a question that could not be answered with confidence.
// The run list holds each normalised question once per run; the persisted
// log holds it once across runs.
func (e *Engine) RecordUnknown(ctx context.Context, question string, job JobContext) {
	q := Normalize(question)
	if q == "" {
		return
	}
	u := model.UnknownQuestion{
		Question: strings.TrimSpace(question),
		JobTitle: job.Title,
		Company:  job.Company,
		At:       e.now().UTC(),
	}

	e.mu.Lock()
	if !e.runSeen[q] {
		e.runSeen[q] = true
		e.unknown = append(e.unknown, u)
		e.log.Info("answers: unknown question", "question", u.Question, "job", job.Title, "company", job.Company)
	}
	if e.logged[q] {
		e.mu.Unlock()
		return
	}
	e.logged[q] = true
	e.book.Unknown = append(e.book.Unknown, u)
	book := e.snapshotLocked()
	e.mu.Unlock()

	if err := e.repo.SaveAnswers(ctx, book); err != nil {
		e.log.Warn("answers: persist unknown question failed", "err", err)
	}
}

// Unknowns returns the unknown questions met since the last ResetRun.
func (e *Engine) Unknowns() []model.UnknownQuestion {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.UnknownQuestion(nil), e.unknown...)
}

// ResetRun starts a new run list of unknown questions. The persisted log is
// kept.
func (e *Engine) ResetRun() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.unknown = nil
	e.runSeen = map[string]bool{}
}

// Book returns a copy of the answer book.
func (e *Engine) Book() model.AnswerBook {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() model.AnswerBook {
	answers := make(map[string]string, len(e.book.Answers))
	for k, v := range e.book.Answers {
		answers[k] = v
	}
	return model.AnswerBook{
		Answers: answers,
		Unknown: append([]model.UnknownQuestion(nil), e.book.Unknown...),
	}
}

// Capture waits for a human to fill the live field behind readField. readField
// returns the field's current value. A filled value is learned and
// returned; on timeout the question is logged as unknown. Capture never
// waits longer than CaptureTimeout and returns early if ctx is done.
func (e *Engine) Capture(ctx context.Context, question string, job JobContext, readField func(context.Context) (string, error)) (string, bool) {
	if e.cfg.CaptureTimeout <= 0 {
		e.RecordUnknown(ctx, question, job)
		return "", false
	}

	e.log.Info("answers: waiting for manual input", "question", question, "timeout", e.cfg.CaptureTimeout)
	deadline := e.now().Add(e.cfg.CaptureTimeout)
	for {
		if v, err := readField(ctx); err == nil && strings.TrimSpace(v) != "" {
			if err := e.Learn(ctx, question, v); err != nil {
				e.log.Warn("answers: persist captured answer failed", "err", err)
			}
			return strings.TrimSpace(v), true
		}
		if ctx.Err() != nil || !e.now().Before(deadline) {
			break
		}
		e.sleep(ctx, e.cfg.CapturePoll)
	}

	e.RecordUnknown(ctx, question, job)
	return "", false
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
