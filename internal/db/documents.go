// Package db provides the document backends behind the persisted stores.
//
// Every store is a single JSON document read in full, mutated in memory and
// written back in full. Backends do no locking: one process is expected to
// own a data set at a time.
package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// Document names, one per persisted concern.
const (
	DocDiscovered     = "discovered_jobs"
	DocApplied        = "applied_jobs"
	DocParked         = "parked_jobs"
	DocBlacklist      = "blacklist"
	DocAnswers        = "answers"
	DocResumeKeywords = "resume_keywords"
)

// ErrNotExist is returned by Backend.Read when the document was never written.
var ErrNotExist = errors.New("document does not exist")

// Backend reads and writes whole documents by name.
type Backend interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
	Close() error
}

// Load decodes the named document into a T. A missing, unreadable or corrupt
// document yields def: stores must never block startup.
func Load[T any](ctx context.Context, b Backend, name string, def T) T {
	data, err := b.Read(ctx, name)
	if err != nil {
		if !errors.Is(err, ErrNotExist) {
			slog.Warn("store read failed, using empty default", "doc", name, "err", err)
		}
		return def
	}
	if len(data) == 0 {
		return def
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		slog.Warn("store document corrupt, using empty default", "doc", name, "err", err)
		return def
	}
	return v
}

// Save encodes v and writes it as the named document.
func Save[T any](ctx context.Context, b Backend, name string, v T) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := b.Write(ctx, name, data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
