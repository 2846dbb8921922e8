// Package history keeps the page summaries a user chose to save.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("summary not found")

// Summary is one saved page summary.
type Summary struct {
	ID       uuid.UUID `json:"id"`
	Prompt   string    `json:"prompt"`
	Result   string    `json:"result"`
	URL      string    `json:"url"`
	SiteName string    `json:"siteName"`
	Date     time.Time `json:"date"`
}

// Store persists summaries. List returns the newest first.
type Store interface {
	Save(ctx context.Context, s Summary) (Summary, error)
	List(ctx context.Context, limit int) ([]Summary, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Close() error
}

// prepare assigns an id and date when missing.
func prepare(s Summary, now time.Time) Summary {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Date.IsZero() {
		s.Date = now.UTC()
	}
	return s
}
