package browser

import (
	"context"

	"extension-hub/internal/prompt"
)

// Tab is an open browser tab.
type Tab struct {
	ID    int    `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// HistoryQuery mirrors the browser history search options.
type HistoryQuery struct {
	Text       string  `json:"text"`
	StartTime  float64 `json:"startTime"`
	MaxResults int     `json:"maxResults"`
}

// Host exposes the browser APIs the hub may drive. Every mutation is
// irreversible from the hub's side.
type Host interface {
	OpenTab(ctx context.Context, url string) (Tab, error)
	QueryTabs(ctx context.Context, currentWindow bool) ([]Tab, error)
	GroupTabs(ctx context.Context, tabIDs []int) (int, error)
	UpdateGroup(ctx context.Context, groupID int, title, color string) error
	SearchHistory(ctx context.Context, q HistoryQuery) ([]prompt.HistoryItem, error)
}
