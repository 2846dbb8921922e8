package browser

import (
	"context"

	"extension-hub/internal/hostrpc"
	"extension-hub/internal/prompt"
)

// Host method names, relative to hostrpc.SubjectPrefix.
const (
	MethodTabsCreate      = "tabs.create"
	MethodTabsQuery       = "tabs.query"
	MethodTabsGroup       = "tabs.group"
	MethodTabGroupsUpdate = "tabGroups.update"
	MethodHistorySearch   = "history.search"
)

// NewNATS constructs a Host that forwards every call to the extension over NATS.
func NewNATS(client *hostrpc.Client) Host {
	return &natsHost{client: client}
}

type natsHost struct {
	client *hostrpc.Client
}

func (h *natsHost) OpenTab(ctx context.Context, url string) (Tab, error) {
	var tab Tab
	err := h.client.Call(ctx, MethodTabsCreate, map[string]string{"url": url}, &tab)
	return tab, err
}

func (h *natsHost) QueryTabs(ctx context.Context, currentWindow bool) ([]Tab, error) {
	var tabs []Tab
	err := h.client.Call(ctx, MethodTabsQuery, map[string]bool{"currentWindow": currentWindow}, &tabs)
	return tabs, err
}

func (h *natsHost) GroupTabs(ctx context.Context, tabIDs []int) (int, error) {
	var groupID int
	err := h.client.Call(ctx, MethodTabsGroup, map[string][]int{"tabIds": tabIDs}, &groupID)
	return groupID, err
}

func (h *natsHost) UpdateGroup(ctx context.Context, groupID int, title, color string) error {
	return h.client.Call(ctx, MethodTabGroupsUpdate, map[string]any{
		"groupId": groupID,
		"title":   title,
		"color":   color,
	}, nil)
}

func (h *natsHost) SearchHistory(ctx context.Context, q HistoryQuery) ([]prompt.HistoryItem, error) {
	var items []prompt.HistoryItem
	err := h.client.Call(ctx, MethodHistorySearch, q, &items)
	return items, err
}
