// Package tools executes the tab actions a provider may request instead of
// answering in text.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"extension-hub/internal/browser"
)

// Tool names as declared to the provider.
const (
	NameOpenTabs  = "open_tabs"
	NameGroupTabs = "group_tabs"
)

// Group label applied by group_tabs.
const (
	GroupTitle = "AI Grouped Tabs"
	GroupColor = "blue"
)

// NoMatchingTabs is returned when group_tabs matches no open tab.
const NoMatchingTabs = "No matching tabs found to group."

// Call is a structured instruction from a provider.
type Call struct {
	Name string
	Args Args
}

// Args are the arguments shared by both tools.
type Args struct {
	URLs []string `json:"urls"`
}

// ParseArgs decodes a tool call's JSON arguments.
func ParseArgs(raw string) (Args, error) {
	var args Args
	if strings.TrimSpace(raw) == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return Args{}, fmt.Errorf("tools: decode arguments: %w", err)
	}
	return args, nil
}

// Known reports whether name is a tool this package can execute.
func Known(name string) bool {
	return name == NameOpenTabs || name == NameGroupTabs
}

// Resolver runs tool calls against the browser. Side effects are not rolled
// back: a group created before a failed label update stays in place.
type Resolver struct {
	host browser.Host
	log  *slog.Logger
}

// NewResolver builds a resolver bound to a browser host.
func NewResolver(host browser.Host, log *slog.Logger) *Resolver {
	return &Resolver{host: host, log: log}
}

// Resolve executes the first recognized call and ignores the rest. It reports
// false when calls holds no recognized tool.
func (r *Resolver) Resolve(ctx context.Context, calls []Call) (string, bool) {
	for _, call := range calls {
		if !Known(call.Name) {
			r.log.Warn("ignoring unknown tool call", "tool", call.Name)
			continue
		}
		if len(calls) > 1 {
			r.log.Info("executing first recognized tool call only", "tool", call.Name, "calls", len(calls))
		}
		switch call.Name {
		case NameOpenTabs:
			return r.openTabs(ctx, call.Args.URLs), true
		case NameGroupTabs:
			return r.groupTabs(ctx, call.Args.URLs), true
		}
	}
	return "", false
}

func (r *Resolver) openTabs(ctx context.Context, urls []string) string {
	var opened []string
	for _, u := range urls {
		if _, err := r.host.OpenTab(ctx, u); err != nil {
			r.log.Warn("failed to open tab", "url", u, "err", err)
			continue
		}
		opened = append(opened, u)
	}
	if len(opened) == 0 {
		return "No tabs were opened."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Opened %d tab(s):", len(opened))
	for _, u := range opened {
		b.WriteString("\n- ")
		b.WriteString(u)
	}
	return b.String()
}

func (r *Resolver) groupTabs(ctx context.Context, urls []string) string {
	tabs, err := r.host.QueryTabs(ctx, true)
	if err != nil {
		r.log.Error("failed to query tabs", "err", err)
		return "Could not read open tabs."
	}

	wanted := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		wanted[u] = struct{}{}
	}
	var ids []int
	for _, tab := range tabs {
		if _, ok := wanted[tab.URL]; ok {
			ids = append(ids, tab.ID)
		}
	}
	if len(ids) == 0 {
		return NoMatchingTabs
	}

	groupID, err := r.host.GroupTabs(ctx, ids)
	if err != nil {
		r.log.Error("failed to group tabs", "tabs", len(ids), "err", err)
		return "Could not group tabs."
	}
	if err := r.host.UpdateGroup(ctx, groupID, GroupTitle, GroupColor); err != nil {
		r.log.Warn("failed to label tab group", "group", groupID, "err", err)
		return fmt.Sprintf("Grouped %d tab(s), but could not label the group.", len(ids))
	}
	return fmt.Sprintf("Grouped %d tab(s) into %q.", len(ids), GroupTitle)
}
