package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/reel/internal/gating"
	"github.com/aretw0/reel/pkg/domain"
)

// DeckMarkdown describes a deck as a markdown table.
// When state is set, the active slide is marked and slides past the
// watermark are shown as placeholders.
func DeckMarkdown(g *domain.Graph, state *domain.PlaybackState) string {
	var sb strings.Builder
	sb.WriteString("# Deck\n\n")
	if g.Len() == 0 {
		sb.WriteString("_empty deck_\n")
		return sb.String()
	}

	folders := make(map[string]string)
	for _, f := range g.Folders() {
		folders[f.ID] = f.Name
	}

	sb.WriteString("| # | Slide | Folder | Gated | Connections |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for i, s := range g.Slides() {
		marker := ""
		if state != nil && state.ActiveIndex == i {
			marker = "▶ "
		}
		id := s.ID
		if state != nil && i >= state.Watermark {
			id = "_" + id + " (placeholder)_"
		}
		if s.Title != "" {
			id += " " + s.Title
		}
		gated := ""
		if gating.Evaluate(s, s.Elements) {
			gated = "locked"
		} else if len(s.Elements) > 0 {
			gated = "open"
		}
		sb.WriteString(fmt.Sprintf("| %s%d | %s | %s | %s | %s |\n",
			marker, s.Order, id, folders[s.FolderID], gated, connections(s.Connections)))
	}

	if state != nil {
		sb.WriteString(fmt.Sprintf("\n**Active:** %s (%d/%d) · phase %s · watermark %d",
			state.ActiveID, state.ActiveIndex+1, state.Total, state.Phase, state.Watermark))
		if state.Locked {
			sb.WriteString(" · locked by " + strings.Join(state.Blockers, ", "))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func connections(c *domain.Connections) string {
	targets := c.Targets()
	if len(targets) == 0 {
		return ""
	}
	keys := make([]string, 0, len(targets))
	for k := range targets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s → %s", k, targets[k]))
	}
	return strings.Join(parts, "; ")
}
