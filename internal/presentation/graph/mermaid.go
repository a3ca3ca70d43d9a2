package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/reel/internal/gating"
	"github.com/aretw0/reel/pkg/domain"
)

// GraphOverlay contains playback state to visualize on the graph.
type GraphOverlay struct {
	VisitedSlides []string
	CurrentSlide  string
}

// GenerateMermaid produces a Mermaid flowchart of a deck.
// Folders become subgraphs in folder order. It applies semantic styling:
// - First slide: ((Circle))
// - Gated slide (declares blocking elements): {{Hexagon}}
// - Default: [Rectangle]
// Edges: default_next is solid, the implicit sequential successor is dotted,
// option and element rules are labeled.
func GenerateMermaid(g *domain.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	slides := g.Slides()
	byFolder := make(map[string][]domain.Slide)
	known := make(map[string]bool)
	for _, f := range g.Folders() {
		known[f.ID] = true
	}
	var loose []domain.Slide
	for _, s := range slides {
		if s.FolderID != "" && known[s.FolderID] {
			byFolder[s.FolderID] = append(byFolder[s.FolderID], s)
			continue
		}
		loose = append(loose, s)
	}

	folders := g.Folders()
	sort.SliceStable(folders, func(i, j int) bool { return folders[i].Order < folders[j].Order })
	for _, f := range folders {
		members := byFolder[f.ID]
		if len(members) == 0 {
			continue
		}
		name := f.Name
		if name == "" {
			name = f.ID
		}
		sb.WriteString(fmt.Sprintf("    subgraph %s[\"%s\"]\n", sanitizeMermaidID("folder_"+f.ID), escape(name)))
		for _, s := range members {
			writeNode(&sb, g, s, "        ")
		}
		sb.WriteString("    end\n")
	}
	for _, s := range loose {
		writeNode(&sb, g, s, "    ")
	}

	for i, s := range slides {
		writeEdges(&sb, g, i, s)
	}

	// Apply Overlay Styles
	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light and dark themes
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedSlides {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" && g.Has(id) {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}
		if overlay.CurrentSlide != "" && g.Has(overlay.CurrentSlide) {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentSlide)))
		}
	}

	return sb.String()
}

func writeNode(sb *strings.Builder, g *domain.Graph, s domain.Slide, indent string) {
	opener, closer := "[", "]"
	switch {
	case g.Len() > 0 && s.ID == firstID(g):
		opener, closer = "((", "))"
	case gating.Evaluate(s, s.Elements):
		opener, closer = "{{", "}}"
	}
	label := s.ID
	if s.Title != "" {
		label = fmt.Sprintf("%s <br/> %s", s.ID, escape(s.Title))
	}
	sb.WriteString(fmt.Sprintf("%s%s%s\"%s\"%s\n", indent, sanitizeMermaidID(s.ID), opener, label, closer))
}

func writeEdges(sb *strings.Builder, g *domain.Graph, i int, s domain.Slide) {
	from := sanitizeMermaidID(s.ID)

	if s.Connections != nil && g.Has(s.Connections.DefaultNext) {
		sb.WriteString(fmt.Sprintf("    %s --> %s\n", from, sanitizeMermaidID(s.Connections.DefaultNext)))
	} else if next, ok := g.At(i + 1); ok {
		sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", from, sanitizeMermaidID(next.ID)))
	}
	if s.Connections == nil {
		return
	}

	writeLabeled(sb, g, from, "option", s.Connections.PerOption)
	writeLabeled(sb, g, from, "element", s.Connections.PerElement)
}

func writeLabeled(sb *strings.Builder, g *domain.Graph, from, kind string, rules map[string]string) {
	keys := make([]string, 0, len(rules))
	for k := range rules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		target := rules[k]
		if !g.Has(target) {
			// Dangling targets degrade at runtime; draw them as broken.
			sb.WriteString(fmt.Sprintf("    %s -. \"%s %s (missing %s)\" .-x %s\n", from, kind, escape(k), escape(target), from))
			continue
		}
		sb.WriteString(fmt.Sprintf("    %s -- \"%s %s\" --> %s\n", from, kind, escape(k), sanitizeMermaidID(target)))
	}
}

func firstID(g *domain.Graph) string {
	s, _ := g.At(0)
	return s.ID
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, "#", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
