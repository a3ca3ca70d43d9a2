package domain

import "sort"

// Graph is the in-memory slide graph: slides in canonical order plus an id index.
// It is immutable once built; reloads produce a new Graph.
type Graph struct {
	slides  []Slide
	folders []Folder
	index   map[string]int
}

// NewGraph builds a Graph from a deck. Slides are sorted by Order; ties keep
// their input position.
//
// Duplicate ids keep the first occurrence in the index, so every lookup by id
// (connection targets, the sequential successor of the active slide) resolves
// to that copy even while a later copy is active. Such decks are invalid;
// Duplicates lists the offending ids.
func NewGraph(deck *Deck) *Graph {
	g := &Graph{index: make(map[string]int)}
	if deck == nil {
		return g
	}

	g.slides = make([]Slide, len(deck.Slides))
	for i, s := range deck.Slides {
		g.slides[i] = s.Clone()
	}
	sort.SliceStable(g.slides, func(i, j int) bool {
		return g.slides[i].Order < g.slides[j].Order
	})
	g.folders = append([]Folder(nil), deck.Folders...)

	for i, s := range g.slides {
		if _, dup := g.index[s.ID]; !dup {
			g.index[s.ID] = i
		}
	}
	return g
}

// Duplicates returns the ids defined more than once, in canonical order.
func (g *Graph) Duplicates() []string {
	if g == nil || len(g.index) == len(g.slides) {
		return nil
	}
	seen := make(map[string]int, len(g.slides))
	var out []string
	for _, s := range g.slides {
		seen[s.ID]++
		if seen[s.ID] == 2 {
			out = append(out, s.ID)
		}
	}
	return out
}

// Len returns the number of slides.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.slides)
}

// At returns the slide at a canonical index.
func (g *Graph) At(i int) (Slide, bool) {
	if g == nil || i < 0 || i >= len(g.slides) {
		return Slide{}, false
	}
	return g.slides[i], true
}

// IndexOf returns the canonical index of a slide id.
func (g *Graph) IndexOf(id string) (int, bool) {
	if g == nil || id == "" {
		return 0, false
	}
	i, ok := g.index[id]
	return i, ok
}

// Slide looks a slide up by id.
func (g *Graph) Slide(id string) (Slide, bool) {
	i, ok := g.IndexOf(id)
	if !ok {
		return Slide{}, false
	}
	return g.slides[i], true
}

// Has reports whether id names a slide in the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.IndexOf(id)
	return ok
}

// Slides returns a copy of the slides in canonical order.
func (g *Graph) Slides() []Slide {
	if g == nil {
		return nil
	}
	out := make([]Slide, len(g.slides))
	for i, s := range g.slides {
		out[i] = s.Clone()
	}
	return out
}

// Folders returns a copy of the folder list.
func (g *Graph) Folders() []Folder {
	if g == nil {
		return nil
	}
	return append([]Folder(nil), g.folders...)
}

// Deck converts the graph back into a deck.
func (g *Graph) Deck() *Deck {
	return &Deck{Slides: g.Slides(), Folders: g.Folders()}
}
