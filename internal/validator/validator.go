package validator

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/reel/internal/ordering"
	"github.com/aretw0/reel/pkg/domain"
)

// DuplicateSlideError reports a slide id used more than once.
type DuplicateSlideError struct {
	SlideID string
	Count   int
}

func (e *DuplicateSlideError) Error() string {
	return fmt.Sprintf("slide '%s' is defined %d times", e.SlideID, e.Count)
}

// OrderGapError reports orders that are not exactly 1..N.
type OrderGapError struct {
	Orders []int
}

func (e *OrderGapError) Error() string {
	return fmt.Sprintf("slide orders are not contiguous from 1: %v", e.Orders)
}

// FolderGroupingError reports a slide whose order breaks folder grouping:
// folder slides by folder order first, unassigned slides last.
type FolderGroupingError struct {
	SlideID  string
	Order    int
	Expected int
}

func (e *FolderGroupingError) Error() string {
	return fmt.Sprintf("slide '%s' has order %d but folder grouping puts it at %d", e.SlideID, e.Order, e.Expected)
}

// UnknownElementKindError reports a declared element with an unknown kind.
type UnknownElementKindError struct {
	SlideID   string
	ElementID string
	Kind      domain.ElementKind
}

func (e *UnknownElementKindError) Error() string {
	return fmt.Sprintf("slide '%s': element '%s' has unknown kind %q", e.SlideID, e.ElementID, e.Kind)
}

// Report is the outcome of validating a deck. Errors break an invariant the
// engine relies on; navigation still degrades gracefully around them.
// Warnings describe decks that are legal but probably not what the author meant.
type Report struct {
	Errors   []error
	Warnings []string
}

// OK reports whether no error was found.
func (r Report) OK() bool {
	return len(r.Errors) == 0
}

// Err returns the errors joined, or nil.
func (r Report) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return fmt.Errorf("found %d errors: %w", len(r.Errors), errors.Join(r.Errors...))
}

// String renders the report one finding per line.
func (r Report) String() string {
	var sb strings.Builder
	for _, err := range r.Errors {
		sb.WriteString("error: ")
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}
	for _, w := range r.Warnings {
		sb.WriteString("warning: ")
		sb.WriteString(w)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Validate checks a deck for dangling connection targets, unknown folders,
// duplicate ids, non-contiguous orders, unknown element kinds and slides no
// viewer can reach from the first slide.
func Validate(deck *domain.Deck) Report {
	var r Report
	if deck == nil || len(deck.Slides) == 0 {
		r.Warnings = append(r.Warnings, "deck has no slides")
		return r
	}

	counts := make(map[string]int, len(deck.Slides))
	for _, s := range deck.Slides {
		counts[s.ID]++
	}
	var dups []string
	for id, n := range counts {
		if n > 1 {
			dups = append(dups, id)
		}
	}
	sort.Strings(dups)
	for _, id := range dups {
		r.Errors = append(r.Errors, &DuplicateSlideError{SlideID: id, Count: counts[id]})
	}

	orders := make([]int, 0, len(deck.Slides))
	for _, s := range deck.Slides {
		orders = append(orders, s.Order)
	}
	sort.Ints(orders)
	contiguous := true
	for i, o := range orders {
		if o != i+1 {
			r.Errors = append(r.Errors, &OrderGapError{Orders: orders})
			contiguous = false
			break
		}
	}

	folders := make(map[string]bool, len(deck.Folders))
	for _, f := range deck.Folders {
		folders[f.ID] = true
	}

	for _, s := range deck.Slides {
		if s.FolderID != "" && !folders[s.FolderID] {
			r.Errors = append(r.Errors, &domain.OrderInconsistencyError{SlideID: s.ID, FolderID: s.FolderID})
		}
		targets := s.Connections.Targets()
		rules := make([]string, 0, len(targets))
		for rule := range targets {
			rules = append(rules, rule)
		}
		sort.Strings(rules)
		for _, rule := range rules {
			if target := targets[rule]; counts[target] == 0 {
				r.Errors = append(r.Errors, &domain.GraphReferenceError{SlideID: s.ID, Rule: rule, Target: target})
			}
		}
		for _, el := range s.Elements {
			if !el.Kind.Valid() {
				r.Errors = append(r.Errors, &UnknownElementKindError{SlideID: s.ID, ElementID: el.ID, Kind: el.Kind})
			}
		}
	}

	if contiguous && len(dups) == 0 {
		r.Errors = append(r.Errors, grouping(deck)...)
	}

	for _, id := range unreachable(domain.NewGraph(deck)) {
		r.Warnings = append(r.Warnings, fmt.Sprintf("slide '%s' is unreachable from the first slide", id))
	}
	return r
}

// grouping recomputes the canonical order from the stored one and reports
// every slide it moves. Unknown folders are reported elsewhere and skipped.
func grouping(deck *domain.Deck) []error {
	g := domain.NewGraph(deck)
	res := ordering.Recompute(g.Slides(), nil, deck.Folders)
	if len(res.Issues) > 0 {
		return nil
	}
	var errs []error
	for _, s := range res.Slides {
		old, _ := g.Slide(s.ID)
		if old.Order != s.Order {
			errs = append(errs, &FolderGroupingError{SlideID: s.ID, Order: old.Order, Expected: s.Order})
		}
	}
	return errs
}

// unreachable crawls the graph from the first slide. A slide leads to every
// existing connection target, to its sequential successor when no valid
// default_next replaces it, and back to its predecessor.
func unreachable(g *domain.Graph) []string {
	if g.Len() == 0 {
		return nil
	}
	visited := make([]bool, g.Len())
	queue := []int{0}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		if visited[i] {
			continue
		}
		visited[i] = true

		s, _ := g.At(i)
		next := []int{i - 1}
		if j, ok := g.IndexOf(defaultNext(s)); ok {
			next = append(next, j)
		} else {
			next = append(next, i+1)
		}
		for _, target := range s.Connections.Targets() {
			if j, ok := g.IndexOf(target); ok {
				next = append(next, j)
			}
		}
		for _, j := range next {
			if j >= 0 && j < g.Len() && !visited[j] {
				queue = append(queue, j)
			}
		}
	}

	var out []string
	for i, ok := range visited {
		if !ok {
			s, _ := g.At(i)
			out = append(out, s.ID)
		}
	}
	return out
}

func defaultNext(s domain.Slide) string {
	if s.Connections == nil {
		return ""
	}
	return s.Connections.DefaultNext
}
