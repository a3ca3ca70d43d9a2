package navigation

import (
	"github.com/aretw0/reel/pkg/domain"
)

// Rule names the connection rule that produced a resolution.
type Rule string

const (
	RuleNone        Rule = ""
	RuleElementItem Rule = "element_item"
	RuleElement     Rule = "element"
	RuleOption      Rule = "option"
	RuleDefault     Rule = "default_next"
	RuleSequential  Rule = "sequential"
)

// NoMatch is the index carried by a Resolution that matched nothing.
const NoMatch = -1

// Resolution is the outcome of Resolve.
type Resolution struct {
	Index   int
	SlideID string
	Rule    Rule
}

// Matched reports whether a target slide was found.
func (r Resolution) Matched() bool {
	return r.Rule != RuleNone
}

var noMatch = Resolution{Index: NoMatch}

// Resolve evaluates the priority-based connection rules of a slide.
// A rule only wins if its target exists in the graph; dangling targets fall
// through to the next rule. The last rule is the sequential successor.
// Resolve is total: an unknown slide or an empty graph yields no match.
func Resolve(g *domain.Graph, slideID string, trigger domain.Trigger) Resolution {
	current, ok := g.IndexOf(slideID)
	if !ok {
		return noMatch
	}
	slide, _ := g.At(current)
	conns := slide.Connections
	if conns == nil {
		conns = &domain.Connections{}
	}

	// Priority 1: Element + Item
	if trigger.ElementID != "" && trigger.ItemID != "" {
		if r, ok := lookup(g, conns.PerElement, domain.ElementKey(trigger.ElementID, trigger.ItemID), RuleElementItem); ok {
			return r
		}
	}

	// Priority 2: Element
	if trigger.ElementID != "" {
		if r, ok := lookup(g, conns.PerElement, trigger.ElementID, RuleElement); ok {
			return r
		}
	}

	// Priority 3: Option
	if trigger.OptionID != "" {
		if r, ok := lookup(g, conns.PerOption, trigger.OptionID, RuleOption); ok {
			return r
		}
	}

	// Priority 4: Default
	if r, ok := target(g, conns.DefaultNext, RuleDefault); ok {
		return r
	}

	// Priority 5: Sequential
	if next, ok := g.At(current + 1); ok {
		return Resolution{Index: current + 1, SlideID: next.ID, Rule: RuleSequential}
	}

	return noMatch
}

func lookup(g *domain.Graph, rules map[string]string, key string, rule Rule) (Resolution, bool) {
	id, ok := rules[key]
	if !ok {
		return Resolution{}, false
	}
	return target(g, id, rule)
}

func target(g *domain.Graph, id string, rule Rule) (Resolution, bool) {
	i, ok := g.IndexOf(id)
	if !ok {
		return Resolution{}, false
	}
	return Resolution{Index: i, SlideID: id, Rule: rule}, true
}
