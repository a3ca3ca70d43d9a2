package gating

import (
	"sort"

	"github.com/aretw0/reel/pkg/domain"
)

// Blocks reports whether a single element currently blocks forward motion.
func Blocks(el domain.GatingElement) bool {
	switch el.Kind {
	case domain.KindGateButton:
		return el.Locked
	case domain.KindChoiceSet:
		return el.Locked && el.Selections == 0
	case domain.KindProgressMeter:
		return el.Progress < el.Target
	case domain.KindForm:
		return el.Locked && !el.Valid
	}
	return false
}

// Blockers returns the ids of the blocking elements, sorted.
func Blockers(elements []domain.GatingElement) []string {
	var ids []string
	for _, el := range elements {
		if Blocks(el) {
			ids = append(ids, el.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// Evaluate reports whether a slide is locked given its element states.
// Conditions compose with OR; an absent kind contributes nothing.
func Evaluate(slide domain.Slide, elements []domain.GatingElement) bool {
	for _, el := range elements {
		if Blocks(el) {
			return true
		}
	}
	return false
}
