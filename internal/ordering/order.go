package ordering

import (
	"sort"

	"github.com/aretw0/reel/pkg/domain"
)

// Result is the outcome of Recompute.
type Result struct {
	// Slides are the input slides in their new canonical order, with Order = 1..N.
	Slides []domain.Slide

	// Changed lists the ids whose order or folder differs from the input.
	Changed []string

	// Issues reports slides that referenced an unknown folder and were treated as unassigned.
	Issues []*domain.OrderInconsistencyError
}

// Recompute derives the canonical order from a folder-grouped arrangement.
//
// The position of each slide in flat is the truth for relative ordering; the
// stored Order field is ignored. assignments overrides a slide's folder (an
// empty value means unassigned) and may be nil. Folder groups come first,
// sorted by folder Order, followed by unassigned slides.
func Recompute(flat []domain.Slide, assignments map[string]string, folders []domain.Folder) Result {
	known := make(map[string]domain.Folder, len(folders))
	for _, f := range folders {
		if _, dup := known[f.ID]; !dup {
			known[f.ID] = f
		}
	}

	buckets := make(map[string][]domain.Slide)
	var unassigned []domain.Slide
	var issues []*domain.OrderInconsistencyError

	for _, s := range flat {
		s = s.Clone()
		if folderID, ok := assignments[s.ID]; ok {
			s.FolderID = folderID
		}
		if s.FolderID == "" {
			unassigned = append(unassigned, s)
			continue
		}
		if _, ok := known[s.FolderID]; !ok {
			issues = append(issues, &domain.OrderInconsistencyError{SlideID: s.ID, FolderID: s.FolderID})
			unassigned = append(unassigned, s)
			continue
		}
		buckets[s.FolderID] = append(buckets[s.FolderID], s)
	}

	// Folder ids in folder order; ties keep their position in the folder list.
	groups := make([]string, 0, len(known))
	seen := make(map[string]bool, len(known))
	for _, f := range folders {
		if !seen[f.ID] {
			seen[f.ID] = true
			groups = append(groups, f.ID)
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return known[groups[i]].Order < known[groups[j]].Order
	})

	out := make([]domain.Slide, 0, len(flat))
	for _, id := range groups {
		out = append(out, buckets[id]...)
	}
	out = append(out, unassigned...)

	before := make(map[string]domain.Slide, len(flat))
	for _, s := range flat {
		before[s.ID] = s
	}

	var changed []string
	for i := range out {
		out[i].Order = i + 1
		prev := before[out[i].ID]
		if prev.Order != out[i].Order || prev.FolderID != out[i].FolderID {
			changed = append(changed, out[i].ID)
		}
	}

	return Result{Slides: out, Changed: changed, Issues: issues}
}

// Move relocates a slide to position to (0-based) in a flat list, as a drag
// in the author's list would. Out-of-range positions are clamped.
func Move(flat []domain.Slide, slideID string, to int) []domain.Slide {
	from := -1
	for i, s := range flat {
		if s.ID == slideID {
			from = i
			break
		}
	}
	out := append([]domain.Slide(nil), flat...)
	if from < 0 {
		return out
	}
	moved := out[from]
	out = append(out[:from], out[from+1:]...)
	if to < 0 {
		to = 0
	}
	if to > len(out) {
		to = len(out)
	}
	out = append(out[:to], append([]domain.Slide{moved}, out[to:]...)...)
	return out
}
