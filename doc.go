/*
Package reel is the navigation and gating engine behind swipeable slide decks.

A deck is a sequence of full-viewport slides the viewer swipes through. Slides
may branch on which option, element or sub-item the viewer interacted with,
and some slides block forward progress until a condition is satisfied. The
engine decides, for every attempted transition, which slide becomes active,
whether the attempt is permitted, and how the scroll position, the lazy render
window and the canonical slide order stay consistent with that decision.

# Concepts

  - Resolver: priority-ordered connection rules (element item, element,
    option, default next, sequential). Dangling targets fall through.
  - Gating: a slide is locked while any of its elements blocks.
  - Order: the canonical 1..N order is recomputed from a folder-grouped
    arrangement. Folders come first, then unassigned slides.
  - Playback: a single-threaded controller turns motion, keys and explicit
    actions into scroll commands. Forward motion off a locked slide is
    reversed, since it cannot be vetoed before it starts.

# Usage

	store, _ := memory.NewFromSlides(
		domain.Slide{ID: "intro"},
		domain.Slide{ID: "quiz", Elements: []domain.GatingElement{
			{ID: "answer", Kind: domain.KindChoiceSet, Locked: true},
		}},
	)

	engine, err := reel.New(ctx, store)
	if err != nil {
		log.Fatal(err)
	}
	defer engine.Close(ctx)

	sess, _ := engine.Sessions().Create(ctx, "")
	state, accepted, err := engine.Sessions().Dispatch(ctx, sess.ID, session.Command{
		Type: session.CommandKey, Delta: 1,
	})

Edits to order and connections go through a persistence writer that reports
a per-slide outcome (success, conflict, reverted) instead of retrying.
*/
package reel
