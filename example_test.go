package reel_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/reel"
	"github.com/aretw0/reel/pkg/adapters/memory"
	"github.com/aretw0/reel/pkg/domain"
)

// ExampleNew_memory demonstrates branching and gating on an in-memory deck.
func ExampleNew_memory() {
	// 1. Define the deck. Orders are assigned from the argument position.
	store, err := memory.NewFromSlides(
		domain.Slide{
			ID: "intro",
			Connections: &domain.Connections{
				PerOption: map[string]string{"skip": "outro"},
			},
		},
		domain.Slide{
			ID: "quiz",
			Elements: []domain.GatingElement{
				{ID: "answer", Kind: domain.KindChoiceSet, Locked: true},
			},
		},
		domain.Slide{ID: "outro"},
	)
	if err != nil {
		log.Fatal(err)
	}

	// 2. Load it.
	ctx := context.Background()
	engine, err := reel.New(ctx, store)
	if err != nil {
		log.Fatal(err)
	}
	defer engine.Close(ctx)

	// 3. Ask where interactions lead.
	fmt.Println(engine.Resolve("intro", domain.Trigger{}).SlideID)
	fmt.Println(engine.Resolve("intro", domain.Trigger{OptionID: "skip"}).SlideID)

	// 4. The quiz blocks forward motion until something is selected.
	locked, blockers := engine.Evaluate("quiz", nil)
	fmt.Println(locked, blockers)

	// Output:
	// quiz
	// outro
	// true [answer]
}
