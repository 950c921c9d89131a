package vine_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/vine"
	"github.com/aretw0/vine/pkg/domain"
	"github.com/aretw0/vine/pkg/dsl"
)

// ExampleNew_dsl demonstrates using vine purely as a Go library: the
// story is assembled with the fluent builder and pumped to completion
// without reading from the filesystem.
func ExampleNew_dsl() {
	// 1. Build the story programmatically. Declared variables interpolate
	// into dialogue text by display name.
	b := dsl.NewStory("tour").
		Title("Library Tour").
		Var("v_guide", "guide", domain.VarString, "Mara")

	b.Scene("atrium").
		Narrate("The atrium doors open.").
		Call("aside").
		Narrate("{guide} waves goodbye.").
		End()

	b.Scene("aside").
		Say("c_guide", "This way, please.").
		Return()

	loader, err := b.Loader()
	if err != nil {
		log.Fatal(err)
	}

	// 2. Initialize the engine with the custom loader. No library path
	// needed ("") because we are providing a loader.
	eng, err := vine.New("", vine.WithLoader(loader))
	if err != nil {
		log.Fatal(err)
	}

	// 3. Run the loop. Every suspension in this story is a dialogue
	// line, so a plain advance pumps it through the called scene and
	// back to the caller.
	ctx := context.Background()
	sess, err := eng.NewSession(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer sess.Close()

	if err := sess.Start(ctx); err != nil {
		log.Fatal(err)
	}
	for sess.Status() != domain.StatusEnded {
		fmt.Println(sess.State().UI.Dialogue)
		if err := sess.Advance(ctx); err != nil {
			log.Fatal(err)
		}
	}

	// Output:
	// The atrium doors open.
	// This way, please.
	// Mara waves goodbye.
}
