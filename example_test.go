package vine_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/vine"
	"github.com/aretw0/vine/pkg/adapters/memory"
)

// ExampleNew_memory demonstrates running a story defined entirely in
// memory. This is useful for tests, embedded stories, or when the host
// builds the document programmatically.
func ExampleNew_memory() {
	// 1. Define the story document. YAML and JSON are both accepted.
	loader, err := memory.NewLoaderFromBytes([]byte(`
id: greeting
title: Greeting
startSceneId: porch
scenes:
  - id: porch
    commands:
      - type: dialogue
        text: You made it. Coming in?
      - type: choice
        options:
          - id: o_yes
            text: Step inside
            targetSceneId: hall
          - id: o_no
            text: Stay outside
            targetSceneId: garden
  - id: hall
    commands:
      - type: dialogue
        text: The hall smells of old paper.
      - type: endGame
  - id: garden
    commands:
      - type: dialogue
        text: The garden waits.
      - type: endGame
`))
	if err != nil {
		log.Fatal(err)
	}

	// 2. Initialize the engine with the custom loader. No library path
	// needed ("") because we are providing a loader.
	eng, err := vine.New("", vine.WithLoader(loader))
	if err != nil {
		log.Fatal(err)
	}

	// 3. Start a session. The loop runs until the first suspension: here
	// the opening dialogue.
	ctx := context.Background()
	s, err := eng.NewSession(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	if err := s.Start(ctx); err != nil {
		log.Fatal(err)
	}
	fmt.Println(s.State().UI.Dialogue)

	// 4. Advance past the dialogue; the choice suspends the loop again.
	if err := s.Advance(ctx); err != nil {
		log.Fatal(err)
	}
	for _, opt := range s.State().UI.Choices {
		fmt.Println("-", opt.Text)
	}

	// 5. Pick an option; the session jumps to its target scene.
	if err := s.Choose(ctx, "o_yes"); err != nil {
		log.Fatal(err)
	}
	fmt.Println(s.State().UI.Dialogue)

	// Output:
	// You made it. Coming in?
	// - Step inside
	// - Stay outside
	// The hall smells of old paper.
}
