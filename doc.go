/*
Package vine is a scene command interpreter for branching visual novels:
an embeddable engine that executes authored scene scripts (dialogue,
choices, stage direction, audio, branching) while the host application
owns rendering and input.

It implements a cooperative interpreter loop with controlled suspension:
the engine runs scene commands until one needs time (a wait), media (a
movie), or the player (a choice, a text prompt), then halts and waits for
the host to deliver the event. Given the same story, inputs, clock, and
random source, a playthrough is reproducible.

# Concept

A story is a set of scenes, each an ordered command list. The engine owns
state transitions, variable mutation, branching, and save/load; the host
("presentation") owns drawing the stage and collecting input. This
hexagonal split lets the same story run under a terminal player, an HTTP
session API, or an editor playtest harness.

# Key Features

  - Cooperative execution: sessions suspend on waits, choices, text
    input, and movie playback, and resume on host events.
  - Hexagonal architecture: story storage, save slots, audio, and assets
    are ports with interchangeable adapters.
  - Save anywhere: snapshots capture the full interpreter state,
    including the call stack and audio positions.
  - Structural validation: dangling references, unbalanced branch
    markers, and uncompilable conditions are caught before play.

# Usage

Initialize the engine over a story source. The default loader reads a
loam library (one markdown file per scene); WithLoader injects any other
source.

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/vine"
		"github.com/aretw0/vine/pkg/domain"
	)

	func main() {
		eng, err := vine.New("./my-story")
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		s, err := eng.NewSession(ctx)
		if err != nil {
			log.Fatal(err)
		}
		defer s.Close()

		if err := s.Start(ctx); err != nil {
			log.Fatal(err)
		}

		// Main loop: read the suspended state, deliver the next event.
		for s.Status() != domain.StatusEnded {
			st := s.State()
			fmt.Println(st.UI.Dialogue)
			if err := s.Advance(ctx); err != nil {
				log.Fatal(err)
			}
		}
	}
*/
package vine
