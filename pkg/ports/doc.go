/*
Package ports defines the driven ports (interfaces) for the Vine engine.

These interfaces decouple the interpreter core from external
implementations, allowing it to work with various story sources, save-slot
backends, asset catalogs, audio outputs, and clocks.

# Key Interfaces

  - StoryLoader: Responsible for loading the Project document (e.g., from
    a single file, Loam library, or Memory).
  - SlotStore: Responsible for persisting and loading save-slot Snapshots.
  - AssetResolver: Maps asset ids to playable URLs and metadata.
  - AudioOutput: The playback device behind the audio channel manager.
  - Clock: Time source for the effect scheduler; swapped in tests.
*/
package ports
