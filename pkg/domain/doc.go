/*
Package domain contains the core domain models for the Vine engine.

It defines the fundamental entities of the scene command interpreter, such
as Commands, Scenes, Variables, and the live PlayerState. This package is
kept pure and free of external dependencies like I/O or persistence,
following Hexagonal Architecture principles.

# Key Entities

  - Command: A tagged record in a scene's ordered command list (dialogue,
    branching, variable mutation, audio, stage directions, overlays).
  - Scene: A named ordered command list with optional entry conditions and
    a fallback scene.
  - PlayerState: The runtime snapshot of one playthrough (current scene,
    index, call/return stack, variables, stage/UI/music state, history).
  - StatePatch: The only mutation vehicle; command handlers produce
    patches, the interpreter loop applies them.
  - Snapshot: The save-slot payload derived from PlayerState.
*/
package domain
