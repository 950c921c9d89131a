package domain

import "errors"

// ErrSceneNotFound is returned when a scene id cannot be resolved in the
// project document.
var ErrSceneNotFound = errors.New("scene not found")

// ErrLabelNotFound is returned when a label id has no match in the current
// scene's command list.
var ErrLabelNotFound = errors.New("label not found")

// ErrSlotEmpty is returned when loading a save slot that holds no snapshot.
// Absence is a normal state, not a failure.
var ErrSlotEmpty = errors.New("save slot empty")

// ErrUnknownCommand is returned by the compiler for a type tag outside the
// closed command set.
var ErrUnknownCommand = errors.New("unknown command type")

// ErrSessionClosed is returned when stepping or delivering input to a
// session whose run has ended.
var ErrSessionClosed = errors.New("session closed")

// ErrNoScenes is returned when a project declares no scenes at all.
var ErrNoScenes = errors.New("project has no scenes")

// ErrProjectNotFound is returned when a loader cannot locate the requested
// project document.
var ErrProjectNotFound = errors.New("project not found")

// ErrNoPendingInput is returned when a specific input event (choice,
// text submission) arrives while the loop is not waiting for that input.
var ErrNoPendingInput = errors.New("no matching input request pending")

// ErrUnknownOption is returned when a choice pick or ui action names an
// option the current state does not offer.
var ErrUnknownOption = errors.New("unknown option")
