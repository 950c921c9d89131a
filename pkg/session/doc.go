/*
Package session implements save-slot management and persistence orchestration.

It provides high-level abstractions for handling concurrent access to
numbered save slots, serializing writes per slot and degrading to an
in-memory buffer when the configured backend stops accepting writes, so a
failing disk or network store never costs the player their progress.
*/
package session
