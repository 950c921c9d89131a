/*
Package audio is the channel manager: two singleton channels (music,
ambient) with linear crossfade ramps, and a bounded fire-and-forget
sound-effect pool.

The manager keeps the authoritative MusicState bookkeeping and returns it
after every operation so command handlers fold it into their state patch.
Bookkeeping records author intent (target volume, loop, track); the fade
ramps only drive device gain through ports.AudioOutput and never touch the
model, so no asynchronous patches are needed.

A nil output degrades to pure bookkeeping, which is how the headless
server and most tests run. Device failures are logged and non-fatal.
*/
package audio
