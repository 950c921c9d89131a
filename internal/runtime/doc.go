/*
Package runtime implements the scene command interpreter.

An Engine binds a story document to the infrastructure ports (loader,
asset catalog, audio output, save-slot store). Each Session owns one
playthrough: a cooperative, single-threaded loop that walks the current
scene's command list, dispatches one handler per command, and suspends on
waits, timed transitions, or input requests. External UI events (advance,
choose, submit text, finish movie) resume the loop.

All mutation of the renderable state flows through StatePatch application;
the loop owns index, stack, status, and history bookkeeping directly.
*/
package runtime
