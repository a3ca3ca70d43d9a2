/*
Package session runs playback sessions.

Each session owns one playback.Loop, so a viewer's inputs and timer expiries
are handled on a single goroutine. The Manager creates and looks sessions up,
dispatches commands to them, broadcasts their viewport commands to
subscribers and reloads every session when the deck changes.
*/
package session
