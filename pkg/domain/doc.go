/*
Package domain contains the core model of the reel navigation engine.

It defines slides, folders and their connection maps, the indexed slide Graph,
gating element states, triggers, viewport commands and lifecycle events. This
package is kept pure and free of I/O or persistence concerns.

# Key Entities

  - Slide: one full-viewport panel, with a canonical Order and Connections.
  - Connections: default, per-option and per-element routing rules.
  - Graph: slides in canonical order with an id index.
  - GatingElement: an element-reported state that may block forward motion.
  - PlaybackState: a read-only snapshot of a playback controller.
*/
package domain
