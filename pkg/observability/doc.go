/*
Package observability provides tools for monitoring the reel engine.

It includes lifecycle hooks for structured logging of transitions, Prometheus
metrics fed by the same hooks, and helpers to combine several hook sets on one
playback controller.
*/
package observability
