package reel

import _ "embed"

// Version is the release of the reel module.
//
//go:embed VERSION
var Version string
