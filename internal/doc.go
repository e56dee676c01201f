// Package internal holds token randomness and encoding helpers shared by the
// engine. Nothing here is part of the public API.
package internal
