// Package viz renders simulation output for the terminal.
//
// It provides the lipgloss styles shared by the CLI and the live view, a
// Braille [Canvas] and a [Camera] that projects particles and wall faces onto
// it, and summary panels for finished runs.
package viz
