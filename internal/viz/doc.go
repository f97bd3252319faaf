// Package viz renders simulation output in the terminal.
//
// Run summaries and integrator comparisons are lipgloss tables, diagnostic
// series are asciigraph plots, and [Dashboard] is a Bubble Tea program that
// drives a live scene from the wall clock.
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	I     - Cycle integrator
//	+/-   - More/fewer sub-steps per frame
//	>/<   - Double/halve the time scale
//	T     - Cycle color themes
//	?     - Show help overlay
//	Q     - Quit
package viz
