// Package viz draws the fluid in the terminal.
//
// [Model] is a Bubble Tea program that steps a learned fluid in the
// background and renders the particles with a braille [Canvas], either as
// a front view of the x-y plane or through an orbiting [Camera]. A side
// panel plots the mean kinetic energy with asciigraph and lists the
// rollout metrics. [Picker] is a small menu used to choose a preset.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	N     - Single step while paused
//	R     - Reset to the initial state
//	V     - Toggle front/orbit view
//	T     - Cycle colour themes
//	Arrow - Orbit the camera
//	+/-   - Zoom
package viz
