// Package tui holds rollout observers that write plain terminal output:
// a one-line progress bar and a redrawn front view of the fluid. Neither
// reads input, so both work when output is piped.
package tui
