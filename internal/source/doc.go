// Package source provides tick sources for hosts without a pulse input:
// a timer that simulates ticks and a line reader for manual ticks typed
// into a terminal.
package source
