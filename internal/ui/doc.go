// Package ui implements the `ytsort sync watch` monitor using bubbletea's Elm architecture.
//
// The monitor is one of the engine's pollers. While running it requests one batch per
// tick, shows the current stage with a progress bar, the per-stage results and the
// latest error, and lets the user hold, step, pause and resume the job:
//  1. [MonitorView] : live job state
//  2. [ErrorsView] : scrollable list of the job's recorded errors
//
// The [Model] receives engine results through the Msg union type. Per-item progress
// flows in over the engine's progress channel and never blocks a batch.
package ui
