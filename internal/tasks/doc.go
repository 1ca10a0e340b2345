// Package tasks runs the sync pipeline that pushes the local category structure to YouTube.
//
// # Engine
//
// [Engine] owns the job state machine:
//
//	pending -> backup -> create_playlists -> add_videos -> delete_playlists -> completed
//	any active stage <-> paused   (quota_exhausted | user_paused | errors_collected)
//	any stage -> failed
//
// It is purely reactive. A poller (the `sync run` loop, the TUI or the HTTP API)
// calls [Engine.ProcessBatch] on a cadence; each call does at most one bounded
// batch of work and returns the updated job. Nothing waits inside the engine:
// a job out of quota sits in paused until [Engine.ResumeJob] is called.
//
// # Executors
//
// The three API-bound stages each have an executor:
//   - [CreatePlaylists] : creates a remote playlist per non-protected category and anchors its ID
//   - [AddVideos] : drains the per-video operation ledger materialised when playlists are done
//   - [DeletePlaylists] : deletes superseded playlists and anchors the deletion time
//
// Every processed item is durably marked before the next one starts, so a crash
// or pause mid-batch loses nothing and a re-run only touches the remainder.
//
// # Failure Semantics
//
// Quota exhaustion pauses the job. Conflicts on add and not-found on delete are
// treated as success. Any other remote error is recorded against the item and the
// batch continues. An error that escapes an executor moves the job to failed.
//
// # Progress Reporting
//
// Executors emit a [ProgressUpdate] per item over an optional channel.
// Sends use select with default so reporting never blocks a batch.
package tasks
