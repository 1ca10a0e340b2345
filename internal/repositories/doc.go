// Package repositories implements SQLite persistence for the library and the sync engine.
//
// Key Implementations:
//   - [SyncJobRepository] : sync job lifecycle with typed JSON columns and the single-active-job index
//   - [SyncOperationRepository] : the per-video operation ledger that drives the add-videos stage
//   - [CategoryRepository] : categories, video assignments and the external playlist anchor
//   - [VideoRepository] : library videos
//   - [PlaylistRepository] : superseded playlists and the remote deletion anchor
//   - [QuotaRepository] : per-day quota ledger
//   - [SnapshotRepository] : index of pre-sync library snapshots
//
// Anchor and status writes are single-row updates so that a crash mid-batch
// leaves every processed item durably marked. Malformed JSON columns fail with
// [shared.ErrMalformedRecord] instead of producing a partially decoded record.
package repositories
