// Package models defines the domain entities of the ytsort library reorganiser.
//
// The package contains two groups of types:
//
// 1. Library entities written by the clustering phase and read by the sync engine:
//   - [Category] : A target playlist-to-be, anchored to YouTube by ExternalPlaylistID
//   - [Video] : A library video with its YouTube video ID
//   - [VideoAssignment] : Category membership of a video
//   - [Playlist] : A legacy playlist to be removed, anchored by DeletedFromRemoteAt
//
// 2. Sync engine state, owned by the job store:
//   - [SyncJob] : One synchronisation attempt, its [Stage], counters and error log
//   - [SyncVideoOperation] : One row of the add-videos operation ledger
//   - [Snapshot] : Metadata of the pre-sync safety backup
//
// Stage, pause reason and operation status are closed string enums validated
// at the persistence boundary.
package models
