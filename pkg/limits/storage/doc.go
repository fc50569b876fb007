// Package storage persists window state across process restarts.
//
// # Overview
//
// An admission engine that forgets its usage on restart can silently
// violate a venue limit the moment it comes back up. The storage backends
// journal per-category window state so a restarting client resumes with
// the usage it had already consumed:
//
//   - MemoryBackend: process-local, for tests and callers that accept
//     losing state on restart.
//   - SQLiteBackend: durable single-file journal using WAL mode.
//
// # Checkpointing
//
// Checkpointer snapshots a registry's state on a cron schedule and restores
// it at startup:
//
//	be, _ := storage.NewSQLiteBackend("rategate.db")
//	cp := storage.NewCheckpointer(reg, be, "@every 30s")
//	_ = cp.Restore(ctx)
//	_ = cp.Start(ctx)
//	defer cp.Stop()
package storage
