// Package ui implements the interactive worktree session.
//
// The session renders the cached worktree table instantly, then streams
// refresh events from internal/sync into the table as they arrive.
// Cells that have not been re-validated in this session are dimmed;
// local validation restores the local column group, remote validation
// the rest.
//
// All mutations (create, rename, delete, pull, push) run as background
// commands. After a mutation the affected paths are invalidated on the
// engine and re-refreshed, so any result computed before the mutation
// is discarded rather than displayed.
package ui
