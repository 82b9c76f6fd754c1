// Package packagedb records which translation packages are installed so
// repeated runs can skip the package index refresh and install step.
//
// The registry is a small SQLite database opened in WAL mode. Writes retry
// briefly when another process holds the lock.
package packagedb
