// Package daemon coordinates the long-running storyboard server process.
//
// It wires configuration, the catalog store, the asset store, and the HTTP
// server into a single lifecycle with flock-based locking to prevent multiple
// instances from sharing one data directory.
//
// Keep orchestration logic here: request handling lives in the server package
// while the daemon focuses on startup, shutdown, and instance exclusion.
package daemon
