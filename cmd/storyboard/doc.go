// Package main hosts the storyboard CLI entrypoint and command graph.
//
// The Cobra-based command tree covers configuration scaffolding, catalog
// inspection, upload-directory reconciliation, and database health checks. It
// centralizes configuration resolution so subcommands can focus on user
// experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
