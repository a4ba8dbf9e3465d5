// Package main hosts the darkroom CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into calls
// against the processing core: ingestion, tier transitions, burst review,
// face assignment, person management, history inspection, and configuration
// scaffolding. It centralizes configuration resolution and service wiring so
// subcommands can focus on user experience.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
