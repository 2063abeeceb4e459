// Package main hosts the modelsort CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once per invocation, builds
// the structured logger, and hands work to the internal packages: organizer
// runs, preflight checks, run history queries, and workspace maintenance.
// Commands only translate flags into requests and render results as tables
// or JSON.
package main
