// Package main hosts the Courier CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into IPC calls
// against the agent, queue maintenance operations, log tailing, and
// configuration scaffolding. Queue commands fall back to direct store access
// when the agent is not running, so the queue stays inspectable offline.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
