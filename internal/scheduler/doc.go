// Package scheduler implements the orchestrator's dispatch engine: it owns
// one graph.Graph, drives the propagate/dispatch cycle described by the
// vertex state machine, enforces a concurrency cap and a failure policy,
// and fires a single terminal callback per campaign.
//
// The Scheduler is a single-owner state machine: every mutation of graph
// state, inFlight, running and terminalFired happens under one mutex.
// Tasks run concurrently and report back asynchronously, but the
// scheduler serializes their completion events itself rather than relying
// on the caller to do so.
package scheduler
