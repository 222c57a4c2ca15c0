// Package client implements the care-log sync agent runtime.
//
// It wires the durable mutation queue, the sync engine, the network monitor,
// and the background workers into a single process lifecycle. The agent is
// headless: the UI layer talks to it through the client services it exposes.
package client
