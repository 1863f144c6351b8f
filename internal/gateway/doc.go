// Package gateway implements the device-facing TCP listener.
//
// Relay controllers hold one persistent connection each and exchange
// line-delimited JSON records: a registration record establishes the
// device's identity and triggers a configuration push, subsequent state
// reports are logged and fanned out to dashboard observers. Operator
// commands travel the other way as raw text lines.
//
// The package owns the device registry (one live connection per device,
// bounded by a capacity limit) and the per-connection session loop with
// its idle timeout. Configuration content itself lives in the relay
// package; the gateway only moves it across the wire.
package gateway
