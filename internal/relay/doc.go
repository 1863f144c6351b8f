// Package relay contains the relay configuration domain: slot descriptors,
// identity validation, the per-device configuration store, and the
// append-only relay event log.
//
// A device's configuration maps slot keys ("relay1".."relay51") to
// descriptors (display name, GPIO pin, category). The store keeps the
// in-memory mapping authoritative for the running process and persists it
// through a Repository on every mutation; persistence failures degrade to
// a logged warning rather than failing the mutation.
//
// Side effects of mutations (dashboard broadcast, config push to the live
// device) are expressed as the Notifier and Pusher ports so the store has
// no dependency on the transport layers.
package relay
