// Package api provides the operator-facing HTTP and WebSocket server.
//
// It serves the dashboard's static assets, a small REST surface for
// reading and editing relay configuration, querying event history, and
// issuing relay commands, plus a WebSocket endpoint pushing live state
// reports and configuration changes to every connected dashboard.
//
// The server follows the same lifecycle pattern as the gateway:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
