// Package app wires the grade report server together and manages its
// lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration from YAML and GRADES_* environment variables
//	2. Initialize logging and OpenTelemetry
//	3. Build the workbook parser, report pipeline and exporter
//	4. Create the session store and the websocket hub
//	5. Create the report and health services
//	6. Set up the router, middleware and HTTP server
//
// # Lifecycle
//
// Start launches the session janitor and the HTTP server and runs a
// readiness check. Stop closes websocket clients, drains the server, stops
// the janitor and flushes telemetry. Run blocks until SIGINT or SIGTERM.
//
// Removing a session from the store, by DELETE or by expiry, pushes a
// session:expired message to every websocket client watching it.
//
// # Usage
//
//	application, err := app.NewApplication(frontendFS)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
package app
