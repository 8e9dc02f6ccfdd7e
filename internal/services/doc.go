// Package services implements the business layer between the HTTP and
// WebSocket transports and the grade report pipeline.
//
// # Sessions
//
// An upload is parsed once into an immutable dataset and kept in the
// SessionStore under a random ID. Sessions expire after a configurable
// idle time; every access extends the expiry. The store holds at most a
// configured number of sessions and rejects new uploads with
// ErrTooManySessions once full.
//
// # Report service
//
// ReportService runs the pipeline for each request:
//
//	upload → parse → normalize → (session) → filter → analyze → build → render
//
// Nothing derived from a dataset is cached; dashboards, charts, CSV and PDF
// exports are recomputed from the session's dataset and the request's
// selection. Uploads are fingerprinted with blake2b so clients can use the
// fingerprint for conditional requests.
//
// # Errors
//
// Services return the sentinel errors in errors.go, wrapped with context.
// Parse failures from the dataprocessing package are passed through
// unchanged so the transport can report the missing sheet or column.
package services
