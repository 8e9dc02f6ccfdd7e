// Package report turns a dataset and a selection into a report model: an
// ordered list of title, key-value, table, image and narrative sections.
//
// Analyze computes the statistics and chart specs for a selection, Builder
// decides the content of the class and individual reports, and Pipeline wires
// parsing, analysis and building into one call. Renderers in the exporter
// package consume the model and never decide content themselves.
package report
