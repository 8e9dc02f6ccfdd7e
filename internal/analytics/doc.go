// Package analytics holds the pure statistics of the report: descriptive
// measures, per-group averages, achievement-level classification and the
// recommendation tiers.
//
// Every function takes the observations it needs and returns a value; nothing
// here keeps state or fails. Undefined results are expressed with
// domain.Measure and domain.NoUniqueMode instead of errors so a report can be
// rendered for a selection with zero or one record.
package analytics
