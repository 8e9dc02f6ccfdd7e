// Package shared holds code used by more than one layer of the grade report
// service that belongs to none of them.
//
// # Structure
//
//   - testutil: workbook fixtures in the registry layout and a log capture
//     handler for asserting on structured logs
//
// Production packages must not import testutil.
package shared
