// Package exporter turns a built report into files a teacher can keep.
//
// It has four parts:
//
// ChartRenderer draws the chart specs of an analysis as SVG documents.
//
// HTMLRenderer lays out report sections as an A4 page. Chart images are
// referenced either as workspace files or as inline data URIs.
//
// Exporter ties both together with a Printer. ExportPDF writes the charts
// and the page into a temporary workspace, asks the printer for a PDF and
// removes the workspace afterwards. ChromePrinter is the Printer backed by
// headless Chrome.
//
// CSVWriter writes the long observation table and per-subject averages
// with a UTF-8 BOM so spreadsheet programs detect the encoding.
//
// Example usage:
//
//	exp := exporter.NewExporter(exporter.NewChromePrinter(opts, logger), "", logger)
//	pdf, err := exp.ExportPDF(ctx, result.Report, result.Analysis)
package exporter
