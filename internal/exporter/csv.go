package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gradereport/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger.With(slog.String("component", "csv_writer"))}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes headers and records to out
func (w *CSVWriter) WriteCSV(out io.Writer, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := out.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(out)

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteCSVFile writes a CSV file, creating its directory
func (w *CSVWriter) WriteCSVFile(filePath string, options WriteOptions) error {
	w.logger.Info("Writing CSV file",
		slog.String("file_path", filePath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if err := w.WriteCSV(file, options); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// ObservationOptions lays out the long table, one row per observation.
func ObservationOptions(obs []domain.GradeObservation) WriteOptions {
	records := make([][]string, 0, len(obs))
	for _, o := range obs {
		records = append(records, []string{o.Student, o.Subject, formatInt(o.Score)})
	}
	return WriteOptions{
		Headers:   []string{domain.StudentColumn, "Dalykas", "Ivertinimas"},
		Records:   records,
		BOMPrefix: true,
	}
}

// SubjectAverageOptions lays out the per-subject averages of an analysis.
func SubjectAverageOptions(averages []domain.GroupAverage) WriteOptions {
	records := make([][]string, 0, len(averages))
	for _, g := range averages {
		records = append(records, []string{g.Key, formatFloat(g.Mean, 2), formatInt(g.Count)})
	}
	return WriteOptions{
		Headers:   []string{"Dalykas", "Vidurkis", "Įrašų skaičius"},
		Records:   records,
		BOMPrefix: true,
	}
}
