package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"gradereport/internal/app"
	"gradereport/internal/config"
	"gradereport/internal/dataprocessing"
	"gradereport/internal/exporter"
	"gradereport/internal/infrastructure"
	"gradereport/internal/report"
	"gradereport/pkg/contracts"
	"gradereport/pkg/contracts/domain"
)

// options shared by every command that reads a workbook
type workbookFlags struct {
	sheet   string
	student string
	subject string
	mode    string
	verbose bool
}

func newRootCmd() *cobra.Command {
	flags := &workbookFlags{}

	root := &cobra.Command{
		Use:           "gradereport",
		Short:         "Statistics and printable reports from class registry exports",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       contracts.Version,
	}
	root.SetVersionTemplate(contracts.GetFullVersionString() + "\n")
	root.PersistentFlags().StringVar(&flags.sheet, "sheet", "", "worksheet name (default from configuration)")
	root.PersistentFlags().StringVar(&flags.student, "student", domain.All, "student to select")
	root.PersistentFlags().StringVar(&flags.subject, "subject", domain.All, "subject to select")
	root.PersistentFlags().StringVar(&flags.mode, "mode", string(domain.ClassSummary), "report mode: class or individual")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log progress to stderr")

	root.AddCommand(
		newInspectCmd(flags),
		newReportCmd(flags),
		newCSVCmd(flags),
		newServeCmd(),
	)
	return root
}

func (f *workbookFlags) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if f.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func (f *workbookFlags) selection() (domain.FilterCriteria, domain.ReportMode, error) {
	mode, err := domain.ParseReportMode(f.mode)
	if err != nil {
		return domain.FilterCriteria{}, "", err
	}
	return domain.NewFilterCriteria(f.student, f.subject), mode, nil
}

// settings loads the configuration the server would use and applies the
// command line overrides on top of it.
func (f *workbookFlags) settings() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if f.sheet != "" {
		cfg.Workbook.SheetName = f.sheet
	}
	return cfg, nil
}

// run loads the workbook at path and runs the pipeline for the selection.
func (f *workbookFlags) run(cmd *cobra.Command, cfg *config.Config, path string, logger *slog.Logger) (*report.Result, error) {
	criteria, mode, err := f.selection()
	if err != nil {
		return nil, err
	}

	src, err := dataprocessing.OpenWorkbookFile(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	parser := dataprocessing.NewParser(dataprocessing.ParseOptions{
		SheetName:   cfg.Workbook.SheetName,
		SkipRows:    cfg.Workbook.SkipRows,
		WindowStart: cfg.Workbook.WindowStart,
		WindowEnd:   cfg.Workbook.WindowEnd,
	}, logger)
	pipeline := report.NewPipeline(parser, report.NewBuilder(cfg.Export.Title))

	return pipeline.RenderReport(cmd.Context(), src, criteria, mode)
}

// load is settings followed by run.
func (f *workbookFlags) load(cmd *cobra.Command, path string, logger *slog.Logger) (*config.Config, *report.Result, error) {
	cfg, err := f.settings()
	if err != nil {
		return nil, nil, err
	}
	result, err := f.run(cmd, cfg, path, logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, result, nil
}

func newInspectCmd(flags *workbookFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <workbook.xlsx>",
		Short: "Print the statistics of a selection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, result, err := flags.load(cmd, args[0], flags.logger(cmd))
			if err != nil {
				return err
			}
			printInspection(cmd.OutOrStdout(), result)
			return nil
		},
	}
}

func printInspection(out io.Writer, result *report.Result) {
	ds, analysis := result.Dataset, result.Analysis

	fmt.Fprintf(out, "Šaltinis: %s\n", ds.Source)
	fmt.Fprintf(out, "Mokiniai: %s\n", strings.Join(ds.Students, ", "))
	fmt.Fprintf(out, "Dalykai: %s\n", strings.Join(ds.Subjects, ", "))
	fmt.Fprintf(out, "Pasirinkta: %s / %s\n\n", analysis.Criteria.Student, analysis.Criteria.Subject)
	fmt.Fprintln(out, report.SummarySentence(analysis.Summary))

	fmt.Fprintln(out, "\nPasiekimų lygiai")
	levels := tablewriter.NewWriter(out)
	levels.SetHeader([]string{"Lygis", "Įvertinimų"})
	for _, level := range analysis.Levels {
		levels.Append([]string{level.Label, strconv.Itoa(level.Count)})
	}
	levels.Render()

	fmt.Fprintln(out, "\nDalykų vidurkiai")
	averages := tablewriter.NewWriter(out)
	averages.SetHeader([]string{"Dalykas", "Vidurkis", "Įvertinimų"})
	for _, avg := range analysis.SubjectAverages {
		averages.Append([]string{avg.Key, strconv.FormatFloat(avg.Mean, 'f', 2, 64), strconv.Itoa(avg.Count)})
	}
	averages.Render()
}

func newReportCmd(flags *workbookFlags) *cobra.Command {
	var (
		output     string
		html       bool
		chromePath string
		noSandbox  bool
	)

	cmd := &cobra.Command{
		Use:   "report <workbook.xlsx>",
		Short: "Render the report as PDF, or as HTML with --html",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := flags.logger(cmd)
			cfg, result, err := flags.load(cmd, args[0], logger)
			if err != nil {
				return err
			}

			if output == "" {
				output = exporter.ReportFileName
				if html {
					output = strings.TrimSuffix(output, filepath.Ext(output)) + ".html"
				}
			}

			if html {
				exp := exporter.NewExporter(nil, cfg.Export.TempDir, logger)
				page, err := exp.RenderHTML(cmd.Context(), result.Report, result.Analysis)
				if err != nil {
					return err
				}
				if err := os.WriteFile(output, page, 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", output, err)
				}
			} else {
				if chromePath != "" {
					cfg.Export.ChromePath = chromePath
				}
				if noSandbox {
					cfg.Export.NoSandbox = true
				}
				printer := exporter.NewChromePrinter(exporter.ChromeOptions{
					ExecPath:  cfg.Export.ChromePath,
					Headless:  cfg.Export.Headless,
					NoSandbox: cfg.Export.NoSandbox,
					Timeout:   cfg.Export.Timeout,
				}, logger)
				exp := exporter.NewExporter(printer, cfg.Export.TempDir, logger)
				if err := exp.ExportPDFFile(cmd.Context(), result.Report, result.Analysis, output); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Ataskaita išsaugota: %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")
	cmd.Flags().BoolVar(&html, "html", false, "write the HTML page instead of a PDF")
	cmd.Flags().StringVar(&chromePath, "chrome", "", "path to the Chrome or Chromium binary (default from configuration)")
	cmd.Flags().BoolVar(&noSandbox, "no-sandbox", false, "start Chrome without its sandbox")
	return cmd
}

func newCSVCmd(flags *workbookFlags) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "csv <workbook.xlsx>",
		Short: "Write the filtered long table as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := flags.logger(cmd)
			_, result, err := flags.load(cmd, args[0], logger)
			if err != nil {
				return err
			}

			rows := dataprocessing.Apply(result.Dataset.Observations, result.Analysis.Criteria)
			writer := exporter.NewCSVWriter(logger)
			opts := exporter.ObservationOptions(rows)
			if output == "" || output == "-" {
				return writer.WriteCSV(cmd.OutOrStdout(), opts)
			}
			return writer.WriteCSVFile(output, opts)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")
	return cmd
}

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if port > 0 {
				cfg.Server.Port = port
			}

			logger, err := infrastructure.InitializeLogger(cfg.Logging)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}

			application, err := app.New(cfg, logger, nil)
			if err != nil {
				return err
			}
			return application.Run()
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from configuration)")
	return cmd
}
