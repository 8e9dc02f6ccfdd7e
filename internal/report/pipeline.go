package report

import (
	"context"

	"gradereport/internal/dataprocessing"
	"gradereport/pkg/contracts/domain"
)

// Result is the output of one pipeline pass.
type Result struct {
	Dataset  *domain.Dataset
	Analysis domain.Analysis
	Report   *domain.Report
}

// Pipeline runs parse, normalize, filter, analyze and build. Each call
// recomputes everything from its inputs.
type Pipeline struct {
	parser  *dataprocessing.Parser
	builder *Builder
}

func NewPipeline(parser *dataprocessing.Parser, builder *Builder) *Pipeline {
	return &Pipeline{parser: parser, builder: builder}
}

// Load parses a source into a dataset with the given ID.
func (p *Pipeline) Load(ctx context.Context, src dataprocessing.Source, id string) (*domain.Dataset, error) {
	result, err := p.parser.Parse(ctx, src)
	if err != nil {
		return nil, err
	}
	return dataprocessing.NewDataset(id, src.Name(), result), nil
}

// Run analyzes an already loaded dataset and builds the report.
func (p *Pipeline) Run(ds *domain.Dataset, criteria domain.FilterCriteria, mode domain.ReportMode) (*Result, error) {
	analysis := Analyze(ds, criteria)
	rep, err := p.builder.Build(mode, ds, analysis)
	if err != nil {
		return nil, err
	}
	return &Result{Dataset: ds, Analysis: analysis, Report: rep}, nil
}

// RenderReport is the whole pass from a raw spreadsheet to a report model.
// A parse failure aborts before anything is built.
func (p *Pipeline) RenderReport(ctx context.Context, src dataprocessing.Source, criteria domain.FilterCriteria, mode domain.ReportMode) (*Result, error) {
	ds, err := p.Load(ctx, src, "")
	if err != nil {
		return nil, err
	}
	return p.Run(ds, criteria, mode)
}
