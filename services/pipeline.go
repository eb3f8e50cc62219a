package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"catalog-linker/config"
	"catalog-linker/models"
	"catalog-linker/storage"
	"catalog-linker/utils"
)

// Pipeline wires the two extractors and the merge engine for one run.
type Pipeline struct {
	A       Extractor
	B       Extractor
	Engine  *MergeEngine
	Reports *ReportService
	logger  *utils.Logger
}

// PipelineResult is the in-memory outcome of a run, before anything is
// written.
type PipelineResult struct {
	A      *models.SourceTable
	B      *models.SourceTable
	Merged []*models.MergedRecord
	Report *models.RunReport
}

// NewPipeline builds the standard pipeline from cfg.
func NewPipeline(cfg *config.Config, reader storage.BatchReader, logger *utils.Logger) (*Pipeline, error) {
	policy, err := ParseMergePolicy(cfg.MergePolicy)
	if err != nil {
		return nil, err
	}
	order, err := ParseMergeOrder(cfg.MergeOrder)
	if err != nil {
		return nil, err
	}

	cleaner := NewCleaner(logger, NewURLFilter(cfg.ValidityRules))
	return &Pipeline{
		A:       NewDirectoryExtractor(cfg.RawDirs.A, reader, cleaner, logger),
		B:       NewLaunchboardExtractor(cfg.RawDirs.B, reader, cleaner, logger),
		Engine:  NewMergeEngine(policy, order, logger),
		Reports: NewReportService(logger),
		logger:  logger,
	}, nil
}

// ExtractAll runs both extractors side by side. Each extraction is
// sequential and shares no state with the other; a failure on one side
// cancels the other.
func (p *Pipeline) ExtractAll(ctx context.Context) (*models.SourceTable, *models.SourceTable, error) {
	var a, b *models.SourceTable
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		a, err = p.A.Extract(gctx)
		return err
	})
	g.Go(func() (err error) {
		b, err = p.B.Extract(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// Run extracts both sources and merges them.
func (p *Pipeline) Run(ctx context.Context) (*PipelineResult, error) {
	report := p.Reports.Start()

	a, b, err := p.ExtractAll(ctx)
	if err != nil {
		return nil, err
	}
	p.Reports.AddSource(report, a)
	p.Reports.AddSource(report, b)

	merged, stats := p.Engine.Merge(a.Listings, b.Listings)
	p.Reports.Finish(report, stats)

	return &PipelineResult{A: a, B: b, Merged: merged, Report: report}, nil
}
