package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/tenbis-barcodes/internal/domain"
	"github.com/dvloznov/tenbis-barcodes/internal/logger"
	"github.com/dvloznov/tenbis-barcodes/internal/metrics"
	"github.com/dvloznov/tenbis-barcodes/internal/notify"
)

// PipelineStep represents a single step in the barcode pipeline.
type PipelineStep interface {
	Name() string
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Run      domain.Run
	Download DownloadResult
}

// NewPipelineState starts a run from base, which carries the vendor fields,
// under a fresh ID.
func NewPipelineState(base domain.Run, monthsBack int, outputDir string) *PipelineState {
	run := base
	run.ID = domain.NewRunID()
	run.MonthsBack = monthsBack
	run.OutputDir = outputDir
	run.StartedAt = time.Now().UTC()
	return &PipelineState{Run: run}
}

// Step 1: CollectStep gathers the vendor's transactions.
type CollectStep struct {
	Collector *Collector
}

func (s *CollectStep) Name() string { return StageCollect }

func (s *CollectStep) Execute(ctx context.Context, state *PipelineState) error {
	txs, err := s.Collector.Collect(ctx, state.Run.MonthsBack)
	if err != nil {
		return err
	}
	state.Run.Transactions = txs
	return nil
}

// Step 2: ResolveStep fetches the unused coupons behind the transactions.
type ResolveStep struct {
	Resolver *Resolver
}

func (s *ResolveStep) Name() string { return StageResolve }

func (s *ResolveStep) Execute(ctx context.Context, state *PipelineState) error {
	coupons, err := s.Resolver.Resolve(ctx, state.Run.Transactions)
	if err != nil {
		return err
	}
	state.Run.Coupons = coupons
	return nil
}

// Step 3: DownloadStep writes the coupon images to the output directory.
type DownloadStep struct {
	Downloader *Downloader
}

func (s *DownloadStep) Name() string { return StageDownload }

func (s *DownloadStep) Execute(ctx context.Context, state *PipelineState) error {
	res, err := s.Downloader.Download(ctx, state.Run.Coupons, state.Run.OutputDir)
	if err != nil {
		return err
	}
	state.Download = res
	state.Run.Files = res.Files
	return nil
}

// Step 4: SummarizeStep totals the run and renders the report.
type SummarizeStep struct {
	Recorder *metrics.Recorder
}

func (s *SummarizeStep) Name() string { return StageSummarize }

func (s *SummarizeStep) Execute(ctx context.Context, state *PipelineState) error {
	sum := Summarize(state.Run.Transactions, state.Run.Coupons)
	state.Run.Summary = sum
	state.Run.Report = sum.Render(state.Run.VendorName, state.Run.Currency)
	state.Run.FinishedAt = time.Now().UTC()
	s.Recorder.SetSummary(sum.TotalCount, sum.UnusedCount, sum.TotalAmount, sum.UnusedAmount)
	return nil
}

// Step 5 (optional): ArchiveStep mirrors the run to object storage.
type ArchiveStep struct {
	Archiver Archiver
}

func (s *ArchiveStep) Name() string { return StageArchive }

func (s *ArchiveStep) Execute(ctx context.Context, state *PipelineState) error {
	return s.Archiver.Archive(ctx, &state.Run)
}

// Step 6 (optional): ExportStep writes the run to the analytics store.
type ExportStep struct {
	Exporter Exporter
}

func (s *ExportStep) Name() string { return StageExport }

func (s *ExportStep) Execute(ctx context.Context, state *PipelineState) error {
	return s.Exporter.Export(ctx, &state.Run)
}

// Step 7 (optional): NotifyStep delivers the images. Runs without images
// send nothing.
type NotifyStep struct {
	Notifier notify.Notifier
}

func (s *NotifyStep) Name() string { return StageNotify }

func (s *NotifyStep) Execute(ctx context.Context, state *PipelineState) error {
	if len(state.Run.Files) == 0 {
		log := logger.ForStage(ctx, StageNotify)
		log.Info().Msg("No barcodes written, skipping notification")
		return nil
	}
	return s.Notifier.Notify(ctx, notify.Message{
		Summary: state.Run.Report,
		Files:   state.Run.Files,
		Coupons: state.Run.Coupons,
	})
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
	rec   *metrics.Recorder
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// WithRecorder times every step into rec.
func (p *Pipeline) WithRecorder(rec *metrics.Recorder) *Pipeline {
	p.rec = rec
	return p
}

// Steps returns the step names in execution order.
func (p *Pipeline) Steps() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name()
	}
	return names
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	ctx = logger.WithContext(ctx, logger.WithFields(logger.FromContext(ctx), map[string]interface{}{
		"run_id":    state.Run.ID,
		"vendor_id": state.Run.VendorID,
	}))

	for i, step := range p.steps {
		start := time.Now()
		err := step.Execute(ctx, state)
		p.rec.ObserveStage(step.Name(), time.Since(start))
		if err != nil {
			return fmt.Errorf("pipeline step %d (%s) failed: %w", i+1, step.Name(), err)
		}
	}
	return nil
}

// Deps are the components of a barcode run. Archiver, Exporter and Notifier
// are optional.
type Deps struct {
	Collector  *Collector
	Resolver   *Resolver
	Downloader *Downloader
	Archiver   Archiver
	Exporter   Exporter
	Notifier   notify.Notifier
	Recorder   *metrics.Recorder
}

// NewBarcodePipeline creates the standard pipeline: collect, resolve,
// download and summarize, followed by whichever publishers are configured.
func NewBarcodePipeline(deps Deps) *Pipeline {
	steps := []PipelineStep{
		&CollectStep{Collector: deps.Collector},
		&ResolveStep{Resolver: deps.Resolver},
		&DownloadStep{Downloader: deps.Downloader},
		&SummarizeStep{Recorder: deps.Recorder},
	}
	if deps.Archiver != nil {
		steps = append(steps, &ArchiveStep{Archiver: deps.Archiver})
	}
	if deps.Exporter != nil {
		steps = append(steps, &ExportStep{Exporter: deps.Exporter})
	}
	if deps.Notifier != nil {
		steps = append(steps, &NotifyStep{Notifier: deps.Notifier})
	}
	return NewPipeline(steps...).WithRecorder(deps.Recorder)
}
