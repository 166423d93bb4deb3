package services

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pricingcli/internal/dataprocessing"
	"pricingcli/internal/infrastructure"
	"pricingcli/internal/pricing"
	"pricingcli/pkg/contracts/domain"
)

// PipelineResult is the in-memory outcome of one pricing run
type PipelineResult struct {
	Assembly *pricing.Assembly
	Solution *pricing.Solution
	Sources  *Sources
}

// Pipeline loads the sources, merges them in priority order, solves the
// composition graph and assembles both output tables. It holds no state
// between runs.
type Pipeline struct {
	maxPasses int
	tracer    trace.Tracer
	logger    *slog.Logger
}

// NewPipeline creates a pipeline. maxPasses <= 0 selects the default cap.
func NewPipeline(maxPasses int, tracer trace.Tracer, logger *slog.Logger) *Pipeline {
	if tracer == nil {
		tracer = otel.Tracer(infrastructure.MeterName)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{maxPasses: maxPasses, tracer: tracer, logger: logger}
}

// Run executes a full calculation
func (p *Pipeline) Run(ctx context.Context, paths SourcePaths) (*PipelineResult, error) {
	ctx, span := p.tracer.Start(ctx, "pricing.load_sources")
	src, err := LoadSources(ctx, paths, p.logger)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		span.End()
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("items", len(src.Items)),
		attribute.StringSlice("missing", src.Missing))
	span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.Resolve(ctx, src), nil
}

// Resolve runs the in-memory stages over already loaded sources
func (p *Pipeline) Resolve(ctx context.Context, src *Sources) *PipelineResult {
	rc := pricing.NewResolutionContext(p.maxPasses, p.logger)

	_, span := p.tracer.Start(ctx, "pricing.merge")
	for _, frag := range []domain.SourceFragment{src.ISD, src.CSD, src.Analytic, src.Regional} {
		if frag.Source == "" {
			continue
		}
		rc.Merge(frag)
	}

	if len(src.Report) > 0 {
		report := p.parseReport(rc, src)
		rc.Merge(report)
		span.SetAttributes(attribute.Int("sicro_blocks", len(report.Compositions)))
	}
	span.SetAttributes(
		attribute.Int("compositions", rc.Graph.Len()),
		attribute.Int("leaf_prices", rc.Leaves.Len()))
	span.End()

	_, span = p.tracer.Start(ctx, "pricing.solve")
	sol := rc.Solve()
	span.SetAttributes(
		attribute.Int("passes", sol.Passes),
		attribute.Int("unsolved", len(sol.Unsolved)),
		attribute.Bool("converged", sol.Converged))
	span.End()

	actx, span := p.tracer.Start(ctx, "pricing.assemble")
	asm := pricing.Assemble(rc, src.Items, src.Quotes, p.logger)
	infrastructure.SetSpanAttributes(actx, map[string]interface{}{
		"items":    asm.Summary.Items,
		"details":  asm.Summary.Details,
		"closure":  asm.Summary.ClosureSize,
		"expanded": asm.Summary.Expanded,
		"errors":   asm.Summary.ByStatus[domain.StatusError],
	})
	span.End()

	return &PipelineResult{Assembly: asm, Solution: sol, Sources: src}
}

// parseReport scans the SICRO report with the closure of the requested
// codes as the required set. Blocks found in the report can reference
// further report compositions, so the scan repeats until the closure stops
// growing or the pass cap is reached.
func (p *Pipeline) parseReport(rc *pricing.ResolutionContext, src *Sources) domain.SourceFragment {
	layout := dataprocessing.ReportLayout()
	roots := pricing.RequestedCodes(src.Items)
	required := pricing.Closure(rc.Graph, roots)

	limit := p.maxPasses
	if limit <= 0 {
		limit = pricing.DefaultMaxPasses
	}

	var frag domain.SourceFragment
	for i := 0; i < limit; i++ {
		frag = dataprocessing.ParseReport(src.Report, layout, required, p.logger)

		g := pricing.NewGraph()
		for _, merged := range rc.Fragments() {
			for _, block := range merged.Compositions {
				g.Add(block)
			}
		}
		for _, block := range frag.Compositions {
			g.Add(block)
		}

		next := pricing.Closure(g, roots)
		if next.Len() == required.Len() {
			break
		}
		required = next
	}
	return frag
}
