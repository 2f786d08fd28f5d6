package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"GrantScanner/internal/domain"
	"GrantScanner/internal/evaluator"
	"GrantScanner/internal/metrics"
	"GrantScanner/internal/ports"
)

// RefreshObserver is told about every finished refresh pass.
type RefreshObserver interface {
	RecordRefresh(at time.Time, err error)
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.ProposalSource
	Repository ports.ProposalRepository
	Cache      ports.MetricsCache
	Notifier   ports.Notifier
	Processor  *Processor
	Aggregator *metrics.Aggregator
	Evaluator  *evaluator.Evaluator
	Observer   RefreshObserver
	Logger     *slog.Logger
}

// Pipeline implements the proposal-ingestion workflow.
type Pipeline struct {
	source     ports.ProposalSource
	repository ports.ProposalRepository
	cache      ports.MetricsCache
	notifier   ports.Notifier
	processor  *Processor
	aggregator *metrics.Aggregator
	evaluator  *evaluator.Evaluator
	observer   RefreshObserver
	logger     *slog.Logger
}

// RefreshResult reports what a single refresh pass produced.
type RefreshResult struct {
	Batch   BatchResult
	Summary domain.MetricsSummary
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		source:     deps.Source,
		repository: deps.Repository,
		cache:      deps.Cache,
		notifier:   deps.Notifier,
		processor:  deps.Processor,
		aggregator: deps.Aggregator,
		evaluator:  deps.Evaluator,
		observer:   deps.Observer,
		logger:     deps.Logger,
	}
	if p.processor == nil {
		p.processor = NewProcessor(ProcessorDeps{Logger: deps.Logger})
	}
	if p.aggregator == nil {
		p.aggregator = metrics.NewAggregator(nil)
	}
	return p
}

// Refresh fetches, processes, persists, aggregates and notifies.
func (p *Pipeline) Refresh(ctx context.Context) (result RefreshResult, err error) {
	if p.observer != nil {
		defer func() { p.observer.RecordRefresh(time.Now().UTC(), err) }()
	}
	if p.source == nil {
		return RefreshResult{}, fmt.Errorf("proposal source is not configured")
	}

	byRepo, err := p.source.FetchAll(ctx)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("fetch proposals: %w", err)
	}

	raws := FlattenByRepository(byRepo)
	batch := p.processor.ProcessBatch(raws)
	p.info("proposals processed",
		"run_id", batch.RunID,
		"repositories", len(byRepo),
		"fetched", len(raws),
		"processed", len(batch.Proposals),
		"skipped", batch.Skipped,
	)

	if p.repository != nil {
		if err := p.repository.SaveProposals(ctx, batch.Proposals); err != nil {
			return RefreshResult{}, fmt.Errorf("persist proposals: %w", err)
		}
	}

	summary := p.aggregator.Aggregate(batch.Proposals)
	if p.cache != nil {
		if err := p.cache.SaveMetrics(ctx, summary); err != nil {
			return RefreshResult{}, fmt.Errorf("cache metrics: %w", err)
		}
	}

	result = RefreshResult{Batch: batch, Summary: summary}
	if p.notifier == nil || summary.Overall.Total == 0 {
		return result, nil
	}

	if err := p.notifier.PublishDigest(ctx, buildDigestMessage(summary)); err != nil {
		return result, fmt.Errorf("publish digest: %w", err)
	}
	return result, nil
}

// Metrics returns the cached summary, recomputing it from the table on a miss.
func (p *Pipeline) Metrics(ctx context.Context) (domain.MetricsSummary, error) {
	if p.cache != nil {
		summary, ok, err := p.cache.LoadMetrics(ctx)
		if err != nil {
			return domain.MetricsSummary{}, fmt.Errorf("load cached metrics: %w", err)
		}
		if ok {
			return summary, nil
		}
	}

	proposals, err := p.loadProposals(ctx)
	if err != nil {
		return domain.MetricsSummary{}, err
	}
	return p.aggregator.Aggregate(proposals), nil
}

// Evaluate finds a stored proposal by id or "repository#number" and scores it.
func (p *Pipeline) Evaluate(ctx context.Context, ref string) (domain.Proposal, domain.EvaluationReport, error) {
	if p.evaluator == nil {
		return domain.Proposal{}, domain.EvaluationReport{}, fmt.Errorf("evaluator is not configured")
	}

	proposals, err := p.loadProposals(ctx)
	if err != nil {
		return domain.Proposal{}, domain.EvaluationReport{}, err
	}

	ref = strings.TrimSpace(ref)
	for _, proposal := range proposals {
		if proposal.ID == ref || proposal.Ref() == ref {
			return proposal, p.evaluator.Evaluate(proposal), nil
		}
	}
	return domain.Proposal{}, domain.EvaluationReport{}, fmt.Errorf("%w: %s", domain.ErrProposalNotFound, ref)
}

func (p *Pipeline) loadProposals(ctx context.Context) ([]domain.Proposal, error) {
	if p.repository == nil {
		return nil, fmt.Errorf("proposal repository is not configured")
	}
	proposals, err := p.repository.LoadProposals(ctx)
	if err != nil {
		return nil, fmt.Errorf("load proposals: %w", err)
	}
	return proposals, nil
}

func (p *Pipeline) info(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func buildDigestMessage(summary domain.MetricsSummary) string {
	var b strings.Builder
	overall := summary.Overall

	fmt.Fprintf(&b, "*Grant proposals* (%s)\n", summary.GeneratedAt.Format(time.DateOnly))
	fmt.Fprintf(&b, "Total: %d, approval rate %.1f%%\n", overall.Total, overall.ApprovalRate*100)
	for _, c := range domain.Categories {
		if n := overall.Counts[c]; n > 0 {
			fmt.Fprintf(&b, "- %s: %d\n", c, n)
		}
	}
	if overall.ApprovalTime != nil {
		fmt.Fprintf(&b, "Approval time: mean %.1fd, median %.1fd\n", overall.ApprovalTime.Mean, overall.ApprovalTime.Median)
	}

	repos := make([]string, 0, len(summary.ByRepository))
	for repo := range summary.ByRepository {
		repos = append(repos, repo)
	}
	sort.Strings(repos)
	for _, repo := range repos {
		r := summary.ByRepository[repo]
		fmt.Fprintf(&b, "\n%s: %d proposals, %d approved, %d stale\n",
			repo, r.Total, r.Counts[domain.CategoryApproved], r.Counts[domain.CategoryStale])
	}

	return b.String()
}
