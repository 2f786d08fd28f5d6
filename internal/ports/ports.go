package ports

import (
	"context"
	"time"

	"GrantScanner/internal/domain"
)

// ProposalSource pulls raw pull-request records keyed by repository.
type ProposalSource interface {
	FetchAll(ctx context.Context) (map[string][]domain.RawProposal, error)
}

// ProposalRepository stores the normalized proposal table.
type ProposalRepository interface {
	SaveProposals(ctx context.Context, proposals []domain.Proposal) error
	LoadProposals(ctx context.Context) ([]domain.Proposal, error)
}

// MetricsCache keeps the latest aggregation so readers do not recompute it.
type MetricsCache interface {
	SaveMetrics(ctx context.Context, summary domain.MetricsSummary) error
	LoadMetrics(ctx context.Context) (domain.MetricsSummary, bool, error)
}

// Notifier streams digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
