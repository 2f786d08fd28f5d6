package parser

import (
	"context"
	"fmt"
	"log/slog"

	"GrantScanner/internal/config"
	"GrantScanner/internal/domain"
	"GrantScanner/internal/ports"
	"GrantScanner/internal/scanner"
)

// StrategySource implements ProposalSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sources  []config.SourceConfig
	logger   *slog.Logger
}

var _ ports.ProposalSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined grant repositories.
func NewStrategySource(reg *scanner.Registry, sources []config.SourceConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sources:  sources,
		logger:   log,
	}
}

// FetchAll runs every configured source. A repository whose scan fails is
// logged and reported with an empty list so the other repositories still flow.
func (s *StrategySource) FetchAll(ctx context.Context) (map[string][]domain.RawProposal, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	s.debug("fetch all", "sources", len(s.sources))

	byRepo := make(map[string][]domain.RawProposal, len(s.sources))
	total := 0
	for _, src := range s.sources {
		s.debug("process source", "source", src.Name, "scanner", src.Scanner)
		strategy, err := s.registry.Resolve(src.Scanner)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name, err)
		}

		req := scanner.Request{
			Repository: src.Name,
			Options:    src.Options,
		}

		results, err := strategy.Scan(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("scan source %s: %w", src.Name, ctx.Err())
			}
			s.warn("scan source failed", "source", src.Name, "error", err)
			results = []domain.RawProposal{}
		}

		s.debug("source produced proposals", "source", src.Name, "count", len(results))
		if _, ok := byRepo[src.Name]; !ok {
			byRepo[src.Name] = make([]domain.RawProposal, 0, len(results))
		}
		byRepo[src.Name] = append(byRepo[src.Name], results...)
		total += len(results)
	}

	s.debug("strategy source done", "total_proposals", total)
	return byRepo, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
