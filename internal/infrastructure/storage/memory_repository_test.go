package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GrantScanner/internal/domain"
)

func TestMemoryRepositoryProposals(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	loaded, err := repo.LoadProposals(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)

	input := []domain.Proposal{
		{ID: "1", Repository: "org/grants", Category: domain.CategoryApproved},
		{ID: "2", Repository: "org/grants", Category: domain.CategoryPending},
	}
	require.NoError(t, repo.SaveProposals(ctx, input))

	input[0].Category = domain.CategoryRejected

	loaded, err = repo.LoadProposals(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, domain.CategoryApproved, loaded[0].Category)

	loaded[1].Category = domain.CategoryStale
	again, err := repo.LoadProposals(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryPending, again[1].Category)

	require.NoError(t, repo.SaveProposals(ctx, input[:1]))
	loaded, err = repo.LoadProposals(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestMemoryRepositoryMetrics(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, ok, err := repo.LoadMetrics(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	summary := domain.MetricsSummary{TotalRepositories: 3}
	require.NoError(t, repo.SaveMetrics(ctx, summary))

	got, ok, err := repo.LoadMetrics(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, got.TotalRepositories)
}
