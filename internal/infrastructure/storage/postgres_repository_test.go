package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GrantScanner/internal/domain"
)

func TestUpsertProposalQuery(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	days := 4.5
	p := domain.Proposal{
		ID:               "101",
		Number:           7,
		Repository:       "org/grants",
		Category:         domain.CategoryApproved,
		CreatedAt:        &created,
		ApprovalTimeDays: &days,
		Curators:         []string{"alice"},
	}

	query, args, err := upsertProposalQuery(p).ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(query, "INSERT INTO proposals (id,number,repository,"))
	assert.Contains(t, query, "$28")
	assert.NotContains(t, query, "$29")
	assert.Contains(t, query, "ON CONFLICT (id) DO UPDATE SET number = EXCLUDED.number")
	assert.Contains(t, query, "category = EXCLUDED.category")
	assert.True(t, strings.HasSuffix(query, "processed_at = NOW()"))

	require.Len(t, args, len(proposalColumns))
	assert.Equal(t, "101", args[0])
	assert.Equal(t, pq.StringArray([]string{}), args[12])
	assert.Equal(t, pq.StringArray([]string{"alice"}), args[20])
	assert.Equal(t, "APPROVED", args[21])
}

func TestUpsertSuffixSkipsPrimaryKey(t *testing.T) {
	suffix := upsertSuffix()
	assert.NotContains(t, suffix, "id = EXCLUDED.id,")
	assert.Equal(t, len(proposalColumns)-1, strings.Count(suffix, "EXCLUDED."))
}

func TestSelectQueries(t *testing.T) {
	query, args, err := selectProposalsQuery().ToSql()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(query, "SELECT id, number, "))
	assert.True(t, strings.HasSuffix(query, "FROM proposals ORDER BY repository, number, id"))
	assert.Empty(t, args)

	query, args, err = selectMetricQuery(summaryMetricKey).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT metric_value FROM metrics WHERE metric_name = $1", query)
	assert.Equal(t, []any{"summary"}, args)

	query, args, err = upsertMetricQuery("summary", []byte(`{}`)).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO metrics (metric_name,metric_value) VALUES ($1,$2) "+
		"ON CONFLICT (metric_name) DO UPDATE SET metric_value = EXCLUDED.metric_value, updated_at = NOW()", query)
	assert.Len(t, args, 2)
}

func TestPostgresRepositoryWithoutDB(t *testing.T) {
	repo := NewPostgresRepository(nil)
	ctx := context.Background()

	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.SaveProposals(ctx, []domain.Proposal{{ID: "1"}}))
	require.NoError(t, repo.SaveMetrics(ctx, domain.MetricsSummary{}))

	loaded, err := repo.LoadProposals(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)

	_, ok, err := repo.LoadMetrics(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

type fakeRow struct {
	values []any
}

func (r fakeRow) Scan(dest ...any) error {
	for i, d := range dest {
		switch target := d.(type) {
		case *string:
			*target = r.values[i].(string)
		case *int:
			*target = r.values[i].(int)
		case *bool:
			*target = r.values[i].(bool)
		case *float64:
			*target = r.values[i].(float64)
		case *pq.StringArray:
			*target = r.values[i].(pq.StringArray)
		default:
			if scanner, ok := d.(interface{ Scan(any) error }); ok {
				if err := scanner.Scan(r.values[i]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func TestScanProposal(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	row := fakeRow{values: []any{
		"101", 7, "org/grants", "Grant", "body", "closed", true, "bob",
		created, nil, nil, created,
		pq.StringArray{"approved"}, "",
		3, 1, 2,
		10, 5, 1,
		pq.StringArray(nil), "APPROVED", 2.5, 3,
		nil, nil, 12.0, false,
	}}

	p, err := scanProposal(row)
	require.NoError(t, err)

	assert.Equal(t, "101", p.ID)
	assert.Equal(t, domain.CategoryApproved, p.Category)
	require.NotNil(t, p.CreatedAt)
	assert.True(t, p.CreatedAt.Equal(created))
	assert.Nil(t, p.UpdatedAt)
	assert.Equal(t, []string{"approved"}, p.Labels)
	assert.Equal(t, []string{}, p.Curators)
	require.NotNil(t, p.ApprovalTimeDays)
	assert.InDelta(t, 2.5, *p.ApprovalTimeDays, 1e-9)
	assert.Nil(t, p.BountyAmount)
	assert.Nil(t, p.RejectionReason)
	assert.InDelta(t, 12.0, p.PerformanceScore, 1e-9)
}
