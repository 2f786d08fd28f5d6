package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GrantScanner/internal/domain"
)

var generatedAt = time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)

func fixture() []domain.Proposal {
	return []domain.Proposal{
		{ID: "1", Repository: "w3f", Author: "alice", Category: domain.CategoryApproved, ApprovalTimeDays: days(9), Curators: []string{"c1", "c2"}},
		{ID: "2", Repository: "w3f", Author: "bob", Category: domain.CategoryRejected, ApprovalTimeDays: days(3), Curators: []string{"c1"}},
		{ID: "3", Repository: "w3f", Author: "alice", Category: domain.CategoryPending},
		{ID: "4", Repository: "fast", Author: "carol", Category: domain.CategoryApproved, ApprovalTimeDays: days(1), Curators: []string{"c2", "c2"}},
		{ID: "5", Repository: "fast", Author: "", Category: domain.CategoryStale, Curators: []string{"c1"}},
	}
}

func TestAggregateOverall(t *testing.T) {
	t.Parallel()

	summary := NewAggregator(func() time.Time { return generatedAt }).Aggregate(fixture())

	assert.Equal(t, generatedAt, summary.GeneratedAt)
	assert.Equal(t, 5, summary.Overall.Total)
	assert.Equal(t, 2, summary.Overall.Counts[domain.CategoryApproved])
	assert.Equal(t, 1, summary.Overall.Counts[domain.CategoryRejected])
	assert.Equal(t, 1, summary.Overall.Counts[domain.CategoryPending])
	assert.Equal(t, 1, summary.Overall.Counts[domain.CategoryStale])
	assert.Equal(t, 0, summary.Overall.Counts[domain.CategoryUnknown])
	assert.InDelta(t, 0.4, summary.Overall.ApprovalRate, 1e-12)

	require.NotNil(t, summary.Overall.ApprovalTime)
	assert.Equal(t, 3, summary.Overall.ApprovalTime.Samples)
	assert.InDelta(t, 13.0/3.0, summary.Overall.ApprovalTime.Mean, 1e-12)
	assert.InDelta(t, 3.0, summary.Overall.ApprovalTime.Median, 1e-12)
	assert.InDelta(t, 1.0, summary.Overall.ApprovalTime.Min, 1e-12)
	assert.InDelta(t, 9.0, summary.Overall.ApprovalTime.Max, 1e-12)

	assert.Equal(t, 2, summary.TotalRepositories)
	assert.Equal(t, 4, summary.TotalAuthors)
	assert.Equal(t, 2, summary.TotalCurators)
}

func TestAggregateByRepositoryAndAuthor(t *testing.T) {
	t.Parallel()

	summary := NewAggregator(nil).Aggregate(fixture())

	w3f := summary.ByRepository["w3f"]
	assert.Equal(t, 3, w3f.Total)
	assert.InDelta(t, 1.0/3.0, w3f.ApprovalRate, 1e-12)
	assert.Equal(t, 2, w3f.Authors)
	assert.Equal(t, 2, w3f.Curators)
	require.NotNil(t, w3f.ApprovalTime)
	assert.InDelta(t, 6.0, w3f.ApprovalTime.Median, 1e-12)

	fast := summary.ByRepository["fast"]
	assert.Equal(t, 2, fast.Total)
	assert.Equal(t, 1, fast.Counts[domain.CategoryStale])

	alice := summary.ByAuthor["alice"]
	assert.Equal(t, 2, alice.Total)
	assert.Equal(t, 1, summary.ByAuthor["Unknown"].Total)
}

func TestAggregateCuratorFanOut(t *testing.T) {
	t.Parallel()

	proposals := fixture()
	summary := NewAggregator(nil).Aggregate(proposals)

	c1 := summary.ByCurator["c1"]
	assert.Equal(t, 3, c1.Total)
	assert.Equal(t, 1, c1.Counts[domain.CategoryApproved])
	assert.Equal(t, 1, c1.Counts[domain.CategoryRejected])
	assert.Equal(t, 2, c1.ProgramsWorkedOn)

	c2 := summary.ByCurator["c2"]
	assert.Equal(t, 2, c2.Total, "duplicate curator entries count once per proposal")
	assert.InDelta(t, 1.0, c2.ApprovalRate, 1e-12)

	var fanOut int
	for _, b := range summary.ByCurator {
		fanOut += b.Total
	}
	assert.Greater(t, fanOut, 4, "a proposal contributes to every curator it has")
}

func TestAggregateEmpty(t *testing.T) {
	t.Parallel()

	summary := NewAggregator(nil).Aggregate(nil)

	assert.Zero(t, summary.Overall.Total)
	assert.Zero(t, summary.Overall.ApprovalRate)
	assert.Nil(t, summary.Overall.ApprovalTime)
	assert.Empty(t, summary.ByRepository)
	assert.Empty(t, summary.ByCurator)
	assert.Equal(t, 0, summary.Overall.Counts[domain.CategoryApproved])
}

func TestAggregateNoSamples(t *testing.T) {
	t.Parallel()

	summary := NewAggregator(nil).Aggregate([]domain.Proposal{
		{ID: "1", Repository: "r", Category: domain.CategoryPending},
		{ID: "2", Repository: "r", Category: domain.Category("BOGUS")},
	})

	assert.Nil(t, summary.Overall.ApprovalTime)
	assert.Nil(t, summary.ByRepository["r"].ApprovalTime)
	assert.Equal(t, 1, summary.Overall.Counts[domain.CategoryUnknown])
}

func TestApprovalRate(t *testing.T) {
	t.Parallel()

	assert.Zero(t, ApprovalRate(0, 0))
	assert.Equal(t, 0.5, ApprovalRate(1, 2))
	assert.Equal(t, 1.0, ApprovalRate(3, 3))
}

func days(v float64) *float64 {
	return &v
}
