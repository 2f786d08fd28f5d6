package scanner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GrantScanner/internal/domain"
)

type stubScanner struct{ name string }

func (s stubScanner) Name() string { return s.name }

func (s stubScanner) Scan(context.Context, Request) ([]domain.RawProposal, error) {
	return nil, nil
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(stubScanner{name: "github"})

	got, err := reg.Resolve("github")
	require.NoError(t, err)
	assert.Equal(t, "github", got.Name())

	_, err = reg.Resolve("gitlab")
	assert.ErrorContains(t, err, "gitlab is not registered")

	var zero Registry
	zero.Register(stubScanner{name: "file"})
	_, err = zero.Resolve("file")
	assert.NoError(t, err)
}

func TestRequestOption(t *testing.T) {
	t.Parallel()

	req := Request{Options: map[string]string{"owner": "w3f", "repo": ""}}
	assert.Equal(t, "w3f", req.Option("owner", "x"))
	assert.Equal(t, "fallback", req.Option("repo", "fallback"))
	assert.Equal(t, "fallback", Request{}.Option("repo", "fallback"))
}
