package parser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"GrantScanner/internal/domain"
	"GrantScanner/internal/scanner"
)

const (
	defaultGitHubAPI      = "https://api.github.com"
	defaultPerPage        = 100
	defaultRateLimitFloor = 10
	defaultRateLimitWait  = time.Minute
)

// GitHubOptions tunes the GitHub pulls scanner.
type GitHubOptions struct {
	BaseURL        string
	Token          string
	PerPage        int
	MaxPages       int
	RequestDelay   time.Duration
	RateLimitFloor int
	RateLimitWait  time.Duration
}

// GitHubScanner lists pull requests of a grant repository and enriches each one
// with its details, review comments and reviews.
type GitHubScanner struct {
	client *http.Client
	opts   GitHubOptions
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewGitHubScanner wires an HTTP client; zero options fall back to GitHub defaults.
func NewGitHubScanner(client *http.Client, opts GitHubOptions, logger *slog.Logger) *GitHubScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultGitHubAPI
	}
	opts.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	if opts.PerPage <= 0 {
		opts.PerPage = defaultPerPage
	}
	if opts.RateLimitFloor <= 0 {
		opts.RateLimitFloor = defaultRateLimitFloor
	}
	if opts.RateLimitWait <= 0 {
		opts.RateLimitWait = defaultRateLimitWait
	}
	return &GitHubScanner{client: client, opts: opts, logger: logger, sleep: sleepContext}
}

// Name identifies the strategy inside the registry.
func (g *GitHubScanner) Name() string {
	return "github"
}

// Scan pages through /repos/{owner}/{repo}/pulls?state=all newest first.
// Options: owner, repo (required), enrich ("false" disables per-PR calls).
func (g *GitHubScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawProposal, error) {
	owner := req.Option("owner", "")
	repo := req.Option("repo", "")
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("site %s: owner and repo options are required", req.Repository)
	}

	repository := req.Repository
	if repository == "" {
		repository = owner + "/" + repo
	}
	pullsURL := fmt.Sprintf("%s/repos/%s/%s/pulls", g.opts.BaseURL, url.PathEscape(owner), url.PathEscape(repo))

	results := make([]domain.RawProposal, 0)
	seen := map[string]struct{}{}

	for page := 1; g.opts.MaxPages <= 0 || page <= g.opts.MaxPages; page++ {
		pageURL, err := buildPageURL(pullsURL, page, g.opts.PerPage)
		if err != nil {
			return nil, err
		}

		body, err := g.fetch(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("list pulls %s/%s page %d: %w", owner, repo, page, err)
		}

		pagePRs, err := DecodePullRequests(body, repository)
		if err != nil {
			return nil, fmt.Errorf("decode pulls %s/%s page %d: %w", owner, repo, page, err)
		}

		for _, pr := range pagePRs {
			key := pr.Ref()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			results = append(results, pr)
		}

		if len(pagePRs) < g.opts.PerPage {
			break
		}
		if err := g.sleep(ctx, g.opts.RequestDelay); err != nil {
			return nil, err
		}
	}

	g.debug("pulls listed", "repository", repository, "count", len(results))

	if req.Option("enrich", "true") == "false" {
		return results, nil
	}

	for i := range results {
		enriched, err := g.enrich(ctx, owner, repo, results[i])
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			g.warn("enrich pull request failed", "repository", repository, "number", results[i].Number, "error", err)
			continue
		}
		results[i] = enriched
		if err := g.sleep(ctx, g.opts.RequestDelay); err != nil {
			return nil, err
		}
	}

	return results, nil
}

func (g *GitHubScanner) enrich(ctx context.Context, owner, repo string, pr domain.RawProposal) (domain.RawProposal, error) {
	if pr.Number == 0 {
		return pr, nil
	}
	prURL := fmt.Sprintf("%s/repos/%s/%s/pulls/%d", g.opts.BaseURL, url.PathEscape(owner), url.PathEscape(repo), pr.Number)

	body, err := g.fetch(ctx, prURL)
	if err != nil {
		return pr, fmt.Errorf("details: %w", err)
	}
	details, err := DecodePullRequest(body, pr.Repository)
	if err != nil {
		return pr, fmt.Errorf("details: %w", err)
	}
	if details.ID == "" {
		details.ID = pr.ID
	}

	body, err = g.fetch(ctx, prURL+"/comments")
	if err != nil {
		return pr, fmt.Errorf("comments: %w", err)
	}
	details.Comments = decodeComments(parseArray(body))

	body, err = g.fetch(ctx, prURL+"/reviews")
	if err != nil {
		return pr, fmt.Errorf("reviews: %w", err)
	}
	details.Reviews = decodeReviews(parseArray(body))

	return details, nil
}

func (g *GitHubScanner) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "GrantScanner/1.0")
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if g.opts.Token != "" {
		req.Header.Set("Authorization", "token "+g.opts.Token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if err := g.respectRateLimit(ctx, resp.Header); err != nil {
		return nil, err
	}
	return body, nil
}

func (g *GitHubScanner) respectRateLimit(ctx context.Context, header http.Header) error {
	value := header.Get("X-RateLimit-Remaining")
	if value == "" {
		return nil
	}
	remaining, err := strconv.Atoi(value)
	if err != nil || remaining >= g.opts.RateLimitFloor {
		return nil
	}
	g.warn("github rate limit low", "remaining", remaining, "wait", g.opts.RateLimitWait)
	return g.sleep(ctx, g.opts.RateLimitWait)
}

func (g *GitHubScanner) debug(msg string, args ...interface{}) {
	if g.logger != nil {
		g.logger.Debug(msg, args...)
	}
}

func (g *GitHubScanner) warn(msg string, args ...interface{}) {
	if g.logger != nil {
		g.logger.Warn(msg, args...)
	}
}

func buildPageURL(base string, page, perPage int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid pulls url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("state", "all")
	query.Set("sort", "created")
	query.Set("direction", "desc")
	query.Set("per_page", strconv.Itoa(perPage))
	query.Set("page", strconv.Itoa(page))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
