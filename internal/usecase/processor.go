package usecase

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"GrantScanner/internal/domain"
	"GrantScanner/internal/extract"
	"GrantScanner/internal/lifecycle"
)

const defaultWorkers = 4

// Recorder observes per-record outcomes; telemetry.Recorder implements it.
type Recorder interface {
	RecordProcessed(category domain.Category)
	RecordSkipped()
}

// ProcessorDeps wires the engine components into the processor.
type ProcessorDeps struct {
	Extractor  *extract.Extractor
	Classifier *lifecycle.Classifier
	Recorder   Recorder
	Logger     *slog.Logger
	Clock      func() time.Time
	Workers    int
}

// Processor turns raw records into normalized proposals.
type Processor struct {
	extractor  *extract.Extractor
	classifier *lifecycle.Classifier
	recorder   Recorder
	logger     *slog.Logger
	clock      func() time.Time
	workers    int
}

// BatchResult is the outcome of one ProcessBatch run.
type BatchResult struct {
	RunID       uuid.UUID
	ProcessedAt time.Time
	Proposals   []domain.Proposal
	Skipped     int
	// Failures combines every per-record error; use multierr.Errors to split it.
	Failures error
}

// NewProcessor fills unset dependencies with stock defaults.
func NewProcessor(deps ProcessorDeps) *Processor {
	p := &Processor{
		extractor:  deps.Extractor,
		classifier: deps.Classifier,
		recorder:   deps.Recorder,
		logger:     deps.Logger,
		clock:      deps.Clock,
		workers:    deps.Workers,
	}
	if p.extractor == nil {
		p.extractor = extract.New(extract.DefaultConfig())
	}
	if p.classifier == nil {
		p.classifier = lifecycle.NewClassifier(lifecycle.DefaultConfig())
	}
	if p.clock == nil {
		p.clock = time.Now
	}
	if p.workers <= 0 {
		p.workers = defaultWorkers
	}
	return p
}

// Process normalizes a single record against the given reference time.
func (p *Processor) Process(raw domain.RawProposal, now time.Time) (domain.Proposal, error) {
	if strings.TrimSpace(raw.ID) == "" {
		return domain.Proposal{}, fmt.Errorf("%w: %s: missing id", domain.ErrMalformedRecord, raw.Ref())
	}

	var stamps [4]*time.Time
	for i, value := range []string{raw.CreatedAt, raw.UpdatedAt, raw.ClosedAt, raw.MergedAt} {
		ts, err := lifecycle.ParseTimestamp(value)
		if err != nil {
			return domain.Proposal{}, fmt.Errorf("%w: %s: %w", domain.ErrMalformedRecord, raw.Ref(), err)
		}
		stamps[i] = ts
	}
	created, updated, closed, merged := stamps[0], stamps[1], stamps[2], stamps[3]

	text := extract.PlainText(raw.Body)
	mergeSignal := raw.Merged || merged != nil
	state := strings.ToLower(strings.TrimSpace(raw.State))

	proposal := domain.Proposal{
		ID:          raw.ID,
		Number:      raw.Number,
		Repository:  raw.Repository,
		Title:       raw.Title,
		Description: text,
		Author:      authorOrUnknown(raw.Author),
		State:       state,
		Merged:      mergeSignal,
		CreatedAt:   created,
		UpdatedAt:   updated,
		ClosedAt:    closed,
		MergedAt:    merged,
		Labels:      nonNil(raw.Labels),
		Milestone:   raw.Milestone,

		CommentsCount:       countOr(raw.CommentsCount, len(raw.Comments)),
		ReviewCommentsCount: countOr(raw.ReviewCommentsCount, len(raw.Reviews)),
		CommitsCount:        countOr(raw.Commits, 0),
		AdditionsCount:      countOr(raw.Additions, 0),
		DeletionsCount:      countOr(raw.Deletions, 0),
		ChangedFilesCount:   countOr(raw.ChangedFiles, 0),

		Category: p.classifier.Classify(lifecycle.Signals{
			State:     state,
			Merged:    raw.Merged,
			MergedAt:  merged,
			ClosedAt:  closed,
			CreatedAt: created,
			Labels:    raw.Labels,
		}, now),
		ApprovalTimeDays: lifecycle.ApprovalTimeDays(created, merged, closed),
		MilestoneCount:   p.extractor.MilestoneCount(text),
		Curators:         Curators(raw.Author, raw.Comments, raw.Reviews),
		BountyAmount:     p.extractor.BountyAmount(text),
		RejectionReason:  p.extractor.RejectionReason(raw.Comments, mergeSignal),
		IsStale:          p.classifier.IsStale(state, created, now),

		Comments: raw.Comments,
		Reviews:  raw.Reviews,
	}
	proposal.PerformanceScore = PerformanceScore(proposal)

	return proposal, nil
}

// processRecovered confines a panic to the record that raised it.
func (p *Processor) processRecovered(raw domain.RawProposal, now time.Time) (proposal domain.Proposal, err error) {
	defer func() {
		if r := recover(); r != nil {
			proposal = domain.Proposal{}
			err = fmt.Errorf("%w: %s: panic: %v", domain.ErrMalformedRecord, raw.Ref(), r)
		}
	}()
	return p.Process(raw, now)
}

// ProcessAll normalizes every record, skipping the ones that fail.
func (p *Processor) ProcessAll(raws []domain.RawProposal) []domain.Proposal {
	return p.ProcessBatch(raws).Proposals
}

// ProcessBatch fans records out over the worker pool. The reference time is read
// once so every record in the batch is classified against the same instant.
// Output keeps input order.
func (p *Processor) ProcessBatch(raws []domain.RawProposal) BatchResult {
	result := BatchResult{
		RunID:       uuid.New(),
		ProcessedAt: p.clock().UTC(),
		Proposals:   []domain.Proposal{},
	}
	if len(raws) == 0 {
		return result
	}

	slots := make([]*domain.Proposal, len(raws))
	errs := make([]error, len(raws))

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i := range raws {
		i := i
		g.Go(func() error {
			proposal, err := p.processRecovered(raws[i], result.ProcessedAt)
			if err != nil {
				errs[i] = err
				return nil
			}
			slots[i] = &proposal
			return nil
		})
	}
	_ = g.Wait()

	for i, slot := range slots {
		if slot == nil {
			result.Skipped++
			result.Failures = multierr.Append(result.Failures, errs[i])
			p.warn("skip record", "run_id", result.RunID, "id", raws[i].Ref(), "repository", raws[i].Repository, "error", errs[i])
			if p.recorder != nil {
				p.recorder.RecordSkipped()
			}
			continue
		}
		result.Proposals = append(result.Proposals, *slot)
		if p.recorder != nil {
			p.recorder.RecordProcessed(slot.Category)
		}
	}

	p.debug("batch processed", "run_id", result.RunID, "processed", len(result.Proposals), "skipped", result.Skipped)
	return result
}

// Curators collects distinct comment and review authors, excluding the proposal author.
func Curators(author string, comments []domain.Comment, reviews []domain.Review) []string {
	seen := map[string]struct{}{}
	add := func(login string) {
		login = strings.TrimSpace(login)
		if login == "" || login == author {
			return
		}
		seen[login] = struct{}{}
	}
	for _, c := range comments {
		add(c.Author)
	}
	for _, r := range reviews {
		add(r.Author)
	}

	curators := make([]string, 0, len(seen))
	for login := range seen {
		curators = append(curators, login)
	}
	sort.Strings(curators)
	return curators
}

// FlattenByRepository stamps each record with its repository key and flattens the
// mapping in key order.
func FlattenByRepository(byRepo map[string][]domain.RawProposal) []domain.RawProposal {
	keys := make([]string, 0, len(byRepo))
	for k := range byRepo {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []domain.RawProposal
	for _, k := range keys {
		for _, raw := range byRepo[k] {
			raw.Repository = k
			out = append(out, raw)
		}
	}
	return out
}

func countOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

func authorOrUnknown(author string) string {
	if strings.TrimSpace(author) == "" {
		return "Unknown"
	}
	return author
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func (p *Processor) debug(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Processor) warn(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
