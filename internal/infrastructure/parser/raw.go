package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"GrantScanner/internal/domain"
)

// DecodePullRequest maps one GitHub pull-request object onto a RawProposal.
// Absent fields stay empty or nil so the processor can tell them apart from zeros.
func DecodePullRequest(raw []byte, repository string) (domain.RawProposal, error) {
	if !gjson.ValidBytes(raw) {
		return domain.RawProposal{}, fmt.Errorf("invalid pull request json")
	}
	return decodeResult(gjson.ParseBytes(raw), repository)
}

// DecodePullRequests maps a JSON array of pull requests.
func DecodePullRequests(raw []byte, repository string) ([]domain.RawProposal, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("invalid pull request list json")
	}

	doc := gjson.ParseBytes(raw)
	if !doc.IsArray() {
		return nil, fmt.Errorf("expected json array, got %s", doc.Type)
	}

	var out []domain.RawProposal
	var decodeErr error
	doc.ForEach(func(_, item gjson.Result) bool {
		proposal, err := decodeResult(item, repository)
		if err != nil {
			decodeErr = err
			return false
		}
		out = append(out, proposal)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return out, nil
}

func decodeResult(pr gjson.Result, repository string) (domain.RawProposal, error) {
	if !pr.IsObject() {
		return domain.RawProposal{}, fmt.Errorf("expected json object, got %s", pr.Type)
	}

	raw := domain.RawProposal{
		ID:         idString(pr.Get("id")),
		Number:     int(pr.Get("number").Int()),
		Repository: repository,
		Title:      pr.Get("title").String(),
		Body:       pr.Get("body").String(),
		Author:     pr.Get("user.login").String(),
		State:      pr.Get("state").String(),
		Merged:     pr.Get("merged").Bool(),
		CreatedAt:  timestamp(pr.Get("created_at")),
		UpdatedAt:  timestamp(pr.Get("updated_at")),
		ClosedAt:   timestamp(pr.Get("closed_at")),
		MergedAt:   timestamp(pr.Get("merged_at")),
		Milestone:  pr.Get("milestone.title").String(),
	}
	if raw.Repository == "" {
		raw.Repository = pr.Get("repository").String()
	}

	for _, label := range pr.Get("labels").Array() {
		name := label.String()
		if label.IsObject() {
			name = label.Get("name").String()
		}
		if name != "" {
			raw.Labels = append(raw.Labels, name)
		}
	}

	comments := pr.Get("comments")
	if comments.IsArray() {
		raw.Comments = decodeComments(comments)
	} else {
		raw.CommentsCount = optionalInt(comments)
	}
	if count := optionalInt(pr.Get("comments_count")); count != nil {
		raw.CommentsCount = count
	}
	raw.Reviews = decodeReviews(pr.Get("reviews"))

	raw.ReviewCommentsCount = optionalInt(pr.Get("review_comments"))
	raw.Commits = optionalInt(pr.Get("commits"))
	raw.Additions = optionalInt(pr.Get("additions"))
	raw.Deletions = optionalInt(pr.Get("deletions"))
	raw.ChangedFiles = optionalInt(pr.Get("changed_files"))

	return raw, nil
}

func decodeComments(list gjson.Result) []domain.Comment {
	var out []domain.Comment
	for _, item := range list.Array() {
		out = append(out, domain.Comment{
			Author: author(item),
			Body:   item.Get("body").String(),
		})
	}
	return out
}

func decodeReviews(list gjson.Result) []domain.Review {
	var out []domain.Review
	for _, item := range list.Array() {
		out = append(out, domain.Review{
			Author: author(item),
			Body:   item.Get("body").String(),
			State:  item.Get("state").String(),
		})
	}
	return out
}

func author(item gjson.Result) string {
	if login := item.Get("user.login"); login.Exists() {
		return login.String()
	}
	return item.Get("author").String()
}

// idString keeps large numeric ids exact instead of routing them through float64.
func idString(v gjson.Result) string {
	switch v.Type {
	case gjson.Number:
		if _, err := strconv.ParseInt(v.Raw, 10, 64); err == nil {
			return v.Raw
		}
		return strconv.FormatInt(v.Int(), 10)
	case gjson.String:
		return strings.TrimSpace(v.Str)
	default:
		return ""
	}
}

func timestamp(v gjson.Result) string {
	if v.Type != gjson.String {
		return ""
	}
	return strings.TrimSpace(v.Str)
}

func optionalInt(v gjson.Result) *int {
	if v.Type != gjson.Number {
		return nil
	}
	n := int(v.Int())
	return &n
}

func parseArray(raw []byte) gjson.Result {
	doc := gjson.ParseBytes(raw)
	if !doc.IsArray() {
		return gjson.Result{}
	}
	return doc
}
