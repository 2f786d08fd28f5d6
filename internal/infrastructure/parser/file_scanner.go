package parser

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/tidwall/gjson"

	"GrantScanner/internal/domain"
	"GrantScanner/internal/scanner"
)

// FileScanner reads pull-request dumps from disk. A file holds either a JSON
// array of pull requests, a single pull request, or an object keyed by
// repository as written by earlier exports.
type FileScanner struct {
	fsys fs.FS
}

// NewFileScanner reads from fsys; nil means the process working directory.
func NewFileScanner(fsys fs.FS) *FileScanner {
	if fsys == nil {
		fsys = os.DirFS(".")
	}
	return &FileScanner{fsys: fsys}
}

// Name identifies the strategy inside the registry.
func (f *FileScanner) Name() string {
	return "file"
}

// Scan decodes every file matching the "path" option (doublestar syntax),
// resolved under the "root" option when set. The "key" option picks one entry
// of a repository-keyed dump.
func (f *FileScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawProposal, error) {
	pattern := req.Option("path", "")
	if pattern == "" {
		return nil, fmt.Errorf("site %s: path option is required", req.Repository)
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("site %s: invalid path pattern %q", req.Repository, pattern)
	}

	fsys := f.fsys
	if root := req.Option("root", ""); root != "" {
		fsys = os.DirFS(root)
	}

	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	sort.Strings(matches)

	key := req.Option("key", req.Repository)
	var results []domain.RawProposal
	for _, name := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}

		decoded, err := decodeDump(body, req.Repository, key)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		results = append(results, decoded...)
	}

	return results, nil
}

func decodeDump(body []byte, repository, key string) ([]domain.RawProposal, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid json")
	}

	doc := gjson.ParseBytes(body)
	switch {
	case doc.IsArray():
		return DecodePullRequests(body, repository)
	case doc.IsObject() && (doc.Get("number").Exists() || doc.Get("id").Exists()):
		single, err := decodeResult(doc, repository)
		if err != nil {
			return nil, err
		}
		return []domain.RawProposal{single}, nil
	case doc.IsObject():
		if entry := doc.Get(gjson.Escape(key)); key != "" && entry.IsArray() {
			return DecodePullRequests([]byte(entry.Raw), repository)
		}

		var out []domain.RawProposal
		var decodeErr error
		doc.ForEach(func(_, entry gjson.Result) bool {
			if !entry.IsArray() {
				return true
			}
			decoded, err := DecodePullRequests([]byte(entry.Raw), repository)
			if err != nil {
				decodeErr = err
				return false
			}
			out = append(out, decoded...)
			return true
		})
		return out, decodeErr
	default:
		return nil, fmt.Errorf("unexpected json %s", doc.Type)
	}
}
