// Package diff turns unified diffs into the change set presubmit checks run against.
package diff

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// ErrNoContent is returned by File.Content when the source cannot supply
// post-change contents (e.g. a bare patch for a modified file).
var ErrNoContent = errors.New("file content unavailable")

// Status is how a change touched a file.
type Status int

const (
	StatusModified Status = iota
	StatusAdded
	StatusDeleted
	StatusRenamed
)

func (s Status) String() string {
	switch s {
	case StatusAdded:
		return "A"
	case StatusDeleted:
		return "D"
	case StatusRenamed:
		return "R"
	default:
		return "M"
	}
}

// Line is an added line in the new version of a file.
type Line struct {
	Number int    // 1-based line number in the new file
	Text   string // without the trailing newline
	NoEOL  bool   // last line of the file, not newline terminated
}

// File represents a single file in a diff with its parsed fragments.
type File struct {
	OldName      string
	NewName      string
	IsNew        bool
	IsDeleted    bool
	IsRenamed    bool
	IsBinary     bool
	Fragments    []*gitdiff.TextFragment
	AddedLines   int
	DeletedLines int

	load    func() ([]byte, error)
	once    sync.Once
	content []byte
	err     error
}

// Path returns the path the file has after the change.
func (f *File) Path() string {
	if f.IsDeleted || f.NewName == "" {
		return f.OldName
	}
	return f.NewName
}

// Status classifies the change.
func (f *File) Status() Status {
	switch {
	case f.IsNew:
		return StatusAdded
	case f.IsDeleted:
		return StatusDeleted
	case f.IsRenamed:
		return StatusRenamed
	default:
		return StatusModified
	}
}

// Added returns the added lines in fragment order with new-file line numbers.
func (f *File) Added() []Line {
	var out []Line
	for _, frag := range f.Fragments {
		lineNum := int(frag.NewPosition)
		for _, line := range frag.Lines {
			if line.Op == gitdiff.OpAdd {
				text := strings.TrimSuffix(line.Line, "\n")
				out = append(out, Line{
					Number: lineNum,
					Text:   text,
					NoEOL:  !strings.HasSuffix(line.Line, "\n"),
				})
			}
			if line.Op == gitdiff.OpAdd || line.Op == gitdiff.OpContext {
				lineNum++
			}
		}
	}
	return out
}

// Content returns the full post-change contents. The result is loaded once.
func (f *File) Content() ([]byte, error) {
	if f.IsDeleted {
		return nil, fmt.Errorf("%s: %w", f.Path(), ErrNoContent)
	}
	f.once.Do(func() {
		if f.load == nil {
			f.err = fmt.Errorf("%s: %w", f.Path(), ErrNoContent)
			return
		}
		f.content, f.err = f.load()
	})
	return f.content, f.err
}

// ChangeSet holds the parsed diff for all files.
type ChangeSet struct {
	Files []*File
	Raw   string // the raw unified diff text
}

// Stats returns aggregate statistics.
func (cs *ChangeSet) Stats() (files, added, deleted int) {
	files = len(cs.Files)
	for _, f := range cs.Files {
		added += f.AddedLines
		deleted += f.DeletedLines
	}
	return
}

// Paths lists every file path in diff order.
func (cs *ChangeSet) Paths() []string {
	out := make([]string, 0, len(cs.Files))
	for _, f := range cs.Files {
		out = append(out, f.Path())
	}
	return out
}

// Parse reads a unified diff string and returns a ChangeSet. Content is
// only available for newly added files until a loader is attached.
func Parse(raw string) (*ChangeSet, error) {
	parsed, _, err := gitdiff.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing diff: %w", err)
	}

	cs := &ChangeSet{Raw: raw}
	for _, f := range parsed {
		df := &File{
			OldName:   f.OldName,
			NewName:   f.NewName,
			IsNew:     f.IsNew,
			IsDeleted: f.IsDelete,
			IsRenamed: f.IsRename,
			IsBinary:  f.IsBinary,
		}

		for _, frag := range f.TextFragments {
			df.Fragments = append(df.Fragments, frag)
			for _, line := range frag.Lines {
				switch line.Op {
				case gitdiff.OpAdd:
					df.AddedLines++
				case gitdiff.OpDelete:
					df.DeletedLines++
				}
			}
		}

		if df.IsNew && !df.IsBinary {
			nf := df
			df.load = func() ([]byte, error) { return newFileContent(nf), nil }
		}

		cs.Files = append(cs.Files, df)
	}

	return cs, nil
}

// attach sets a content loader on every non-deleted, non-binary file.
func (cs *ChangeSet) attach(load func(path string) ([]byte, error)) {
	for _, f := range cs.Files {
		if f.IsDeleted || f.IsBinary {
			continue
		}
		path := f.Path()
		f.load = func() ([]byte, error) { return load(path) }
	}
}

// newFileContent rebuilds a new file from its additions; a new file's
// fragments contain nothing else.
func newFileContent(f *File) []byte {
	var b strings.Builder
	for _, frag := range f.Fragments {
		for _, line := range frag.Lines {
			if line.Op == gitdiff.OpAdd {
				b.WriteString(line.Line)
			}
		}
	}
	return []byte(b.String())
}
