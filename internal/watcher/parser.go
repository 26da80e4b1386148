package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"journal/internal/model"
)

// ParseKind tags the failure modes of the document parser.
type ParseKind int

const (
	// ParseIO means the file could not be read.
	ParseIO ParseKind = iota
	// ParseMalformed means the content is missing the front matter markers.
	ParseMalformed
	// ParseSchema means the front matter did not decode.
	ParseSchema
	// ParseIdentity means the filename stem is not a UUID.
	ParseIdentity
)

// String returns a human-readable representation of the kind.
func (k ParseKind) String() string {
	switch k {
	case ParseIO:
		return "io"
	case ParseMalformed:
		return "malformed"
	case ParseSchema:
		return "schema"
	case ParseIdentity:
		return "identity"
	default:
		return "unknown"
	}
}

// ParseError is a typed, per-file parse failure. These are diagnostic and
// non-fatal to the pipeline.
type ParseError struct {
	Kind ParseKind
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parser turns a candidate file into a model.Doc. It is a pure transform
// apart from the file read; the clock is injectable for tests.
type Parser struct {
	Now func() time.Time
}

// NewParser returns a parser using the wall clock.
func NewParser() *Parser {
	return &Parser{Now: time.Now}
}

// Parse reads and decodes one journal file.
//
// An empty file yields (nil, nil) rather than an error: editors commonly
// truncate on save and rewrite, so the real content arrives with a follow-up
// modify event. Content must contain an ignored preamble, a YAML front
// matter block and a body, separated by the first two "---" markers; the
// body may itself contain "---".
func (p *Parser) Parse(path string) (*model.Doc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Kind: ParseIO, Path: path, Err: err}
	}
	if len(data) == 0 {
		return nil, nil
	}

	parts := strings.SplitN(string(data), "---", 3)
	if len(parts) < 3 {
		return nil, &ParseError{
			Kind: ParseMalformed,
			Path: path,
			Err:  fmt.Errorf("want front matter between --- markers, got %d segment(s)", len(parts)),
		}
	}

	var front model.Front
	if err := yaml.Unmarshal([]byte(parts[1]), &front); err != nil {
		return nil, &ParseError{Kind: ParseSchema, Path: path, Err: err}
	}
	front.ApplyDefaults()

	// The filename stem is the only source of identity.
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	id, err := uuid.Parse(stem)
	if err != nil {
		return nil, &ParseError{Kind: ParseIdentity, Path: path, Err: err}
	}

	return &model.Doc{
		ID:        id,
		Front:     front,
		Content:   parts[2],
		UpdatedAt: p.Now(),
	}, nil
}
