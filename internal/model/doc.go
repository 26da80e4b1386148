// Package model defines the journal document types shared by the watcher
// pipeline, the persistence worker and the store.
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// DocKind distinguishes long-lived reference documents from dated posts.
type DocKind string

const (
	KindDoc  DocKind = "doc"
	KindPost DocKind = "post"
)

// IsValid checks if the kind is a known valid value.
func (k DocKind) IsValid() bool {
	switch k {
	case KindDoc, KindPost:
		return true
	default:
		return false
	}
}

// UnmarshalYAML implements yaml.Unmarshaler, rejecting unknown kinds.
func (k *DocKind) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	kind := DocKind(s)
	if !kind.IsValid() {
		return fmt.Errorf("unknown kind %q", s)
	}
	*k = kind
	return nil
}

// DocGenre classifies a document along the documentation quadrants.
type DocGenre string

const (
	GenreTutorial   DocGenre = "tutorial"
	GenreHowto      DocGenre = "howto"
	GenreBackground DocGenre = "background"
	GenreReference  DocGenre = "reference"
)

// IsValid checks if the genre is a known valid value.
func (g DocGenre) IsValid() bool {
	switch g {
	case GenreTutorial, GenreHowto, GenreBackground, GenreReference:
		return true
	default:
		return false
	}
}

// UnmarshalYAML implements yaml.Unmarshaler, rejecting unknown genres.
func (g *DocGenre) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	genre := DocGenre(s)
	if !genre.IsValid() {
		return fmt.Errorf("unknown genre %q", s)
	}
	*g = genre
	return nil
}

// Front is the YAML front matter block at the top of a journal file.
// The outline field is spelled "abstract" on disk.
type Front struct {
	Title   string   `yaml:"title"`
	Outline string   `yaml:"abstract"`
	Author  string   `yaml:"author"`
	Tags    []string `yaml:"tags"`
	Image   string   `yaml:"image"`
	Kind    DocKind  `yaml:"kind"`
	Genre   DocGenre `yaml:"genre"`
}

// ApplyDefaults fills kind and genre when the front matter omits them.
func (f *Front) ApplyDefaults() {
	if f.Kind == "" {
		f.Kind = KindDoc
	}
	if f.Genre == "" {
		f.Genre = GenreTutorial
	}
}

// Doc is one journal document. Values are immutable once constructed: every
// file change produces a fresh Doc that replaces the stored one by ID.
//
// The ID comes from the filename stem and nowhere else. Renaming a file
// therefore creates a logically new document even when content is unchanged.
type Doc struct {
	ID        uuid.UUID
	Front     Front
	Content   string
	UpdatedAt time.Time
}
