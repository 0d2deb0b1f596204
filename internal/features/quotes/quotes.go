package quotes

// Quote corpus for the random quote card
// Files are JSON ({"quotes": [[author, text], ...]}) or TOML ([[quotes]] author/text)
// The embedded corpus is used when no file is configured

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed data/quotes.json
var defaultCorpus []byte

// ErrEmptyCorpus is returned when a corpus has no usable quotes.
var ErrEmptyCorpus = errors.New("quote corpus is empty")

// Quote is one corpus entry.
type Quote struct {
	Author string `toml:"author"`
	Text   string `toml:"text"`
}

// Corpus is an immutable list of quotes.
type Corpus struct {
	quotes []Quote
}

type jsonCorpus struct {
	Quotes [][]string `json:"quotes"`
}

type tomlCorpus struct {
	Quotes []Quote `toml:"quotes"`
}

// Default returns the embedded corpus.
func Default() (*Corpus, error) {
	return ParseJSON(defaultCorpus)
}

// Load reads a corpus file by extension. An empty path returns Default().
func Load(path string) (*Corpus, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read quote corpus: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(data)
	case ".toml":
		return ParseTOML(data)
	default:
		return nil, fmt.Errorf("unsupported quote corpus format %q (want .json or .toml)", filepath.Ext(path))
	}
}

// ParseJSON parses {"quotes": [[author, text], ...]}.
func ParseJSON(data []byte) (*Corpus, error) {
	var raw jsonCorpus
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse quote corpus JSON: %w", err)
	}

	list := make([]Quote, 0, len(raw.Quotes))
	for i, pair := range raw.Quotes {
		if len(pair) != 2 {
			return nil, fmt.Errorf("quote %d: want [author, text], got %d fields", i, len(pair))
		}
		list = append(list, Quote{Author: pair[0], Text: pair[1]})
	}
	return newCorpus(list)
}

// ParseTOML parses a list of [[quotes]] tables with author and text keys.
func ParseTOML(data []byte) (*Corpus, error) {
	var raw tomlCorpus
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse quote corpus TOML: %w", err)
	}
	return newCorpus(raw.Quotes)
}

func newCorpus(list []Quote) (*Corpus, error) {
	kept := make([]Quote, 0, len(list))
	for _, q := range list {
		q.Author = strings.TrimSpace(q.Author)
		q.Text = strings.TrimSpace(q.Text)
		if q.Text == "" {
			continue
		}
		kept = append(kept, q)
	}
	if len(kept) == 0 {
		return nil, ErrEmptyCorpus
	}
	return &Corpus{quotes: kept}, nil
}

// Len returns the number of quotes.
func (c *Corpus) Len() int { return len(c.quotes) }

// All returns a copy of the quotes.
func (c *Corpus) All() []Quote {
	return append([]Quote(nil), c.quotes...)
}

// Pick returns a uniformly random quote. A nil rnd uses the global source.
func (c *Corpus) Pick(rnd *rand.Rand) Quote {
	if rnd == nil {
		return c.quotes[rand.IntN(len(c.quotes))]
	}
	return c.quotes[rnd.IntN(len(c.quotes))]
}
