package artifact

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const fence = "---"

var (
	// ErrMissingFrontMatter reports a document that does not open with a fence.
	ErrMissingFrontMatter = errors.New("artifact: missing frontmatter")
	// ErrMalformedFrontMatter reports an unterminated or unusable header.
	ErrMalformedFrontMatter = errors.New("artifact: malformed frontmatter")
)

type frontMatter struct {
	Procflow *Metadata `yaml:"procflow"`
}

// ParseFrontMatter splits a document into its procflow header and body.
func ParseFrontMatter(content []byte) (Metadata, []byte, error) {
	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	first, rest, _ := strings.Cut(text, "\n")
	if strings.TrimRight(first, " \t") != fence {
		return Metadata{}, nil, ErrMissingFrontMatter
	}
	header, body, ok := cutFence(rest)
	if !ok {
		return Metadata{}, nil, ErrMalformedFrontMatter
	}
	var fm frontMatter
	if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
		return Metadata{}, nil, fmt.Errorf("%w: %v", ErrMalformedFrontMatter, err)
	}
	if fm.Procflow == nil {
		return Metadata{}, nil, fmt.Errorf("%w: no procflow block", ErrMalformedFrontMatter)
	}
	if err := fm.Procflow.checkStored(); err != nil {
		return Metadata{}, nil, fmt.Errorf("%w: %v", ErrMalformedFrontMatter, err)
	}
	meta := *fm.Procflow
	meta.CreatedAt = meta.CreatedAt.UTC()
	return meta, []byte(strings.TrimPrefix(body, "\n")), nil
}

// WriteFrontMatter prefixes body with a fenced YAML header.
func WriteFrontMatter(meta Metadata, body []byte) ([]byte, error) {
	if meta.RecordID == "" {
		return nil, fmt.Errorf("artifact: metadata missing record id")
	}
	meta.CreatedAt = meta.CreatedAt.UTC()

	var buf bytes.Buffer
	buf.WriteString(fence + "\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(frontMatter{Procflow: &meta}); err != nil {
		return nil, fmt.Errorf("artifact: encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("artifact: encode frontmatter: %w", err)
	}
	buf.WriteString(fence + "\n\n")
	buf.Write(body)
	return buf.Bytes(), nil
}

// cutFence returns the text before the next line holding only a fence and
// the text after it.
func cutFence(s string) (string, string, bool) {
	for offset := 0; offset < len(s); {
		line, next := s[offset:], len(s)
		if i := strings.IndexByte(line, '\n'); i >= 0 {
			line, next = line[:i], offset+i+1
		}
		if strings.TrimRight(line, " \t") == fence {
			return s[:offset], s[next:], true
		}
		offset = next
	}
	return "", "", false
}
