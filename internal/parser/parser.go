// Package parser extracts tags, wikilinks, and search text from board
// documents for the catalog index.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/kanboard/internal/kanban"
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
)

// Summary is the indexable view of one document.
type Summary struct {
	Title       string
	Description string
	Boards      int
	Notes       int
	Tags        []string
	Links       []string
	// Body concatenates board titles, note titles, and note bodies for
	// full-text search.
	Body string
}

// Summarize walks every note of doc. It never fails: content that does not
// parse simply contributes no tags.
func Summarize(doc *kanban.Document) Summary {
	s := Summary{
		Title:       doc.Title,
		Description: doc.Description,
		Boards:      len(doc.Boards),
	}
	tags := newSet()
	links := newSet()
	var body strings.Builder
	if doc.Description != "" {
		body.WriteString(doc.Description)
		body.WriteByte('\n')
	}
	for _, b := range doc.Boards {
		body.WriteString(b.Title)
		body.WriteByte('\n')
		for _, n := range b.Notes {
			s.Notes++
			fm, text := splitFrontmatter([]byte(n.Content))
			tags.add(frontmatterTags(fm)...)
			tags.add(extractTags(n.Title + "\n" + text)...)
			links.add(extractLinks(n.Title + "\n" + text)...)
			body.WriteString(n.Title)
			body.WriteByte('\n')
			if text != "" {
				body.WriteString(text)
				body.WriteByte('\n')
			}
		}
	}
	s.Tags = tags.items
	s.Links = links.items
	s.Body = body.String()
	return s
}

type set struct {
	seen  map[string]struct{}
	items []string
}

func newSet() *set { return &set{seen: map[string]struct{}{}} }

func (s *set) add(vs ...string) {
	for _, v := range vs {
		if _, ok := s.seen[v]; ok {
			continue
		}
		s.seen[v] = struct{}{}
		s.items = append(s.items, v)
	}
}

// splitFrontmatter separates a leading YAML block (between --- lines) from
// the rest of a note. Invalid YAML leaves the content untouched.
func splitFrontmatter(data []byte) (map[string]any, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}
	var fm map[string]any
	if err := yaml.Unmarshal(rest[:idx], &fm); err != nil {
		return nil, string(data)
	}
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")
	return fm, body
}

// frontmatterTags reads a "tags" list or a single "tags" string.
func frontmatterTags(fm map[string]any) []string {
	var out []string
	switch v := fm["tags"].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func extractTags(text string) []string {
	var out []string
	for _, m := range tagRe.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

// extractLinks returns wikilink targets; [[Target|Alias]] yields Target.
func extractLinks(text string) []string {
	var out []string
	for _, m := range wikilinkRe.FindAllStringSubmatch(text, -1) {
		target := m[1]
		if i := strings.Index(target, "|"); i >= 0 {
			target = target[:i]
		}
		if target = strings.TrimSpace(target); target != "" {
			out = append(out, target)
		}
	}
	return out
}
