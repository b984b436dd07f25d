// Package schema validates persisted board documents against a JSON Schema.
// Loading stays permissive; this is the strict check behind the validate
// command and strict saves.
package schema

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed document.schema.json
var documentSchema string

const schemaURL = "kanboard://document.schema.json"

// Issue is a single schema violation.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func load() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(schemaURL, strings.NewReader(documentSchema)); err != nil {
			compileErr = fmt.Errorf("schema: add resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
	})
	return compiled, compileErr
}

// Source returns the schema text.
func Source() string { return documentSchema }

// Validate checks data against the document schema and returns every
// violation found. Invalid JSON is reported as a single issue.
func Validate(data []byte) ([]Issue, error) {
	s, err := load()
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return []Issue{{Message: err.Error()}}, nil
	}
	err = s.Validate(v)
	if err == nil {
		return nil, nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil, err
	}
	var out []Issue
	collect(&out, ve)
	return out, nil
}

func collect(out *[]Issue, ve *jsonschema.ValidationError) {
	if len(ve.Causes) == 0 {
		*out = append(*out, Issue{Path: pointerToPath(ve.InstanceLocation), Message: ve.Message})
		return
	}
	for _, c := range ve.Causes {
		collect(out, c)
	}
}

// pointerToPath turns "/boards/0/notes/1" into "boards[0].notes[1]".
func pointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}
	var b strings.Builder
	for i, seg := range strings.Split(ptr, "/") {
		if isIndex(seg) {
			b.WriteString("[" + seg + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg)
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
