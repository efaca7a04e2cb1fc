// Package annotate consumes the gloss cache produced by the external
// word-annotation tool and places glosses onto rendered pages. Entries
// are keyed "word|contextHash" where the hash is the first six hex
// characters of the md5 of the sentence the word appeared in; the queue
// builder here derives the same keys from chapter text so producer and
// consumer agree without coordination.
package annotate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Cache maps "word|contextHash" keys to short gloss strings.
type Cache map[string]string

// cacheSchema pins the serialized cache shape. Keys carry the word, a
// pipe, and a 6-hex-digit context hash; glosses are non-empty strings.
const cacheSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["entries"],
  "properties": {
    "version": {"type": "integer", "minimum": 1},
    "language": {"type": "string"},
    "entries": {
      "type": "object",
      "patternProperties": {
        "^.+\\|[0-9a-f]{6}$": {"type": "string", "minLength": 1}
      },
      "additionalProperties": false
    }
  }
}`

type cacheFile struct {
	Version  int               `json:"version"`
	Language string            `json:"language,omitempty"`
	Entries  map[string]string `json:"entries"`
}

// LoadCache reads and validates a gloss cache. Any failure — missing
// file, bad JSON, schema violation — returns a nil cache with the
// error; rendering proceeds unannotated in that case.
func LoadCache(path string) (Cache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read annotation cache: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("cache.json", bytes.NewReader([]byte(cacheSchema))); err != nil {
		return nil, fmt.Errorf("failed to load annotation schema: %w", err)
	}
	schema, err := compiler.Compile("cache.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile annotation schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode annotation cache: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("annotation cache does not match schema: %w", err)
	}

	var cf cacheFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to decode annotation cache: %w", err)
	}
	return Cache(cf.Entries), nil
}
