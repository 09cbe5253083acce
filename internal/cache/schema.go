package cache

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// entrySchema describes the persisted record. Records written by older builds
// that fail it are treated as misses and get rewritten.
func entrySchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"source_path": map[string]any{"type": "string", "minLength": 1},
			"text":        map[string]any{"type": "string"},
			"languages": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"failure":    map[string]any{"type": "string"},
			"written_at": map[string]any{"type": "string", "format": "date-time"},
		},
		"required": []string{"source_path", "text", "languages", "written_at"},
	}
}

var compiledEntrySchema = mustCompile(entrySchema())

func mustCompile(schemaMap map[string]any) *jsonschema.Schema {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		panic(fmt.Sprintf("marshal cache schema: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource("entry.json", bytes.NewReader(b)); err != nil {
		panic(fmt.Sprintf("add cache schema: %v", err))
	}
	return compiler.MustCompile("entry.json")
}

// validateRecord checks raw record bytes against the entry schema.
func validateRecord(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal record: %w", err)
	}
	if err := compiledEntrySchema.Validate(v); err != nil {
		return fmt.Errorf("record does not match schema: %w", err)
	}
	return nil
}
