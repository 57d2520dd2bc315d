package api

import "github.com/santhosh-tekuri/jsonschema/v5"

// Request shapes. Only what a handler relies on is constrained; everything else passes
// through to the document unchanged.
var (
	objectSchema = jsonschema.MustCompileString("object.json", `{"type": "object"}`)

	missionsSchema = jsonschema.MustCompileString("missions.json", `{
		"type": "object",
		"required": ["missions"],
		"properties": {"missions": {"type": "array"}}
	}`)

	itemSchema = jsonschema.MustCompileString("item.json", `{
		"type": "object",
		"properties": {
			"name": {"type": ["string", "null"]},
			"description": {"type": ["string", "null"]},
			"price": {"type": ["number", "string", "null"]}
		}
	}`)
)

func conforms(s *jsonschema.Schema, v any) bool {
	return s.Validate(v) == nil
}
