package registry

import (
	"fmt"

	"github.com/tidwall/gjson"
)

const schemaDialect = "https://json-schema.org/draft/2020-12/schema"

// Schema renders a JSON Schema document describing the persisted shape of a
// configuration document for the groups currently in reg. Field types are
// inferred from the JSON form of each declared default.
func Schema(reg Registry) (map[string]any, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry: schema requires a registry")
	}

	groups := map[string]any{}
	for _, g := range reg.Groups() {
		properties := map[string]any{}
		for _, f := range g.Fields {
			payload, err := f.MarshalJSON()
			if err != nil {
				return nil, fmt.Errorf("registry: schema default %s.%s: %w", g.Code, f.Code(), err)
			}
			properties[f.Code()] = fieldSchema(payload)
		}
		group := map[string]any{
			"type":       "object",
			"properties": properties,
		}
		if g.Name != "" {
			group["title"] = g.Name
		}
		groups[g.Code] = group
	}

	return map[string]any{
		"$schema":              schemaDialect,
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"settingGroups": map[string]any{
				"type":       "object",
				"properties": groups,
			},
		},
	}, nil
}

func fieldSchema(payload []byte) map[string]any {
	value := gjson.ParseBytes(payload)
	out := map[string]any{"default": value.Value()}
	switch value.Type {
	case gjson.True, gjson.False:
		out["type"] = "boolean"
	case gjson.Number:
		if value.Float() == float64(value.Int()) {
			out["type"] = "integer"
		} else {
			out["type"] = "number"
		}
	case gjson.String:
		out["type"] = "string"
	case gjson.JSON:
		if value.IsArray() {
			out["type"] = "array"
			if first := value.Get("0"); first.Exists() {
				out["items"] = fieldSchema([]byte(first.Raw))
				delete(out["items"].(map[string]any), "default")
			}
		} else {
			out["type"] = "object"
		}
	case gjson.Null:
		out["type"] = []string{"null", "array", "object", "string", "number", "boolean"}
	}
	return out
}
