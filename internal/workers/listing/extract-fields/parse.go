// internal/workers/listing/extract-fields/parse.go
package extractfields

import (
	"bytes"
	"encoding/json"
	"fmt"

	"listing-matcher/internal/common/errors"
	"listing-matcher/internal/common/genai"
	"listing-matcher/internal/models"
)

// ParseReply decodes the generator's field map for t. Fields missing from the
// reply are nil, keys the template does not define are dropped, and numbers or
// booleans are kept as their JSON text.
func ParseReply(t models.Template, raw string) (map[string]*string, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(genai.CleanJSONBlock(raw))))
	dec.UseNumber()

	var decoded interface{}
	if err := dec.Decode(&decoded); err != nil {
		return nil, errors.NewGenerationError(t.ID, fmt.Errorf("reply is not valid JSON: %w", err))
	}
	if dec.More() {
		return nil, errors.NewGenerationError(t.ID, fmt.Errorf("reply has trailing data after the JSON object"))
	}

	obj, ok := decoded.(map[string]interface{})
	if !ok {
		return nil, errors.NewGenerationError(t.ID, fmt.Errorf("reply is a JSON %s, not an object", jsonKind(decoded)))
	}

	fields := make(map[string]*string, len(t.TextFields))
	for _, name := range t.FieldNames() {
		v, present := obj[name]
		if !present || v == nil {
			fields[name] = nil
			continue
		}

		var s string
		switch val := v.(type) {
		case string:
			s = val
		case json.Number:
			s = val.String()
		case bool:
			s = fmt.Sprintf("%t", val)
		default:
			return nil, errors.NewGenerationError(t.ID,
				fmt.Errorf("field %q holds a JSON %s, expected a string or null", name, jsonKind(v))).
				With("field", name)
		}
		fields[name] = &s
	}
	return fields, nil
}

func jsonKind(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
