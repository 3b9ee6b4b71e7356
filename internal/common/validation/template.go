// internal/common/validation/template.go
package validation

// TemplateSchemaJSON describes one template document as uploaded to the catalog.
const TemplateSchemaJSON = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["id", "text_fields"],
	"properties": {
		"id":     {"type": "string", "minLength": 1},
		"name":   {"type": "string"},
		"output": {"type": "string"},
		"property_images": {
			"type": "array",
			"items": {"type": "string", "minLength": 1}
		},
		"logos": {
			"type": "array",
			"items": {"type": "string", "minLength": 1}
		},
		"realtor": {
			"type": "object",
			"properties": {
				"photo":   {"type": "string"},
				"name":    {"type": "string"},
				"info":    {"type": "string"},
				"address": {"type": "string"}
			},
			"additionalProperties": false
		},
		"text_fields": {
			"type": "object",
			"minProperties": 1,
			"additionalProperties": {
				"type": "object",
				"required": ["approx_length"],
				"properties": {
					"approx_length": {"type": "integer", "minimum": 1},
					"format":        {"type": "string"}
				}
			}
		}
	}
}`

var templateSchema = MustCompileSchema(TemplateSchemaJSON)

// ValidateTemplateDocument checks one decoded template document.
func ValidateTemplateDocument(doc interface{}) *ValidationResult {
	return templateSchema.Validate(doc)
}
