// internal/workers/listing/register-templates/service.go
package registertemplates

import (
	"encoding/json"
	"fmt"

	"listing-matcher/internal/common/errors"
	"listing-matcher/internal/common/validation"
	"listing-matcher/internal/models"
)

// ParseDocuments validates every document and converts it to a Template.
// The first invalid document fails the whole batch.
func ParseDocuments(docs []map[string]interface{}) ([]models.Template, error) {
	templates := make([]models.Template, 0, len(docs))
	seen := make(map[string]int, len(docs))

	for i, doc := range docs {
		id := documentID(doc, i)

		if res := validation.ValidateTemplateDocument(doc); !res.Valid {
			first := res.Errors[0]
			return nil, errors.NewValidationError(id, first.Field, first.Message).
				With("problems", res.GetErrorMessages())
		}

		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, errors.NewValidationError(id, "(root)", err.Error())
		}
		var t models.Template
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, errors.NewValidationError(id, "(root)", err.Error())
		}

		if problems := t.Problems(); len(problems) > 0 {
			msgs := make([]string, len(problems))
			for j, p := range problems {
				msgs[j] = p.String()
			}
			return nil, errors.NewValidationError(id, problems[0].Field, problems[0].Message).
				With("problems", msgs)
		}

		if prev, dup := seen[t.ID]; dup {
			return nil, errors.NewValidationError(id, "id",
				fmt.Sprintf("duplicate template id, first defined at index %d", prev))
		}
		seen[t.ID] = i
		templates = append(templates, t)
	}
	return templates, nil
}

// Summarize reports the derived slot counts of each template.
func Summarize(templates []models.Template) []Registered {
	out := make([]Registered, len(templates))
	for i, t := range templates {
		out[i] = Registered{
			ID:        t.ID,
			Name:      t.Name,
			ImgCount:  t.ImageCount(),
			TextCount: t.TextCount(),
		}
	}
	return out
}

func documentID(doc map[string]interface{}, index int) string {
	if id, ok := doc["id"].(string); ok && id != "" {
		return id
	}
	return fmt.Sprintf("#%d", index)
}
