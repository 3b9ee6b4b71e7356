// internal/workers/listing/register-templates/models.go
package registertemplates

type Input struct {
	Templates []map[string]interface{} `json:"templates"`
}

// Registered summarizes one stored template.
type Registered struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ImgCount  int    `json:"img_count"`
	TextCount int    `json:"text_count"`
}

type Output struct {
	Registered []Registered `json:"registered"`
}
