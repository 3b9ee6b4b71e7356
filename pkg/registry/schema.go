// pkg/registry/schema.go
package registry

// Vocabulary is the on-disk shape of a label registry.
type Vocabulary struct {
	Version string   `json:"version"`
	House   []string `json:"house"`
	Logo    []string `json:"logo"`
	Person  []string `json:"person"`
}

// DefaultVocabulary is the zero-shot label set the image tagger chooses from.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Version: "1",
		House: []string{
			"a photo of a house",
			"a photo of a kitchen",
			"a living room interior",
			"a bathroom interior",
			"a bedroom",
			"a floorplan",
			"a building exterior",
			"an office",
			"abstract art",
		},
		Logo: []string{
			"a logo",
		},
		Person: []string{
			"a person",
			"headshot",
		},
	}
}
