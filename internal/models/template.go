// internal/models/template.go
package models

import (
	"fmt"
	"sort"
	"strings"
)

// TextField describes one generated text slot of a template.
type TextField struct {
	ApproxLength  int    `json:"approx_length" yaml:"approx_length"`
	FormatExample string `json:"format" yaml:"format"`
}

// RealtorSlots holds the optional realtor placeholder keys of a template.
// Info receives the realtor's email and Address the property address.
type RealtorSlots struct {
	Photo   string `json:"photo,omitempty" yaml:"photo,omitempty"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Info    string `json:"info,omitempty" yaml:"info,omitempty"`
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
}

// Template is an immutable document schema from the catalog.
type Template struct {
	ID             string               `json:"id" yaml:"id"`
	Name           string               `json:"name" yaml:"name"`
	OutputFormat   string               `json:"output" yaml:"output"`
	PropertyImages []string             `json:"property_images" yaml:"property_images"`
	Logos          []string             `json:"logos" yaml:"logos"`
	Realtor        RealtorSlots         `json:"realtor" yaml:"realtor"`
	TextFields     map[string]TextField `json:"text_fields" yaml:"text_fields"`
}

// PropertyImageCount is the number of property photo placeholders.
func (t Template) PropertyImageCount() int { return len(t.PropertyImages) }

// LogoCount is the number of logo placeholders.
func (t Template) LogoCount() int { return len(t.Logos) }

// RealtorPhotoSlot returns 1 when the template has a realtor photo placeholder.
func (t Template) RealtorPhotoSlot() int {
	if strings.TrimSpace(t.Realtor.Photo) != "" {
		return 1
	}
	return 0
}

// ImageCount is the total number of image placeholders.
func (t Template) ImageCount() int {
	return t.PropertyImageCount() + t.LogoCount() + t.RealtorPhotoSlot()
}

// TextCount counts text fields plus the three realtor literals (name, address, email).
func (t Template) TextCount() int {
	return len(t.TextFields) + 3
}

// FieldNames returns the text field names in lexical order so prompts are reproducible.
func (t Template) FieldNames() []string {
	names := make([]string, 0, len(t.TextFields))
	for name := range t.TextFields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PlaceholderKeys returns every key this template can receive, without duplicates.
func (t Template) PlaceholderKeys() []string {
	seen := make(map[string]struct{})
	keys := make([]string, 0, len(t.TextFields)+t.ImageCount()+3)
	add := func(k string) {
		if k == "" {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	for _, name := range t.FieldNames() {
		add(name)
	}
	for _, k := range t.PropertyImages {
		add(k)
	}
	for _, k := range t.Logos {
		add(k)
	}
	add(t.Realtor.Photo)
	add(t.Realtor.Name)
	add(t.Realtor.Info)
	add(t.Realtor.Address)
	return keys
}

// FieldProblem names one invariant violation of a template.
type FieldProblem struct {
	Field   string
	Message string
}

func (p FieldProblem) String() string {
	return fmt.Sprintf("%s: %s", p.Field, p.Message)
}

// Problems checks the template invariants and returns every violation found.
func (t Template) Problems() []FieldProblem {
	var out []FieldProblem
	if strings.TrimSpace(t.ID) == "" {
		out = append(out, FieldProblem{Field: "id", Message: "must not be empty"})
	}
	if len(t.TextFields) == 0 {
		out = append(out, FieldProblem{Field: "text_fields", Message: "must define at least one text field"})
	}
	for _, name := range t.FieldNames() {
		if strings.TrimSpace(name) == "" {
			out = append(out, FieldProblem{Field: "text_fields", Message: "field name must not be empty"})
			continue
		}
		if t.TextFields[name].ApproxLength <= 0 {
			out = append(out, FieldProblem{
				Field:   "text_fields." + name,
				Message: fmt.Sprintf("approx_length must be positive, got %d", t.TextFields[name].ApproxLength),
			})
		}
	}
	out = append(out, duplicateKeys("property_images", t.PropertyImages)...)
	out = append(out, duplicateKeys("logos", t.Logos)...)
	return out
}

func duplicateKeys(field string, keys []string) []FieldProblem {
	var out []FieldProblem
	seen := make(map[string]bool, len(keys))
	for i, k := range keys {
		if strings.TrimSpace(k) == "" {
			out = append(out, FieldProblem{Field: fmt.Sprintf("%s[%d]", field, i), Message: "placeholder key must not be empty"})
			continue
		}
		if seen[k] {
			out = append(out, FieldProblem{Field: fmt.Sprintf("%s[%d]", field, i), Message: fmt.Sprintf("duplicate placeholder key %q", k)})
		}
		seen[k] = true
	}
	return out
}
