// internal/common/prompts/prompts.go
package prompts

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/tyler-sommer/stick"

	"listing-matcher/internal/models"
)

//go:embed templates/*.twig
var templateFS embed.FS

const (
	Extract  = "extract"
	Shorten  = "shorten"
	Classify = "classify"
)

// Renderer renders the pipeline prompts. Safe for concurrent use after construction.
type Renderer struct {
	env       *stick.Env
	templates map[string]string
}

// New loads the embedded prompt templates.
func New() (*Renderer, error) {
	r := &Renderer{
		env:       stick.New(nil),
		templates: make(map[string]string),
	}
	err := fs.WalkDir(templateFS, "templates", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".twig") {
			return nil
		}
		content, readErr := fs.ReadFile(templateFS, p)
		if readErr != nil {
			return fmt.Errorf("read %s: %w", p, readErr)
		}
		r.templates[strings.TrimSuffix(path.Base(p), ".twig")] = string(content)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// MustNew panics if the embedded templates cannot be read.
func MustNew() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Renderer) render(tag string, vars map[string]stick.Value) (string, error) {
	tpl, ok := r.templates[tag]
	if !ok {
		return "", fmt.Errorf("prompt template %q not found", tag)
	}
	var out strings.Builder
	if err := r.env.Execute(tpl, &out, vars); err != nil {
		return "", fmt.Errorf("execute %q: %w", tag, err)
	}
	return strings.TrimSpace(out.String()), nil
}

// ExtractionPrompt lists every text field with its budget and format, then the input text.
func (r *Renderer) ExtractionPrompt(t models.Template, inputText string) (string, error) {
	names := t.FieldNames()
	lines := make([]string, 0, len(names))
	skeleton := make([]string, 0, len(names))
	for _, name := range names {
		f := t.TextFields[name]
		lines = append(lines, fmt.Sprintf("- %s, approx_size: %d, format: %s", name, f.ApproxLength, f.FormatExample))
		skeleton = append(skeleton, fmt.Sprintf("  %q: \"...\"", name))
	}

	return r.render(Extract, map[string]stick.Value{
		"field_list":    strings.Join(lines, "\n"),
		"json_skeleton": "{\n" + strings.Join(skeleton, ",\n") + "\n}",
		"input_text":    inputText,
	})
}

// ShortenPrompt asks for a strictly shorter version of text within target characters.
func (r *Renderer) ShortenPrompt(text string, target int, formatExample string) (string, error) {
	return r.render(Shorten, map[string]stick.Value{
		"text":           text,
		"target":         target,
		"current":        len([]rune(text)),
		"format_example": formatExample,
	})
}

// ClassifyPrompt lists the allowed labels for the vision tagger.
func (r *Renderer) ClassifyPrompt(labels []string) (string, error) {
	lines := make([]string, len(labels))
	for i, l := range labels {
		lines[i] = "- " + l
	}
	return r.render(Classify, map[string]stick.Value{
		"label_list": strings.Join(lines, "\n"),
	})
}
