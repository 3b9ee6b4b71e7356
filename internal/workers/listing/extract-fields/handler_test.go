// internal/workers/listing/extract-fields/handler_test.go
package extractfields

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-matcher/internal/common/errors"
	"listing-matcher/internal/common/genai"
	"listing-matcher/internal/common/logger"
	"listing-matcher/internal/common/prompts"
	"listing-matcher/internal/models"
)

const shortenMarker = "Shorten the following text"

// fakeGenerator answers extraction prompts with a fixed reply and shortening
// prompts through shorten, counting both.
type fakeGenerator struct {
	mu           sync.Mutex
	reply        string
	extractErr   error
	shorten      func(text string) string
	extractCalls int
	shortenCalls int
	prompts      []string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	isShorten := strings.HasPrefix(prompt, shortenMarker)
	if isShorten {
		f.shortenCalls++
	} else {
		f.extractCalls++
	}
	f.mu.Unlock()

	if !isShorten {
		if f.extractErr != nil {
			return "", f.extractErr
		}
		return f.reply, nil
	}
	text := prompt[strings.LastIndex(prompt, "Text: ")+len("Text: "):]
	return f.shorten(text), nil
}

// blockingGenerator waits for the caller's deadline.
type blockingGenerator struct{}

func (blockingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func createTestConfig() *Config {
	return &Config{
		MaxShorteningRounds: 3,
		FieldConcurrency:    2,
		CallTimeout:         time.Second,
		Timeout:             5 * time.Second,
	}
}

func listingTemplate() models.Template {
	return models.Template{
		ID:   "T1",
		Name: "Open house flyer",
		TextFields: map[string]models.TextField{
			"headline":    {ApproxLength: 30, FormatExample: "Sunny 3BR in Elm Park"},
			"description": {ApproxLength: 200, FormatExample: "A short paragraph."},
			"price":       {ApproxLength: 12, FormatExample: "$450,000"},
		},
	}
}

func newTestExtractor(t *testing.T, gen Generator, config *Config) *Extractor {
	return NewExtractor(gen, prompts.MustNew(), config, logger.NewTestLogger(t))
}

func dropOne(text string) string {
	r := []rune(text)
	return string(r[:len(r)-1])
}

// ==========================
// Truncation Enforcer
// ==========================

func TestEnforcer_WithinBudget_NoCalls(t *testing.T) {
	gen := &fakeGenerator{shorten: dropOne}
	e := NewEnforcer(gen, prompts.MustNew(), createTestConfig(), logger.NewTestLogger(t))

	value := "Sunny 3BR in Elm Park"
	got, report, err := e.Enforce(context.Background(), "T1", "headline", models.TextField{ApproxLength: 30}, value)

	require.NoError(t, err)
	assert.Equal(t, value, got)
	assert.Equal(t, 0, gen.shortenCalls)
	assert.Equal(t, 0, report.Rounds)
	assert.False(t, report.StillOverLimit)
}

func TestEnforcer_ExactlyAtBudget_NoCalls(t *testing.T) {
	gen := &fakeGenerator{shorten: dropOne}
	e := NewEnforcer(gen, prompts.MustNew(), createTestConfig(), logger.NewTestLogger(t))

	value := strings.Repeat("x", 30)
	got, _, err := e.Enforce(context.Background(), "T1", "headline", models.TextField{ApproxLength: 30}, value)

	require.NoError(t, err)
	assert.Equal(t, value, got)
	assert.Zero(t, gen.shortenCalls)
}

func TestEnforcer_ConvergesWithinRounds(t *testing.T) {
	replies := []string{strings.Repeat("b", 60), "Bright corner home, big yard"}
	gen := &fakeGenerator{}
	gen.shorten = func(string) string { return replies[gen.shortenCalls-1] }
	e := NewEnforcer(gen, prompts.MustNew(), createTestConfig(), logger.NewTestLogger(t))

	got, report, err := e.Enforce(context.Background(), "T1", "headline",
		models.TextField{ApproxLength: 30}, strings.Repeat("a", 120))

	require.NoError(t, err)
	assert.Equal(t, "Bright corner home, big yard", got)
	assert.Equal(t, 2, gen.shortenCalls)
	assert.Equal(t, TruncationReport{
		Field:          "headline",
		Target:         30,
		OriginalLength: 120,
		FinalLength:    28,
		Rounds:         2,
		StillOverLimit: false,
	}, report)
}

func TestEnforcer_StopsAfterThreeRounds(t *testing.T) {
	gen := &fakeGenerator{shorten: dropOne}
	e := NewEnforcer(gen, prompts.MustNew(), createTestConfig(), logger.NewTestLogger(t))

	value := strings.Repeat("a", 120)
	got, report, err := e.Enforce(context.Background(), "T1", "headline", models.TextField{ApproxLength: 30}, value)

	require.NoError(t, err)
	assert.Equal(t, 3, gen.shortenCalls)
	assert.Len(t, got, 117, "last candidate is returned without hard truncation")
	assert.Equal(t, 3, report.Rounds)
	assert.True(t, report.StillOverLimit)
}

func TestEnforcer_ZeroRoundsFlagsImmediately(t *testing.T) {
	config := createTestConfig()
	config.MaxShorteningRounds = 0
	gen := &fakeGenerator{shorten: dropOne}
	e := NewEnforcer(gen, prompts.MustNew(), config, logger.NewTestLogger(t))

	value := strings.Repeat("a", 40)
	got, report, err := e.Enforce(context.Background(), "T1", "headline", models.TextField{ApproxLength: 30}, value)

	require.NoError(t, err)
	assert.Equal(t, value, got)
	assert.Zero(t, gen.shortenCalls)
	assert.True(t, report.StillOverLimit)
}

func TestEnforcer_EmptyReplyKeepsCandidate(t *testing.T) {
	gen := &fakeGenerator{shorten: func(string) string { return "  \n" }}
	e := NewEnforcer(gen, prompts.MustNew(), createTestConfig(), logger.NewTestLogger(t))

	value := strings.Repeat("a", 40)
	got, report, err := e.Enforce(context.Background(), "T1", "headline", models.TextField{ApproxLength: 30}, value)

	require.NoError(t, err)
	assert.Equal(t, value, got)
	assert.Equal(t, 3, report.Rounds)
	assert.True(t, report.StillOverLimit)
}

func TestEnforcer_TrimsReplies(t *testing.T) {
	gen := &fakeGenerator{shorten: func(string) string { return "  Short and sweet \n" }}
	e := NewEnforcer(gen, prompts.MustNew(), createTestConfig(), logger.NewTestLogger(t))

	got, _, err := e.Enforce(context.Background(), "T1", "headline",
		models.TextField{ApproxLength: 30}, strings.Repeat("a", 40))

	require.NoError(t, err)
	assert.Equal(t, "Short and sweet", got)
	assert.Equal(t, 1, gen.shortenCalls)
}

func TestEnforcer_CountsCodePoints(t *testing.T) {
	gen := &fakeGenerator{shorten: dropOne}
	e := NewEnforcer(gen, prompts.MustNew(), createTestConfig(), logger.NewTestLogger(t))

	value := strings.Repeat("é", 10) // 20 bytes, 10 characters
	got, _, err := e.Enforce(context.Background(), "T1", "headline", models.TextField{ApproxLength: 10}, value)

	require.NoError(t, err)
	assert.Equal(t, value, got)
	assert.Zero(t, gen.shortenCalls)
}

func TestEnforcer_PromptCarriesTargetAndFormat(t *testing.T) {
	gen := &fakeGenerator{shorten: func(string) string { return "ok" }}
	e := NewEnforcer(gen, prompts.MustNew(), createTestConfig(), logger.NewTestLogger(t))

	_, _, err := e.Enforce(context.Background(), "T1", "price",
		models.TextField{ApproxLength: 12, FormatExample: "$450,000"}, "Four hundred and fifty thousand dollars")

	require.NoError(t, err)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "at most 12 characters")
	assert.Contains(t, gen.prompts[0], "$450,000")
	assert.Contains(t, gen.prompts[0], "Four hundred and fifty thousand dollars")
}

func TestEnforcer_TimeoutIsServiceTimeout(t *testing.T) {
	config := createTestConfig()
	config.CallTimeout = 20 * time.Millisecond
	e := NewEnforcer(blockingGenerator{}, prompts.MustNew(), config, logger.NewTestLogger(t))

	_, _, err := e.Enforce(context.Background(), "T1", "headline",
		models.TextField{ApproxLength: 5}, "far too long")

	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrServiceTimeout))
	assert.Equal(t, "headline", errors.Normalize(err).Metadata["field"])
}

// ==========================
// Reply parsing
// ==========================

func TestParseReply(t *testing.T) {
	tmpl := listingTemplate()

	t.Run("fenced object", func(t *testing.T) {
		fields, err := ParseReply(tmpl, "```json\n{\"headline\": \"Sunny home\", \"price\": null}\n```")
		require.NoError(t, err)
		require.NotNil(t, fields["headline"])
		assert.Equal(t, "Sunny home", *fields["headline"])
		assert.Nil(t, fields["price"])
		assert.Nil(t, fields["description"], "absent keys are null")
		assert.Len(t, fields, 3)
	})

	t.Run("scalars are stringified", func(t *testing.T) {
		fields, err := ParseReply(tmpl, `{"price": 450000, "headline": true}`)
		require.NoError(t, err)
		assert.Equal(t, "450000", *fields["price"])
		assert.Equal(t, "true", *fields["headline"])
	})

	t.Run("unknown keys dropped", func(t *testing.T) {
		fields, err := ParseReply(tmpl, `{"headline": "x", "agent_mood": "happy"}`)
		require.NoError(t, err)
		_, ok := fields["agent_mood"]
		assert.False(t, ok)
	})

	tests := []struct {
		name  string
		reply string
		field string
	}{
		{name: "not json", reply: "Sure! Here are your fields."},
		{name: "array", reply: `["headline"]`},
		{name: "string", reply: `"headline"`},
		{name: "trailing data", reply: `{"headline": "x"} {"price": "y"}`},
		{name: "nested object", reply: `{"headline": {"text": "x"}}`, field: "headline"},
		{name: "nested array", reply: `{"price": ["1", "2"]}`, field: "price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseReply(tmpl, tt.reply)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.ErrGeneration))
			stdErr := errors.Normalize(err)
			assert.Equal(t, "T1", stdErr.Metadata["templateId"])
			if tt.field != "" {
				assert.Equal(t, tt.field, stdErr.Metadata["field"])
			}
		})
	}
}

// ==========================
// Extractor
// ==========================

func TestExtractor_AllWithinBudget(t *testing.T) {
	gen := &fakeGenerator{
		reply:   `{"headline": "Sunny 3BR in Elm Park", "description": "Quiet street, new roof.", "price": "$450,000"}`,
		shorten: dropOne,
	}
	x := newTestExtractor(t, gen, createTestConfig())

	out, err := x.Extract(context.Background(), listingTemplate(), "Lovely home", "12 Elm St")

	require.NoError(t, err)
	assert.Equal(t, 1, gen.extractCalls)
	assert.Zero(t, gen.shortenCalls)
	assert.Equal(t, "Sunny 3BR in Elm Park", *out.Fields["headline"])
	assert.Equal(t, map[string]bool{"headline": false, "description": false, "price": false}, out.TruncationFlags)
	assert.Empty(t, out.Truncation)
}

func TestExtractor_PromptListsFieldsAndAddress(t *testing.T) {
	gen := &fakeGenerator{reply: `{}`}
	x := newTestExtractor(t, gen, createTestConfig())

	_, err := x.Extract(context.Background(), listingTemplate(), "Lovely home with a garden", "12 Elm St")

	require.NoError(t, err)
	require.Len(t, gen.prompts, 1)
	p := gen.prompts[0]
	assert.Contains(t, p, "- headline, approx_size: 30, format: Sunny 3BR in Elm Park")
	assert.Contains(t, p, "- price, approx_size: 12, format: $450,000")
	assert.Contains(t, p, "Lovely home with a garden")
	assert.Contains(t, p, "Property address: 12 Elm St")
}

// Scenario B: a 120-character headline with a 30-character budget.
func TestExtractor_OverLengthHeadline(t *testing.T) {
	headline := strings.Repeat("h", 120)

	t.Run("converges", func(t *testing.T) {
		gen := &fakeGenerator{
			reply:   `{"headline": "` + headline + `"}`,
			shorten: func(string) string { return "Sunny 3BR in Elm Park" },
		}
		x := newTestExtractor(t, gen, createTestConfig())

		out, err := x.Extract(context.Background(), listingTemplate(), "text", "")

		require.NoError(t, err)
		assert.LessOrEqual(t, Length(*out.Fields["headline"]), 30)
		assert.False(t, out.TruncationFlags["headline"])
		require.Len(t, out.Truncation, 1)
		assert.Equal(t, 1, out.Truncation[0].Rounds)
	})

	t.Run("does not converge", func(t *testing.T) {
		gen := &fakeGenerator{
			reply:   `{"headline": "` + headline + `"}`,
			shorten: dropOne,
		}
		x := newTestExtractor(t, gen, createTestConfig())

		out, err := x.Extract(context.Background(), listingTemplate(), "text", "")

		require.NoError(t, err)
		assert.Equal(t, 3, gen.shortenCalls)
		assert.True(t, out.TruncationFlags["headline"])
		require.Len(t, out.Truncation, 1)
		assert.True(t, out.Truncation[0].StillOverLimit)
		assert.Equal(t, 117, Length(*out.Fields["headline"]))
	})
}

func TestExtractor_ShortensFieldsIndependently(t *testing.T) {
	gen := &fakeGenerator{
		reply:   `{"headline": "` + strings.Repeat("h", 40) + `", "price": "four hundred fifty thousand"}`,
		shorten: func(text string) string { return text[:5] },
	}
	x := newTestExtractor(t, gen, createTestConfig())

	out, err := x.Extract(context.Background(), listingTemplate(), "text", "")

	require.NoError(t, err)
	assert.Equal(t, 2, gen.shortenCalls)
	assert.Equal(t, "hhhhh", *out.Fields["headline"])
	assert.Equal(t, "four", *out.Fields["price"], "replies are trimmed")
	assert.Nil(t, out.Fields["description"])
	assert.Len(t, out.Truncation, 2)
}

func TestExtractor_GeneratorFailureIsFatal(t *testing.T) {
	gen := &fakeGenerator{extractErr: stderrors.New("quota exceeded")}
	x := newTestExtractor(t, gen, createTestConfig())

	_, err := x.Extract(context.Background(), listingTemplate(), "text", "")

	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrGeneration))
	assert.Equal(t, "T1", errors.Normalize(err).Metadata["templateId"])
}

func TestExtractor_TimeoutIsServiceTimeout(t *testing.T) {
	config := createTestConfig()
	config.CallTimeout = 20 * time.Millisecond
	x := newTestExtractor(t, blockingGenerator{}, config)

	_, err := x.Extract(context.Background(), listingTemplate(), "text", "")

	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrServiceTimeout))
	assert.True(t, errors.Normalize(err).Retryable)
}

func TestExtractor_RateLimitWaitIsServiceTimeout(t *testing.T) {
	gen := &fakeGenerator{reply: `{"headline": "Open house", "description": "Bright.", "price": "$450,000"}`}
	config := createTestConfig()
	config.CallTimeout = 500 * time.Millisecond
	x := newTestExtractor(t, genai.NewRateLimited(gen, 0.5), config)

	_, err := x.Extract(context.Background(), listingTemplate(), "text", "")
	require.NoError(t, err)

	_, err = x.Extract(context.Background(), listingTemplate(), "text", "")

	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrServiceTimeout))
	assert.True(t, errors.Normalize(err).Retryable)
	assert.Equal(t, 1, gen.extractCalls)
}

func TestExtractor_MalformedReplyIsFatal(t *testing.T) {
	gen := &fakeGenerator{reply: "I could not find any fields."}
	x := newTestExtractor(t, gen, createTestConfig())

	out, err := x.Extract(context.Background(), listingTemplate(), "text", "")

	require.Error(t, err)
	assert.Nil(t, out)
	assert.Equal(t, errors.ErrCodeGeneration, errors.CodeOf(err))
}

func TestAugmentText(t *testing.T) {
	assert.Equal(t, "text", AugmentText("text", ""))
	assert.Equal(t, "text\n\nProperty address: 1 Main St", AugmentText("text", "1 Main St"))
}

// ==========================
// Handler
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	gen := &fakeGenerator{reply: `{"headline": "Sunny 3BR", "price": "$450,000"}`}
	h := NewHandler(createTestConfig(), gen, prompts.MustNew(), logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{
		Template:        listingTemplate(),
		Text:            "A sunny three bedroom house.",
		PropertyAddress: "12 Elm St",
	})

	require.NoError(t, err)
	assert.Equal(t, "Sunny 3BR", *out.Fields["headline"])
	assert.Nil(t, out.Fields["description"])
}

func TestHandler_Execute_InvalidInput(t *testing.T) {
	h := NewHandler(createTestConfig(), &fakeGenerator{}, prompts.MustNew(), logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{Text: "x"})
	assert.Equal(t, errors.ErrCodeValidation, errors.CodeOf(err))

	_, err = h.Execute(context.Background(), &Input{Template: models.Template{ID: "bare"}})
	assert.Equal(t, errors.ErrCodeSelection, errors.CodeOf(err))
}

// ==========================
// Benchmarks
// ==========================

func BenchmarkExtractor_Extract(b *testing.B) {
	gen := &fakeGenerator{
		reply:   `{"headline": "` + strings.Repeat("h", 60) + `", "price": "$450,000"}`,
		shorten: func(string) string { return "Sunny 3BR" },
	}
	x := NewExtractor(gen, prompts.MustNew(), createTestConfig(), logger.NewNoOpLogger())
	tmpl := listingTemplate()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = x.Extract(context.Background(), tmpl, "text", "12 Elm St")
	}
}
