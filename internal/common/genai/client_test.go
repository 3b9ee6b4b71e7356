// internal/common/genai/client_test.go
package genai

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantLabel string
		wantConf  float64
		wantErr   bool
	}{
		{name: "plain", raw: `{"label": "a logo", "confidence": 0.91}`, wantLabel: "a logo", wantConf: 0.91},
		{name: "fenced", raw: "```json\n{\"label\": \"a bedroom\", \"confidence\": 0.5}\n```", wantLabel: "a bedroom", wantConf: 0.5},
		{name: "clamped high", raw: `{"label": "a person", "confidence": 7}`, wantLabel: "a person", wantConf: 1},
		{name: "clamped low", raw: `{"label": "a person", "confidence": -1}`, wantLabel: "a person", wantConf: 0},
		{name: "missing confidence", raw: `{"label": "headshot"}`, wantLabel: "headshot", wantConf: 0},
		{name: "no label", raw: `{"confidence": 0.3}`, wantErr: true},
		{name: "not json", raw: `a logo`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, conf, err := ParseClassification(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLabel, label)
			assert.InDelta(t, tt.wantConf, conf, 1e-9)
		})
	}
}

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: `{"a":1}`, want: `{"a":1}`},
		{in: "  {\"a\":1}\n", want: `{"a":1}`},
		{in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{in: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{in: "```{\"a\":1}```", want: `{"a":1}`},
		{in: "```JSON\n[1,2]\n```\n", want: `[1,2]`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanJSONBlock(tt.in), "input %q", tt.in)
	}
}

type countingGenerator struct {
	calls atomic.Int32
}

func (g *countingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls.Add(1)
	return "ok:" + prompt, nil
}

func TestRateLimited_PassesThrough(t *testing.T) {
	next := &countingGenerator{}
	rl := NewRateLimited(next, 0)

	for i := 0; i < 5; i++ {
		out, err := rl.Generate(context.Background(), "p")
		require.NoError(t, err)
		assert.Equal(t, "ok:p", out)
	}
	assert.Equal(t, int32(5), next.calls.Load())
}

func TestRateLimited_HonoursContext(t *testing.T) {
	next := &countingGenerator{}
	rl := NewRateLimited(next, 0.001)

	_, err := rl.Generate(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = rl.Generate(ctx, "second")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), next.calls.Load())
}

func TestRateLimited_CancelledContext(t *testing.T) {
	next := &countingGenerator{}
	rl := NewRateLimited(next, 0.001)

	_, err := rl.Generate(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = rl.Generate(ctx, "second")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), next.calls.Load())
}
