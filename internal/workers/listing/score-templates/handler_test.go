// internal/workers/listing/score-templates/handler_test.go
package scoretemplates

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-matcher/internal/common/catalog"
	"listing-matcher/internal/common/errors"
	"listing-matcher/internal/common/logger"
	"listing-matcher/internal/models"
)

func textFields(n int) map[string]models.TextField {
	names := []string{"headline", "description", "features", "price", "tagline", "cta",
		"f7", "f8", "f9", "f10", "f11", "f12"}
	out := make(map[string]models.TextField, n)
	for i := 0; i < n; i++ {
		out[names[i]] = models.TextField{ApproxLength: 40}
	}
	return out
}

func slots(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = prefix + string(rune('1'+i))
	}
	return out
}

func tmpl(id string, prop, logos int, photo bool, text int) models.Template {
	t := models.Template{
		ID:             id,
		Name:           "Template " + id,
		OutputFormat:   "pdf",
		PropertyImages: slots("prop", prop),
		Logos:          slots("logo", logos),
		TextFields:     textFields(text),
	}
	if photo {
		t.Realtor.Photo = "agent_photo"
	}
	return t
}

func createTestConfig() *Config {
	return &Config{TopN: 3, Timeout: 5 * time.Second}
}

// ==========================
// Score
// ==========================

func TestScore_ScenarioA(t *testing.T) {
	counts := models.CategoryCounts{PropertyImages: 5}
	t1 := tmpl("T1", 5, 0, false, 2)
	t2 := tmpl("T2", 1, 1, true, 1)

	s1 := Score(counts, t1)
	s2 := Score(counts, t2)

	assert.InDelta(t, -0.2, s1.TotalScore, 1e-9)
	assert.Equal(t, Breakdown{Flexibility: -0.2}, roundBreakdown(s1.Breakdown))

	assert.InDelta(t, 23.9, s2.TotalScore, 1e-9)
	assert.Equal(t, 6.0, s2.Breakdown.Distribution)
	assert.Equal(t, 2.0, s2.Breakdown.CountPenalty)
	assert.Equal(t, 1.0, s2.Breakdown.RealtorCompat)
	assert.Equal(t, 0.0, s2.Breakdown.Capacity)
	assert.Equal(t, TemplateStats{PropertySlots: 1, LogoSlots: 1, RealtorPhotoSlot: 1, TotalImages: 3, TextFields: 1}, s2.Stats)

	chosen, ranking, err := Select(counts, []models.Template{t1, t2})
	require.NoError(t, err)
	assert.Equal(t, "T1", chosen.ID)
	assert.Equal(t, []string{"T1", "T2"}, ids(ranking))
}

func TestScore_Terms(t *testing.T) {
	tests := []struct {
		name      string
		counts    models.CategoryCounts
		template  models.Template
		want      Breakdown
		wantTotal float64
	}{
		{
			name:      "realtor photo without slot",
			counts:    models.CategoryCounts{PropertyImages: 2, RealtorPhotos: 1},
			template:  tmpl("A", 2, 0, false, 3),
			want:      Breakdown{Distribution: 1, CountPenalty: 1, Flexibility: -0.3, RealtorCompat: 2},
			wantTotal: 3 + 2 + 4 - 0.3,
		},
		{
			name:      "surplus capacity",
			counts:    models.CategoryCounts{PropertyImages: 1},
			template:  tmpl("B", 4, 1, false, 1),
			want:      Breakdown{Distribution: 4, CountPenalty: 4, Flexibility: -0.1, Capacity: 2},
			wantTotal: 12 + 8 + 2 - 0.1,
		},
		{
			name:      "flexibility is capped",
			counts:    models.CategoryCounts{},
			template:  tmpl("C", 0, 0, false, 12),
			want:      Breakdown{Flexibility: -1},
			wantTotal: -1,
		},
		{
			name:      "perfect fit with realtor",
			counts:    models.CategoryCounts{PropertyImages: 3, Logos: 1, RealtorPhotos: 1},
			template:  tmpl("D", 3, 1, true, 4),
			want:      Breakdown{Flexibility: -0.4},
			wantTotal: -0.4,
		},
		{
			name:      "more realtor photos than the single slot",
			counts:    models.CategoryCounts{RealtorPhotos: 3},
			template:  tmpl("E", 0, 0, true, 1),
			want:      Breakdown{Distribution: 2, CountPenalty: 2, Flexibility: -0.1},
			wantTotal: 6 + 4 - 0.1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.counts, tt.template)
			assert.Equal(t, tt.want, roundBreakdown(got.Breakdown))
			assert.InDelta(t, tt.wantTotal, got.TotalScore, 1e-9)
		})
	}
}

func TestScore_Deterministic(t *testing.T) {
	counts := models.CategoryCounts{PropertyImages: 3, Logos: 2, RealtorPhotos: 1}
	snapshot := []models.Template{
		tmpl("A", 3, 1, true, 2),
		tmpl("B", 2, 2, false, 5),
		tmpl("C", 6, 0, true, 1),
	}

	first := Rank(counts, snapshot)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, Rank(counts, snapshot))
	}
}

// ==========================
// Select
// ==========================

func TestSelect_TiesKeepSnapshotOrder(t *testing.T) {
	counts := models.CategoryCounts{PropertyImages: 2}
	snapshot := []models.Template{
		tmpl("far", 8, 0, false, 1),
		tmpl("first", 2, 0, false, 2),
		tmpl("second", 2, 0, false, 2),
		tmpl("third", 2, 0, false, 2),
	}

	chosen, ranking, err := Select(counts, snapshot)
	require.NoError(t, err)
	assert.Equal(t, "first", chosen.ID)
	assert.Equal(t, []string{"first", "second", "third", "far"}, ids(ranking))
	assert.Equal(t, []int{1, 2, 3, 0}, []int{ranking[0].Position, ranking[1].Position, ranking[2].Position, ranking[3].Position})
}

func TestSelect_ChosenIsFromSnapshot(t *testing.T) {
	snapshot := []models.Template{tmpl("X", 1, 0, false, 1), tmpl("Y", 0, 1, true, 1)}
	for _, counts := range []models.CategoryCounts{
		{}, {PropertyImages: 9}, {Logos: 1, RealtorPhotos: 1}, {RealtorPhotos: 4},
	} {
		chosen, _, err := Select(counts, snapshot)
		require.NoError(t, err)
		assert.Contains(t, []string{"X", "Y"}, chosen.ID)
	}
}

func TestSelect_EmptySnapshot(t *testing.T) {
	_, _, err := Select(models.CategoryCounts{PropertyImages: 1}, nil)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrStoreUnavail))
}

func TestSelect_ChosenWithoutTextFields(t *testing.T) {
	snapshot := []models.Template{
		tmpl("bare", 2, 0, false, 0),
		tmpl("worse", 9, 3, true, 1),
	}

	_, ranking, err := Select(models.CategoryCounts{PropertyImages: 2}, snapshot)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrSelection))
	assert.Equal(t, "bare", errors.Normalize(err).Metadata["templateId"])
	assert.Len(t, ranking, 2)
}

func TestTopN(t *testing.T) {
	ranking := []ScoreResult{{TemplateID: "a"}, {TemplateID: "b"}, {TemplateID: "c"}, {TemplateID: "d"}}

	assert.Equal(t, []string{"a", "b", "c"}, ids(TopN(ranking, 3)))
	assert.Len(t, TopN(ranking, 10), 4)
	assert.Len(t, TopN(ranking, 0), 4)
}

// ==========================
// Handler
// ==========================

type failingStore struct{ err error }

func (f failingStore) ListTemplates(ctx context.Context) ([]models.Template, error) {
	return nil, f.err
}

func TestHandler_Execute_Success(t *testing.T) {
	store := catalog.NewMemoryStore(
		tmpl("T1", 5, 0, false, 2),
		tmpl("T2", 1, 1, true, 1),
		tmpl("T3", 4, 0, false, 1),
		tmpl("T4", 0, 0, false, 1),
	)
	h := NewHandler(createTestConfig(), store, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{Counts: models.CategoryCounts{PropertyImages: 5}})

	require.NoError(t, err)
	assert.Equal(t, "T1", out.SelectedTemplateID)
	assert.Equal(t, "Template T1", out.TemplateName)
	assert.Equal(t, "pdf", out.OutputFormat)
	assert.Equal(t, "T1", out.Template.ID)
	assert.Len(t, out.Ranking, 3)
	assert.Equal(t, "T1", out.Ranking[0].TemplateID)
}

func TestHandler_Execute_StoreErrors(t *testing.T) {
	tests := []struct {
		name     string
		store    catalog.Store
		wantCode errors.ErrorCode
	}{
		{name: "empty catalog", store: catalog.NewMemoryStore(), wantCode: errors.ErrCodeStoreUnavail},
		{name: "store down", store: failingStore{err: stderrors.New("dial tcp: refused")}, wantCode: errors.ErrCodeStoreUnavail},
		{name: "store deadline", store: failingStore{err: context.DeadlineExceeded}, wantCode: errors.ErrCodeServiceTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(createTestConfig(), tt.store, logger.NewNoOpLogger())
			_, err := h.Execute(context.Background(), &Input{Counts: models.CategoryCounts{PropertyImages: 1}})
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.CodeOf(err))
		})
	}
}

func TestHandler_Execute_NegativeCounts(t *testing.T) {
	h := NewHandler(createTestConfig(), catalog.NewMemoryStore(tmpl("T1", 1, 0, false, 1)), logger.NewNoOpLogger())
	_, err := h.Execute(context.Background(), &Input{Counts: models.CategoryCounts{Logos: -1}})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidation, errors.CodeOf(err))
}

// ==========================
// Benchmarks
// ==========================

func BenchmarkRank(b *testing.B) {
	snapshot := make([]models.Template, 200)
	for i := range snapshot {
		snapshot[i] = tmpl("T", i%7, i%3, i%2 == 0, 1+i%9)
	}
	counts := models.CategoryCounts{PropertyImages: 4, Logos: 1, RealtorPhotos: 1}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Rank(counts, snapshot)
	}
}

func ids(ranking []ScoreResult) []string {
	out := make([]string, len(ranking))
	for i, r := range ranking {
		out[i] = r.TemplateID
	}
	return out
}

// roundBreakdown removes float noise from the flexibility term.
func roundBreakdown(b Breakdown) Breakdown {
	b.Flexibility = float64(int(b.Flexibility*1000-0.5)) / 1000
	return b
}
