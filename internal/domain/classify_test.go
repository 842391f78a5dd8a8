package domain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock model ---

type mockModel struct {
	answer string
	err    error
	calls  int
}

func (m *mockModel) ClassifyText(_ context.Context, _ string) (string, error) {
	m.calls++
	return m.answer, m.err
}

// --- tests ---

func TestClassifyKeywords_Severity(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Severity
	}{
		{"severe", "Banjir parah di Langsa", SeveritySevere},
		{"severe beats moderate", "Kondisi sedang memburuk, warga dalam keadaan darurat", SeveritySevere},
		{"moderate", "Warga diminta waspada", SeverityModerate},
		{"case insensitive", "KRITIS", SeveritySevere},
		{"safe", "Cuaca cerah hari ini", SeveritySafe},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyKeywords(tt.text)
			assert.Equal(t, tt.want, got.Severity)
			assert.Equal(t, tt.want.Category(), got.Category)
			assert.Equal(t, KeywordConfidence, got.Confidence)
		})
	}
}

func TestClassifyKeywords_DisasterType(t *testing.T) {
	tests := []struct {
		text string
		want DisasterType
	}{
		{"Banjir bandang", DisasterFlood},
		{"tanah longsor menutup jalan", DisasterLandslide},
		{"Gempa M5.2", DisasterEarthquake},
		{"kebakaran pasar", DisasterFire},
		{"angin kencang merobohkan pohon", DisasterWind},
		{"banjir dan longsor", DisasterFlood},
		{"pengungsi menunggu bantuan", DisasterOther},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyKeywords(tt.text).DisasterType)
		})
	}
}

func TestClassifyKeywords_NeedsInFixedOrder(t *testing.T) {
	got := ClassifyKeywords("Butuh selimut, makanan, baju dan dokter. Selimut lagi!")

	assert.Equal(t, []string{"Pakaian", "Makanan", "Tenaga Medis", "Selimut"}, got.UrgentNeeds)
}

func TestClassifyKeywords_NoNeeds(t *testing.T) {
	got := ClassifyKeywords("gempa kecil")

	assert.NotNil(t, got.UrgentNeeds)
	assert.Empty(t, got.UrgentNeeds)
}

func TestParseModelClassification(t *testing.T) {
	t.Run("fenced answer", func(t *testing.T) {
		raw := "```json\n{\"severity\":\"Parah\",\"category\":\"Terdampak Parah\",\"urgent_needs\":[\"Makanan\"],\"disaster_type\":\"Banjir\",\"location_extracted\":\"Sukamaju\",\"confidence\":0.9}\n```"

		got, err := ParseModelClassification(raw)

		require.NoError(t, err)
		assert.Equal(t, Classification{
			Severity:          SeveritySevere,
			Category:          "Terdampak Parah",
			DisasterType:      DisasterFlood,
			UrgentNeeds:       []string{"Makanan"},
			LocationExtracted: "Sukamaju",
			Confidence:        0.9,
		}, got)
	})

	t.Run("invalid fields default", func(t *testing.T) {
		raw := `{"severity":"Bad","disaster_type":"Tsunami","urgent_needs":"Makanan","location_extracted":"null","confidence":"high"}`

		got, err := ParseModelClassification(raw)

		require.NoError(t, err)
		assert.Equal(t, SeveritySafe, got.Severity)
		assert.Equal(t, "Aman", got.Category)
		assert.Equal(t, DisasterOther, got.DisasterType)
		assert.Equal(t, []string{}, got.UrgentNeeds)
		assert.Empty(t, got.LocationExtracted)
		assert.Equal(t, KeywordConfidence, got.Confidence)
	})

	t.Run("confidence clamped", func(t *testing.T) {
		got, err := ParseModelClassification(`{"severity":"Sedang","confidence":7}`)
		require.NoError(t, err)
		assert.Equal(t, 1.0, got.Confidence)
		assert.Equal(t, "Terdampak Sedang", got.Category)

		got, err = ParseModelClassification(`{"confidence":-0.3}`)
		require.NoError(t, err)
		assert.Equal(t, 0.0, got.Confidence)
	})

	t.Run("zero confidence becomes default", func(t *testing.T) {
		got, err := ParseModelClassification(`{"confidence":0}`)
		require.NoError(t, err)
		assert.Equal(t, KeywordConfidence, got.Confidence)
	})

	t.Run("no object", func(t *testing.T) {
		_, err := ParseModelClassification("I cannot help with that")
		assert.ErrorIs(t, err, ErrNoJSONObject)
	})

	t.Run("broken object", func(t *testing.T) {
		_, err := ParseModelClassification(`{"severity": Parah}`)
		assert.Error(t, err)
	})
}

func TestClassifier_Classify(t *testing.T) {
	const text = "Banjir parah, butuh makanan"
	keyword := ClassifyKeywords(text)

	t.Run("keyword mode skips model", func(t *testing.T) {
		m := &mockModel{answer: `{"severity":"Aman"}`}
		c := NewClassifier(m, discardLogger())

		assert.Equal(t, keyword, c.Classify(context.Background(), text, ModeKeyword))
		assert.Zero(t, m.calls)
	})

	t.Run("model answer used", func(t *testing.T) {
		m := &mockModel{answer: `{"severity":"Sedang","disaster_type":"Longsor","urgent_needs":["Tenda"],"confidence":0.8}`}
		c := NewClassifier(m, discardLogger())

		got := c.Classify(context.Background(), text, ModeModel)

		assert.Equal(t, SeverityModerate, got.Severity)
		assert.Equal(t, DisasterLandslide, got.DisasterType)
		assert.Equal(t, []string{"Tenda"}, got.UrgentNeeds)
		assert.Equal(t, 1, m.calls)
	})

	t.Run("model error falls back", func(t *testing.T) {
		c := NewClassifier(&mockModel{err: errors.New("rate limited")}, discardLogger())
		assert.Equal(t, keyword, c.Classify(context.Background(), text, ModeModel))
	})

	t.Run("unparseable answer falls back", func(t *testing.T) {
		c := NewClassifier(&mockModel{answer: "sorry"}, discardLogger())
		assert.Equal(t, keyword, c.Classify(context.Background(), text, ModeModel))
	})

	t.Run("no model configured", func(t *testing.T) {
		c := NewClassifier(nil, discardLogger())
		assert.Equal(t, keyword, c.Classify(context.Background(), text, ModeModel))
	})
}

func TestClassification_Analysis(t *testing.T) {
	now := time.Date(2024, 12, 1, 8, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(now))
	t.Cleanup(func() { SetClock(nil) })

	a := Classification{Severity: SeveritySevere, Category: "Terdampak Parah", DisasterType: DisasterFlood, Confidence: 0.5}.Analysis("post-1")

	assert.Equal(t, "post-1", a.PostID)
	assert.Equal(t, now, a.AnalyzedAt)
	assert.NotNil(t, a.UrgentNeeds)
}
