package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mietrecht = `Durch den Mietvertrag wird der Vermieter verpflichtet, dem Mieter den Gebrauch der Mietsache zu gewähren.
Der Mieter ist verpflichtet, dem Vermieter die vereinbarte Miete zu entrichten. Heute regnet es.
Die Kündigungsfrist für den Mieter beträgt drei Monate! Wer zahlt?`

func TestSentences(t *testing.T) {
	got := Sentences("Satz eins.  Satz\nzwei! Ohne Ende")
	assert.Equal(t, []string{"Satz eins.", "Satz zwei!", "Ohne Ende"}, got)
	assert.Empty(t, Sentences("   "))
}

func TestSummarize_PicksFrequentTermsInOrder(t *testing.T) {
	out, err := NewFrequencySummarizer().Summarize(mietrecht, 2)
	require.NoError(t, err)

	assert.Equal(t, "Durch den Mietvertrag wird der Vermieter verpflichtet, dem Mieter den Gebrauch der Mietsache zu gewähren. "+
		"Der Mieter ist verpflichtet, dem Vermieter die vereinbarte Miete zu entrichten.", out)
	assert.NotContains(t, out, "regnet")
}

func TestSummarize_FewerSentencesThanRequested(t *testing.T) {
	out, err := NewFrequencySummarizer().Summarize("Nur ein Satz.", 5)
	require.NoError(t, err)
	assert.Equal(t, "Nur ein Satz.", out)
}

func TestSummarize_Empty(t *testing.T) {
	out, err := NewFrequencySummarizer().Summarize("", 3)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestNoop(t *testing.T) {
	out, err := Noop{}.Summarize(mietrecht, 3)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestBestSentence(t *testing.T) {
	sentences, best := BestSentence("Inhalt des Mietvertrags. Die Kündigungsfrist beträgt drei Monate.", "Wie lange ist die Kündigungsfrist?")
	require.Len(t, sentences, 2)
	assert.Equal(t, 1, best)

	_, best = BestSentence("Inhalt des Mietvertrags.", "Hund")
	assert.Equal(t, -1, best)
}
