package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var (
	tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	// abbreviations such as "Abs." also end a sentence
	sentencePattern = regexp.MustCompile(`[^.!?]+(?:[.!?]+|$)`)
)

// FrequencySummarizer ranks sentences by normalised word frequency with stopwords removed.
type FrequencySummarizer struct {
	stopwords map[string]struct{}
}

func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{stopwords: stopwords()}
}

// Summarize returns up to maxSentences of the highest scoring sentences in document order.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	sentences := Sentences(text)
	if len(sentences) == 0 {
		return "", nil
	}

	freq := map[string]float64{}
	var maxF float64
	for _, sent := range sentences {
		for _, tok := range s.terms(sent) {
			freq[tok]++
			if freq[tok] > maxF {
				maxF = freq[tok]
			}
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i, sent := range sentences {
		terms := s.terms(sent)
		var sum float64
		for _, tok := range terms {
			sum += freq[tok] / maxF
		}
		if len(terms) > 0 {
			sum /= math.Sqrt(float64(len(terms)))
		}
		scores[i] = scored{i, sum}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if maxSentences > len(scores) {
		maxSentences = len(scores)
	}
	selected := make([]int, maxSentences)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, len(selected))
	for i, idx := range selected {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " "), nil
}

// Sentences splits text into trimmed, non-empty sentences with collapsed whitespace.
func Sentences(text string) []string {
	var out []string
	for _, m := range sentencePattern.FindAllString(text, -1) {
		m = strings.Join(strings.Fields(m), " ")
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

func (s *FrequencySummarizer) terms(text string) []string {
	toks := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := toks[:0]
	for _, t := range toks {
		if _, stop := s.stopwords[t]; !stop {
			out = append(out, t)
		}
	}
	return out
}

// Noop is used when summaries are disabled.
type Noop struct{}

func (Noop) Summarize(string, int) (string, error) { return "", nil }

func stopwords() map[string]struct{} {
	words := []string{
		// de
		"der", "die", "das", "den", "dem", "des", "ein", "eine", "einer", "eines", "einem", "einen",
		"und", "oder", "aber", "wenn", "dass", "als", "auch", "auf", "aus", "bei", "bis", "durch",
		"für", "gegen", "in", "im", "ist", "sind", "war", "wird", "werden", "wurde", "kann", "können",
		"mit", "nach", "nicht", "nur", "ob", "so", "soweit", "über", "um", "unter", "von", "vom",
		"vor", "zu", "zum", "zur", "sich", "er", "sie", "es", "hat", "haben", "diese", "dieser",
		"dieses", "wie", "was", "wer",
		// en
		"a", "an", "the", "and", "or", "but", "if", "of", "to", "is", "are", "be", "for", "on", "with",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// BestSentence splits text into sentences and returns the index of the one sharing the most
// words with question, or -1 when none shares any.
func BestSentence(text, question string) ([]string, int) {
	sentences := Sentences(text)
	q := wordSet(question)
	best, bestScore := -1, 0
	for i, s := range sentences {
		score := 0
		for t := range wordSet(s) {
			if _, ok := q[t]; ok {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return sentences, best
}

func wordSet(s string) map[string]struct{} {
	tokens := tokenPattern.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}
