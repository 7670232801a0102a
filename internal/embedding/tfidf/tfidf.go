// Package tfidf is an offline embedder for German statute text. Vectors are only comparable
// within the process that prepared the vocabulary.
package tfidf

import (
	"context"
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
)

var (
	// "§ 573c", "§573c" and "§§ 535" all become the token "§573c" or "§535"
	sectionPattern = regexp.MustCompile(`§+\s*(\d+[a-z]?)`)
	wordPattern    = regexp.MustCompile(`\p{L}+`)
	umlauts        = strings.NewReplacer("ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss")
)

type vocabulary struct {
	index map[string]int
	idf   []float64
}

// Embedder weights terms with sublinear TF and smoothed IDF over the chunk corpus.
type Embedder struct {
	mu    sync.RWMutex
	vocab *vocabulary
}

func NewEmbedder() *Embedder { return &Embedder{} }

func (e *Embedder) Name() string { return "tfidf" }

// Prepare replaces the vocabulary with the terms of corpus.
func (e *Embedder) Prepare(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("tfidf: empty corpus")
	}
	df := make(map[string]int)
	for _, text := range corpus {
		for term := range termCounts(text) {
			df[term]++
		}
	}
	if len(df) == 0 {
		return errors.New("tfidf: corpus has no indexable terms")
	}
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	v := &vocabulary{index: make(map[string]int, len(terms)), idf: make([]float64, len(terms))}
	n := float64(len(corpus))
	for i, term := range terms {
		v.index[term] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	e.mu.Lock()
	e.vocab = v
	e.mu.Unlock()
	return nil
}

func (e *Embedder) Dimension() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.vocab == nil {
		return 0
	}
	return len(e.vocab.idf)
}

// Embed returns the L2-normalised vector of text. Text with no known term yields a zero vector.
func (e *Embedder) Embed(_ context.Context, text string) ([]float64, error) {
	e.mu.RLock()
	v := e.vocab
	e.mu.RUnlock()
	if v == nil {
		return nil, errors.New("tfidf: embedder not prepared")
	}
	return v.embed(text), nil
}

func (e *Embedder) EmbedBatch(_ context.Context, texts []string) ([][]float64, error) {
	e.mu.RLock()
	v := e.vocab
	e.mu.RUnlock()
	if v == nil {
		return nil, errors.New("tfidf: embedder not prepared")
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = v.embed(t)
	}
	return out, nil
}

func (v *vocabulary) embed(text string) []float64 {
	vec := make([]float64, len(v.idf))
	var sq float64
	for term, count := range termCounts(text) {
		idx, ok := v.index[term]
		if !ok {
			continue
		}
		w := (1 + math.Log(float64(count))) * v.idf[idx]
		vec[idx] = w
		sq += w * w
	}
	if sq == 0 {
		return vec
	}
	norm := math.Sqrt(sq)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// termCounts lowercases text, folds umlauts so "Kuendigung" matches "Kündigung", and keeps
// section references as single terms.
func termCounts(text string) map[string]int {
	text = umlauts.Replace(strings.ToLower(text))
	counts := make(map[string]int)
	for _, m := range sectionPattern.FindAllStringSubmatch(text, -1) {
		counts["§"+m[1]]++
	}
	text = sectionPattern.ReplaceAllString(text, " ")
	for _, w := range wordPattern.FindAllString(text, -1) {
		if len(w) < 2 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		counts[w]++
	}
	return counts
}

// stopwords are stored folded, the way termCounts sees them.
var stopwords = func() map[string]struct{} {
	words := []string{
		"der", "die", "das", "den", "dem", "des", "ein", "eine", "einen", "einem", "einer", "eines",
		"und", "oder", "aber", "wenn", "dann", "als", "wie", "ist", "sind", "war", "wird", "werden",
		"wurde", "hat", "haben", "sein", "zu", "zum", "zur", "von", "vom", "mit", "auf", "aus", "bei",
		"fuer", "im", "in", "an", "am", "nach", "nicht", "auch", "so", "es", "er", "sie", "sich", "ich",
		"du", "wir", "ihr", "mein", "meine", "meiner", "dass", "lange", "was", "wer", "kann", "soll",
		"ueber", "unter", "abs", "satz", "nr",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
