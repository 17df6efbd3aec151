package retrieval

import (
	"math"
	"sort"
	"strings"
)

// minTokenLength drops very short tokens before they reach the vocabulary.
const minTokenLength = 3

// Tokenize lowercases text, maps every non-alphanumeric rune to a space and
// returns the tokens of length >= minTokenLength. Corpus build and query
// embedding share this function so both sides agree on the vocabulary.
func Tokenize(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}

	fields := strings.Fields(b.String())
	tokens := fields[:0]
	for _, t := range fields {
		if len(t) >= minTokenLength {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// Embedder turns text into TF-IDF weight vectors over a fixed vocabulary.
// Vocabulary and document frequencies are computed once from the corpus;
// queries embed against that same vocabulary, so out-of-vocabulary terms
// contribute nothing.
type Embedder struct {
	vocabulary []string       // lexicographically sorted, fixes vector ordering
	termIndex  map[string]int // term -> position in vocabulary
	idf        []float64      // aligned with vocabulary
	corpusSize int
}

// NewEmbedder derives the vocabulary and IDF weights from the corpus.
// Identical corpora always produce identical embedders.
func NewEmbedder(corpus []string) *Embedder {
	df := make(map[string]int)
	for _, doc := range corpus {
		seen := make(map[string]bool)
		for _, tok := range Tokenize(doc) {
			if !seen[tok] {
				seen[tok] = true
				df[tok]++
			}
		}
	}

	vocabulary := make([]string, 0, len(df))
	for term := range df {
		vocabulary = append(vocabulary, term)
	}
	sort.Strings(vocabulary)

	termIndex := make(map[string]int, len(vocabulary))
	idf := make([]float64, len(vocabulary))
	for i, term := range vocabulary {
		termIndex[term] = i
		idf[i] = math.Log(float64(len(corpus)) / float64(df[term]))
	}

	return &Embedder{
		vocabulary: vocabulary,
		termIndex:  termIndex,
		idf:        idf,
		corpusSize: len(corpus),
	}
}

// Vectorize returns the L2-normalized TF-IDF vector for text. Text with no
// vocabulary overlap yields the zero vector, which scores 0 against
// everything.
func (e *Embedder) Vectorize(text string) []float64 {
	vector := make([]float64, len(e.vocabulary))
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return vector
	}

	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		counts[tok]++
	}

	for term, count := range counts {
		i, ok := e.termIndex[term]
		if !ok {
			continue
		}
		tf := float64(count) / float64(len(tokens))
		vector[i] = tf * e.idf[i]
	}

	return normalize(vector)
}

// VocabularySize reports the vector dimensionality.
func (e *Embedder) VocabularySize() int {
	return len(e.vocabulary)
}

// normalize scales a vector to unit length in place. The zero vector stays
// untouched.
func normalize(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return v
	}

	norm := math.Sqrt(sum)
	for i := range v {
		v[i] /= norm
	}
	return v
}

// cosineSimilarity computes the similarity of two unit vectors, clamped to
// [0,1]. Vectors of different lengths come from different vocabularies and
// score 0.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}

	// Clamp floating point drift around the boundaries.
	if dot < 0 {
		return 0
	}
	if dot > 1 {
		return 1
	}
	return dot
}
