package ml

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// DefaultVocabularyCap bounds the TF-IDF vocabulary size.
const DefaultVocabularyCap = 1000

// Vectorizer converts free-text bios into fixed-width TF-IDF vectors.
//
// Fit selects the vocabulary (most frequent terms first, up to the cap,
// stop words removed) and computes smoothed inverse document frequencies.
// Transform is a pure function over the frozen vocabulary; terms unseen at
// fit time are silently ignored.
type Vectorizer struct {
	MaxFeatures int
	Vocab       map[string]int // term -> column index
	IDF         []float64      // per-column smoothed IDF weight
	Fitted      bool
}

// NewVectorizer creates an unfitted vectorizer with the given vocabulary cap.
// A cap of zero or less falls back to DefaultVocabularyCap.
func NewVectorizer(maxFeatures int) *Vectorizer {
	if maxFeatures <= 0 {
		maxFeatures = DefaultVocabularyCap
	}
	return &Vectorizer{MaxFeatures: maxFeatures}
}

// Fit builds the vocabulary and IDF weights from the corpus.
// It may be called exactly once; later calls return ErrAlreadyFitted.
func (v *Vectorizer) Fit(corpus []string) error {
	if v.Fitted {
		return ErrAlreadyFitted
	}

	totalCount := make(map[string]int) // term frequency across the corpus
	docCount := make(map[string]int)   // number of documents containing term

	for _, doc := range corpus {
		tokens := tokenize(doc)
		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			totalCount[tok]++
			if _, ok := seen[tok]; !ok {
				seen[tok] = struct{}{}
				docCount[tok]++
			}
		}
	}

	// Keep the most frequent terms, ties broken alphabetically, then assign
	// columns in alphabetical order so fitting is deterministic.
	terms := make([]string, 0, len(totalCount))
	for term := range totalCount {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if totalCount[terms[i]] != totalCount[terms[j]] {
			return totalCount[terms[i]] > totalCount[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > v.MaxFeatures {
		terms = terms[:v.MaxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(corpus))
	v.Vocab = make(map[string]int, len(terms))
	v.IDF = make([]float64, len(terms))
	for i, term := range terms {
		v.Vocab[term] = i
		// Smoothed IDF: treats every term as if seen in one extra document,
		// keeping weights finite for terms present in every document.
		v.IDF[i] = math.Log((1+n)/(1+float64(docCount[term]))) + 1
	}

	v.Fitted = true
	return nil
}

// Transform maps a single document to its L2-normalized TF-IDF vector.
func (v *Vectorizer) Transform(doc string) ([]float64, error) {
	if !v.Fitted {
		return nil, ErrNotTrained
	}

	out := make([]float64, len(v.IDF))
	for _, tok := range tokenize(doc) {
		if col, ok := v.Vocab[tok]; ok {
			out[col] += v.IDF[col]
		}
	}

	var norm float64
	for _, x := range out {
		norm += x * x
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range out {
			out[i] /= norm
		}
	}

	return out, nil
}

// Dim returns the width of transformed vectors.
func (v *Vectorizer) Dim() int {
	return len(v.IDF)
}

// tokenize lowercases the document, splits it into word-character runs of
// at least two characters, and drops stop words.
func tokenize(doc string) []string {
	doc = strings.ToLower(doc)

	var tokens []string
	var b strings.Builder
	runes := 0
	flush := func() {
		if runes >= 2 {
			tok := b.String()
			if _, stop := englishStopWords[tok]; !stop {
				tokens = append(tokens, tok)
			}
		}
		b.Reset()
		runes = 0
	}

	for _, r := range doc {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
			runes++
		} else {
			flush()
		}
	}
	flush()

	return tokens
}
