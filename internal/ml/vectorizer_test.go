package ml

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorizerFitTransform(t *testing.T) {
	v := NewVectorizer(0)
	err := v.Fit([]string{
		"follow back please",
		"dm for collab",
		"software engineer at tech company",
	})
	require.NoError(t, err)
	require.True(t, v.Fitted)
	assert.Greater(t, v.Dim(), 0)

	vec, err := v.Transform("follow back")
	require.NoError(t, err)
	require.Len(t, vec, v.Dim())

	// Both terms are in vocabulary, so the vector is non-zero and
	// L2-normalized.
	var norm float64
	for _, x := range vec {
		norm += x * x
	}
	assert.InDelta(t, 1.0, norm, 1e-9)
}

func TestVectorizerDropsStopWords(t *testing.T) {
	v := NewVectorizer(0)
	require.NoError(t, v.Fit([]string{"the cat and the hat"}))

	_, inVocab := v.Vocab["the"]
	assert.False(t, inVocab, "stop word should not enter the vocabulary")
	_, inVocab = v.Vocab["and"]
	assert.False(t, inVocab)
	_, inVocab = v.Vocab["cat"]
	assert.True(t, inVocab)
}

func TestVectorizerUnseenTermsIgnored(t *testing.T) {
	v := NewVectorizer(0)
	require.NoError(t, v.Fit([]string{"coffee lover"}))

	vec, err := v.Transform("completely novel words")
	require.NoError(t, err)
	for _, x := range vec {
		assert.Zero(t, x)
	}
}

func TestVectorizerEmptyDocument(t *testing.T) {
	v := NewVectorizer(0)
	require.NoError(t, v.Fit([]string{"coffee lover", ""}))

	vec, err := v.Transform("")
	require.NoError(t, err)
	for _, x := range vec {
		assert.Zero(t, x)
	}
}

func TestVectorizerFitOnce(t *testing.T) {
	v := NewVectorizer(0)
	require.NoError(t, v.Fit([]string{"first corpus"}))

	err := v.Fit([]string{"second corpus"})
	assert.ErrorIs(t, err, ErrAlreadyFitted)
}

func TestVectorizerTransformBeforeFit(t *testing.T) {
	v := NewVectorizer(0)
	_, err := v.Transform("anything")
	assert.ErrorIs(t, err, ErrNotTrained)
}

func TestVectorizerVocabularyCap(t *testing.T) {
	corpus := []string{
		"alpha beta gamma delta epsilon",
		"alpha beta gamma",
		"alpha beta",
		"alpha",
	}
	v := NewVectorizer(2)
	require.NoError(t, v.Fit(corpus))

	require.Equal(t, 2, v.Dim())
	_, hasAlpha := v.Vocab["alpha"]
	_, hasBeta := v.Vocab["beta"]
	assert.True(t, hasAlpha, "most frequent term must survive the cap")
	assert.True(t, hasBeta)
}

func TestVectorizerDeterministic(t *testing.T) {
	corpus := []string{"follow back", "dm for collab", "coffee lover", "family first"}

	a := NewVectorizer(0)
	b := NewVectorizer(0)
	require.NoError(t, a.Fit(corpus))
	require.NoError(t, b.Fit(corpus))

	require.Equal(t, a.Vocab, b.Vocab)
	require.Equal(t, a.IDF, b.IDF)
}

func TestVectorizerIDFWeighting(t *testing.T) {
	// "common" appears in all documents, "rare" in one; the rare term must
	// carry more weight.
	v := NewVectorizer(0)
	require.NoError(t, v.Fit([]string{
		"common rare",
		"common word",
		"common thing",
	}))

	commonIDF := v.IDF[v.Vocab["common"]]
	rareIDF := v.IDF[v.Vocab["rare"]]
	assert.Greater(t, rareIDF, commonIDF)
	assert.False(t, math.IsInf(rareIDF, 0))
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"follow4follow", "dm", "collab"}, tokenize("Follow4Follow! DM for collab"))
	assert.Empty(t, tokenize("a I ."))
	assert.Equal(t, []string{"café", "lover"}, tokenize("café lover"))
}
