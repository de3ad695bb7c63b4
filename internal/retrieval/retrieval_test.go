package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/valpere/bardtran/internal/quote"
	"github.com/valpere/bardtran/internal/selector"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// #region fake gateway
type fakeGateway struct {
	mu      sync.Mutex
	byQuery map[string]quote.Candidates
	fail    map[string]error
	calls   []string
	levels  map[string][]quote.Level
	topK    int
}

func (f *fakeGateway) Search(_ context.Context, query string, levels []quote.Level, topK int) (quote.Candidates, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, query)
	if f.levels == nil {
		f.levels = map[string][]quote.Level{}
	}
	f.levels[query] = levels
	f.topK = topK
	if err := f.fail[query]; err != nil {
		return nil, err
	}
	out := quote.Candidates{}
	for l, cs := range f.byQuery[query] {
		if wants(levels, l) {
			out[l] = append([]quote.CandidateQuote(nil), cs...)
		}
	}
	return out, nil
}

// #endregion fake gateway

func cand(text, title string, line, start, end int, score float64) quote.CandidateQuote {
	return quote.CandidateQuote{
		Text:      text,
		Reference: quote.Reference{Title: title, Act: 1, Scene: 1, Line: line, WordIndex: quote.WordIndex{Start: start, End: end}},
		Score:     score,
	}
}

func TestDecodeCandidates_LevelMap(t *testing.T) {
	body := []byte(`{
		"line": [
			{"text": "To be, or not to be", "score": 0.1,
			 "reference": {"title": "Hamlet", "act": 3, "scene": 1, "line": 56, "word_index": [0, 5]},
			 "pos_tags": ["TO", "VB", "CC", "RB", "TO", "VB"]}
		],
		"phrase": [
			{"text": "that is the question", "distance": 0.4,
			 "reference": "{\"title\": \"Hamlet\", \"act\": \"3\", \"scene\": \"1\", \"line\": \"56\", \"word_index\": \"6,9\"}",
			 "pos": "DT VBZ DT NN"}
		],
		"unknown": []
	}`)

	got, err := DecodeCandidates(body)
	require.NoError(t, err)
	require.Len(t, got[quote.LevelLine], 1)
	require.Len(t, got[quote.LevelPhrases], 1)
	assert.NotContains(t, got, quote.Level("unknown"))

	line := got[quote.LevelLine][0]
	assert.False(t, line.Malformed)
	assert.Equal(t, "Hamlet|3|1|56", line.Reference.Key())
	assert.Equal(t, quote.WordIndex{Start: 0, End: 5}, line.Reference.WordIndex)
	assert.Len(t, line.POSTags, 6)

	phrase := got[quote.LevelPhrases][0]
	assert.False(t, phrase.Malformed)
	assert.InDelta(t, 0.4, phrase.Score, 1e-9)
	assert.Equal(t, quote.WordIndex{Start: 6, End: 9}, phrase.Reference.WordIndex)
	assert.Equal(t, []string{"DT", "VBZ", "DT", "NN"}, phrase.POSTags)
}

func TestDecodeCandidates_TaggerPairs(t *testing.T) {
	body := []byte(`{"line": [
		{"text": "good night, sweet prince", "score": 0.1,
		 "reference": {"title": "Hamlet", "act": 5, "scene": 2, "line": 359, "word_index": [0, 3]},
		 "pos_tags": [["good", "JJ"], ["night", "NN"], ["sweet", "JJ"], ["prince", "NNP"]]},
		{"text": "the rest is silence", "score": 0.2,
		 "reference": {"title": "Hamlet", "act": 5, "scene": 2, "line": 358, "word_index": [0, 3]},
		 "pos": [{"word": "the", "tag": "DT"}, {"word": "rest", "tag": "NN"}, {"word": "is", "pos": "VBZ"}, {"word": "silence"}]}
	]}`)

	got, err := DecodeCandidates(body)
	require.NoError(t, err)
	lines := got[quote.LevelLine]
	require.Len(t, lines, 2)

	assert.Equal(t, []string{"JJ", "NN", "JJ", "NNP"}, lines[0].POSTags)
	assert.True(t, selector.HasProperNoun(lines[0]))
	assert.Equal(t, []string{"DT", "NN", "VBZ"}, lines[1].POSTags)
}

func TestDecodeCandidates_NestedResultsAndFlatMetadata(t *testing.T) {
	body := []byte(`{"results": {"fragments": [
		{"document": "the slings and arrows", "score": 0.3,
		 "metadata": {"play": "Hamlet", "act": 3, "scene": 1, "line": 58, "word_index": "2-5"}},
		{"text": "outrageous fortune", "score": 0.2,
		 "title": "Hamlet", "act": 3, "scene": 1, "line": 58, "word_index": [6, 7]},
		{"text": "no locator here", "score": 0.05}
	]}}`)

	got, err := DecodeCandidates(body)
	require.NoError(t, err)
	frags := got[quote.LevelFragments]
	require.Len(t, frags, 3)

	assert.Equal(t, "Hamlet", frags[0].Reference.Title)
	assert.Equal(t, "the slings and arrows", frags[0].Text)
	assert.False(t, frags[0].Malformed)

	assert.False(t, frags[1].Malformed)
	assert.Equal(t, 58, frags[1].Reference.Line)

	assert.True(t, frags[2].Malformed)
	assert.Equal(t, []int{0, 1, 2}, []int{frags[0].Rank, frags[1].Rank, frags[2].Rank})
}

func TestDecodeCandidates_BadReferenceIsMalformed(t *testing.T) {
	body := []byte(`{"line": [
		{"text": "a", "reference": "not json"},
		{"text": "b", "reference": {"title": "Hamlet", "act": "III", "line": 3, "word_index": [0, 0]}},
		{"text": "c", "reference": {"title": "Hamlet", "act": 1, "scene": 1, "line": 3}}
	]}`)

	got, err := DecodeCandidates(body)
	require.NoError(t, err)
	for _, c := range got[quote.LevelLine] {
		assert.True(t, c.Malformed, c.Text)
	}
}

func TestDecodeCandidates_Invalid(t *testing.T) {
	_, err := DecodeCandidates([]byte(`[1, 2]`))
	assert.Error(t, err)

	_, err = DecodeCandidates([]byte(`{"line": {"text": "x"}}`))
	assert.Error(t, err)
}

func TestKeywords(t *testing.T) {
	assert.Equal(t, []string{"live", "die"}, Keywords("Should I live or die?"))
	assert.Equal(t, []string{"love", "night", "stars"},
		Keywords("Love, love, the night and the stars and the moon, love the night"))
	assert.Empty(t, Keywords("I am not what I am"))
}

func TestRetriever_StandardPlanAndMerge(t *testing.T) {
	line := "Should I live or die?"
	dup := cand("To be, or not to be", "Hamlet", 56, 0, 5, 0.3)
	better := dup
	better.Score = 0.1

	gw := &fakeGateway{byQuery: map[string]quote.Candidates{
		line: {
			quote.LevelLine:    {dup, cand("I will live", "Othello", 10, 0, 2, 0.5)},
			quote.LevelPhrases: {cand("live or die", "Lear", 4, 1, 3, 0.6)},
		},
		"Should I live": {
			quote.LevelPhrases: {cand("live or die", "Lear", 4, 1, 3, 0.2)},
			quote.LevelLine:    {better},
		},
		"or die": {
			quote.LevelPhrases: {cand("die", "Lear", 5, 0, 0, 0.9)},
		},
	}}

	got, err := New(gw).Search(context.Background(), line, 0)
	require.NoError(t, err)

	assert.Equal(t, DefaultTopK, gw.topK)
	assert.Equal(t, quote.Levels, gw.levels[line])
	assert.Equal(t, []quote.Level{quote.LevelPhrases}, gw.levels["Should I live"])
	assert.Equal(t, []quote.Level{quote.LevelFragments}, gw.levels["I live or die"])

	require.Len(t, got[quote.LevelLine], 2, "phrase queries must not feed the line level")
	assert.InDelta(t, 0.3, got[quote.LevelLine][0].Score, 1e-9)

	phrases := got[quote.LevelPhrases]
	require.Len(t, phrases, 2)
	assert.Equal(t, "live or die", phrases[0].Text)
	assert.InDelta(t, 0.2, phrases[0].Score, 1e-9, "duplicate span keeps the lower score")
	assert.Equal(t, 0, phrases[0].Rank)
	assert.Equal(t, 1, phrases[1].Rank)
}

func TestRetriever_HybridAddsKeywordQueries(t *testing.T) {
	gw := &fakeGateway{byQuery: map[string]quote.Candidates{
		"die": {quote.LevelFragments: {cand("to die, to sleep", "Hamlet", 60, 0, 3, 0.2)}},
	}}

	got, err := New(gw).HybridSearch(context.Background(), "Should I live or die?", 7)
	require.NoError(t, err)
	assert.Contains(t, gw.calls, "live")
	assert.Contains(t, gw.calls, "die")
	assert.Equal(t, quote.Levels, gw.levels["die"])
	assert.Equal(t, 7, gw.topK)
	assert.Len(t, got[quote.LevelFragments], 1)
}

func TestRetriever_PartialFailureIsTolerated(t *testing.T) {
	line := "Should I live or die?"
	gw := &fakeGateway{
		byQuery: map[string]quote.Candidates{line: {quote.LevelLine: {cand("x y", "Hamlet", 1, 0, 1, 0.1)}}},
		fail:    map[string]error{"or die": errors.New("boom")},
	}

	got, err := New(gw, WithConcurrency(1)).Search(context.Background(), line, 3)
	require.NoError(t, err)
	assert.Len(t, got[quote.LevelLine], 1)
}

func TestRetriever_AllQueriesFail(t *testing.T) {
	gw := &fakeGateway{fail: map[string]error{"hello": errors.New("connection refused")}}

	_, err := New(gw).Search(context.Background(), "hello", 3)
	assert.ErrorIs(t, err, ErrGateway)
}

func TestRetriever_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(&fakeGateway{}).Search(ctx, "Should I live or die?", 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPGateway_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)

		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "or die", req.Query)
		assert.Equal(t, 5, req.TopK)
		assert.Equal(t, []string{"phrases"}, req.Levels)

		w.Write([]byte(`{"line": [{"text": "a b", "score": 0.1, "reference": {"title": "T", "act": 1, "scene": 1, "line": 1, "word_index": [0, 1]}}],
			"phrases": [{"text": "c d", "score": 0.2, "reference": {"title": "T", "act": 1, "scene": 1, "line": 2, "word_index": [0, 1]}}]}`))
	}))
	defer server.Close()

	got, err := NewHTTPGateway(server.URL, 0).Search(context.Background(), "or die", []quote.Level{quote.LevelPhrases}, 5)
	require.NoError(t, err)
	assert.NotContains(t, got, quote.LevelLine)
	assert.Len(t, got[quote.LevelPhrases], 1)
}

func TestHTTPGateway_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "index not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewHTTPGateway(server.URL, 0).Search(context.Background(), "q", nil, 5)
	require.ErrorIs(t, err, ErrGateway)
	assert.Contains(t, err.Error(), "503")
}

func TestHTTPGateway_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
	}))
	defer server.Close()

	assert.NoError(t, NewHTTPGateway(server.URL, 0).Ping(context.Background()))
}
