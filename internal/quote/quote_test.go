package quote

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestReference_Key(t *testing.T) {
	ref := Reference{Title: "Hamlet", Act: 3, Scene: 1, Line: 56, WordIndex: WordIndex{0, 5}}
	assert.Equal(t, "Hamlet|3|1|56", ref.Key())
	assert.Equal(t, "0-5", ref.WordIndex.Label())
	assert.True(t, ref.Valid())
}

func TestReference_Valid(t *testing.T) {
	tests := []struct {
		name string
		ref  Reference
		want bool
	}{
		{"complete", Reference{Title: "Macbeth", Act: 1, Scene: 7, Line: 1, WordIndex: WordIndex{0, 3}}, true},
		{"missing title", Reference{Line: 1, WordIndex: WordIndex{0, 3}}, false},
		{"zero line", Reference{Title: "Macbeth", WordIndex: WordIndex{0, 3}}, false},
		{"inverted range", Reference{Title: "Macbeth", Line: 2, WordIndex: WordIndex{4, 1}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ref.Valid())
		})
	}
}

func TestParseWordIndex(t *testing.T) {
	tests := []struct {
		in      string
		want    WordIndex
		wantErr bool
	}{
		{"0,4", WordIndex{0, 4}, false},
		{"2-7", WordIndex{2, 7}, false},
		{"[1, 3]", WordIndex{1, 3}, false},
		{"5", WordIndex{5, 5}, false},
		{"", WordIndex{}, true},
		{"a,b", WordIndex{}, true},
		{"4,1", WordIndex{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWordIndex(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWordIndex_JSONForms(t *testing.T) {
	var fromArray, fromString WordIndex
	require.NoError(t, json.Unmarshal([]byte(`[0,4]`), &fromArray))
	require.NoError(t, json.Unmarshal([]byte(`"0,4"`), &fromString))
	assert.Equal(t, fromArray, fromString)

	out, err := json.Marshal(fromArray)
	require.NoError(t, err)
	assert.JSONEq(t, `[0,4]`, string(out))
}

func TestWordIndex_YAMLForms(t *testing.T) {
	var doc struct {
		A WordIndex `yaml:"a"`
		B WordIndex `yaml:"b"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("a: [1, 2]\nb: \"3,9\"\n"), &doc))
	assert.Equal(t, WordIndex{1, 2}, doc.A)
	assert.Equal(t, WordIndex{3, 9}, doc.B)
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{"line": LevelLine, "Phrase": LevelPhrases, "fragments": LevelFragments} {
		got, ok := ParseLevel(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got)
	}
	_, ok := ParseLevel("sentence")
	assert.False(t, ok)
}

func TestTempID(t *testing.T) {
	assert.Equal(t, "line_1", TempID(LevelLine, 1))
	assert.Equal(t, "fragments_5", TempID(LevelFragments, 5))
}
