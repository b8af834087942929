package itinerary

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponseStages(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		stage string
		steps int
	}{
		{"direct object", `{"steps":[{"description":"Face"}]}`, "direct", 1},
		{"direct array", ` [{"description":"Face"},{"description":"Drill"}] `, "direct", 2},
		{"fenced json", "Here is the plan:\n```json\n{\"steps\":[{\"description\":\"Face\"}]}\n```\nGood luck.", "fenced", 1},
		{"fenced bare", "```\n{\"steps\":[]}\n```", "fenced", 0},
		{"object in prose", `Sure. {"steps":[{"description":"Bore {inner} hole"}]} Let me know.`, "object", 1},
		{"skips broken object", `Draft {oops} final {"steps":[{"description":"Face"}]}`, "object", 1},
		{"array in prose", `The steps are: [{"description":"Face"},{"description":"Drill"}] done`, "array", 2},
		{"string encoded", `"{\"steps\":[{\"description\":\"Face\"}]}"`, "direct", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, stage, err := ParseResponse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.stage, stage)

			res, err := NormalizeValue(v)
			require.NoError(t, err)
			assert.Len(t, res.Steps, tt.steps)
		})
	}
}

func TestParseResponseUnparseable(t *testing.T) {
	for _, raw := range []string{"not json at all", "", "42", `"just a sentence"`, "{ unterminated"} {
		_, _, err := ParseResponse(raw)
		require.Error(t, err, raw)
		assert.True(t, errors.Is(err, ErrModelResponseUnparseable), raw)
	}
}

func TestParseBalancedIgnoresBracketsInStrings(t *testing.T) {
	v, ok := parseBalanced(`note: {"description":"slot \"}\" side","cost":1}`, '{', '}')
	require.True(t, ok)
	assert.Equal(t, "slot \"}\" side", v.(map[string]any)["description"])

	_, ok = parseBalanced("no brackets here", '{', '}')
	assert.False(t, ok)
}

func TestParseResponseUnclosedBracketsScanOnce(t *testing.T) {
	junk := strings.Repeat("{ ] ", 100000)
	cases := []struct {
		name  string
		raw   string
		found bool
	}{
		{"unclosed objects", junk, false},
		{"unclosed arrays", strings.Repeat("[ } ", 100000), false},
		{"deep opener", strings.Repeat("{", 400000), false},
		{"object after junk", junk + `{"steps":[{"description":"Face"}]}`, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start := time.Now()
			v, _, err := ParseResponse(tc.raw)
			elapsed := time.Since(start)

			if tc.found {
				require.NoError(t, err)
				res, err := NormalizeValue(v)
				require.NoError(t, err)
				assert.Len(t, res.Steps, 1)
			} else {
				assert.True(t, errors.Is(err, ErrModelResponseUnparseable))
			}
			assert.Less(t, elapsed, 2*time.Second, "scan of %d bytes took %s", len(tc.raw), elapsed)
		})
	}
}

func TestParseBalancedMismatchedCloser(t *testing.T) {
	v, ok := parseBalanced(`{"a": [1, 2}] then {"b": 2}`, '{', '}')
	require.True(t, ok)
	assert.Equal(t, float64(2), v.(map[string]any)["b"])
}
