package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotesUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Notes
	}{
		{name: "string", input: `"Source: NYT"`, want: TextNotes("Source: NYT")},
		{name: "list", input: `["a", "b"]`, want: ListNotes("a", "b")},
		{name: "empty list", input: `[]`, want: Notes{Items: []string{}, List: true}},
		{name: "null", input: `null`, want: Notes{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n Notes
			require.NoError(t, json.Unmarshal([]byte(tt.input), &n))
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestNotesUnmarshalRejectsOtherShapes(t *testing.T) {
	var n Notes
	assert.Error(t, json.Unmarshal([]byte(`42`), &n))
	assert.Error(t, json.Unmarshal([]byte(`[1, 2]`), &n))
}

func TestNotesKeepShapeOnWrite(t *testing.T) {
	for _, raw := range []string{`"one line"`, `["a","b"]`, `""`} {
		var n Notes
		require.NoError(t, json.Unmarshal([]byte(raw), &n))
		out, err := json.Marshal(n)
		require.NoError(t, err)
		assert.JSONEq(t, raw, string(out))
	}
}

func TestNotesEmptyAndLines(t *testing.T) {
	assert.True(t, Notes{}.Empty())
	assert.True(t, TextNotes("  ").Empty())
	assert.True(t, ListNotes("", " ").Empty())
	assert.False(t, ListNotes("x").Empty())

	assert.Equal(t, []string{"a", "b"}, TextNotes("a\r\nb").Lines())
	assert.Equal(t, []string{"x", "y"}, ListNotes("x", "y").Lines())
	assert.Nil(t, Notes{}.Lines())
	assert.Equal(t, "x\ny", ListNotes("x", "y").String())
}

func TestRecipeJSONShape(t *testing.T) {
	r := &Recipe{
		ID:           "abc",
		Title:        "Soup",
		Ingredients:  []string{"Water"},
		Instructions: []string{"Boil"},
		Tags:         []string{},
		Notes:        TextNotes(""),
		State:        StateDeleted,
	}
	out, err := json.Marshal(r)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(out, &m))
	assert.NotContains(t, m, "ratings", "ratings omitted until first rating")
	assert.NotContains(t, m, "State", "state is not serialized")
	assert.Equal(t, "", m["notes"])
	assert.Equal(t, "abc", m["id"])
}
