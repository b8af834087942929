package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolParamsJSON(t *testing.T) {
	var params ToolParams
	require.NoError(t, json.Unmarshal([]byte(`{"flutes": 4, "coating": "TiAlN"}`), &params))

	assert.Equal(t, NumberParam(4), params["flutes"])
	assert.Equal(t, TextParam("TiAlN"), params["coating"])

	out, err := json.Marshal(params)
	require.NoError(t, err)
	assert.JSONEq(t, `{"flutes": 4, "coating": "TiAlN"}`, string(out))

	err = json.Unmarshal([]byte(`{"flutes": [1,2]}`), &params)
	assert.Error(t, err)
}

func TestToolParamsCheckSchema(t *testing.T) {
	schema := ParamSchema{
		{Key: "flutes", Label: "Flutes", Kind: ParamNumber},
		{Key: "coating", Label: "Coating", Kind: ParamText},
	}

	assert.NoError(t, ToolParams{"flutes": NumberParam(2)}.CheckSchema(schema))
	assert.Error(t, ToolParams{"helix": NumberParam(30)}.CheckSchema(schema))
	assert.Error(t, ToolParams{"flutes": TextParam("two")}.CheckSchema(schema))
}

func TestDecodeStepsPayload(t *testing.T) {
	doc := `{"steps":[{"description":"Face top","cost":4.5,"time":10}],"total_cost":4.5}`

	t.Run("structured", func(t *testing.T) {
		p, err := DecodeStepsPayload([]byte(doc))
		require.NoError(t, err)
		require.Len(t, p.Steps, 1)
		assert.Equal(t, "Face top", p.Steps[0].Description)
		assert.Equal(t, 4.5, p.TotalCost)
	})

	t.Run("double encoded", func(t *testing.T) {
		encoded, err := json.Marshal(doc)
		require.NoError(t, err)
		p, err := DecodeStepsPayload(encoded)
		require.NoError(t, err)
		require.Len(t, p.Steps, 1)
		assert.Equal(t, 4.5, p.TotalCost)
	})

	t.Run("bare array", func(t *testing.T) {
		p, err := DecodeStepsPayload([]byte(`[{"description":"a","cost":1},{"description":"b","cost":2}]`))
		require.NoError(t, err)
		assert.Len(t, p.Steps, 2)
		assert.Equal(t, 3.0, p.TotalCost)
	})

	t.Run("empty", func(t *testing.T) {
		p, err := DecodeStepsPayload(nil)
		require.NoError(t, err)
		assert.NotNil(t, p.Steps)
		assert.Empty(t, p.Steps)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := DecodeStepsPayload([]byte(`{not json`))
		assert.Error(t, err)
	})
}

func TestStepWireShapeHasExplicitNulls(t *testing.T) {
	out, err := json.Marshal(ItineraryStep{Description: "Drill hole"})
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &fields))
	assert.Len(t, fields, 16)
	for _, key := range []string{"machine_id", "machine_name", "tooling_id", "tool_name", "recommendation", "setup_description"} {
		v, ok := fields[key]
		assert.True(t, ok, key)
		assert.Nil(t, v, key)
	}
}

func TestPartFileReference(t *testing.T) {
	key, name := "parts/2026/01/02/abc.step", "bracket.step"
	assert.Equal(t, "no file uploaded", (&Part{}).FileReference())
	assert.Equal(t, key, (&Part{FileKey: &key}).FileReference())
	assert.Equal(t, "bracket.step (parts/2026/01/02/abc.step)", (&Part{FileKey: &key, FileName: &name}).FileReference())
}
