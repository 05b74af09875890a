package document

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	doc := Document{
		"protocolSection": map[string]any{
			"identificationModule": map[string]any{
				"nctId":      "NCT00000001",
				"briefTitle": "A Study",
			},
			"statusModule": map[string]any{
				"overallStatus": "RECRUITING",
			},
		},
		"hasResults": true,
	}

	t.Run("resolves nested path", func(t *testing.T) {
		got := Get(doc, "protocolSection.identificationModule.nctId", nil)
		assert.Equal(t, "NCT00000001", got)
	})

	t.Run("single segment indexes the root", func(t *testing.T) {
		got := Get(doc, "hasResults", nil)
		assert.Equal(t, true, got)
	})

	t.Run("absent segment yields default", func(t *testing.T) {
		got := Get(doc, "protocolSection.designModule.studyType", "fallback")
		assert.Equal(t, "fallback", got)
	})

	t.Run("traversing through a scalar yields default", func(t *testing.T) {
		got := Get(doc, "hasResults.deeper", "fallback")
		assert.Equal(t, "fallback", got)
	})

	t.Run("nil root yields default", func(t *testing.T) {
		got := Get(nil, "anything", 42)
		assert.Equal(t, 42, got)
	})

	t.Run("explicit null value yields default", func(t *testing.T) {
		withNull := Document{"block": map[string]any{"field": nil}}
		got := Get(withNull, "block.field", "fallback")
		assert.Equal(t, "fallback", got)
	})
}

func TestGetString(t *testing.T) {
	doc := Document{"a": map[string]any{"s": "value", "n": 3.0, "empty": ""}}

	assert.Equal(t, "value", GetString(doc, "a.s", "def"))
	assert.Equal(t, "def", GetString(doc, "a.missing", "def"))
	assert.Equal(t, "def", GetString(doc, "a.n", "def"), "non-string resolves to default")
	assert.Equal(t, "def", GetString(doc, "a.empty", "def"), "empty string resolves to default")
}

func TestGetInt(t *testing.T) {
	doc := Document{"a": map[string]any{"count": 150.0, "text": "150"}}

	t.Run("JSON number decodes as float64", func(t *testing.T) {
		got := GetInt(doc, "a.count")
		require.NotNil(t, got)
		assert.Equal(t, int64(150), *got)
	})

	t.Run("string shape yields nil", func(t *testing.T) {
		assert.Nil(t, GetInt(doc, "a.text"))
	})

	t.Run("absent yields nil", func(t *testing.T) {
		assert.Nil(t, GetInt(doc, "a.missing"))
	})
}

func TestGetFloat(t *testing.T) {
	doc := Document{"geo": map[string]any{"lat": 40.7128, "lon": "bad"}}

	got := GetFloat(doc, "geo.lat")
	require.NotNil(t, got)
	assert.InDelta(t, 40.7128, *got, 1e-9)
	assert.Nil(t, GetFloat(doc, "geo.lon"))
	assert.Nil(t, GetFloat(doc, "geo.missing"))
}

func TestGetList(t *testing.T) {
	doc := Document{"m": map[string]any{
		"conditions": []any{"Diabetes", "Hypertension"},
		"scalar":     "not a list",
	}}

	assert.Equal(t, []any{"Diabetes", "Hypertension"}, GetList(doc, "m.conditions"))
	assert.Nil(t, GetList(doc, "m.scalar"))
	assert.Nil(t, GetList(doc, "m.missing"))
}

func TestGetEnum(t *testing.T) {
	doc := Document{"status": map[string]any{
		"plain":   "RECRUITING",
		"wrapped": map[string]any{"value": "COMPLETED"},
		"badWrap": map[string]any{"other": "x"},
	}}

	assert.Equal(t, "RECRUITING", GetEnum(doc, "status.plain", "def"))
	assert.Equal(t, "COMPLETED", GetEnum(doc, "status.wrapped", "def"))
	assert.Equal(t, "def", GetEnum(doc, "status.badWrap", "def"))
	assert.Equal(t, "def", GetEnum(doc, "status.missing", "def"))
}

func TestGetDate(t *testing.T) {
	doc := Document{"s": map[string]any{
		"full":    "2024-03-15",
		"garbage": "soon",
	}}

	got := GetDate(doc, "s.full")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), *got)

	assert.Nil(t, GetDate(doc, "s.garbage"), "unparseable date degrades to nil")
	assert.Nil(t, GetDate(doc, "s.missing"))
}
