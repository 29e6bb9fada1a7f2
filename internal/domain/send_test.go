package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringList_UnmarshalJSON(t *testing.T) {
	t.Run("single string", func(t *testing.T) {
		var s StringList
		require.NoError(t, json.Unmarshal([]byte(`"bob@x.com"`), &s))
		assert.Equal(t, StringList{"bob@x.com"}, s)
	})

	t.Run("array", func(t *testing.T) {
		var s StringList
		require.NoError(t, json.Unmarshal([]byte(`["a@x.com","b@x.com"]`), &s))
		assert.Equal(t, StringList{"a@x.com", "b@x.com"}, s)
	})

	t.Run("invalid", func(t *testing.T) {
		var s StringList
		assert.Error(t, json.Unmarshal([]byte(`42`), &s))
	})
}

func TestVariablesParam_UnmarshalJSON(t *testing.T) {
	t.Run("object", func(t *testing.T) {
		var v VariablesParam
		require.NoError(t, json.Unmarshal([]byte(`{"name":"Bob","count":2}`), &v))
		assert.Equal(t, "Bob", v["name"])
		assert.Equal(t, "2", v["count"])
	})

	t.Run("json string", func(t *testing.T) {
		var v VariablesParam
		require.NoError(t, json.Unmarshal([]byte(`"{\"name\":\"Bob\"}"`), &v))
		assert.Equal(t, VariablesParam{"name": "Bob"}, v)
	})

	t.Run("invalid json string becomes empty", func(t *testing.T) {
		var v VariablesParam
		require.NoError(t, json.Unmarshal([]byte(`"not json"`), &v))
		assert.Empty(t, v)
	})

	t.Run("non-object becomes empty", func(t *testing.T) {
		var v VariablesParam
		require.NoError(t, json.Unmarshal([]byte(`[1,2]`), &v))
		assert.Empty(t, v)
	})
}

func TestParseFromAddress(t *testing.T) {
	t.Run("bare address", func(t *testing.T) {
		from, err := ParseFromAddress("alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "", from.Name)
		assert.Equal(t, "alice@example.com", from.Address)
		assert.Equal(t, "example.com", from.Domain)
	})

	t.Run("display name", func(t *testing.T) {
		from, err := ParseFromAddress("Alice Smith <alice@Example.COM>")
		require.NoError(t, err)
		assert.Equal(t, "Alice Smith", from.Name)
		assert.Equal(t, "alice@Example.COM", from.Address)
		assert.Equal(t, "example.com", from.Domain)
	})

	t.Run("quoted display name", func(t *testing.T) {
		from, err := ParseFromAddress(`"Alice" <alice@example.com>`)
		require.NoError(t, err)
		assert.Equal(t, "Alice", from.Name)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := ParseFromAddress("not-an-address")
		assert.Error(t, err)
	})
}

func TestSendMessageRequest_Validate(t *testing.T) {
	req := &SendMessageRequest{
		From:    "alice@example.com",
		To:      StringList{"bob@x.com"},
		Subject: "Hi",
		Text:    "hello",
	}
	assert.NoError(t, req.Validate())

	t.Run("missing from", func(t *testing.T) {
		r := *req
		r.From = ""
		assert.Error(t, r.Validate())
	})

	t.Run("missing to", func(t *testing.T) {
		r := *req
		r.To = nil
		assert.Error(t, r.Validate())
	})

	t.Run("bad recipient", func(t *testing.T) {
		r := *req
		r.To = StringList{"nope"}
		assert.Error(t, r.Validate())
	})
}
