package strategy

import (
	"testing"

	"github.com/aniladanir/file-relay-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayload_Form(t *testing.T) {
	p, err := ParsePayload("application/x-www-form-urlencoded", []byte("From=whatsapp%3A%2B15550001111&Body=hola+mundo"))
	require.NoError(t, err)

	assert.Equal(t, "whatsapp:+15550001111", p.Get("From"))
	assert.Equal(t, "hola mundo", p.Get("Body"))
	assert.Nil(t, p.Raw())
}

func TestParsePayload_JSON(t *testing.T) {
	body := []byte(`{"update_id":9,"flag":true,"name":"x","message":{"text":"hola"}}`)
	p, err := ParsePayload("application/json; charset=utf-8", body)
	require.NoError(t, err)

	assert.Equal(t, "9", p.Get("update_id"))
	assert.Equal(t, "true", p.Get("flag"))
	assert.Equal(t, "x", p.Get("name"))
	assert.Empty(t, p.Get("message"))
	assert.Equal(t, body, p.Raw())
}

func TestParsePayload_Sniffing(t *testing.T) {
	p, err := ParsePayload("", []byte(` {"a":"b"}`))
	require.NoError(t, err)
	assert.Equal(t, "b", p.Get("a"))
	assert.NotNil(t, p.Raw())

	p, err = ParsePayload("text/plain", []byte("a=b"))
	require.NoError(t, err)
	assert.Equal(t, "b", p.Get("a"))

	p, err = ParsePayload("", nil)
	require.NoError(t, err)
	assert.Empty(t, p.Get("a"))
}

func TestParsePayload_Malformed(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"broken json", "application/json", `{"a":`},
		{"json array", "application/json", `[1,2]`},
		{"bad form escape", "application/x-www-form-urlencoded", "a=%zz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePayload(tt.contentType, []byte(tt.body))
			var pldErr *domain.MalformedPayloadError
			assert.ErrorAs(t, err, &pldErr)
		})
	}
}
