package strategy

import (
	"bytes"
	"encoding/json"
	"mime"
	"net/url"
	"strings"

	"github.com/aniladanir/file-relay-service/internal/domain"
)

// Payload is an inbound webhook body. Twilio posts forms, Telegram posts JSON; both expose
// their top-level scalar fields through Get. Raw holds the JSON body, nil for forms.
type Payload struct {
	fields map[string]string
	raw    []byte
}

// ParsePayload decodes a webhook body according to its content type.
// Without a usable content type the body is sniffed: a leading '{' means JSON, anything else a form.
func ParsePayload(contentType string, body []byte) (Payload, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)

	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		return parseJSON(body)
	case mediaType == "application/x-www-form-urlencoded":
		return parseForm(body)
	case len(bytes.TrimSpace(body)) == 0:
		return Payload{fields: map[string]string{}}, nil
	case bytes.HasPrefix(bytes.TrimSpace(body), []byte("{")):
		return parseJSON(body)
	}
	return parseForm(body)
}

// NewFormPayload wraps already parsed form values, keeping the first value of each key
func NewFormPayload(values url.Values) Payload {
	fields := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}
	return Payload{fields: fields}
}

// NewJSONPayload wraps a JSON object body
func NewJSONPayload(body []byte) (Payload, error) {
	return parseJSON(body)
}

func (p Payload) Get(key string) string {
	return p.fields[key]
}

func (p Payload) Raw() []byte {
	return p.raw
}

func parseForm(body []byte) (Payload, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return Payload{}, &domain.MalformedPayloadError{Reason: "invalid form body", Err: err}
	}
	return NewFormPayload(values), nil
}

func parseJSON(body []byte) (Payload, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return Payload{}, &domain.MalformedPayloadError{Reason: "body is not a JSON object", Err: err}
	}

	fields := make(map[string]string, len(obj))
	for k, v := range obj {
		if s, ok := scalarString(v); ok {
			fields[k] = s
		}
	}
	return Payload{fields: fields, raw: body}, nil
}

func scalarString(v json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(v)
	if len(trimmed) == 0 {
		return "", false
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", false
		}
		return s, true
	case '{', '[', 'n':
		return "", false
	}
	// numbers and booleans keep their literal form
	return string(trimmed), true
}
