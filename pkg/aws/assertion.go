package aws

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
)

type orderedHeaders []Header

// MarshalJSON writes the headers as a JSON object keeping their order and casing.
func (h orderedHeaders) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, header := range h {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(&buf, header.Name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSON(&buf, header.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// writeJSON encodes v without HTML escaping so URLs keep their literal '&'.
func writeJSON(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}

type wireAssertion struct {
	Method  string         `json:"method"`
	URL     string         `json:"url"`
	Headers orderedHeaders `json:"headers"`
	Body    string         `json:"body"`
}

// Encode serializes the assertion and returns it base64 encoded, ready to be used as
// an OAuth2 client secret. Invalid UTF-8 in the body is replaced with U+FFFD. The
// result is secret-equivalent and must not be logged.
func Encode(a SignedAssertion) string {
	var payload bytes.Buffer
	err := writeJSON(&payload, wireAssertion{
		Method:  a.Method,
		URL:     a.URL,
		Headers: orderedHeaders(a.Headers),
		Body:    string(a.Body),
	})
	if err != nil {
		// strings always marshal
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(payload.Bytes())
}
