package client

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PayloadKind tags the decoded form of a response body.
type PayloadKind int

const (
	// PayloadJSON holds a JSON document (any content type containing "json").
	PayloadJSON PayloadKind = iota
	// PayloadText holds a text/* body as a string.
	PayloadText
	// PayloadBinary holds any other body as raw bytes. Binary is nil when
	// the response carried no body at all, so callers must treat this kind
	// as binary-or-absent.
	PayloadBinary
)

// Payload is the tagged variant a response body decodes into. Exactly one of
// JSON, Text or Binary is meaningful, selected by Kind.
type Payload struct {
	Kind   PayloadKind
	JSON   json.RawMessage
	Text   string
	Binary []byte
}

// Decode unmarshals a JSON payload into v.
func (p *Payload) Decode(v any) error {
	if p.Kind != PayloadJSON {
		return fmt.Errorf("payload is not JSON (kind %d)", p.Kind)
	}
	return json.Unmarshal(p.JSON, v)
}

// Bytes returns the body verbatim regardless of kind.
func (p *Payload) Bytes() []byte {
	switch p.Kind {
	case PayloadJSON:
		return []byte(p.JSON)
	case PayloadText:
		return []byte(p.Text)
	default:
		return p.Binary
	}
}

// parsePayload decodes raw response bytes according to the declared content
// type. A malformed JSON body is a *ParseError; text and binary bodies
// cannot fail to decode.
func parsePayload(contentType string, raw []byte) (*Payload, error) {
	mt := contentType
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = mt[:i]
	}
	mt = strings.ToLower(strings.TrimSpace(mt))

	switch {
	case strings.Contains(mt, "json"):
		if len(raw) == 0 {
			return &Payload{Kind: PayloadJSON, JSON: json.RawMessage("null")}, nil
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, &ParseError{ContentType: contentType, Err: err}
		}
		return &Payload{Kind: PayloadJSON, JSON: json.RawMessage(raw)}, nil
	case strings.HasPrefix(mt, "text/"):
		return &Payload{Kind: PayloadText, Text: string(raw)}, nil
	default:
		if len(raw) == 0 {
			// binary-or-absent: no body at all
			return &Payload{Kind: PayloadBinary}, nil
		}
		return &Payload{Kind: PayloadBinary, Binary: raw}, nil
	}
}
