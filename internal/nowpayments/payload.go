package nowpayments

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Payload is a decoded payment notification. Values keep the type the
// processor sent when the body was JSON and are strings otherwise.
type Payload map[string]any

// ParsePayload decodes a notification body. It tries a JSON object, then a
// form-urlencoded body, then loose "key: value" or "key=value" pairs split by
// newlines or commas. Anything else yields an empty payload.
func ParsePayload(raw []byte) Payload {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Payload{}
	}

	if trimmed[0] == '{' {
		if obj, ok := decodeObject(trimmed); ok {
			return Payload(obj)
		}
	}

	s := string(trimmed)

	if strings.Contains(s, "=") && (strings.Contains(s, "&") || !strings.ContainsAny(s, ":\n\r,")) {
		if form := parseForm(s); form.OrderID() != "" || form.Status() != "" {
			return form
		}
	}

	return parseLoose(s)
}

// decodeObject keeps numbers as json.Number so large ids survive the audit
// round trip.
func decodeObject(raw []byte) (map[string]any, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// parseForm keeps whatever pairs decode even when a later pair carries a bad
// escape.
func parseForm(s string) Payload {
	vals, _ := url.ParseQuery(s)

	out := make(Payload, len(vals))
	for k, v := range vals {
		if k == "" || len(v) == 0 {
			continue
		}
		out[k] = v[0]
	}
	return out
}

func parseLoose(s string) Payload {
	out := Payload{}

	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ','
	})
	for _, part := range parts {
		idx := strings.IndexAny(part, ":=")
		if idx <= 0 {
			continue
		}
		key := strings.Trim(strings.TrimSpace(part[:idx]), `"'{}`)
		val := strings.Trim(strings.TrimSpace(part[idx+1:]), `"'{}`)
		if key == "" {
			continue
		}
		out[key] = val
	}

	return out
}

// String returns the first present key rendered as a trimmed string.
func (p Payload) String(keys ...string) string {
	for _, k := range keys {
		v, ok := p[k]
		if !ok || v == nil {
			continue
		}

		var s string
		switch t := v.(type) {
		case string:
			s = t
		case float64:
			s = strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%f", t), "0"), ".")
		case json.Number:
			s = t.String()
		default:
			s = fmt.Sprint(t)
		}

		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}

	return ""
}

// OrderID returns the merchant order reference of the notification.
func (p Payload) OrderID() string {
	return p.String("order_id", "orderId")
}

// Status returns the lowercased payment status.
func (p Payload) Status() string {
	return strings.ToLower(p.String("payment_status", "status"))
}

// JSON renders the payload for the audit column.
func (p Payload) JSON() json.RawMessage {
	b, err := json.Marshal(map[string]any(p))
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return b
}
