package ops

import (
	"strconv"
	"strings"

	"github.com/mna/nenuphar/lang/value"
)

// CoerceToNumber implements Lua 5.4's string-to-number coercion used by the
// arithmetic operators: decimal integers and floats, hex integers and hex
// floats, with optional leading/trailing whitespace and sign.
func CoerceToNumber(v value.Value) (value.Value, bool) {
	switch v := v.(type) {
	case value.Integer, value.Float:
		return v, true
	case value.Str:
		return parseNumber(v.Bytes())
	}
	return nil, false
}

func parseNumber(s string) (value.Value, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}

	neg := false
	body := s
	if body[0] == '+' || body[0] == '-' {
		neg = body[0] == '-'
		body = body[1:]
	}

	if len(body) > 2 && body[0] == '0' && (body[1] == 'x' || body[1] == 'X') {
		return parseHex(s, body, neg)
	}

	if strings.ContainsAny(body, "iInN") { // inf/nan spellings strconv accepts but we don't
		return nil, false
	}
	if !strings.ContainsAny(body, ".eE") { // not a float-looking decimal
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return value.Integer(i), true
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return value.Float(f), true
	}
	return nil, false
}

func parseHex(orig, body string, neg bool) (value.Value, bool) {
	digits := body[2:]
	if digits == "" {
		return nil, false
	}
	if strings.ContainsAny(digits, ".pP") {
		if !strings.ContainsAny(digits, "pP") {
			orig += "p0" // strconv requires a binary exponent on hex floats
		}
		if f, err := strconv.ParseFloat(orig, 64); err == nil {
			return value.Float(f), true
		}
		return nil, false
	}
	u, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return nil, false
	}
	i := int64(u) // Lua hex integer literals wrap into the i64 range.
	if neg {
		i = -i
	}
	return value.Integer(i), true
}
