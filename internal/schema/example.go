// Package schema synthesizes example values from JSON Schemas.
//
// Tool input schemas arrive as untrusted text from the page. The
// synthesizer turns any of them into something renderable: a concrete
// payload that seeds the manual invocation form and grounds tool
// descriptions. It never fails — nonsense input degrades to null or
// an empty object instead of an error.
package schema

import (
	"bytes"
	"encoding/json"
	"time"
)

// now is stubbed in tests so time-derived examples are deterministic.
var now = time.Now

// Example synthesizes an example value for the given JSON Schema text.
// Resolution order: const, first oneOf branch, default, first of
// examples, then by declared type. Anything unparseable yields nil;
// an unknown or missing type yields an empty object.
func Example(raw []byte) any {
	var node map[string]json.RawMessage
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil
	}
	if node == nil {
		// JSON null parses into a nil map.
		return nil
	}

	if c, ok := node["const"]; ok {
		return decode(c)
	}

	if branches := decodeList(node["oneOf"]); len(branches) > 0 {
		return Example(branches[0])
	}

	if d, ok := node["default"]; ok {
		return decode(d)
	}

	if examples := decodeList(node["examples"]); len(examples) > 0 {
		return decode(examples[0])
	}

	var typ string
	json.Unmarshal(node["type"], &typ)

	switch typ {
	case "object":
		obj := NewObject()
		for _, prop := range properties(node["properties"]) {
			obj.Set(prop.name, Example(prop.schema))
		}
		return obj

	case "array":
		if items, ok := node["items"]; ok {
			return []any{Example(items)}
		}
		return []any{}

	case "string":
		return stringExample(node)

	case "number", "integer":
		if m, ok := node["minimum"]; ok {
			return decode(m)
		}
		return float64(0)

	case "boolean":
		return false

	case "null":
		return nil

	default:
		return NewObject()
	}
}

// ExampleJSON renders the synthesized example as single-space-indented
// JSON, the shape the manual invocation form expects.
func ExampleJSON(raw []byte) []byte {
	out, err := json.MarshalIndent(Example(raw), "", " ")
	if err != nil {
		return []byte("null")
	}
	return out
}

// Many page tools encode temporal fields as regular-expression format
// strings rather than named formats, so the format table matches those
// exact patterns alongside the canonical names.
const (
	fmtDateTimeMillis = `^[0-9]{4}-(0[1-9]|1[0-2])-[0-9]{2}T([01][0-9]|2[0-3]):[0-5][0-9](:[0-5][0-9](\.[0-9]{1,3})?)?$`
	fmtDateTimeSec    = `^[0-9]{4}-(0[1-9]|1[0-2])-[0-9]{2}T([01][0-9]|2[0-3]):[0-5][0-9](:[0-5][0-9])?$`
	fmtDateTimeMin    = `^[0-9]{4}-(0[1-9]|1[0-2])-[0-9]{2}T([01][0-9]|2[0-3]):[0-5][0-9]$`
	fmtYearMonth      = `^[0-9]{4}-(0[1-9]|1[0-2])$`
	fmtYearWeek       = `^[0-9]{4}-W(0[1-9]|[1-4][0-9]|5[0-3])$`
	fmtTimeMillis     = `^([01][0-9]|2[0-3]):[0-5][0-9](:[0-5][0-9](\.[0-9]{1,3})?)?$`
	fmtTimeSec        = `^([01][0-9]|2[0-3]):[0-5][0-9](:[0-5][0-9])?$`
	fmtTimeMin        = `^([01][0-9]|2[0-3]):[0-5][0-9]$`
	fmtHexColor       = `^#[0-9a-zA-Z]{6}$`
)

func stringExample(node map[string]json.RawMessage) any {
	if values := decodeList(node["enum"]); len(values) > 0 {
		return decode(values[0])
	}

	var format string
	json.Unmarshal(node["format"], &format)

	t := now().UTC()
	switch format {
	case "date":
		return t.Format("2006-01-02")
	case fmtDateTimeMillis:
		return t.Format("2006-01-02T15:04:05.000")
	case fmtDateTimeSec:
		return t.Format("2006-01-02T15:04:05")
	case fmtDateTimeMin:
		return t.Format("2006-01-02T15:04")
	case fmtYearMonth:
		return t.Format("2006-01")
	case fmtYearWeek:
		return t.Format("2006") + "-W01"
	case fmtTimeMillis:
		return t.Format("15:04:05.000")
	case fmtTimeSec:
		return t.Format("15:04:05")
	case fmtTimeMin:
		return t.Format("15:04")
	case fmtHexColor:
		return "#ff00ff"
	case "tel":
		return "123-456-7890"
	case "email":
		return "user@example.com"
	default:
		return "example_string"
	}
}

// decode best-effort unmarshals a raw value, returning nil on failure.
func decode(raw json.RawMessage) any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

// decodeList unmarshals a raw JSON array into its raw elements.
// Non-arrays and malformed input yield nil.
func decodeList(raw json.RawMessage) []json.RawMessage {
	if raw == nil {
		return nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}
	return list
}

type property struct {
	name   string
	schema json.RawMessage
}

// properties walks a raw "properties" object with a token decoder so
// declaration order survives. encoding/json maps would lose it.
func properties(raw json.RawMessage) []property {
	if raw == nil {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}

	var props []property
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return props
		}
		key, ok := keyTok.(string)
		if !ok {
			return props
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return props
		}
		props = append(props, property{name: key, schema: value})
	}
	return props
}
