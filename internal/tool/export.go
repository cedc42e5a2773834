package tool

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ExportPrototext renders the tool set as line-delimited proto-text
// script_tools blocks, the format the tool registry configuration
// consumes. An advertised schema travels as a quoted string field; a
// tool without one gets the default schema as a bare object literal.
func ExportPrototext(s Set) string {
	blocks := make([]string, 0, len(s))
	for _, d := range s {
		schema := DefaultSchema
		if d.InputSchema != "" {
			schema = strconv.Quote(d.InputSchema)
		}
		var b strings.Builder
		b.WriteString("script_tools {\n")
		fmt.Fprintf(&b, "  name: %s\n", strconv.Quote(d.Name))
		fmt.Fprintf(&b, "  description: %s\n", strconv.Quote(d.Description))
		fmt.Fprintf(&b, "  input_schema: %s\n", schema)
		b.WriteString("}")
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\r\n")
}

// exportedTool is the JSON export shape: the schema is inlined as a
// parsed value rather than escaped text.
type exportedTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ExportJSON renders the tool set as indented JSON with each input
// schema parsed inline. An unparseable schema falls back to the
// default empty object schema rather than failing the export.
func ExportJSON(s Set) ([]byte, error) {
	tools := make([]exportedTool, 0, len(s))
	for _, d := range s {
		schema := json.RawMessage(d.SchemaOrDefault())
		if !json.Valid(schema) {
			schema = json.RawMessage(DefaultSchema)
		}
		tools = append(tools, exportedTool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: schema,
		})
	}
	return json.MarshalIndent(tools, "", "  ")
}
