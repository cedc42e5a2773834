// Package tool defines the contracts around the page's script tool
// registry: advertised descriptors, the execution boundary, and the
// export formats for copying a tool listing out.
package tool

// DefaultSchema is substituted when a tool advertises no input schema.
const DefaultSchema = `{"type":"object","properties":{}}`

// Descriptor is one advertised tool: name, description, and the
// input contract as JSON Schema text. Descriptors are immutable once
// listed; a new listing replaces the prior set wholesale.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema string `json:"inputSchema"`
}

// SchemaOrDefault returns the input schema, or the default empty
// object schema when none was advertised.
func (d Descriptor) SchemaOrDefault() string {
	if d.InputSchema == "" {
		return DefaultSchema
	}
	return d.InputSchema
}

// Set is a snapshot of the advertised tools, in listing order.
type Set []Descriptor

// Find returns the descriptor with the given name.
func (s Set) Find(name string) (Descriptor, bool) {
	for _, d := range s {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Names returns the tool names in listing order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for _, d := range s {
		names = append(names, d.Name)
	}
	return names
}

// Equal reports whether two snapshots advertise the same tools in the
// same order. Used to detect whether a pushed listing actually changed
// anything.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}
