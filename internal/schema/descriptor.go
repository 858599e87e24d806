package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FieldKind classifies a record field for defaulting and schema generation.
type FieldKind int

const (
	String FieldKind = iota
	Bool
	Number
	// NullableString and NullableNumber are the only kinds permitted to be
	// genuinely absent in a finished record.
	NullableString
	NullableNumber
)

// Field describes one target record field: its wire name, kind, and the
// guidance line the extraction prompt gives the model for it.
type Field struct {
	Name    string
	Kind    FieldKind
	Pattern string   // optional JSON-Schema pattern constraint
	Enum    []string // optional closed value set (uppercased on sanitize)
	Hint    string   // one-line prompt guidance
}

// Nullable reports whether the field may stay null in a finished record.
func (f Field) Nullable() bool {
	return f.Kind == NullableString || f.Kind == NullableNumber
}

// Descriptor binds everything the extraction engine needs to target one
// record shape: a name for error messages, the field registry, and the
// instruction prologue for the model. The same engine drives every
// descriptor; only the data here differs.
type Descriptor[T any] struct {
	Name   string
	Intro  string
	Fields []Field
}

// Prompt renders the full extraction instruction: the intro, one line per
// field with its type and default, and the null-handling contract. This
// text is the only enforcement mechanism ahead of schema validation.
func (d Descriptor[T]) Prompt() string {
	var b strings.Builder
	b.WriteString(d.Intro)
	b.WriteString("\nReturn ONLY a JSON object with the following fields:\n")
	for _, f := range d.Fields {
		b.WriteString("- ")
		b.WriteString(f.Name)
		b.WriteString(" (")
		b.WriteString(kindLabel(f.Kind))
		b.WriteString(", default ")
		b.WriteString(defaultLabel(f.Kind))
		b.WriteString(")")
		if len(f.Enum) > 0 {
			b.WriteString(", one of: ")
			b.WriteString(strings.Join(nonEmpty(f.Enum), ", "))
		}
		if f.Hint != "" {
			b.WriteString(": ")
			b.WriteString(f.Hint)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nRules:\n")
	b.WriteString("- Every field above MUST be present in the output.\n")
	b.WriteString("- If a value is not visible in the document, use the field's default. Never output null")
	if nn := d.nullableNames(); len(nn) > 0 {
		b.WriteString(", except for ")
		b.WriteString(strings.Join(nn, " and "))
		b.WriteString(", which may be null when unknown")
	}
	b.WriteString(".\n")
	b.WriteString("- Output raw JSON only: no markdown, no code fences, no commentary.\n")
	return b.String()
}

// JSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map,
// used locally to validate model output before decoding.
func (d Descriptor[T]) JSONSchema() map[string]any {
	props := make(map[string]any, len(d.Fields))
	for _, f := range d.Fields {
		props[f.Name] = f.schemaProp()
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

func (f Field) schemaProp() map[string]any {
	var p map[string]any
	switch f.Kind {
	case String:
		p = map[string]any{"type": "string"}
	case Bool:
		p = map[string]any{"type": "boolean"}
	case Number:
		p = map[string]any{"type": "number"}
	case NullableString:
		p = map[string]any{"type": []any{"string", "null"}}
	case NullableNumber:
		p = map[string]any{"type": []any{"number", "null"}}
	}
	if f.Pattern != "" {
		p["pattern"] = f.Pattern
	}
	if len(f.Enum) > 0 {
		vals := make([]any, 0, len(f.Enum))
		for _, v := range f.Enum {
			vals = append(vals, v)
		}
		p["enum"] = vals
	}
	return p
}

// Sanitize normalizes a parsed model object ahead of validation:
// unknown keys are removed, nulls on non-nullable fields are dropped so
// defaulting can fill them, numeric strings are coerced for number fields,
// stray numbers are stringified for string fields, and enum-constrained
// strings are uppercased. Returns the cleaned map and a note per change.
func (d Descriptor[T]) Sanitize(m map[string]any) (map[string]any, []string) {
	known := make(map[string]Field, len(d.Fields))
	for _, f := range d.Fields {
		known[f.Name] = f
	}

	out := make(map[string]any, len(m))
	var notes []string
	for k, v := range m {
		f, ok := known[k]
		if !ok {
			notes = append(notes, k+"(unknown)")
			continue
		}
		if v == nil {
			if f.Nullable() {
				out[k] = nil
			} else {
				notes = append(notes, k+"(null)")
			}
			continue
		}
		cv, note := f.coerce(v)
		if note != "" {
			notes = append(notes, k+"("+note+")")
		}
		if cv != nil {
			out[k] = cv
		}
	}
	return out, notes
}

func (f Field) coerce(v any) (any, string) {
	switch f.Kind {
	case String, NullableString:
		switch t := v.(type) {
		case string:
			s := strings.TrimSpace(t)
			if len(f.Enum) > 0 {
				s = strings.ToUpper(s)
			}
			return s, ""
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64), "stringified"
		case bool:
			return strconv.FormatBool(t), "stringified"
		}
	case Number, NullableNumber:
		switch t := v.(type) {
		case float64:
			return t, ""
		case string:
			if n, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
				return n, "parsed"
			}
		}
	case Bool:
		if b, ok := v.(bool); ok {
			return b, ""
		}
	}
	// Leave the offending value in place so schema validation reports it.
	return v, ""
}

// ApplyDefaults totalizes the record: every non-nullable field missing from
// m receives its zero default, and nullable fields missing from m become
// explicit nulls. After this call the object is total over the schema.
func (d Descriptor[T]) ApplyDefaults(m map[string]any) map[string]any {
	out := make(map[string]any, len(d.Fields))
	for _, f := range d.Fields {
		if v, ok := m[f.Name]; ok {
			out[f.Name] = v
			continue
		}
		switch f.Kind {
		case String:
			out[f.Name] = ""
		case Bool:
			out[f.Name] = false
		case Number:
			out[f.Name] = 0.0
		case NullableString, NullableNumber:
			out[f.Name] = nil
		}
	}
	return out
}

// Decode materializes the totalized object into the record type.
func (d Descriptor[T]) Decode(m map[string]any) (T, error) {
	var rec T
	raw, err := json.Marshal(m)
	if err != nil {
		return rec, fmt.Errorf("%s: encode object: %w", d.Name, err)
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return rec, fmt.Errorf("%s: decode record: %w", d.Name, err)
	}
	return rec, nil
}

func (d Descriptor[T]) nullableNames() []string {
	var names []string
	for _, f := range d.Fields {
		if f.Nullable() {
			names = append(names, f.Name)
		}
	}
	return names
}

func kindLabel(k FieldKind) string {
	switch k {
	case String:
		return "string"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case NullableString:
		return "string or null"
	case NullableNumber:
		return "number or null"
	}
	return "string"
}

func defaultLabel(k FieldKind) string {
	switch k {
	case String:
		return `""`
	case Bool:
		return "false"
	case Number:
		return "0.0"
	case NullableString, NullableNumber:
		return "null"
	}
	return `""`
}

func nonEmpty(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
