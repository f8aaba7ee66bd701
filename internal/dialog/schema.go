package dialog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Field is one input of a schema-driven prompt.
type Field struct {
	Name     string
	Title    string
	Type     string // JSON Schema type: string, integer, number, boolean
	Required bool
	Secret   bool // format "password"
}

// Schema is a compiled JSON Schema describing a prompt form. Only top-level
// object properties become fields.
type Schema struct {
	Source string
	Fields []Field

	compiled *jsonschema.Schema
}

type schemaDoc struct {
	Required   []string `json:"required"`
	Properties map[string]struct {
		Type   string `json:"type"`
		Title  string `json:"title"`
		Format string `json:"format"`
	} `json:"properties"`
}

// CompileSchema compiles a JSON Schema document for a prompt form.
func CompileSchema(src string) (*Schema, error) {
	compiled, err := jsonschema.CompileString("prompt.json", src)
	if err != nil {
		return nil, fmt.Errorf("failed to compile form schema: %w", err)
	}

	var doc schemaDoc
	if err := json.Unmarshal([]byte(src), &doc); err != nil {
		return nil, fmt.Errorf("failed to read form schema: %w", err)
	}

	required := make(map[string]int, len(doc.Required))
	for i, name := range doc.Required {
		required[name] = i
	}

	fields := make([]Field, 0, len(doc.Properties))
	for name, p := range doc.Properties {
		_, req := required[name]
		title := p.Title
		if title == "" {
			title = name
		}
		typ := p.Type
		if typ == "" {
			typ = "string"
		}
		fields = append(fields, Field{
			Name:     name,
			Title:    title,
			Type:     typ,
			Required: req,
			Secret:   p.Format == "password",
		})
	}

	// required fields first, in declared order, then the rest by name
	sort.Slice(fields, func(i, j int) bool {
		ri, iReq := required[fields[i].Name]
		rj, jReq := required[fields[j].Name]
		switch {
		case iReq && jReq:
			return ri < rj
		case iReq != jReq:
			return iReq
		default:
			return fields[i].Name < fields[j].Name
		}
	})

	return &Schema{Source: src, Fields: fields, compiled: compiled}, nil
}

// MustCompileSchema is CompileSchema for package-level schemas.
func MustCompileSchema(src string) *Schema {
	s, err := CompileSchema(src)
	if err != nil {
		panic(err)
	}
	return s
}

// Coerce converts raw text input into typed values. Empty optional fields
// are omitted.
func (s *Schema) Coerce(raw map[string]string) (map[string]any, error) {
	out := make(map[string]any, len(raw))
	for _, f := range s.Fields {
		text, ok := raw[f.Name]
		text = strings.TrimSpace(text)
		if !ok || (text == "" && !f.Required) {
			continue
		}

		switch f.Type {
		case "integer":
			n, err := strconv.ParseInt(text, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%s must be a whole number", f.Title)
			}
			out[f.Name] = n
		case "number":
			n, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("%s must be a number", f.Title)
			}
			out[f.Name] = n
		case "boolean":
			b, err := strconv.ParseBool(text)
			if err != nil {
				return nil, fmt.Errorf("%s must be true or false", f.Title)
			}
			out[f.Name] = b
		default:
			out[f.Name] = raw[f.Name]
		}
	}
	return out, nil
}

// Validate checks typed values against the schema.
func (s *Schema) Validate(values map[string]any) error {
	// the validator expects decoded JSON, so normalise Go numeric types first
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode values: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode values: %w", err)
	}
	return s.compiled.Validate(doc)
}
