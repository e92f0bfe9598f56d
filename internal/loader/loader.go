// Package loader decodes row data and serialized graphs from JSON or YAML.
// Row data is an object of table name to an array of row objects; table order
// and the first row's key order are preserved.
package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gratitude5dee/kumorfm-go/pkg/models"
	"github.com/gratitude5dee/kumorfm-go/pkg/table"
)

// Format is a supported encoding
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension, defaulting to JSON
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return JSON
	}
}

// DecodeRowData reads {table: [row, ...]} into tables
func DecodeRowData(r io.Reader, format Format) ([]*table.Table, error) {
	switch format {
	case YAML:
		return decodeYAMLRowData(r)
	case JSON:
		return decodeJSONRowData(r)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

func decodeJSONRowData(r io.Reader) ([]*table.Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var tables []*table.Table
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected table name, got %v", tok)
		}

		if err := expectDelim(dec, '['); err != nil {
			return nil, fmt.Errorf("table %s: %w", name, err)
		}

		var (
			rows    []models.Row
			columns []string
		)
		for dec.More() {
			row, keys, err := decodeJSONObject(dec)
			if err != nil {
				return nil, fmt.Errorf("table %s row %d: %w", name, len(rows), err)
			}
			if rows == nil {
				columns = keys
			}
			rows = append(rows, row)
		}
		if err := expectDelim(dec, ']'); err != nil {
			return nil, fmt.Errorf("table %s: %w", name, err)
		}

		tables = append(tables, table.NewWithColumns(name, columns, rows))
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return tables, nil
}

func decodeJSONObject(dec *json.Decoder) (models.Row, []string, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, nil, err
	}

	row := make(models.Row)
	keys := []string{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key := tok.(string)

		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, nil, fmt.Errorf("column %s: %w", key, err)
		}
		if _, dup := row[key]; !dup {
			keys = append(keys, key)
		}
		row[key] = v
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, nil, err
	}
	return row, keys, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("expected %q, got end of input", want)
		}
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func decodeYAMLRowData(r io.Reader) ([]*table.Table, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping of table names to rows")
	}

	root := doc.Content[0]
	var tables []*table.Table
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		seq := root.Content[i+1]
		if seq.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("table %s: expected a sequence of rows", name)
		}

		var (
			rows    []models.Row
			columns []string
		)
		for j, item := range seq.Content {
			if item.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("table %s row %d: expected a mapping", name, j)
			}

			row := make(models.Row, len(item.Content)/2)
			keys := make([]string, 0, len(item.Content)/2)
			for k := 0; k+1 < len(item.Content); k += 2 {
				key := item.Content[k].Value
				var v any
				if err := item.Content[k+1].Decode(&v); err != nil {
					return nil, fmt.Errorf("table %s row %d column %s: %w", name, j, key, err)
				}
				if _, dup := row[key]; !dup {
					keys = append(keys, key)
				}
				row[key] = v
			}
			if j == 0 {
				columns = keys
			}
			rows = append(rows, row)
		}

		tables = append(tables, table.NewWithColumns(name, columns, rows))
	}
	return tables, nil
}

// DecodeGraph reads a serialized graph payload
func DecodeGraph(r io.Reader, format Format) (models.SerializedGraph, error) {
	var sg models.SerializedGraph
	switch format {
	case YAML:
		if err := yaml.NewDecoder(r).Decode(&sg); err != nil {
			return sg, fmt.Errorf("decode yaml graph: %w", err)
		}
	case JSON:
		dec := json.NewDecoder(r)
		dec.UseNumber()
		if err := dec.Decode(&sg); err != nil {
			return sg, fmt.Errorf("decode json graph: %w", err)
		}
	default:
		return sg, fmt.Errorf("unsupported format %q", format)
	}
	return sg, nil
}

// EncodeGraph writes a serialized graph payload
func EncodeGraph(w io.Writer, sg models.SerializedGraph, format Format) error {
	switch format {
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(sg); err != nil {
			return err
		}
		return enc.Close()
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sg)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}
