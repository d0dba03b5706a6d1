// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package format renders a snapshot into one of the supported output
// representations: human-readable text, nested JSON, or flattened CSV.
package format

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/antimetal/sysspecs/pkg/snapshot"
)

// Format determines the output representation
type Format string

const (
	FormatText Format = "text" // human-readable multi-line summary
	FormatJSON Format = "json" // nested structure mirroring the data model
	FormatCSV  Format = "csv"  // one property,value row per leaf field
)

// ErrInvalidFormat is returned for unrecognized format names. A bad format
// is a configuration error: no output is produced and nothing is substituted.
var ErrInvalidFormat = fmt.Errorf("format must be '%s', '%s' or '%s'", FormatText, FormatJSON, FormatCSV)

// String returns the string representation of the format
func (f Format) String() string {
	return string(f)
}

// IsValid checks if the format is supported
func (f Format) IsValid() bool {
	return f == FormatText || f == FormatJSON || f == FormatCSV
}

// Extension returns the file extension used when writing this format to a
// file, including the leading dot.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatCSV:
		return ".csv"
	default:
		return ".txt"
	}
}

// Parse validates a user-supplied format name
func Parse(s string) (Format, error) {
	f := Format(s)
	if !f.IsValid() {
		return "", fmt.Errorf("%w (got %q)", ErrInvalidFormat, s)
	}
	return f, nil
}

// Render serializes a snapshot in the requested format.
// It returns ErrInvalidFormat for an unrecognized format and never falls
// back to a different representation.
func Render(snap *snapshot.Snapshot, f Format) ([]byte, error) {
	switch f {
	case FormatText:
		return renderText(snap), nil
	case FormatJSON:
		return renderJSON(snap)
	case FormatCSV:
		return renderCSV(snap)
	default:
		return nil, fmt.Errorf("%w (got %q)", ErrInvalidFormat, f)
	}
}

// renderJSON emits the full nested structure with stable keys. Disks and
// GPUs are always arrays in the output, never null.
func renderJSON(snap *snapshot.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot as JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// renderCSV flattens the snapshot into property,value rows, one per leaf
// scalar field. List entries carry an " [i]" index suffix so each partition
// and GPU occupies its own rows.
func renderCSV(snap *snapshot.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"property", "value"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range Flatten(snap) {
		if err := w.Write([]string{row.Property, row.Value}); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot as CSV: %w", err)
	}
	return buf.Bytes(), nil
}
