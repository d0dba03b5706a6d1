// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package output writes rendered snapshots to their destination: stdout by
// default, or a file derived from a user-supplied base name.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/antimetal/sysspecs/internal/format"
)

// Sink decides where rendered snapshot bytes end up
type Sink struct {
	// BaseName is the output file path without extension. Empty means
	// write to Stdout.
	BaseName string
	// Stdout is the console destination, overridable for tests
	Stdout io.Writer
}

// NewSink returns a sink writing to the given file base name, or to stdout
// when baseName is empty.
func NewSink(baseName string) *Sink {
	return &Sink{
		BaseName: baseName,
		Stdout:   os.Stdout,
	}
}

// Write delivers rendered output. When a base name is configured the
// format's extension is appended and the file is created or truncated,
// never appended to. Write failures are fatal to the run and reported with
// the underlying cause.
func (s *Sink) Write(data []byte, f format.Format) error {
	if s.BaseName == "" {
		if _, err := s.Stdout.Write(data); err != nil {
			return fmt.Errorf("failed to write to stdout: %w", err)
		}
		return nil
	}

	path := s.BaseName + f.Extension()
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Path returns the destination the sink will write to for the given format,
// for user-facing messages. Empty means stdout.
func (s *Sink) Path(f format.Format) string {
	if s.BaseName == "" {
		return ""
	}
	return s.BaseName + f.Extension()
}
