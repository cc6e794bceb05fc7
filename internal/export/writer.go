package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Writer defines the interface for export output writers
type Writer interface {
	Write(e *Export) error
	Close() error
}

// StdoutWriter writes exports to a stream, usually stdout.
type StdoutWriter struct {
	out    io.Writer
	format Format
	mu     sync.Mutex
}

func NewStdoutWriter(out io.Writer, format Format) *StdoutWriter {
	return &StdoutWriter{
		out:    out,
		format: format,
	}
}

func (w *StdoutWriter) Write(e *Export) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Encode(w.out, e, w.format)
}

// Close is a no-op for stdout writer
func (w *StdoutWriter) Close() error {
	return nil
}

// FileWriter writes each export to its own file in a directory.
type FileWriter struct {
	dir    string
	format Format
	mu     sync.Mutex
	last   string
}

// NewFileWriter creates dir if needed.
func NewFileWriter(dir string, format Format) (*FileWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &FileWriter{
		dir:    dir,
		format: format,
	}, nil
}

// FileName returns the name an export is written under.
func FileName(e *Export, format Format) string {
	id := e.RunID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("physio_%s_%d_%s%s", e.Preset, e.Seed, id, format.Ext())
}

func (w *FileWriter) Write(e *Export) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var buf bytes.Buffer
	if err := Encode(&buf, e, w.format); err != nil {
		return err
	}

	path := filepath.Join(w.dir, FileName(e, w.format))
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	w.last = path
	return nil
}

// LastPath returns the path of the most recently written file.
func (w *FileWriter) LastPath() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Close is a no-op for file writer
func (w *FileWriter) Close() error {
	return nil
}

// MultiWriter writes to multiple destinations
type MultiWriter struct {
	writers []Writer
}

func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write stops at the first failing writer.
func (w *MultiWriter) Write(e *Export) error {
	for _, writer := range w.writers {
		if err := writer.Write(e); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all underlying writers
func (w *MultiWriter) Close() error {
	for _, writer := range w.writers {
		if err := writer.Close(); err != nil {
			return err
		}
	}
	return nil
}
