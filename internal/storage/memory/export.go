// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/roadsim/roadsim/pkg/core"
)

// RunExport is the root JSON structure of an exported run.
type RunExport struct {
	Run   core.Run         `json:"run"`
	Ticks []core.TickStats `json:"ticks"`
}

var fileNameReplacer = strings.NewReplacer(" ", "_", ":", "_", "/", "_", "\\", "_")

func savedFileName(kind, name string) string {
	return fmt.Sprintf("%s_%s", kind, fileNameReplacer.Replace(name))
}

// exportRun writes the current run and its ticks to a timestamped file.
func (b *Backend) exportRun() error {
	export := RunExport{Run: *b.run, Ticks: b.ticks}
	if export.Ticks == nil {
		export.Ticks = make([]core.TickStats, 0)
	}

	base := fmt.Sprintf("run_%s_%s",
		fileNameReplacer.Replace(b.run.World),
		b.run.StartedAt.Format("20060102_150405"),
	)
	path, err := b.writeDocument(base, export)
	if err != nil {
		return err
	}
	b.lastExportPath = path
	return nil
}

// writeDocument writes data as JSON under OutputDir, gzipped when
// CompressOutput is set, and returns the path written.
func (b *Backend) writeDocument(base string, data any) (string, error) {
	filename := base + ".json"
	if b.cfg.CompressOutput {
		filename += ".gz"
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	if b.cfg.CompressOutput {
		return outputPath, writeGzipJSON(outputPath, data)
	}
	return outputPath, writeJSON(outputPath, data)
}

// readDocument reads base from OutputDir, trying the gzipped file first.
func (b *Backend) readDocument(base string, v any) error {
	if b.cfg.OutputDir == "" {
		return os.ErrNotExist
	}
	path := filepath.Join(b.cfg.OutputDir, base+".json")

	if f, err := os.Open(path + ".gz"); err == nil {
		defer f.Close()
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path+".gz", err)
		}
		defer gz.Close()
		return decode(gz, v)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return decode(f, v)
}

func decode(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("failed to decode: %w", err)
	}
	return nil
}

func writeJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}
