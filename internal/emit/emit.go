// Package emit serializes a canonical document to its metadata artifact.
// Output is deterministic: the same document always produces byte-identical
// JSON, so artifact diffs reflect real metadata changes. Writes go through
// a temp file and rename, so a crash never leaves a half-written artifact.
package emit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/tabmeta/internal/model"
)

// Marshal renders the document as indented JSON. Field order follows the
// struct definitions and arrays keep first-encounter order, so no sorting
// pass is needed here.
func Marshal(doc *model.Document) ([]byte, error) {
	if doc.DataSources == nil {
		doc.DataSources = []*model.DataSource{}
	}
	if len(doc.Diagnostics) == 0 {
		doc.Diagnostics = nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}
	return buf.Bytes(), nil
}

// Write marshals the document and writes it atomically to
// <dir>/<logical name>.json, creating the directory if needed. The temp
// file lives in the destination directory so the rename stays on one
// filesystem.
func Write(doc *model.Document, dir string) (string, error) {
	data, err := Marshal(doc)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	dest := filepath.Join(dir, doc.Name+".json")
	tmp, err := os.CreateTemp(dir, "."+doc.Name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing metadata: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("syncing metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("renaming into place: %w", err)
	}
	return dest, nil
}
