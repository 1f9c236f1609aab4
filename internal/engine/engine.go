// Package engine orchestrates the parse pipeline: read a document, extract
// raw entities, normalize into the canonical model, and emit the metadata
// artifact. One Engine serves any number of parses; each parse is
// independent and touches no shared mutable state, so parallel parses of
// different files are safe.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/tabmeta/internal/emit"
	"github.com/leapstack-labs/tabmeta/internal/extract"
	"github.com/leapstack-labs/tabmeta/internal/model"
	"github.com/leapstack-labs/tabmeta/internal/normalize"
)

type Engine struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Engine {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Engine{log: log}
}

// Parse reads one document and returns its canonical model. The error is
// non-nil only for the fatal cases: unreadable file or XML that is not
// well-formed. Recoverable problems arrive as diagnostics on the document.
func (e *Engine) Parse(ctx context.Context, inputPath, logicalName string) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", inputPath, err)
	}
	defer f.Close()

	root, err := extract.ParseTree(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", inputPath, err)
	}

	var doc *model.Document
	switch detectKind(inputPath, root) {
	case model.KindPrepFlow:
		doc = normalize.PrepFlow(extract.PrepFlow(root), logicalName, filepath.Base(inputPath))
	default:
		doc = normalize.Workbook(extract.Workbook(root), logicalName, filepath.Base(inputPath))
	}

	e.log.Info("parsed document",
		"input", inputPath,
		"name", logicalName,
		"kind", doc.Kind,
		"datasources", len(doc.DataSources),
		"diagnostics", len(doc.Diagnostics))
	return doc, nil
}

// ParseTo parses and writes the metadata artifact, returning the document
// and the artifact path.
func (e *Engine) ParseTo(ctx context.Context, inputPath, logicalName, outDir string) (*model.Document, string, error) {
	doc, err := e.Parse(ctx, inputPath, logicalName)
	if err != nil {
		return nil, "", err
	}
	path, err := emit.Write(doc, outDir)
	if err != nil {
		return nil, "", err
	}
	e.log.Debug("wrote metadata artifact", "path", path)
	return doc, path, nil
}

// Input names one file to parse in a batch.
type Input struct {
	Path string
	Name string
}

// Result pairs a batch input with its outcome.
type Result struct {
	Input        Input
	Document     *model.Document
	ArtifactPath string
}

// ParseAll parses a batch of inputs with at most workers parallel parses and
// writes each artifact to outDir. The first fatal parse error cancels the
// rest. Results keep input order regardless of completion order.
func (e *Engine) ParseAll(ctx context.Context, inputs []Input, outDir string, workers int) ([]Result, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, in := range inputs {
		g.Go(func() error {
			doc, path, err := e.ParseTo(ctx, in.Path, in.Name, outDir)
			if err != nil {
				return err
			}
			results[i] = Result{Input: in, Document: doc, ArtifactPath: path}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// detectKind decides workbook vs. prep flow from the file extension, with
// the root element name as the fallback for unconventional names.
func detectKind(path string, root *extract.Node) model.Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".twb":
		return model.KindWorkbook
	case ".tfl":
		return model.KindPrepFlow
	}
	if root.Name() == "workbook" {
		return model.KindWorkbook
	}
	return model.KindPrepFlow
}
