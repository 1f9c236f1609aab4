package sample

import (
	"context"
	"os"
	"testing"

	"github.com/leapstack-labs/tabmeta/internal/engine"
	"github.com/leapstack-labs/tabmeta/internal/model"
)

func TestWriteCreatesFiles(t *testing.T) {
	dir := t.TempDir()
	paths, err := Write(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != len(Files) {
		t.Fatalf("paths = %v", paths)
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing sample file: %v", err)
		}
	}
}

func TestSampleWorkbookParses(t *testing.T) {
	dir := t.TempDir()
	paths, err := Write(dir)
	if err != nil {
		t.Fatal(err)
	}

	e := engine.New(nil)
	doc, err := e.Parse(context.Background(), paths[0], "superstore")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Kind != model.KindWorkbook {
		t.Errorf("kind = %q", doc.Kind)
	}
	if len(doc.Worksheets) != 2 || len(doc.Dashboards) != 1 {
		t.Errorf("worksheets=%d dashboards=%d", len(doc.Worksheets), len(doc.Dashboards))
	}

	var fields map[string]*model.Field
	for _, ds := range doc.DataSources {
		if ds.ID == "Parameters" {
			continue
		}
		fields = map[string]*model.Field{}
		for _, f := range ds.Fields {
			fields[f.Name] = f
		}
	}
	if fields["Profit Ratio"].Status != model.StatusResolved {
		t.Errorf("Profit Ratio status = %q", fields["Profit Ratio"].Status)
	}
	if fields["Big Sale"].Status != model.StatusPartiallyResolved {
		t.Errorf("Big Sale status = %q, want partially resolved via parameter", fields["Big Sale"].Status)
	}
	if fields["Broken Metric"].Status != model.StatusUnresolved {
		t.Errorf("Broken Metric status = %q, want unresolved", fields["Broken Metric"].Status)
	}
}

func TestSampleFlowParses(t *testing.T) {
	dir := t.TempDir()
	paths, err := Write(dir)
	if err != nil {
		t.Fatal(err)
	}

	e := engine.New(nil)
	doc, err := e.Parse(context.Background(), paths[1], "pipeline")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Kind != model.KindPrepFlow {
		t.Errorf("kind = %q", doc.Kind)
	}
	if len(doc.Steps) != 6 {
		t.Errorf("steps = %d", len(doc.Steps))
	}
	if len(doc.Diagnostics) != 0 {
		t.Errorf("sample flow should parse clean, got %+v", doc.Diagnostics)
	}
}

func TestWriteDeterministic(t *testing.T) {
	a, err := Write(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	b, err := Write(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		da, _ := os.ReadFile(a[i])
		db, _ := os.ReadFile(b[i])
		if string(da) != string(db) {
			t.Errorf("sample %s differs between runs", Files[i])
		}
	}
}
