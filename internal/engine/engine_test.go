package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/tabmeta/internal/model"
	"github.com/leapstack-labs/tabmeta/internal/testutil"
)

const workbookXML = `<?xml version="1.0"?>
<workbook version="18.1">
  <datasource name="ds1" caption="Sales Data">
    <connection class="postgres" server="db" dbname="sales"/>
    <column name="[Sales]" role="measure" datatype="real"/>
    <column name="[Profit]" role="measure" datatype="real"/>
    <column name="[Margin]" role="measure" datatype="real">
      <calculation formula="[Profit]/[Sales]"/>
    </column>
  </datasource>
  <worksheet name="Sheet 1">
    <datasource-dependencies datasource="ds1">
      <column name="[Sales]"/>
    </datasource-dependencies>
  </worksheet>
</workbook>
`

const flowXML = `<?xml version="1.0"?>
<flow version="2023.1">
  <nodes>
    <node id="in1" name="Load" type="input">
      <connection class="csv"/>
    </node>
    <node id="out1" name="Save" type="output" input="in1">
      <connection class="hyper"/>
    </node>
  </nodes>
</flow>
`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseWorkbook(t *testing.T) {
	e := New(testutil.NewTestLogger(t))
	doc, err := e.Parse(context.Background(), writeFixture(t, "sales.twb", workbookXML), "sales")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Kind != model.KindWorkbook {
		t.Errorf("kind = %q", doc.Kind)
	}
	if doc.Name != "sales" || doc.SourceFile != "sales.twb" {
		t.Errorf("identity = %q/%q", doc.Name, doc.SourceFile)
	}
	if len(doc.DataSources) != 1 || len(doc.Worksheets) != 1 {
		t.Errorf("datasources=%d worksheets=%d", len(doc.DataSources), len(doc.Worksheets))
	}
	margin := doc.DataSources[0].Fields[2]
	if margin.Status != model.StatusResolved {
		t.Errorf("Margin status = %q, want resolved", margin.Status)
	}
}

func TestParsePrepFlow(t *testing.T) {
	e := New(testutil.NewTestLogger(t))
	doc, err := e.Parse(context.Background(), writeFixture(t, "etl.tfl", flowXML), "etl")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Kind != model.KindPrepFlow {
		t.Errorf("kind = %q", doc.Kind)
	}
	if len(doc.Steps) != 2 {
		t.Fatalf("steps = %d", len(doc.Steps))
	}
	if got := doc.Steps[0].Downstream; len(got) != 1 || got[0] != "out1" {
		t.Errorf("in1 downstream = %v", got)
	}
}

func TestParseKindFallbackByRootElement(t *testing.T) {
	e := New(nil)
	doc, err := e.Parse(context.Background(), writeFixture(t, "dashboard.xml", workbookXML), "dashboard")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Kind != model.KindWorkbook {
		t.Errorf("kind = %q, want workbook from root element", doc.Kind)
	}
}

func TestParseMissingFileIsFatal(t *testing.T) {
	e := New(nil)
	if _, err := e.Parse(context.Background(), "/nonexistent/x.twb", "x"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseMalformedXMLIsFatal(t *testing.T) {
	e := New(nil)
	path := writeFixture(t, "broken.twb", "<workbook><datasource>")
	if _, err := e.Parse(context.Background(), path, "broken"); err == nil {
		t.Fatal("expected error for malformed XML")
	}
}

func TestParseCancelledContext(t *testing.T) {
	e := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := writeFixture(t, "sales.twb", workbookXML)
	if _, err := e.Parse(ctx, path, "sales"); err == nil {
		t.Fatal("expected context error")
	}
}

func TestParseToDeterministic(t *testing.T) {
	e := New(testutil.NewTestLogger(t))
	in := writeFixture(t, "sales.twb", workbookXML)
	out := t.TempDir()

	_, p1, err := e.ParseTo(context.Background(), in, "sales", out)
	if err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(p1)
	if err != nil {
		t.Fatal(err)
	}

	_, p2, err := e.ParseTo(context.Background(), in, "sales", out)
	if err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(p2)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("re-parsing an unchanged file must produce byte-identical output")
	}
}

func TestParseAll(t *testing.T) {
	e := New(testutil.NewTestLogger(t))
	dir := t.TempDir()
	var inputs []Input
	for i := 0; i < 4; i++ {
		name := fmt.Sprintf("wb%d", i)
		path := filepath.Join(dir, name+".twb")
		if err := os.WriteFile(path, []byte(workbookXML), 0o644); err != nil {
			t.Fatal(err)
		}
		inputs = append(inputs, Input{Path: path, Name: name})
	}

	out := t.TempDir()
	results, err := e.ParseAll(context.Background(), inputs, out, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 4 {
		t.Fatalf("results = %d", len(results))
	}
	for i, r := range results {
		if r.Input.Name != inputs[i].Name {
			t.Errorf("result %d out of order: %q", i, r.Input.Name)
		}
		if _, err := os.Stat(r.ArtifactPath); err != nil {
			t.Errorf("artifact missing: %v", err)
		}
	}
}

func TestParseAllFatalErrorStopsBatch(t *testing.T) {
	e := New(nil)
	good := writeFixture(t, "good.twb", workbookXML)
	inputs := []Input{
		{Path: good, Name: "good"},
		{Path: "/nonexistent/bad.twb", Name: "bad"},
	}
	if _, err := e.ParseAll(context.Background(), inputs, t.TempDir(), 2); err == nil {
		t.Fatal("expected batch error")
	}
}
