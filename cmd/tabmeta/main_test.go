// Package main provides tests for the tabmeta CLI.
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/tabmeta/internal/cli"
	"github.com/leapstack-labs/tabmeta/internal/cli/config"
	"github.com/leapstack-labs/tabmeta/internal/sample"
)

// run executes the CLI with a project rooted in dir and returns stdout and
// stderr contents.
func run(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	config.ResetConfig()

	base := []string{
		"--metadata-dir", filepath.Join(dir, "metadata"),
		"--registry-path", filepath.Join(dir, "registry.json"),
		"--feedback-db", filepath.Join(dir, "feedback.db"),
		"--issues-path", filepath.Join(dir, "issues.csv"),
		"--output", "markdown",
	}

	cmd := cli.NewRootCmd()
	out := new(bytes.Buffer)
	errOut := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(append(args, base...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// sampleWorkbook writes the sample fixtures and returns the workbook path.
func sampleWorkbook(t *testing.T, dir string) string {
	t.Helper()
	paths, err := sample.Write(dir)
	if err != nil {
		t.Fatal(err)
	}
	return paths[0]
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, t.TempDir(), "version")
	if err != nil {
		t.Fatalf("version command error = %v", err)
	}
	if !strings.Contains(out, "tabmeta v") {
		t.Errorf("version output = %q", out)
	}
}

func TestHelpListsCommands(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("help command error = %v", err)
	}
	for _, want := range []string{"parse", "list", "show", "graph", "register", "context", "feedback", "sample", "watch"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("help output should mention %q", want)
		}
	}
}

func TestParseCommand(t *testing.T) {
	dir := t.TempDir()
	wb := sampleWorkbook(t, dir)

	out, errOut, err := run(t, dir, "parse", wb, "superstore")
	if err != nil {
		t.Fatalf("parse command error = %v", err)
	}
	if !strings.Contains(out, "superstore") {
		t.Errorf("parse output = %q", out)
	}
	// The sample workbook contains a deliberately broken reference, which
	// warns but does not fail the command.
	if !strings.Contains(errOut, "unresolved-reference") {
		t.Errorf("stderr should carry the warning, got %q", errOut)
	}
	if _, err := os.Stat(filepath.Join(dir, "metadata", "superstore.json")); err != nil {
		t.Errorf("metadata artifact missing: %v", err)
	}
}

func TestParseCommandExplicitOutputDir(t *testing.T) {
	dir := t.TempDir()
	wb := sampleWorkbook(t, dir)
	outDir := filepath.Join(dir, "elsewhere")

	_, _, err := run(t, dir, "parse", wb, "superstore", outDir)
	if err != nil {
		t.Fatalf("parse command error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "superstore.json")); err != nil {
		t.Errorf("artifact missing from explicit output dir: %v", err)
	}
}

func TestParseCommandMalformedInputFails(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.twb")
	if err := os.WriteFile(bad, []byte("<workbook><datasource>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := run(t, dir, "parse", bad, "bad"); err == nil {
		t.Fatal("malformed input should fail the command")
	}
}

func TestParseCommandMissingInputFails(t *testing.T) {
	dir := t.TempDir()
	if _, _, err := run(t, dir, "parse", filepath.Join(dir, "nope.twb"), "nope"); err == nil {
		t.Fatal("missing input should fail the command")
	}
}

func TestParseCommandDirectoryMode(t *testing.T) {
	dir := t.TempDir()
	inputs := filepath.Join(dir, "inputs")
	if _, err := sample.Write(inputs); err != nil {
		t.Fatal(err)
	}

	out, _, err := run(t, dir, "parse", inputs)
	if err != nil {
		t.Fatalf("directory parse error = %v", err)
	}
	for _, name := range []string{"sample_superstore", "sample_pipeline"} {
		if !strings.Contains(out, name) {
			t.Errorf("output should mention %q, got %q", name, out)
		}
		if _, err := os.Stat(filepath.Join(dir, "metadata", name+".json")); err != nil {
			t.Errorf("artifact for %s missing: %v", name, err)
		}
	}
}

func TestListCommand(t *testing.T) {
	dir := t.TempDir()
	wb := sampleWorkbook(t, dir)
	if _, _, err := run(t, dir, "parse", wb, "superstore"); err != nil {
		t.Fatal(err)
	}

	out, _, err := run(t, dir, "list")
	if err != nil {
		t.Fatalf("list command error = %v", err)
	}
	if !strings.Contains(out, "superstore") || !strings.Contains(out, "workbook") {
		t.Errorf("list output = %q", out)
	}
}

func TestShowCommand(t *testing.T) {
	dir := t.TempDir()
	wb := sampleWorkbook(t, dir)
	if _, _, err := run(t, dir, "parse", wb, "superstore"); err != nil {
		t.Fatal(err)
	}

	out, _, err := run(t, dir, "show", "superstore")
	if err != nil {
		t.Fatalf("show command error = %v", err)
	}
	if !strings.Contains(out, "Profit Ratio") {
		t.Errorf("show output should include calculated fields, got %q", out)
	}
}

func TestShowUnknownName(t *testing.T) {
	if _, _, err := run(t, t.TempDir(), "show", "ghost"); err == nil {
		t.Fatal("unknown name should fail")
	}
}

func TestGraphCommand(t *testing.T) {
	dir := t.TempDir()
	wb := sampleWorkbook(t, dir)
	if _, _, err := run(t, dir, "parse", wb, "superstore"); err != nil {
		t.Fatal(err)
	}

	out, _, err := run(t, dir, "graph", "superstore")
	if err != nil {
		t.Fatalf("graph command error = %v", err)
	}
	if !strings.Contains(out, "Profit Ratio") || !strings.Contains(out, "Evaluation order") {
		t.Errorf("graph output = %q", out)
	}
}

func TestRegisterCommand(t *testing.T) {
	dir := t.TempDir()
	_, _, err := run(t, dir, "register", "manual", "workbook", "src.twb", "meta.json")
	if err != nil {
		t.Fatalf("register command error = %v", err)
	}

	out, _, err := run(t, dir, "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "manual") {
		t.Errorf("registered entry missing from list: %q", out)
	}

	if _, _, err := run(t, dir, "register", "bad", "spreadsheet", "a", "b"); err == nil {
		t.Error("invalid kind should fail")
	}
}

func TestContextCommand(t *testing.T) {
	dir := t.TempDir()
	wb := sampleWorkbook(t, dir)
	if _, _, err := run(t, dir, "parse", wb, "superstore"); err != nil {
		t.Fatal(err)
	}
	issues := "dashboard,date,description,resolution\nsuperstore,2026-05-01,ratio shows null,refreshed extract\n"
	if err := os.WriteFile(filepath.Join(dir, "issues.csv"), []byte(issues), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := run(t, dir, "context", "superstore")
	if err != nil {
		t.Fatalf("context command error = %v", err)
	}
	if !strings.Contains(out, "# superstore") || !strings.Contains(out, "Known issues") {
		t.Errorf("context output = %q", out)
	}
}

func TestFeedbackCommands(t *testing.T) {
	dir := t.TempDir()
	if _, _, err := run(t, dir, "feedback", "log", "superstore", "-q", "why null", "--resolved"); err != nil {
		t.Fatalf("feedback log error = %v", err)
	}
	if _, _, err := run(t, dir, "feedback", "log", "superstore", "-q", "still broken"); err != nil {
		t.Fatal(err)
	}

	out, _, err := run(t, dir, "feedback", "stats", "superstore")
	if err != nil {
		t.Fatalf("feedback stats error = %v", err)
	}
	if !strings.Contains(out, "superstore") || !strings.Contains(out, "50%") {
		t.Errorf("stats output = %q", out)
	}
}

func TestSampleCommand(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "fixtures")
	if _, _, err := run(t, dir, "sample", target); err != nil {
		t.Fatalf("sample command error = %v", err)
	}
	for _, name := range sample.Files {
		if _, err := os.Stat(filepath.Join(target, name)); err != nil {
			t.Errorf("sample file missing: %v", err)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	if _, _, err := run(t, t.TempDir(), "unknown-command"); err == nil {
		t.Error("unknown command should return an error")
	}
}

func TestInvalidOutputMode(t *testing.T) {
	config.ResetConfig()
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"list", "--output", "yaml"})
	if err := cmd.Execute(); err == nil {
		t.Error("invalid output mode should fail")
	}
}

func TestMain(m *testing.M) {
	os.Exit(m.Run())
}
