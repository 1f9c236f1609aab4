package formula

import (
	"testing"
)

func TestExtract_SingleReference(t *testing.T) {
	refs, warns := Extract("SUM([Sales])")
	if len(warns) != 0 {
		t.Fatalf("unexpected warnings: %v", warns)
	}
	if len(refs) != 1 || refs[0].Name != "Sales" {
		t.Fatalf("expected [Sales], got %v", refs)
	}
}

func TestExtract_QuotedBracketIsNotAReference(t *testing.T) {
	// The quoted text contains no reference; only [Profit] is real.
	refs, warns := Extract(`"Sales" + [Profit]`)
	if len(warns) != 0 {
		t.Fatalf("unexpected warnings: %v", warns)
	}
	if len(refs) != 1 || refs[0].Name != "Profit" {
		t.Fatalf("expected exactly {Profit}, got %v", refs)
	}
}

func TestExtract_BracketInsideStringLiteral(t *testing.T) {
	refs, _ := Extract(`'[Not A Field]' + [Real Field]`)
	if len(refs) != 1 || refs[0].Name != "Real Field" {
		t.Fatalf("expected {Real Field}, got %v", refs)
	}
}

func TestExtract_SingleQuoteInsideDoubleQuotes(t *testing.T) {
	refs, _ := Extract(`"it's [fine]" + [Cost]`)
	if len(refs) != 1 || refs[0].Name != "Cost" {
		t.Fatalf("expected {Cost}, got %v", refs)
	}
}

func TestExtract_LineCommentSkipped(t *testing.T) {
	refs, _ := Extract("// uses [Old Field]\n[New Field] * 2")
	if len(refs) != 1 || refs[0].Name != "New Field" {
		t.Fatalf("expected {New Field}, got %v", refs)
	}
}

func TestExtract_BlockCommentSkipped(t *testing.T) {
	refs, _ := Extract("/* [A] and [B] */ [C]")
	if len(refs) != 1 || refs[0].Name != "C" {
		t.Fatalf("expected {C}, got %v", refs)
	}
}

func TestExtract_Deduplicates(t *testing.T) {
	refs, _ := Extract("[Sales] + [Sales] + [Sales]")
	if len(refs) != 1 {
		t.Fatalf("expected one deduplicated reference, got %v", refs)
	}
}

func TestExtract_FirstEncounterOrder(t *testing.T) {
	refs, _ := Extract("[B] + [A] + [B]")
	if len(refs) != 2 || refs[0].Name != "B" || refs[1].Name != "A" {
		t.Fatalf("expected [B A], got %v", refs)
	}
}

func TestExtract_EscapedClosingBracket(t *testing.T) {
	refs, _ := Extract("[Weird ]] Name]")
	if len(refs) != 1 {
		t.Fatalf("expected one reference, got %v", refs)
	}
	if refs[0].Raw != "Weird ]] Name" {
		t.Errorf("raw: expected %q, got %q", "Weird ]] Name", refs[0].Raw)
	}
	if refs[0].Name != "Weird ] Name" {
		t.Errorf("normalized: expected %q, got %q", "Weird ] Name", refs[0].Name)
	}
}

func TestExtract_UnterminatedBracketIsRecoverable(t *testing.T) {
	refs, warns := Extract("[Sales] + [Unfinished")
	if len(refs) != 1 || refs[0].Name != "Sales" {
		t.Fatalf("expected references found so far, got %v", refs)
	}
	if len(warns) != 1 {
		t.Fatalf("expected one warning, got %v", warns)
	}
}

func TestExtract_UnterminatedString(t *testing.T) {
	refs, warns := Extract(`[Sales] + "oops`)
	if len(refs) != 1 {
		t.Fatalf("expected {Sales}, got %v", refs)
	}
	if len(warns) != 1 {
		t.Fatalf("expected one warning, got %v", warns)
	}
}

func TestExtract_NestedInFunctionCalls(t *testing.T) {
	refs, _ := Extract("IF SUM([Profit]) > 0 THEN AVG([Sales]) ELSE MIN([Discount]) END")
	want := []string{"Profit", "Sales", "Discount"}
	if len(refs) != len(want) {
		t.Fatalf("expected %d references, got %v", len(want), refs)
	}
	for i, name := range want {
		if refs[i].Name != name {
			t.Errorf("ref %d: expected %q, got %q", i, name, refs[i].Name)
		}
	}
}

func TestExtract_Empty(t *testing.T) {
	refs, warns := Extract("")
	if refs != nil || warns != nil {
		t.Fatalf("expected nothing, got %v / %v", refs, warns)
	}
}

func TestExtract_NoReferences(t *testing.T) {
	refs, warns := Extract("1 + 2 * 3")
	if refs != nil || warns != nil {
		t.Fatalf("expected nothing, got %v / %v", refs, warns)
	}
}

func TestNames(t *testing.T) {
	names := Names("[A]/[B]")
	if len(names) != 2 || names[0] != "A" || names[1] != "B" {
		t.Fatalf("expected [A B], got %v", names)
	}
}
