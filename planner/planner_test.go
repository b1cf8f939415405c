package planner

import (
	"path/filepath"
	"testing"

	"pkgsort/catalog"
	"pkgsort/logger"
)

func init() {
	logger.Init("error")
}

func testRecord(name string) *catalog.Record {
	return &catalog.Record{
		TitleID:  "ABCD12345",
		Name:     name,
		Category: catalog.Category{Platform: "PS3", ContentType: "game"},
	}
}

func TestSanitizeFileName(t *testing.T) {
	got := SanitizeFileName(` Some: "Game" <X>/\|?* `)
	want := `Some_ _Game_ _X______`
	if got != want {
		t.Fatalf("unexpected sanitize: %q", got)
	}
}

func TestSanitizeFileNameIdempotent(t *testing.T) {
	once := SanitizeFileName(`Trés: Bien?`)
	twice := SanitizeFileName(once)
	if once != twice {
		t.Fatalf("sanitize not idempotent: %q vs %q", once, twice)
	}
}

func TestSanitizeFileNameNFC(t *testing.T) {
	// "é" as e + combining acute should normalize to the composed form.
	decomposed := "Café"
	if SanitizeFileName(decomposed) != "Café" {
		t.Fatalf("expected NFC normalization, got %q", SanitizeFileName(decomposed))
	}
}

func TestPlanDestination(t *testing.T) {
	p := New("/out")
	plan, ok := p.Plan(testRecord("Test Game"), "/in/UP1234-ABCD12345_00-TESTGAME.pkg")
	if !ok {
		t.Fatal("expected a plan")
	}
	want := filepath.Join("/out", "PS3", "game", "Test Game [ABCD12345].pkg")
	if plan.Dest != want {
		t.Fatalf("unexpected dest: %s", plan.Dest)
	}
	if plan.DedupIndex != 0 {
		t.Fatalf("unexpected dedup index: %d", plan.DedupIndex)
	}
}

func TestPlanUpdateVersionInName(t *testing.T) {
	rec := testRecord("Test Game")
	rec.UpdateVersion = "1.02"
	p := New("/out")
	plan, ok := p.Plan(rec, "/in/a.pkg")
	if !ok {
		t.Fatal("expected a plan")
	}
	if filepath.Base(plan.Dest) != "Test Game (1.02) [ABCD12345].pkg" {
		t.Fatalf("unexpected name: %s", filepath.Base(plan.Dest))
	}
}

func TestPlanCollisionSuffixes(t *testing.T) {
	p := New("/out")
	first, ok := p.Plan(testRecord("Same Name"), "/in/a.pkg")
	if !ok {
		t.Fatal("expected first plan")
	}
	second, ok := p.Plan(testRecord("Same Name"), "/in/b.pkg")
	if !ok {
		t.Fatal("expected second plan")
	}
	third, ok := p.Plan(testRecord("Same Name"), "/in/c.pkg")
	if !ok {
		t.Fatal("expected third plan")
	}

	if filepath.Base(first.Dest) != "Same Name [ABCD12345].pkg" {
		t.Fatalf("unexpected first dest: %s", first.Dest)
	}
	if filepath.Base(second.Dest) != "Same Name [ABCD12345] (1).pkg" {
		t.Fatalf("unexpected second dest: %s", second.Dest)
	}
	if filepath.Base(third.Dest) != "Same Name [ABCD12345] (2).pkg" {
		t.Fatalf("unexpected third dest: %s", third.Dest)
	}
	if second.DedupIndex != 1 || third.DedupIndex != 2 {
		t.Fatalf("unexpected dedup indexes: %d %d", second.DedupIndex, third.DedupIndex)
	}
}

func TestPlanCollisionCaseInsensitive(t *testing.T) {
	p := New("/out")
	lower := testRecord("same name")
	upper := testRecord("SAME NAME")
	if _, ok := p.Plan(lower, "/in/a.pkg"); !ok {
		t.Fatal("expected first plan")
	}
	second, ok := p.Plan(upper, "/in/b.pkg")
	if !ok {
		t.Fatal("expected second plan")
	}
	if second.DedupIndex != 1 {
		t.Fatalf("expected case-insensitive collision, got %+v", second)
	}
}

func TestPlanSkipsNoOp(t *testing.T) {
	src := filepath.Join("/out", "PS3", "game", "Test Game [ABCD12345].pkg")
	p := New("/out")
	if _, ok := p.Plan(testRecord("Test Game"), src); ok {
		t.Fatal("expected no-op plan to be dropped")
	}
}
