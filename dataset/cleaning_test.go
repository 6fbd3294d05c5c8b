package dataset

import "testing"

func TestCleanerRejectsMissingAndEmpty(t *testing.T) {
	cleaner := NewCleaner(NewMissingValueRule(sampleColumns, []string{"?"}))
	rows := [][]string{
		{"39", "State-gov", "40", "<=50K"},
		{"38", "?", "40", "<=50K"},
		{"", "Private", "40", ">50K"},
		{"41", "Private", "40", ">50K"},
	}
	cleaned := cleaner.Clean(rows)
	if len(cleaned) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(cleaned))
	}

	stats := cleaner.Stats()
	if stats.TotalProcessed != 4 || stats.Passed != 2 || stats.Rejected != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.Issues["missing_value"] != 2 {
		t.Fatalf("expected 2 missing_value issues, got %d", stats.Issues["missing_value"])
	}
}

func TestCleanerWithoutRulesKeepsEverything(t *testing.T) {
	cleaner := NewCleaner()
	cleaned := cleaner.Clean([][]string{{"?"}, {""}})
	if len(cleaned) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(cleaned))
	}
}

func TestMissingValueRuleDefaultSpellings(t *testing.T) {
	rule := NewMissingValueRule(sampleColumns, []string{"?"})
	for _, cell := range []string{"NA", " NaN", "nan", "N/A", "null", "NULL", "None", "#N/A", "<NA>", "-nan", "1.#IND"} {
		if !rule.IsMissing(cell) {
			t.Fatalf("expected %q to be missing", cell)
		}
	}
	for _, cell := range []string{"Private", "0", "Inf", "Nan-worked"} {
		if rule.IsMissing(cell) {
			t.Fatalf("expected %q to be kept", cell)
		}
	}
}
