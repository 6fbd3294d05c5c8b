package dataset

import (
	"fmt"
	"strings"
)

// CleaningRule inspects one raw row and reports why it must be rejected.
type CleaningRule interface {
	Apply(row []string) error
	Name() string
}

// CleaningStats counts the outcome of a Clean pass.
type CleaningStats struct {
	TotalProcessed int64            `json:"total_processed"`
	Passed         int64            `json:"passed"`
	Rejected       int64            `json:"rejected"`
	Issues         map[string]int64 `json:"issues"`
}

// Cleaner drops rows rejected by any of its rules.
type Cleaner struct {
	rules []CleaningRule
	stats CleaningStats
}

func NewCleaner(rules ...CleaningRule) *Cleaner {
	return &Cleaner{
		rules: rules,
		stats: CleaningStats{Issues: make(map[string]int64)},
	}
}

// Clean returns the rows that pass every rule. Input rows are not modified.
func (c *Cleaner) Clean(rows [][]string) [][]string {
	cleaned := make([][]string, 0, len(rows))
	for _, row := range rows {
		c.stats.TotalProcessed++
		rejected := false
		for _, rule := range c.rules {
			if err := rule.Apply(row); err != nil {
				c.stats.Issues[rule.Name()]++
				rejected = true
				break
			}
		}
		if rejected {
			c.stats.Rejected++
			continue
		}
		c.stats.Passed++
		cleaned = append(cleaned, row)
	}
	return cleaned
}

func (c *Cleaner) Stats() CleaningStats {
	stats := c.stats
	stats.Issues = make(map[string]int64, len(c.stats.Issues))
	for name, count := range c.stats.Issues {
		stats.Issues[name] = count
	}
	return stats
}

// DefaultMissingValues are the NA spellings always treated as missing, in
// addition to the configured markers.
var DefaultMissingValues = []string{
	"#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

// MissingValueRule rejects rows holding an empty cell, a default NA spelling
// or one of the configured markers. Markers are compared after trimming
// surrounding whitespace.
type MissingValueRule struct {
	columns []string
	markers map[string]struct{}
}

func NewMissingValueRule(columns []string, markers []string) *MissingValueRule {
	set := make(map[string]struct{}, len(DefaultMissingValues)+len(markers))
	for _, marker := range DefaultMissingValues {
		set[marker] = struct{}{}
	}
	for _, marker := range markers {
		set[strings.TrimSpace(marker)] = struct{}{}
	}
	return &MissingValueRule{columns: columns, markers: set}
}

func (r *MissingValueRule) Name() string {
	return "missing_value"
}

func (r *MissingValueRule) Apply(row []string) error {
	for i, cell := range row {
		if !r.IsMissing(cell) {
			continue
		}
		name := fmt.Sprintf("#%d", i)
		if i < len(r.columns) {
			name = r.columns[i]
		}
		return fmt.Errorf("missing value in column %s", name)
	}
	return nil
}

func (r *MissingValueRule) IsMissing(cell string) bool {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return true
	}
	_, ok := r.markers[cell]
	return ok
}
