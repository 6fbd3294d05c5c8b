package ml

import (
	"fmt"
	"math"
	"sort"
)

// Metrics summarises binary predictions against true labels at a 0.5 threshold.
type Metrics struct {
	Samples       int     `json:"samples"`
	Accuracy      float64 `json:"accuracy"`
	Precision     float64 `json:"precision"`
	Recall        float64 `json:"recall"`
	F1            float64 `json:"f1"`
	LogLoss       float64 `json:"log_loss"`
	TruePositive  int     `json:"true_positive"`
	FalsePositive int     `json:"false_positive"`
	TrueNegative  int     `json:"true_negative"`
	FalseNegative int     `json:"false_negative"`
}

func Evaluate(labels []int, probs []float64) (Metrics, error) {
	if len(labels) != len(probs) {
		return Metrics{}, fmt.Errorf("got %d probabilities for %d labels", len(probs), len(labels))
	}
	if len(labels) == 0 {
		return Metrics{}, ErrEmptyDataset
	}

	const eps = 1e-15
	var m Metrics
	m.Samples = len(labels)
	for i, label := range labels {
		p := math.Min(math.Max(probs[i], eps), 1-eps)
		predicted := p >= 0.5
		switch {
		case label == 1 && predicted:
			m.TruePositive++
		case label == 1:
			m.FalseNegative++
		case predicted:
			m.FalsePositive++
		default:
			m.TrueNegative++
		}
		if label == 1 {
			m.LogLoss -= math.Log(p)
		} else {
			m.LogLoss -= math.Log(1 - p)
		}
	}
	m.LogLoss /= float64(m.Samples)
	m.Accuracy = float64(m.TruePositive+m.TrueNegative) / float64(m.Samples)
	if m.TruePositive+m.FalsePositive > 0 {
		m.Precision = float64(m.TruePositive) / float64(m.TruePositive+m.FalsePositive)
	}
	if m.TruePositive+m.FalseNegative > 0 {
		m.Recall = float64(m.TruePositive) / float64(m.TruePositive+m.FalseNegative)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m, nil
}

// GroupStats describes the rows sharing one value of a sensitive attribute.
type GroupStats struct {
	Group        string  `json:"group"`
	Rows         int     `json:"rows"`
	PositiveRate float64 `json:"positive_rate"`
}

// GroupRates returns per-group row counts and label positive rates, ordered by group.
func GroupRates(groups []string, labels []int) ([]GroupStats, error) {
	if len(groups) != len(labels) {
		return nil, fmt.Errorf("got %d group values for %d labels", len(groups), len(labels))
	}
	rows := make(map[string]int)
	positives := make(map[string]int)
	for i, group := range groups {
		rows[group]++
		positives[group] += labels[i]
	}
	stats := make([]GroupStats, 0, len(rows))
	for group, count := range rows {
		stats = append(stats, GroupStats{
			Group:        group,
			Rows:         count,
			PositiveRate: float64(positives[group]) / float64(count),
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Group < stats[j].Group })
	return stats, nil
}
