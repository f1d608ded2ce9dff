package assessment

import (
	"math"
	"sort"

	"github.com/readmaster/read-master/internal/domain"
)

// Trend describes how scores are moving.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// TrendThreshold is the difference in average points that counts as a move.
const TrendThreshold = 5.0

func chronological(results []*domain.AssessmentResult) []*domain.AssessmentResult {
	sorted := make([]*domain.AssessmentResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			sorted = append(sorted, r)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CompletedAt.Before(sorted[j].CompletedAt)
	})
	return sorted
}

// CalculateTrend compares the average score of the older half of results
// with the recent half. Fewer than two results are stable.
func CalculateTrend(results []*domain.AssessmentResult) Trend {
	sorted := chronological(results)
	if len(sorted) < 2 {
		return TrendStable
	}

	mid := len(sorted) / 2
	diff := average(sorted[mid:]) - average(sorted[:mid])
	switch {
	case diff >= TrendThreshold:
		return TrendImproving
	case diff <= -TrendThreshold:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func average(rs []*domain.AssessmentResult) float64 {
	if len(rs) == 0 {
		return 0
	}
	var sum float64
	for _, r := range rs {
		sum += r.Score
	}
	return sum / float64(len(rs))
}

// Summary aggregates a reader's results for a book.
type Summary struct {
	Count        int     `json:"count"`
	AverageScore float64 `json:"averageScore"`
	BestScore    float64 `json:"bestScore"`
	LatestScore  float64 `json:"latestScore"`
	Trend        Trend   `json:"trend"`
}

// Summarize computes a Summary. Averages are rounded to one decimal.
func Summarize(results []*domain.AssessmentResult) Summary {
	sorted := chronological(results)
	s := Summary{Count: len(sorted), Trend: CalculateTrend(sorted)}
	if len(sorted) == 0 {
		return s
	}
	s.AverageScore = math.Round(average(sorted)*10) / 10
	s.LatestScore = sorted[len(sorted)-1].Score
	for _, r := range sorted {
		if r.Score > s.BestScore {
			s.BestScore = r.Score
		}
	}
	return s
}
