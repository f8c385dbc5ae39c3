package report

import (
	"math"

	"github.com/dom/learnplay/internal/domain"
)

const dateLayout = "2006-01-02"

// Summarize computes the report statistics from the records themselves.
//
// Averages are arithmetic means over every record; a record without a numeric
// accuracy counts as 0. The highest score breaks ties by the most recent
// timestamp and the most played game breaks ties lexicographically.
func Summarize(records []*domain.PlayedGame) domain.ReportSummary {
	var summary domain.ReportSummary
	if len(records) == 0 {
		return summary
	}

	var (
		scoreSum, accuracySum float64
		best                  *domain.PlayedGame
		counts                = make(map[string]int)
	)

	for _, r := range records {
		scoreSum += r.Score
		if acc, ok := r.Accuracy(); ok {
			accuracySum += acc
		}
		if best == nil || r.Score > best.Score || (r.Score == best.Score && r.Timestamp.After(best.Timestamp)) {
			best = r
		}
		counts[r.GameName]++
	}

	summary.TotalGamesPlayed = len(records)
	summary.AverageScore = round2(scoreSum / float64(len(records)))
	summary.AverageAccuracy = round2(accuracySum / float64(len(records)))

	bestAccuracy, _ := best.Accuracy()
	summary.HighestScore = domain.HighestScore{
		Value:    best.Score,
		Game:     best.GameName,
		Date:     best.Timestamp.UTC().Format(dateLayout),
		Accuracy: bestAccuracy,
	}

	maxCount := 0
	for name, n := range counts {
		if n > maxCount || (n == maxCount && name < summary.MostPlayedGame) {
			maxCount = n
			summary.MostPlayedGame = name
		}
	}

	return summary
}

// DataPoint is one chart sample of the progress dataset.
type DataPoint struct {
	Date       string   `json:"date"`
	Score      float64  `json:"score"`
	Accuracy   *float64 `json:"accuracy"`
	TimePlayed float64  `json:"timePlayed"`
}

// Dataset converts records into chart points: dates as DD/MM/YYYY and
// accuracy as a percentage rounded to two decimals (nil when not reported).
func Dataset(records []*domain.PlayedGame) []DataPoint {
	out := make([]DataPoint, 0, len(records))
	for _, r := range records {
		point := DataPoint{
			Date:       r.Timestamp.UTC().Format("02/01/2006"),
			Score:      r.Score,
			TimePlayed: r.TimePlayed,
		}
		if acc, ok := r.Accuracy(); ok && acc != 0 {
			pct := round2(acc * 100)
			point.Accuracy = &pct
		}
		out = append(out, point)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

