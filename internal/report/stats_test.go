package report

import (
	"testing"
	"time"

	"github.com/dom/learnplay/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func game(name string, score float64, data string, at time.Time) *domain.PlayedGame {
	g := &domain.PlayedGame{
		ID:         uuid.New(),
		GameName:   name,
		World:      domain.DefaultWorld,
		Score:      score,
		TimePlayed: 60,
		Timestamp:  at,
	}
	if data != "" {
		g.GameData = datatypes.JSON(data)
	}
	return g
}

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t, domain.ReportSummary{}, Summarize(nil))
}

func TestSummarize(t *testing.T) {
	day := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	records := []*domain.PlayedGame{
		game("Spelling Bee", 60, `{"accuracy":0.5}`, day),
		game("Word Builder", 90, `{"accuracy":0.8,"level":2}`, day.AddDate(0, 0, 1)),
		game("Word Builder", 75, ``, day.AddDate(0, 0, 2)),
		game("Spelling Bee", 90, `{"accuracy":0.9}`, day.AddDate(0, 0, 3)),
	}

	s := Summarize(records)
	assert.Equal(t, 4, s.TotalGamesPlayed)
	assert.Equal(t, 78.75, s.AverageScore)
	// the play without accuracy counts as 0
	assert.Equal(t, 0.55, s.AverageAccuracy)

	// tie on 90 goes to the most recent play
	assert.Equal(t, domain.HighestScore{Value: 90, Game: "Spelling Bee", Date: "2025-01-04", Accuracy: 0.9}, s.HighestScore)

	// two plays each; lexicographic tie-break
	assert.Equal(t, "Spelling Bee", s.MostPlayedGame)
}

func TestSummarize_MissingAccuracyCountsAsZero(t *testing.T) {
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []*domain.PlayedGame{
		game("Tracing", 10, `{"accuracy":1}`, day),
		game("Tracing", 20, `{}`, day.Add(time.Hour)),
	}

	assert.Equal(t, 0.5, Summarize(records).AverageAccuracy)
}

func TestSummarize_IgnoresNonNumericAccuracy(t *testing.T) {
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []*domain.PlayedGame{
		game("Tracing", 10, `{"accuracy":"high"}`, day),
		game("Tracing", 20, `not-json`, day.Add(time.Hour)),
	}

	s := Summarize(records)
	assert.Equal(t, 15.0, s.AverageScore)
	assert.Equal(t, 0.0, s.AverageAccuracy)
	assert.Equal(t, "Tracing", s.MostPlayedGame)
}

func TestDataset(t *testing.T) {
	day := time.Date(2025, 3, 7, 8, 0, 0, 0, time.UTC)
	points := Dataset([]*domain.PlayedGame{
		game("Tracing", 40, `{"accuracy":0.56781}`, day),
		game("Tracing", 55, ``, day.AddDate(0, 0, 1)),
	})

	require.Len(t, points, 2)
	assert.Equal(t, "07/03/2025", points[0].Date)
	require.NotNil(t, points[0].Accuracy)
	assert.Equal(t, 56.78, *points[0].Accuracy)
	assert.Equal(t, "08/03/2025", points[1].Date)
	assert.Nil(t, points[1].Accuracy)
}

func TestBuildPrompt(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	parts, err := BuildPrompt([]*domain.PlayedGame{
		game("Tracing", 40, `{"accuracy":0.5}`, at),
	})
	require.NoError(t, err)
	require.Len(t, parts, 2)

	assert.Equal(t, Instruction, parts[0])
	assert.Contains(t, parts[0], "YYYY-MM-DD")
	assert.Contains(t, parts[1], `"gameName": "Tracing"`)
	assert.Contains(t, parts[1], `"timestamp": "2025-01-02T03:04:05Z"`)
	assert.Contains(t, parts[1], `"accuracy": 0.5`)
}
