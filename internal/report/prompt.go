package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dom/learnplay/internal/domain"
)

// Instruction is sent ahead of the serialized play history.
const Instruction = `You are an educational game performance analyst.
Analyze the following JSON game data and return a structured JSON report with this exact format:

{
  "summary": {
    "totalGamesPlayed": number,
    "averageScore": number,
    "averageAccuracy": number,
    "highestScore": {
      "value": number,
      "game": string,
      "date": string,
      "accuracy": number
    },
    "mostPlayedGame": string
  },
  "trend": string
}

Rules:
- Always respond with valid JSON only.
- Do NOT include markdown code fences.
- "date" must be in YYYY-MM-DD format.
- Use "accuracy" from gameData, ignore other gameData fields since they may vary.
`

type promptRecord struct {
	GameName   string          `json:"gameName"`
	World      string          `json:"world"`
	Score      float64         `json:"score"`
	TimePlayed float64         `json:"timePlayed"`
	GameData   json.RawMessage `json:"gameData,omitempty"`
	Timestamp  string          `json:"timestamp"`
}

// BuildPrompt returns the prompt parts: the fixed instruction followed by the
// records as indented JSON, in the order given.
func BuildPrompt(records []*domain.PlayedGame) ([]string, error) {
	out := make([]promptRecord, 0, len(records))
	for _, r := range records {
		rec := promptRecord{
			GameName:   r.GameName,
			World:      r.World,
			Score:      r.Score,
			TimePlayed: r.TimePlayed,
			Timestamp:  r.Timestamp.UTC().Format(time.RFC3339),
		}
		if len(r.GameData) > 0 {
			rec.GameData = json.RawMessage(r.GameData)
		}
		out = append(out, rec)
	}

	history, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize play history: %w", err)
	}
	return []string{Instruction, string(history)}, nil
}
