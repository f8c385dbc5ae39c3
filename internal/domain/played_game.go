package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DefaultWorld labels results submitted without a world/category.
const DefaultWorld = "general"

// PlayedGame is one completed play. It is written once and never updated.
type PlayedGame struct {
	ID         uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID     uuid.UUID      `json:"userId" gorm:"type:uuid;not null;index"`
	GameName   string         `json:"gameName" gorm:"not null"`
	World      string         `json:"world" gorm:"not null"`
	Score      float64        `json:"score" gorm:"not null"`
	TimePlayed float64        `json:"timePlayed" gorm:"not null"` // seconds
	GameData   datatypes.JSON `json:"gameData" gorm:"type:jsonb"`
	Timestamp  time.Time      `json:"timestamp" gorm:"not null;index"`
}

// Accuracy returns gameData.accuracy when present and numeric.
func (g *PlayedGame) Accuracy() (float64, bool) {
	if len(g.GameData) == 0 {
		return 0, false
	}
	var data struct {
		Accuracy *float64 `json:"accuracy"`
	}
	if err := json.Unmarshal(g.GameData, &data); err != nil || data.Accuracy == nil {
		return 0, false
	}
	return *data.Accuracy, true
}
