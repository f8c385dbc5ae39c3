package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultActiveTimeMinutes is the budget given to a session when none is configured.
const DefaultActiveTimeMinutes = 10

// Session is one time-budgeted login episode.
//
// UsedActiveTime only grows while IsActive is true. Once IsActive is false the
// session is terminal and is never reactivated. Version is bumped on every write
// and is what stores compare against for conditional updates.
type Session struct {
	ID                uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID            uuid.UUID  `json:"userId" gorm:"type:uuid;not null;index"`
	LoginTime         time.Time  `json:"loginTime" gorm:"not null"`
	ActiveTimeMinutes int        `json:"activeTimeMinutes" gorm:"not null;default:10"`
	UsedActiveTime    float64    `json:"usedActiveTime" gorm:"not null;default:0"` // seconds
	LastActivity      time.Time  `json:"lastActivity" gorm:"not null"`
	IsActive          bool       `json:"isActive" gorm:"not null;default:true;index"`
	EndedAt           *time.Time `json:"endedAt,omitempty"`
	Version           int64      `json:"version" gorm:"not null;default:0"`
}

// BudgetSeconds returns the configured budget in seconds.
func (s *Session) BudgetSeconds() float64 {
	return float64(s.ActiveTimeMinutes) * 60
}

// RemainingSeconds returns the unused part of the budget as of the last write.
func (s *Session) RemainingSeconds() float64 {
	remaining := s.BudgetSeconds() - s.UsedActiveTime
	if remaining < 0 || !s.IsActive {
		return 0
	}
	return remaining
}
