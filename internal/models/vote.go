package models

import (
	"time"
)

// One vote per (poll, user) is a DB unique index, not an application check,
// so concurrent inserts for the same pair resolve to exactly one winner.
type Vote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PollID    uint      `gorm:"not null;uniqueIndex:idx_votes_poll_user" json:"poll_id"`
	AnswerID  uint      `gorm:"not null;index" json:"answer_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_votes_poll_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	Poll   Poll   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Answer Answer `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}
