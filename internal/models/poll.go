package models

import (
	"time"
)

// Answer count bounds, enforced before any persistence write.
const (
	MinAnswers = 2
	MaxAnswers = 10
)

type Poll struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Question  string    `gorm:"not null" json:"question"`
	CreatedAt time.Time `json:"created_at"`

	// Created atomically with the poll and immutable afterwards.
	Answers []Answer `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"answers,omitempty"`
}

type Answer struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	PollID uint   `gorm:"not null;index" json:"poll_id"`
	Text   string `gorm:"not null" json:"text"`
}
