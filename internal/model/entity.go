package model

import "time"

// OperatorSession: локально сохранённая сессия оператора (GORM).
type OperatorSession struct {
	ID        string    `gorm:"size:36;primaryKey"`
	Token     string    `gorm:"not null"`
	EventID   int64     `gorm:"column:event_id;not null;default:0"`
	EventName string    `gorm:"column:event_name;size:255"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (OperatorSession) TableName() string { return "operator_sessions" }
