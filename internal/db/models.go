package db

import (
	"time"

	"gorm.io/datatypes"
)

type Session struct {
	ID          string         `gorm:"primaryKey;size:36"`
	Players     datatypes.JSON `gorm:"type:jsonb;not null"`
	PointsToWin int            `gorm:"not null"`
	MinPlayers  int            `gorm:"not null"`
	Status      string         `gorm:"size:32;not null"`
	RoundCount  int            `gorm:"not null;default:0"`
	Version     int64          `gorm:"not null"`
	CreatedAt   time.Time      `gorm:"not null"`
	UpdatedAt   time.Time      `gorm:"not null"`
	Drawings    []Drawing      `gorm:"constraint:OnDelete:CASCADE"`
	Events      []Event        `gorm:"constraint:OnDelete:CASCADE"`
}

type Drawing struct {
	ID             string    `gorm:"primaryKey;size:36"`
	SessionID      string    `gorm:"size:36;index;not null;uniqueIndex:idx_drawings_session_round"`
	RoundNumber    int       `gorm:"not null;uniqueIndex:idx_drawings_session_round"`
	Author         string    `gorm:"size:36;not null"`
	ImageKey       string    `gorm:"size:128;not null"`
	WinningCaption string    `gorm:"size:36"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
	Captions       []Caption `gorm:"constraint:OnDelete:CASCADE"`
}

type Caption struct {
	ID        string    `gorm:"primaryKey;size:36"`
	DrawingID string    `gorm:"size:36;index;not null;uniqueIndex:idx_captions_drawing_author"`
	Author    string    `gorm:"size:36;not null;uniqueIndex:idx_captions_drawing_author"`
	Text      string    `gorm:"size:280;not null"`
	Won       bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type Event struct {
	ID        uint           `gorm:"primaryKey"`
	SessionID string         `gorm:"size:36;index;not null"`
	Type      string         `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}
