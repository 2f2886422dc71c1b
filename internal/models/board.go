package models

import "time"

type Board struct {
	ID        int64     `gorm:"primaryKey" json:"id" db:"id"`
	Name      string    `gorm:"not null" json:"name" db:"name"`
	IsPublic  bool      `gorm:"not null" json:"isPublic" db:"is_public"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

func (Board) TableName() string { return "boards" }

// Column is an ordered stage of a board. Position is dense and zero based per board.
type Column struct {
	ID       int64  `gorm:"primaryKey" json:"id" db:"id"`
	Name     string `gorm:"not null" json:"name" db:"name"`
	Position int    `gorm:"not null" json:"position" db:"position"`
	BoardID  int64  `gorm:"not null;index" json:"boardId" db:"board_id"`

	Board *Board `gorm:"constraint:OnDelete:CASCADE" json:"-" db:"-"`
}

func (Column) TableName() string { return "board_columns" }

func (c *Column) GetPosition() int  { return c.Position }
func (c *Column) SetPosition(p int) { c.Position = p }
