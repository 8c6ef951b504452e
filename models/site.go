package models

import "time"

type Site struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"column:name;uniqueIndex" json:"name"`
	Latitude    *float64  `gorm:"column:latitude" json:"latitude"`
	Longitude   *float64  `gorm:"column:longitude" json:"longitude"`
	Description string    `gorm:"column:description" json:"description"`
	Active      bool      `gorm:"column:active;default:true" json:"active"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Site) TableName() string { return "sites" }
