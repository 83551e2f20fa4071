package models

import (
	"gorm.io/gorm"
)

// USCity backs the city autocomplete and distance endpoints
type USCity struct {
	gorm.Model
	City       string  `json:"city" gorm:"index;not null;uniqueIndex:idx_city_state"`
	State      string  `json:"state" gorm:"index;not null;uniqueIndex:idx_city_state"`
	StateName  string  `json:"stateName"`
	Latitude   float64 `json:"lat" gorm:"not null"`
	Longitude  float64 `json:"lng" gorm:"not null"`
	Population uint    `json:"population" gorm:"not null;default:0"`
}

// TableName specifies the table name
func (USCity) TableName() string {
	return "us_cities"
}
