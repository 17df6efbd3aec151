// Package storage provides database access for the outlet directory.
package storage

import "time"

// Outlet represents a single store location.
type Outlet struct {
	ID              int64      `json:"outlet_id" db:"outlet_id"`
	Name            string     `json:"outlet_name" db:"outlet_name"`
	Address         string     `json:"address" db:"address"`
	City            string     `json:"city" db:"city"`
	State           string     `json:"state" db:"state"`
	Postcode        string     `json:"postcode" db:"postcode"`
	Latitude        *float64   `json:"latitude,omitempty" db:"latitude"`
	Longitude       *float64   `json:"longitude,omitempty" db:"longitude"`
	Phone           *string    `json:"phone,omitempty" db:"phone"`
	OperatingHours  *string    `json:"operating_hours,omitempty" db:"operating_hours"`
	HasDriveThru    bool       `json:"has_drive_thru" db:"has_drive_thru"`
	HasWifi         bool       `json:"has_wifi" db:"has_wifi"`
	SeatingCapacity *int       `json:"seating_capacity,omitempty" db:"seating_capacity"`
	OpeningDate     *time.Time `json:"opening_date,omitempty" db:"opening_date"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}
