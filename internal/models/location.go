package models

import "time"

// Position is a device location fix.
type Position struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   float64   `json:"accuracy,omitempty"` // meters
	CapturedAt time.Time `json:"capturedAt"`
}

// NearbyShow is a candidate show returned by the discovery backend.
type NearbyShow struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	VenueName      string    `json:"venueName"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	DistanceMeters float64   `json:"distanceMeters"`
	StartTime      time.Time `json:"startTime"`
	IsActive       bool      `json:"isActive"`
	Participants   int       `json:"participants"`
}
