package models

import "time"

// Bar is one historical row returned by the external connection. Change,
// when present, is normalized to a fraction to match the quote tables.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
	Change *float64  `json:"change,omitempty"`
}
