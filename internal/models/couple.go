// internal/models/couple.go
package models

import "time"

// Couple mirrors the external couple/ceremony record. The engine only reads
// it: identifiers, ceremony schedule and contact details. It never mutates
// this record.
type Couple struct {
	ID           string     `json:"id"`
	CelebrantID  string     `json:"celebrantId"`
	CeremonyDate *time.Time `json:"ceremonyDate,omitempty"` // may be unset while planning
	CeremonyType string     `json:"ceremonyType"`           // "civil", "religious", ...
	Email        string     `json:"email"`
	Phone        string     `json:"phone,omitempty"`
}
