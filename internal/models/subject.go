package models

import "time"

// Subject is the entity being risk-scored. The external identifier (passport
// string) is stored encrypted; lookups go through its SHA-256 hash.
type Subject struct {
	SubjectBucket     int        `db:"subject_bucket" json:"-"`
	SubjectID         string     `db:"subject_id" json:"subject_id"`
	ExternalHash      string     `db:"external_hash" json:"-"`
	ExternalEncrypted string     `db:"external_encrypted" json:"-"`
	ExternalDEK       string     `db:"external_dek" json:"-"`
	ExternalKeyID     string     `db:"external_key_id" json:"-"`
	FullName          string     `db:"full_name" json:"full_name"`
	Email             string     `db:"email" json:"email,omitempty"`
	RefScore          int        `db:"ref_score" json:"ref_score"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
