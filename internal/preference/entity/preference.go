package entity

import "time"

// Record is the per-identity onboarding choices row in the `preferences` table.
type Record struct {
	ID             string    `db:"id" json:"id"`
	IdentityID     int64     `db:"identity_id" json:"identity_id"`
	StudyField     string    `db:"study_field" json:"study_field"`
	DegreeType     string    `db:"degree_type" json:"degree_type"`
	CareerInterest string    `db:"career_interest" json:"career_interest"`
	Version        int64     `db:"version" json:"version"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Choices is the full set of answers given at setup.
type Choices struct {
	StudyField     string `json:"study_field" validate:"required"`
	DegreeType     string `json:"degree_type" validate:"required"`
	CareerInterest string `json:"career_interest" validate:"required"`
}

// Patch changes only the non-nil fields. Version, when set, must match the
// stored record.
type Patch struct {
	StudyField     *string `json:"study_field"`
	DegreeType     *string `json:"degree_type"`
	CareerInterest *string `json:"career_interest"`
	Version        *int64  `json:"version"`
}

func (p Patch) Empty() bool {
	return p.StudyField == nil && p.DegreeType == nil && p.CareerInterest == nil
}

// Apply returns r with p's fields applied.
func (p Patch) Apply(r Record) Record {
	if p.StudyField != nil {
		r.StudyField = *p.StudyField
	}
	if p.DegreeType != nil {
		r.DegreeType = *p.DegreeType
	}
	if p.CareerInterest != nil {
		r.CareerInterest = *p.CareerInterest
	}
	return r
}
