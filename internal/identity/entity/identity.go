package entity

import "time"

// Identity represents an account row in the `identities` table.
// Email is the login identifier; both Email and NationalID are unique.
type Identity struct {
	ID            int64      `db:"id" json:"id"`
	Email         string     `db:"email" json:"email"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	PasswordAlgo  string     `db:"password_algo" json:"-"`
	Nom           string     `db:"nom" json:"nom"`
	Prenom        string     `db:"prenom" json:"prenom"`
	NationalID    string     `db:"national_id" json:"national_id"`
	IDDocumentKey *string    `db:"id_document_key" json:"id_document_key,omitempty"`
	IsActive      bool       `db:"is_active" json:"is_active"`
	IsStaff       bool       `db:"is_staff" json:"is_staff"`
	IsSuperuser   bool       `db:"is_superuser" json:"is_superuser"`
	Version       int64      `db:"version" json:"-"`
	LastLoginAt   *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// DisplayName mirrors how the account is shown to staff: "Prenom Nom (email)".
func (i Identity) DisplayName() string {
	return i.Prenom + " " + i.Nom + " (" + i.Email + ")"
}

// Document is an identity-card image supplied at registration.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}
