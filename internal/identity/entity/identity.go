package entity

import "time"

// Identity represents a row in the `identities` table without its password
// hash, which stays inside the repo and service of this package.
type Identity struct {
	ID         int64     `db:"id" json:"id"`
	Login      string    `db:"login" json:"login"`
	FirstName  string    `db:"first_name" json:"firstName"`
	LastName   string    `db:"last_name" json:"lastName"`
	MiddleName *string   `db:"middle_name" json:"middleName,omitempty"`
	ManagerID  *int64    `db:"manager_id" json:"managerId,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// IsManager reports whether the identity is the root of a hierarchy.
func (i *Identity) IsManager() bool { return i.ManagerID == nil }

// MiddleNameOrEmpty returns the middle name or "".
func (i *Identity) MiddleNameOrEmpty() string {
	if i.MiddleName == nil {
		return ""
	}
	return *i.MiddleName
}

// NewIdentity carries the fields supplied at creation time.
type NewIdentity struct {
	Login      string
	FirstName  string
	LastName   string
	MiddleName *string
	ManagerID  *int64
}

// Profile is the public directory projection of an identity.
type Profile struct {
	ID         int64   `json:"id"`
	FirstName  string  `json:"firstName"`
	LastName   string  `json:"lastName"`
	MiddleName *string `json:"middleName"`
	Login      string  `json:"login,omitempty"`
}

// ProfileOf projects i; login is included only when withLogin is set.
func ProfileOf(i *Identity, withLogin bool) Profile {
	p := Profile{ID: i.ID, FirstName: i.FirstName, LastName: i.LastName, MiddleName: i.MiddleName}
	if withLogin {
		p.Login = i.Login
	}
	return p
}
