package docsystem

import "time"

// Role is the level of access a user holds on a document and its descendants.
type Role string

const (
	RoleReader Role = "reader"
	RoleEditor Role = "editor"
	RoleOwner  Role = "owner"
)

// Access grants a user a role on a document subtree.
type Access struct {
	DocumentID string    `json:"document_id" db:"document_id"`
	UserID     string    `json:"user_id" db:"user_id"`
	Role       Role      `json:"role" db:"role"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

var roleRank = map[Role]int{RoleReader: 1, RoleEditor: 2, RoleOwner: 3}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r grants everything min grants.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min] && r.Valid()
}

// Strongest returns the highest of the given roles, or "" for none.
func Strongest(roles ...Role) Role {
	var best Role
	for _, r := range roles {
		if roleRank[r] > roleRank[best] {
			best = r
		}
	}
	return best
}
