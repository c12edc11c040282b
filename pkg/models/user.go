package models

import "time"

// PositionTeamLead is the position that grants template administration rights.
const PositionTeamLead = "TEAM_LEAD"

// User represents an authenticated caller. Authentication mechanics live
// upstream; the backend only consumes a verified user id and resolves the
// team, position and responsibilities from the store.
type User struct {
	ID             int64     `json:"user_id" db:"user_id"`
	Name           string    `json:"user_name" db:"user_name"`
	Email          string    `json:"email" db:"email"`
	HashedPassword string    `json:"-" db:"hashed_password"`
	Position       string    `json:"position" db:"position"`
	TeamID         *int64    `json:"team_id,omitempty" db:"team_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`

	Responsibilities []Responsibility `json:"responsibilities,omitempty" db:"-"`
}

// IsTeamLead reports whether the user holds the team lead position.
func (u User) IsTeamLead() bool {
	return u.Position == PositionTeamLead
}

// HasResponsibility reports whether the user holds the named responsibility.
func (u User) HasResponsibility(name string) bool {
	for _, r := range u.Responsibilities {
		if r.Name == name {
			return true
		}
	}
	return false
}
