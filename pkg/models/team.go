package models

// Team groups users and scopes which templates they may see and mutate.
type Team struct {
	ID   int64  `json:"team_id" db:"team_id"`
	Name string `json:"team_name" db:"team_name"`
}
