package models

// ExpertResponsibility is the designated responsibility whose holders may
// administer templates alongside team leads.
const ExpertResponsibility = "DT_Expert"

// Responsibility is a named role/skill assignable to users within one team.
// Names are unique per team, not globally.
type Responsibility struct {
	ID     int64  `json:"responsibility_id" db:"responsibility_id"`
	Name   string `json:"responsibility_name" db:"responsibility_name"`
	TeamID int64  `json:"team_id" db:"team_id"`
}
