package models

// TaskTemplate is a reusable definition of a unit of work. A template may be
// shared by multiple teams through task_template_team_mappings and therefore
// appear as a candidate node in several workflow-template graphs at once.
type TaskTemplate struct {
	ID                       int64  `json:"task_template_id" db:"task_template_id"`
	Name                     string `json:"template_name" db:"template_name"`
	Type                     string `json:"task_type" db:"task_type"`
	Category                 string `json:"category" db:"category"`
	Description              string `json:"description" db:"description"`
	RequiredResponsibilityID *int64 `json:"required_responsibility_id,omitempty" db:"required_responsibility_id"`
}
