package models

// WorkflowTemplate is a reusable directed acyclic graph of task templates.
// Names are globally unique. The graph itself lives in the owned set of
// WorkflowTemplateDefinition edges.
type WorkflowTemplate struct {
	ID          int64  `json:"workflow_template_id" db:"workflow_template_id"`
	Name        string `json:"template_name" db:"template_name"`
	Description string `json:"description" db:"description"`

	Definitions []WorkflowTemplateDefinition `json:"definitions,omitempty" db:"-"`
}

// WorkflowTemplateDefinition is one dependency edge within a workflow
// template's graph: TaskTemplateID depends on DependsOnTaskTemplateID.
// A nil DependsOnTaskTemplateID marks an entry node with no prerequisite.
type WorkflowTemplateDefinition struct {
	ID                      int64  `json:"definition_id" db:"definition_id"`
	WorkflowTemplateID      int64  `json:"workflow_template_id" db:"workflow_template_id"`
	TaskTemplateID          int64  `json:"task_template_id" db:"task_template_id"`
	DependsOnTaskTemplateID *int64 `json:"depends_on_task_template_id,omitempty" db:"depends_on_task_template_id"`
}

// GraphNode is the display projection of a task template referenced by a
// workflow template's edge set, as either endpoint.
type GraphNode struct {
	TaskTemplateID int64  `json:"task_template_id" db:"task_template_id"`
	Name           string `json:"template_name" db:"template_name"`
	Category       string `json:"category" db:"category"`
}
