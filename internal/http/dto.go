package http

import "encoding/json"

// OptInt64 distinguishes an omitted JSON field from an explicit null, which
// matters for depends_on_task_template_id: omitted keeps the current value,
// null clears the dependency.
type OptInt64 struct {
	Present bool
	Value   *int64
}

func (o *OptInt64) UnmarshalJSON(b []byte) error {
	o.Present = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var v int64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

type createTemplateRequest struct {
	TemplateName string `json:"template_name" binding:"required"`
	Description  string `json:"description"`
}

type updateTemplateRequest struct {
	TemplateName *string `json:"template_name"`
	Description  *string `json:"description"`
}

type addDefinitionRequest struct {
	TaskTemplateID          int64  `json:"task_template_id" binding:"required"`
	DependsOnTaskTemplateID *int64 `json:"depends_on_task_template_id"`
}

type updateDefinitionRequest struct {
	TaskTemplateID          *int64   `json:"task_template_id"`
	DependsOnTaskTemplateID OptInt64 `json:"depends_on_task_template_id"`
}

type createTaskTemplateRequest struct {
	TemplateName             string `json:"template_name" binding:"required"`
	TaskType                 string `json:"task_type"`
	Category                 string `json:"category"`
	Description              string `json:"description"`
	RequiredResponsibilityID *int64 `json:"required_responsibility_id"`
}

type updateTaskTemplateRequest struct {
	TemplateName             *string  `json:"template_name"`
	TaskType                 *string  `json:"task_type"`
	Category                 *string  `json:"category"`
	Description              *string  `json:"description"`
	RequiredResponsibilityID OptInt64 `json:"required_responsibility_id"`
}
