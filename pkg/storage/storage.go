package storage

import (
	"github.com/pkg/errors"

	"github.com/dozin22/teamflow/pkg/models"
)

// ErrNotFound is returned when a requested row does not exist or is not
// visible under the requested team scoping.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a uniqueness constraint,
// e.g. a duplicate dependency edge or a duplicate template name.
var ErrConflict = errors.New("conflict")

// Store defines the persistence operations for teamflow.
//
// Begin returns a transaction-scoped Store; every mutation path runs
// read-validate-write inside one such transaction and finishes with Commit or
// Rollback. LockWorkflowTemplate serializes writers of one template's edge set
// for the lifetime of the transaction.
type Store interface {
	Begin() (Store, error)
	Commit() error
	Rollback() error
	Close() error

	// Identity
	GetUser(id int64) (models.User, error)

	// Responsibilities
	ListResponsibilities(teamID int64) ([]models.Responsibility, error)
	GetResponsibility(id int64) (models.Responsibility, error)

	// Task templates and their team scoping
	ListTeamTaskTemplates(teamID int64) ([]models.TaskTemplate, error)
	GetTaskTemplate(id int64) (models.TaskTemplate, error)
	FindTaskTemplateByName(name string) (models.TaskTemplate, error)
	SaveTaskTemplate(t models.TaskTemplate) (int64, error)
	UpdateTaskTemplate(t models.TaskTemplate) error
	DeleteTaskTemplate(id int64) error
	MapTaskTemplateToTeam(taskTemplateID, teamID int64) error
	UnmapTaskTemplateFromTeam(taskTemplateID, teamID int64) error
	TaskTemplateInTeam(taskTemplateID, teamID int64) (bool, error)
	CountTaskTemplateTeams(taskTemplateID int64) (int64, error)

	// Workflow templates and their team scoping
	ListTeamWorkflowTemplates(teamID int64) ([]models.WorkflowTemplate, error)
	GetTeamWorkflowTemplate(teamID, templateID int64) (models.WorkflowTemplate, error)
	FindWorkflowTemplateByName(name string) (models.WorkflowTemplate, error)
	SaveWorkflowTemplate(t models.WorkflowTemplate) (int64, error)
	UpdateWorkflowTemplate(t models.WorkflowTemplate) error
	DeleteWorkflowTemplate(id int64) error
	MapWorkflowTemplateToTeam(templateID, teamID int64) error
	LockWorkflowTemplate(templateID int64) error

	// Definition edges
	ListDefinitions(templateID int64) ([]models.WorkflowTemplateDefinition, error)
	ListDefinitionNodes(templateID int64) ([]models.GraphNode, error)
	GetDefinition(definitionID, templateID int64) (models.WorkflowTemplateDefinition, error)
	SaveDefinition(d models.WorkflowTemplateDefinition) (int64, error)
	UpdateDefinition(d models.WorkflowTemplateDefinition) error
	DeleteDefinition(definitionID, templateID int64) error
	DeleteDefinitionsForTask(templateID, taskTemplateID int64) (int64, error)
}
