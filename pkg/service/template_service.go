package service

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/dozin22/teamflow/pkg/models"
	"github.com/dozin22/teamflow/pkg/storage"
)

// TemplateService manages workflow templates and their dependency graphs.
//
// Every mutation runs read-validate-write inside one store transaction and
// takes a row lock on the owning template before touching its edge set, so two
// concurrent writers of the same graph serialize instead of both validating
// against a stale snapshot.
type TemplateService struct {
	store  storage.Store
	logger Logger
}

func NewTemplateService(store storage.Store, logger Logger) *TemplateService {
	return &TemplateService{store: store, logger: logger}
}

// DefinitionGraph is the full projection of one template's graph: its edges
// (id ascending) and the distinct task templates they reference.
type DefinitionGraph struct {
	Definitions []models.WorkflowTemplateDefinition `json:"definitions"`
	Nodes       []models.GraphNode                  `json:"nodes"`
}

// ListTemplates returns the team's workflow templates with their definitions
// loaded through explicit queries.
func (s *TemplateService) ListTemplates(teamID int64) ([]models.WorkflowTemplate, error) {
	templates, err := s.store.ListTeamWorkflowTemplates(teamID)
	if err != nil {
		return nil, errors.Wrap(err, "list workflow templates")
	}
	for i := range templates {
		defs, err := s.store.ListDefinitions(templates[i].ID)
		if err != nil {
			return nil, errors.Wrapf(err, "list definitions for template %d", templates[i].ID)
		}
		templates[i].Definitions = defs
	}
	return templates, nil
}

// ListCandidates returns the task templates scoped to the team, ordered by
// name. These are the only valid endpoints for new edges in the team's graphs.
func (s *TemplateService) ListCandidates(teamID, templateID int64) ([]models.TaskTemplate, error) {
	if _, err := s.store.GetTeamWorkflowTemplate(teamID, templateID); err != nil {
		return nil, templateErr(err, templateID)
	}
	candidates, err := s.store.ListTeamTaskTemplates(teamID)
	if err != nil {
		return nil, errors.Wrap(err, "list candidate nodes")
	}
	return candidates, nil
}

// GetDefinitionGraph returns every edge of the template plus the node
// projection, both ordered by id ascending.
func (s *TemplateService) GetDefinitionGraph(teamID, templateID int64) (DefinitionGraph, error) {
	if _, err := s.store.GetTeamWorkflowTemplate(teamID, templateID); err != nil {
		return DefinitionGraph{}, templateErr(err, templateID)
	}
	defs, err := s.store.ListDefinitions(templateID)
	if err != nil {
		return DefinitionGraph{}, errors.Wrap(err, "list definitions")
	}
	nodes, err := s.store.ListDefinitionNodes(templateID)
	if err != nil {
		return DefinitionGraph{}, errors.Wrap(err, "list definition nodes")
	}
	return DefinitionGraph{Definitions: defs, Nodes: nodes}, nil
}

// CreateTemplate creates a workflow template and its team mapping atomically.
func (s *TemplateService) CreateTemplate(teamID int64, name, description string) (tpl models.WorkflowTemplate, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.WorkflowTemplate{}, validationf("template name is required")
	}

	txStore, err := s.store.Begin()
	if err != nil {
		return models.WorkflowTemplate{}, err
	}
	defer func() { err = s.finish(txStore, err) }()

	tpl = models.WorkflowTemplate{Name: name, Description: description}
	id, err := txStore.SaveWorkflowTemplate(tpl)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			err = conflictf("a template named '%s' already exists", name)
		}
		return models.WorkflowTemplate{}, err
	}
	tpl.ID = id
	if err = txStore.MapWorkflowTemplateToTeam(id, teamID); err != nil {
		return models.WorkflowTemplate{}, errors.Wrap(err, "map template to team")
	}
	s.logger.Infof("Created workflow template '%s' with ID %d for team %d", name, id, teamID)
	return tpl, nil
}

// UpdateTemplate updates only the provided fields of a team-owned template.
func (s *TemplateService) UpdateTemplate(teamID, templateID int64, name, description *string) (tpl models.WorkflowTemplate, err error) {
	if name != nil && strings.TrimSpace(*name) == "" {
		return models.WorkflowTemplate{}, validationf("template name is required")
	}

	txStore, err := s.store.Begin()
	if err != nil {
		return models.WorkflowTemplate{}, err
	}
	defer func() { err = s.finish(txStore, err) }()

	tpl, err = txStore.GetTeamWorkflowTemplate(teamID, templateID)
	if err != nil {
		return models.WorkflowTemplate{}, templateErr(err, templateID)
	}
	if name != nil {
		tpl.Name = strings.TrimSpace(*name)
	}
	if description != nil {
		tpl.Description = *description
	}
	if err = txStore.UpdateWorkflowTemplate(tpl); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			err = conflictf("a template named '%s' already exists", tpl.Name)
		}
		return models.WorkflowTemplate{}, err
	}
	return tpl, nil
}

// DeleteTemplate deletes a team-owned template and cascades its definitions
// and team mappings.
func (s *TemplateService) DeleteTemplate(teamID, templateID int64) (err error) {
	txStore, err := s.store.Begin()
	if err != nil {
		return err
	}
	defer func() { err = s.finish(txStore, err) }()

	if _, err = txStore.GetTeamWorkflowTemplate(teamID, templateID); err != nil {
		return templateErr(err, templateID)
	}
	if err = txStore.DeleteWorkflowTemplate(templateID); err != nil {
		return errors.Wrap(err, "delete workflow template")
	}
	s.logger.Infof("Deleted workflow template %d for team %d", templateID, teamID)
	return nil
}

// DuplicateTemplate creates a new template named with a copy marker, mapped to
// the same team, and bulk-copies every edge of the source. Node identities are
// preserved; only graph structure is copied.
func (s *TemplateService) DuplicateTemplate(teamID, templateID int64) (dup models.WorkflowTemplate, err error) {
	txStore, err := s.store.Begin()
	if err != nil {
		return models.WorkflowTemplate{}, err
	}
	defer func() { err = s.finish(txStore, err) }()

	src, err := txStore.GetTeamWorkflowTemplate(teamID, templateID)
	if err != nil {
		return models.WorkflowTemplate{}, templateErr(err, templateID)
	}

	name, err := copyName(txStore, src.Name)
	if err != nil {
		return models.WorkflowTemplate{}, err
	}

	dup = models.WorkflowTemplate{Name: name, Description: src.Description}
	newID, err := txStore.SaveWorkflowTemplate(dup)
	if err != nil {
		return models.WorkflowTemplate{}, errors.Wrap(err, "save duplicated template")
	}
	dup.ID = newID
	if err = txStore.MapWorkflowTemplateToTeam(newID, teamID); err != nil {
		return models.WorkflowTemplate{}, errors.Wrap(err, "map duplicated template to team")
	}

	defs, err := txStore.ListDefinitions(templateID)
	if err != nil {
		return models.WorkflowTemplate{}, errors.Wrap(err, "list source definitions")
	}
	for _, d := range defs {
		copied := models.WorkflowTemplateDefinition{
			WorkflowTemplateID:      newID,
			TaskTemplateID:          d.TaskTemplateID,
			DependsOnTaskTemplateID: d.DependsOnTaskTemplateID,
		}
		defID, saveErr := txStore.SaveDefinition(copied)
		if saveErr != nil {
			err = errors.Wrapf(saveErr, "copy definition %d", d.ID)
			return models.WorkflowTemplate{}, err
		}
		copied.ID = defID
		dup.Definitions = append(dup.Definitions, copied)
	}
	s.logger.Infof("Duplicated workflow template %d into %d ('%s', %d definitions)", templateID, newID, name, len(defs))
	return dup, nil
}

// AddDefinition adds one dependency edge after the full validation pipeline:
// team scoping of the template and both endpoints, self-dependency, duplicate
// edge, cycle safety.
func (s *TemplateService) AddDefinition(teamID, templateID, taskID int64, depID *int64) (definitionID int64, err error) {
	txStore, err := s.store.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { err = s.finish(txStore, err) }()

	if _, err = txStore.GetTeamWorkflowTemplate(teamID, templateID); err != nil {
		return 0, templateErr(err, templateID)
	}
	if err = txStore.LockWorkflowTemplate(templateID); err != nil {
		return 0, errors.Wrap(err, "lock workflow template")
	}
	if err = s.validateEdge(txStore, teamID, templateID, taskID, depID, 0); err != nil {
		return 0, err
	}

	definitionID, err = txStore.SaveDefinition(models.WorkflowTemplateDefinition{
		WorkflowTemplateID:      templateID,
		TaskTemplateID:          taskID,
		DependsOnTaskTemplateID: depID,
	})
	if err != nil {
		// A race that slipped past the in-transaction check surfaces as the
		// store's uniqueness violation.
		if errors.Is(err, storage.ErrConflict) {
			err = conflictf("this dependency already exists")
		}
		return 0, err
	}
	return definitionID, nil
}

// UpdateDefinition re-points an existing edge, falling back to its current
// field values for anything omitted. The edge's own id is excluded from both
// the duplicate check and the cycle-check graph.
func (s *TemplateService) UpdateDefinition(teamID, templateID, definitionID int64, taskID *int64, depID *int64, depProvided bool) (err error) {
	txStore, err := s.store.Begin()
	if err != nil {
		return err
	}
	defer func() { err = s.finish(txStore, err) }()

	if _, err = txStore.GetTeamWorkflowTemplate(teamID, templateID); err != nil {
		return templateErr(err, templateID)
	}
	if err = txStore.LockWorkflowTemplate(templateID); err != nil {
		return errors.Wrap(err, "lock workflow template")
	}

	def, err := txStore.GetDefinition(definitionID, templateID)
	if err != nil {
		return definitionErr(err, definitionID)
	}
	if taskID != nil {
		def.TaskTemplateID = *taskID
	}
	if depProvided {
		def.DependsOnTaskTemplateID = depID
	}

	if err = s.validateEdge(txStore, teamID, templateID, def.TaskTemplateID, def.DependsOnTaskTemplateID, definitionID); err != nil {
		return err
	}
	if err = txStore.UpdateDefinition(def); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			err = conflictf("this dependency already exists")
		}
		return err
	}
	return nil
}

// DeleteDefinition removes one edge from a team-owned template.
func (s *TemplateService) DeleteDefinition(teamID, templateID, definitionID int64) (err error) {
	txStore, err := s.store.Begin()
	if err != nil {
		return err
	}
	defer func() { err = s.finish(txStore, err) }()

	if _, err = txStore.GetTeamWorkflowTemplate(teamID, templateID); err != nil {
		return templateErr(err, templateID)
	}
	if err = txStore.DeleteDefinition(definitionID, templateID); err != nil {
		return definitionErr(err, definitionID)
	}
	return nil
}

// DeleteTaskNode removes every definition in the template referencing the
// task template as either endpoint and returns the count removed. Other
// templates sharing the task template are untouched.
func (s *TemplateService) DeleteTaskNode(teamID, templateID, taskTemplateID int64) (removed int64, err error) {
	txStore, err := s.store.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { err = s.finish(txStore, err) }()

	if _, err = txStore.GetTeamWorkflowTemplate(teamID, templateID); err != nil {
		return 0, templateErr(err, templateID)
	}
	if err = txStore.LockWorkflowTemplate(templateID); err != nil {
		return 0, errors.Wrap(err, "lock workflow template")
	}
	removed, err = txStore.DeleteDefinitionsForTask(templateID, taskTemplateID)
	if err != nil {
		return 0, errors.Wrap(err, "delete definitions for task")
	}
	if removed == 0 {
		return 0, notFoundf("task template %d is not part of workflow template %d", taskTemplateID, templateID)
	}
	s.logger.Infof("Removed %d definitions referencing task template %d from workflow template %d", removed, taskTemplateID, templateID)
	return removed, nil
}

// validateEdge runs the shared admissibility pipeline for a new or re-pointed
// edge. The self-dependency check comes first, before any store access.
func (s *TemplateService) validateEdge(txStore storage.Store, teamID, templateID, taskID int64, depID *int64, excludeDefinitionID int64) error {
	if depID != nil && *depID == taskID {
		return validationf("a task cannot depend on itself")
	}

	ok, err := txStore.TaskTemplateInTeam(taskID, teamID)
	if err != nil {
		return errors.Wrap(err, "check task template team scoping")
	}
	if !ok {
		return forbiddenf("task template %d is not available to this team", taskID)
	}
	if depID != nil {
		ok, err = txStore.TaskTemplateInTeam(*depID, teamID)
		if err != nil {
			return errors.Wrap(err, "check dependency team scoping")
		}
		if !ok {
			return forbiddenf("task template %d is not available to this team", *depID)
		}
	}

	defs, err := txStore.ListDefinitions(templateID)
	if err != nil {
		return errors.Wrap(err, "list definitions")
	}
	for _, d := range defs {
		if d.ID == excludeDefinitionID {
			continue
		}
		if d.TaskTemplateID == taskID && depEqual(d.DependsOnTaskTemplateID, depID) {
			return conflictf("this dependency already exists")
		}
	}

	// A nil dependency marks an entry node and can never form a cycle.
	if depID != nil && wouldCreateCycle(defs, taskID, *depID, excludeDefinitionID) {
		return validationf("adding this dependency would create a cycle")
	}
	return nil
}

// finish commits on success and rolls back on error, preserving the original
// error.
func (s *TemplateService) finish(txStore storage.Store, err error) error {
	if err != nil {
		if rollbackErr := txStore.Rollback(); rollbackErr != nil {
			s.logger.Errorf("Failed to rollback after error: %v (original error: %v)", rollbackErr, err)
		}
		return err
	}
	if commitErr := txStore.Commit(); commitErr != nil {
		s.logger.Errorf("Failed to commit: %v", commitErr)
		return commitErr
	}
	return nil
}

func depEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func templateErr(err error, templateID int64) error {
	if errors.Is(err, storage.ErrNotFound) {
		return notFoundf("workflow template %d not found", templateID)
	}
	return errors.Wrapf(err, "load workflow template %d", templateID)
}

func definitionErr(err error, definitionID int64) error {
	if errors.Is(err, storage.ErrNotFound) {
		return notFoundf("definition %d not found", definitionID)
	}
	return errors.Wrapf(err, "load definition %d", definitionID)
}

// copyName derives a free name for a duplicated template: "Copy of <name>",
// then "Copy of <name> (2)" and so on until no template claims it.
func copyName(txStore storage.Store, source string) (string, error) {
	base := "Copy of " + source
	name := base
	for n := 2; ; n++ {
		_, err := txStore.FindWorkflowTemplateByName(name)
		if errors.Is(err, storage.ErrNotFound) {
			return name, nil
		}
		if err != nil {
			return "", errors.Wrap(err, "probe for copy name")
		}
		name = fmt.Sprintf("%s (%d)", base, n)
	}
}
