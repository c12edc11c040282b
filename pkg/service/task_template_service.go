package service

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/dozin22/teamflow/pkg/models"
	"github.com/dozin22/teamflow/pkg/storage"
)

// TaskTemplateService manages the team-scoped task template catalog — the
// node inventory the workflow-template graphs draw from.
type TaskTemplateService struct {
	store  storage.Store
	logger Logger
}

func NewTaskTemplateService(store storage.Store, logger Logger) *TaskTemplateService {
	return &TaskTemplateService{store: store, logger: logger}
}

// TaskTemplateCatalog pairs the team's task templates with the team's
// responsibilities, so a caller can assemble the required-responsibility
// picker without a second round trip.
type TaskTemplateCatalog struct {
	TaskTemplates    []models.TaskTemplate   `json:"task_templates"`
	Responsibilities []models.Responsibility `json:"responsibilities"`
}

// ListCatalog returns the team's task templates ordered by name plus the
// team's responsibilities.
func (s *TaskTemplateService) ListCatalog(teamID int64) (TaskTemplateCatalog, error) {
	templates, err := s.store.ListTeamTaskTemplates(teamID)
	if err != nil {
		return TaskTemplateCatalog{}, errors.Wrap(err, "list task templates")
	}
	responsibilities, err := s.store.ListResponsibilities(teamID)
	if err != nil {
		return TaskTemplateCatalog{}, errors.Wrap(err, "list responsibilities")
	}
	return TaskTemplateCatalog{TaskTemplates: templates, Responsibilities: responsibilities}, nil
}

// Create creates a task template mapped to the team. If a template with the
// same name already exists globally it is mapped to the team instead of
// duplicated; if it is already mapped, the call fails with Conflict. The
// returned bool reports whether a new entity was created.
func (s *TaskTemplateService) Create(teamID int64, t models.TaskTemplate) (tpl models.TaskTemplate, created bool, err error) {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return models.TaskTemplate{}, false, validationf("template name is required")
	}

	txStore, err := s.store.Begin()
	if err != nil {
		return models.TaskTemplate{}, false, err
	}
	defer func() { err = s.finish(txStore, err) }()

	if err = s.checkResponsibility(txStore, teamID, t.RequiredResponsibilityID); err != nil {
		return models.TaskTemplate{}, false, err
	}

	existing, err := txStore.FindTaskTemplateByName(t.Name)
	if err == nil {
		mapped, mapErr := txStore.TaskTemplateInTeam(existing.ID, teamID)
		if mapErr != nil {
			err = errors.Wrap(mapErr, "check task template team scoping")
			return models.TaskTemplate{}, false, err
		}
		if mapped {
			err = conflictf("a task template named '%s' already exists", t.Name)
			return models.TaskTemplate{}, false, err
		}
		if err = txStore.MapTaskTemplateToTeam(existing.ID, teamID); err != nil {
			return models.TaskTemplate{}, false, errors.Wrap(err, "map existing task template to team")
		}
		s.logger.Infof("Mapped existing task template '%s' (%d) to team %d", existing.Name, existing.ID, teamID)
		return existing, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return models.TaskTemplate{}, false, errors.Wrap(err, "look up task template by name")
	}

	id, err := txStore.SaveTaskTemplate(t)
	if err != nil {
		// The by-name lookup above should have caught this; a race can still
		// trip the unique index.
		if errors.Is(err, storage.ErrConflict) {
			err = conflictf("a task template named '%s' already exists", t.Name)
			return models.TaskTemplate{}, false, err
		}
		return models.TaskTemplate{}, false, errors.Wrap(err, "save task template")
	}
	t.ID = id
	if err = txStore.MapTaskTemplateToTeam(id, teamID); err != nil {
		return models.TaskTemplate{}, false, errors.Wrap(err, "map task template to team")
	}
	s.logger.Infof("Created task template '%s' with ID %d for team %d", t.Name, id, teamID)
	return t, true, nil
}

// Update modifies the provided fields of a task template mapped to the team.
// A non-nil required responsibility must belong to the team;
// clearResponsibility drops it.
func (s *TaskTemplateService) Update(teamID, templateID int64, name, taskType, category, description *string, responsibilityID *int64, clearResponsibility bool) (tpl models.TaskTemplate, err error) {
	if name != nil && strings.TrimSpace(*name) == "" {
		return models.TaskTemplate{}, validationf("template name is required")
	}

	txStore, err := s.store.Begin()
	if err != nil {
		return models.TaskTemplate{}, err
	}
	defer func() { err = s.finish(txStore, err) }()

	tpl, err = txStore.GetTaskTemplate(templateID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = notFoundf("task template %d not found", templateID)
		}
		return models.TaskTemplate{}, err
	}
	mapped, err := txStore.TaskTemplateInTeam(templateID, teamID)
	if err != nil {
		return models.TaskTemplate{}, errors.Wrap(err, "check task template team scoping")
	}
	if !mapped {
		return models.TaskTemplate{}, forbiddenf("task template %d is not available to this team", templateID)
	}

	if name != nil {
		tpl.Name = strings.TrimSpace(*name)
	}
	if taskType != nil {
		tpl.Type = *taskType
	}
	if category != nil {
		tpl.Category = *category
	}
	if description != nil {
		tpl.Description = *description
	}
	if clearResponsibility {
		tpl.RequiredResponsibilityID = nil
	} else if responsibilityID != nil {
		if err = s.checkResponsibility(txStore, teamID, responsibilityID); err != nil {
			return models.TaskTemplate{}, err
		}
		tpl.RequiredResponsibilityID = responsibilityID
	}

	if err = txStore.UpdateTaskTemplate(tpl); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			err = conflictf("a task template named '%s' already exists", tpl.Name)
			return models.TaskTemplate{}, err
		}
		return models.TaskTemplate{}, errors.Wrap(err, "update task template")
	}
	return tpl, nil
}

// Delete unmaps the task template from the team. When no other team
// references it, the entity itself is deleted. Graph edges referencing it in
// the team's workflow templates are not touched here; node removal from a
// graph goes through TemplateService.DeleteTaskNode.
func (s *TaskTemplateService) Delete(teamID, templateID int64) (deleted bool, err error) {
	txStore, err := s.store.Begin()
	if err != nil {
		return false, err
	}
	defer func() { err = s.finish(txStore, err) }()

	if _, err = txStore.GetTaskTemplate(templateID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = notFoundf("task template %d not found", templateID)
		}
		return false, err
	}
	if err = txStore.UnmapTaskTemplateFromTeam(templateID, teamID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = notFoundf("task template %d is not mapped to this team", templateID)
		}
		return false, err
	}

	remaining, err := txStore.CountTaskTemplateTeams(templateID)
	if err != nil {
		return false, errors.Wrap(err, "count remaining team mappings")
	}
	if remaining > 0 {
		return false, nil
	}
	if err = txStore.DeleteTaskTemplate(templateID); err != nil {
		// Definitions reference task templates without cascade; a template
		// still present in some graph cannot be deleted.
		if errors.Is(err, storage.ErrConflict) {
			err = conflictf("task template %d is still used by workflow template graphs", templateID)
			return false, err
		}
		return false, errors.Wrap(err, "delete orphaned task template")
	}
	s.logger.Infof("Deleted task template %d (no team references left)", templateID)
	return true, nil
}

func (s *TaskTemplateService) checkResponsibility(txStore storage.Store, teamID int64, responsibilityID *int64) error {
	if responsibilityID == nil {
		return nil
	}
	resp, err := txStore.GetResponsibility(*responsibilityID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return validationf("responsibility %d does not exist", *responsibilityID)
		}
		return errors.Wrap(err, "load responsibility")
	}
	if resp.TeamID != teamID {
		return validationf("responsibility %d does not belong to this team", *responsibilityID)
	}
	return nil
}

func (s *TaskTemplateService) finish(txStore storage.Store, err error) error {
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
