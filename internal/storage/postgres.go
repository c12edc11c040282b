package storage

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/dozin22/teamflow/pkg/models"
	"github.com/dozin22/teamflow/pkg/storage"
)

type DBInterface interface {
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
	QueryRowx(query string, args ...interface{}) *sqlx.Row
	Exec(query string, args ...interface{}) (sql.Result, error)
}

type PostgresStore struct {
	db DBInterface
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Begin() (storage.Store, error) {
	if db, ok := s.db.(*sqlx.DB); ok {
		tx, err := db.Beginx()
		if err != nil {
			return nil, err
		}
		return &PostgresStore{db: tx}, nil
	}
	return nil, fmt.Errorf("cannot begin transaction on unknown type")
}

func (s *PostgresStore) Commit() error {
	if tx, ok := s.db.(*sqlx.Tx); ok {
		return tx.Commit()
	}
	return fmt.Errorf("cannot commit: not a transaction")
}

func (s *PostgresStore) Rollback() error {
	if tx, ok := s.db.(*sqlx.Tx); ok {
		return tx.Rollback()
	}
	return fmt.Errorf("cannot rollback: not a transaction")
}

func (s *PostgresStore) Close() error {
	if db, ok := s.db.(*sqlx.DB); ok {
		return db.Close()
	}
	return nil // No-op for *sqlx.Tx
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	return false
}

// GetUser retrieves a user with responsibilities eagerly loaded.
func (s *PostgresStore) GetUser(id int64) (models.User, error) {
	var user models.User
	err := s.db.Get(&user, "SELECT * FROM users WHERE user_id = $1", id)
	if err == sql.ErrNoRows {
		return models.User{}, storage.ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	err = s.db.Select(&user.Responsibilities, `
		SELECT r.responsibility_id, r.responsibility_name, r.team_id
		FROM responsibilities r
		JOIN user_responsibilities ur ON ur.responsibility_id = r.responsibility_id
		WHERE ur.user_id = $1
		ORDER BY r.responsibility_id`, id)
	if err != nil {
		return models.User{}, fmt.Errorf("get user %d responsibilities: %w", id, err)
	}
	return user, nil
}

func (s *PostgresStore) ListResponsibilities(teamID int64) ([]models.Responsibility, error) {
	var out []models.Responsibility
	err := s.db.Select(&out, "SELECT * FROM responsibilities WHERE team_id = $1 ORDER BY responsibility_id", teamID)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) GetResponsibility(id int64) (models.Responsibility, error) {
	var r models.Responsibility
	err := s.db.Get(&r, "SELECT * FROM responsibilities WHERE responsibility_id = $1", id)
	if err == sql.ErrNoRows {
		return models.Responsibility{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Responsibility{}, err
	}
	return r, nil
}

// ListTeamTaskTemplates returns the team's candidate nodes ordered by name.
func (s *PostgresStore) ListTeamTaskTemplates(teamID int64) ([]models.TaskTemplate, error) {
	var out []models.TaskTemplate
	err := s.db.Select(&out, `
		SELECT tt.*
		FROM task_templates tt
		JOIN task_template_team_mappings m ON m.task_template_id = tt.task_template_id
		WHERE m.team_id = $1
		ORDER BY tt.template_name`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list task templates for team %d: %w", teamID, err)
	}
	return out, nil
}

func (s *PostgresStore) GetTaskTemplate(id int64) (models.TaskTemplate, error) {
	var t models.TaskTemplate
	err := s.db.Get(&t, "SELECT * FROM task_templates WHERE task_template_id = $1", id)
	if err == sql.ErrNoRows {
		return models.TaskTemplate{}, storage.ErrNotFound
	}
	if err != nil {
		return models.TaskTemplate{}, err
	}
	return t, nil
}

func (s *PostgresStore) FindTaskTemplateByName(name string) (models.TaskTemplate, error) {
	var t models.TaskTemplate
	err := s.db.Get(&t, "SELECT * FROM task_templates WHERE template_name = $1", name)
	if err == sql.ErrNoRows {
		return models.TaskTemplate{}, storage.ErrNotFound
	}
	if err != nil {
		return models.TaskTemplate{}, err
	}
	return t, nil
}

func (s *PostgresStore) SaveTaskTemplate(t models.TaskTemplate) (int64, error) {
	var id int64
	err := s.db.QueryRowx(`
		INSERT INTO task_templates (template_name, task_type, category, description, required_responsibility_id)
		VALUES ($1, $2, $3, $4, $5) RETURNING task_template_id`,
		t.Name, t.Type, t.Category, t.Description, t.RequiredResponsibilityID).Scan(&id)
	if isUniqueViolation(err) {
		return 0, storage.ErrConflict
	}
	if err != nil {
		return 0, fmt.Errorf("save task template: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) UpdateTaskTemplate(t models.TaskTemplate) error {
	res, err := s.db.Exec(`
		UPDATE task_templates
		SET template_name = $1, task_type = $2, category = $3, description = $4, required_responsibility_id = $5
		WHERE task_template_id = $6`,
		t.Name, t.Type, t.Category, t.Description, t.RequiredResponsibilityID, t.ID)
	if isUniqueViolation(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// DeleteTaskTemplate removes the entity. Definition rows reference task
// templates without cascade, so a template still present in a graph surfaces
// the FK violation as ErrConflict.
func (s *PostgresStore) DeleteTaskTemplate(id int64) error {
	res, err := s.db.Exec("DELETE FROM task_templates WHERE task_template_id = $1", id)
	if isForeignKeyViolation(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (s *PostgresStore) MapTaskTemplateToTeam(taskTemplateID, teamID int64) error {
	_, err := s.db.Exec(
		"INSERT INTO task_template_team_mappings (task_template_id, team_id) VALUES ($1, $2)",
		taskTemplateID, teamID)
	if isUniqueViolation(err) {
		return storage.ErrConflict
	}
	return err
}

func (s *PostgresStore) UnmapTaskTemplateFromTeam(taskTemplateID, teamID int64) error {
	res, err := s.db.Exec(
		"DELETE FROM task_template_team_mappings WHERE task_template_id = $1 AND team_id = $2",
		taskTemplateID, teamID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (s *PostgresStore) TaskTemplateInTeam(taskTemplateID, teamID int64) (bool, error) {
	var count int64
	err := s.db.Get(&count,
		"SELECT COUNT(*) FROM task_template_team_mappings WHERE task_template_id = $1 AND team_id = $2",
		taskTemplateID, teamID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *PostgresStore) CountTaskTemplateTeams(taskTemplateID int64) (int64, error) {
	var count int64
	err := s.db.Get(&count,
		"SELECT COUNT(*) FROM task_template_team_mappings WHERE task_template_id = $1", taskTemplateID)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *PostgresStore) ListTeamWorkflowTemplates(teamID int64) ([]models.WorkflowTemplate, error) {
	var out []models.WorkflowTemplate
	err := s.db.Select(&out, `
		SELECT wt.*
		FROM workflow_templates wt
		JOIN workflow_template_team_mappings m ON m.workflow_template_id = wt.workflow_template_id
		WHERE m.team_id = $1
		ORDER BY wt.workflow_template_id`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list workflow templates for team %d: %w", teamID, err)
	}
	return out, nil
}

// GetTeamWorkflowTemplate resolves a template only through the team mapping;
// an existing but unmapped template is reported as not found.
func (s *PostgresStore) GetTeamWorkflowTemplate(teamID, templateID int64) (models.WorkflowTemplate, error) {
	var t models.WorkflowTemplate
	err := s.db.Get(&t, `
		SELECT wt.*
		FROM workflow_templates wt
		JOIN workflow_template_team_mappings m ON m.workflow_template_id = wt.workflow_template_id
		WHERE m.team_id = $1 AND wt.workflow_template_id = $2`, teamID, templateID)
	if err == sql.ErrNoRows {
		return models.WorkflowTemplate{}, storage.ErrNotFound
	}
	if err != nil {
		return models.WorkflowTemplate{}, err
	}
	return t, nil
}

func (s *PostgresStore) FindWorkflowTemplateByName(name string) (models.WorkflowTemplate, error) {
	var t models.WorkflowTemplate
	err := s.db.Get(&t, "SELECT * FROM workflow_templates WHERE template_name = $1", name)
	if err == sql.ErrNoRows {
		return models.WorkflowTemplate{}, storage.ErrNotFound
	}
	if err != nil {
		return models.WorkflowTemplate{}, err
	}
	return t, nil
}

func (s *PostgresStore) SaveWorkflowTemplate(t models.WorkflowTemplate) (int64, error) {
	var id int64
	err := s.db.QueryRowx(
		"INSERT INTO workflow_templates (template_name, description) VALUES ($1, $2) RETURNING workflow_template_id",
		t.Name, t.Description).Scan(&id)
	if isUniqueViolation(err) {
		return 0, storage.ErrConflict
	}
	if err != nil {
		return 0, fmt.Errorf("save workflow template: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) UpdateWorkflowTemplate(t models.WorkflowTemplate) error {
	res, err := s.db.Exec(
		"UPDATE workflow_templates SET template_name = $1, description = $2 WHERE workflow_template_id = $3",
		t.Name, t.Description, t.ID)
	if isUniqueViolation(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// DeleteWorkflowTemplate relies on ON DELETE CASCADE for definitions and team
// mappings.
func (s *PostgresStore) DeleteWorkflowTemplate(id int64) error {
	res, err := s.db.Exec("DELETE FROM workflow_templates WHERE workflow_template_id = $1", id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (s *PostgresStore) MapWorkflowTemplateToTeam(templateID, teamID int64) error {
	_, err := s.db.Exec(
		"INSERT INTO workflow_template_team_mappings (workflow_template_id, team_id) VALUES ($1, $2)",
		templateID, teamID)
	if isUniqueViolation(err) {
		return storage.ErrConflict
	}
	return err
}

// LockWorkflowTemplate takes a row lock on the template for the rest of the
// transaction, serializing concurrent edge mutations of the same graph.
func (s *PostgresStore) LockWorkflowTemplate(templateID int64) error {
	var id int64
	err := s.db.Get(&id,
		"SELECT workflow_template_id FROM workflow_templates WHERE workflow_template_id = $1 FOR UPDATE",
		templateID)
	if err == sql.ErrNoRows {
		return storage.ErrNotFound
	}
	return err
}

func (s *PostgresStore) ListDefinitions(templateID int64) ([]models.WorkflowTemplateDefinition, error) {
	var out []models.WorkflowTemplateDefinition
	err := s.db.Select(&out,
		"SELECT * FROM workflow_template_definitions WHERE workflow_template_id = $1 ORDER BY definition_id",
		templateID)
	if err != nil {
		return nil, fmt.Errorf("list definitions for template %d: %w", templateID, err)
	}
	return out, nil
}

// ListDefinitionNodes returns the distinct task templates referenced by the
// template's edges as either endpoint, ordered by id.
func (s *PostgresStore) ListDefinitionNodes(templateID int64) ([]models.GraphNode, error) {
	var out []models.GraphNode
	err := s.db.Select(&out, `
		SELECT tt.task_template_id, tt.template_name, tt.category
		FROM task_templates tt
		WHERE tt.task_template_id IN (
			SELECT task_template_id FROM workflow_template_definitions WHERE workflow_template_id = $1
			UNION
			SELECT depends_on_task_template_id FROM workflow_template_definitions
			WHERE workflow_template_id = $1 AND depends_on_task_template_id IS NOT NULL
		)
		ORDER BY tt.task_template_id`, templateID)
	if err != nil {
		return nil, fmt.Errorf("list definition nodes for template %d: %w", templateID, err)
	}
	return out, nil
}

func (s *PostgresStore) GetDefinition(definitionID, templateID int64) (models.WorkflowTemplateDefinition, error) {
	var d models.WorkflowTemplateDefinition
	err := s.db.Get(&d,
		"SELECT * FROM workflow_template_definitions WHERE definition_id = $1 AND workflow_template_id = $2",
		definitionID, templateID)
	if err == sql.ErrNoRows {
		return models.WorkflowTemplateDefinition{}, storage.ErrNotFound
	}
	if err != nil {
		return models.WorkflowTemplateDefinition{}, err
	}
	return d, nil
}

func (s *PostgresStore) SaveDefinition(d models.WorkflowTemplateDefinition) (int64, error) {
	var id int64
	err := s.db.QueryRowx(`
		INSERT INTO workflow_template_definitions (workflow_template_id, task_template_id, depends_on_task_template_id)
		VALUES ($1, $2, $3) RETURNING definition_id`,
		d.WorkflowTemplateID, d.TaskTemplateID, d.DependsOnTaskTemplateID).Scan(&id)
	if isUniqueViolation(err) {
		return 0, storage.ErrConflict
	}
	if err != nil {
		return 0, fmt.Errorf("save definition: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) UpdateDefinition(d models.WorkflowTemplateDefinition) error {
	res, err := s.db.Exec(`
		UPDATE workflow_template_definitions
		SET task_template_id = $1, depends_on_task_template_id = $2
		WHERE definition_id = $3 AND workflow_template_id = $4`,
		d.TaskTemplateID, d.DependsOnTaskTemplateID, d.ID, d.WorkflowTemplateID)
	if isUniqueViolation(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

func (s *PostgresStore) DeleteDefinition(definitionID, templateID int64) error {
	res, err := s.db.Exec(
		"DELETE FROM workflow_template_definitions WHERE definition_id = $1 AND workflow_template_id = $2",
		definitionID, templateID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(res)
}

// DeleteDefinitionsForTask removes every edge in one template that references
// the task template as either endpoint and returns the count removed.
func (s *PostgresStore) DeleteDefinitionsForTask(templateID, taskTemplateID int64) (int64, error) {
	res, err := s.db.Exec(`
		DELETE FROM workflow_template_definitions
		WHERE workflow_template_id = $1
		  AND (task_template_id = $2 OR depends_on_task_template_id = $2)`,
		templateID, taskTemplateID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func affectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
