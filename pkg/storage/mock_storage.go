package storage

import (
	"sort"

	"github.com/dozin22/teamflow/pkg/models"
)

// MockStore implements Store with in-memory slices for tests.
// Begin returns the same instance; Rollback is a no-op, so tests observe
// writes immediately. LockWorkflowTemplate is a no-op since tests are
// single-threaded.
type MockStore struct {
	users            []models.User
	teams            []models.Team
	responsibilities []models.Responsibility
	taskTemplates    []models.TaskTemplate
	taskTeamMaps     map[int64][]int64 // task_template_id -> team ids
	templates        []models.WorkflowTemplate
	templateTeamMaps map[int64][]int64 // workflow_template_id -> team ids
	definitions      []models.WorkflowTemplateDefinition

	nextTemplateID int64
	nextDefID      int64
	nextTaskTplID  int64
}

func NewMockStore() *MockStore {
	return &MockStore{
		taskTeamMaps:     make(map[int64][]int64),
		templateTeamMaps: make(map[int64][]int64),
	}
}

// Seed helpers

func (m *MockStore) AddTeam(t models.Team) {
	m.teams = append(m.teams, t)
}

func (m *MockStore) AddUser(u models.User) {
	m.users = append(m.users, u)
}

func (m *MockStore) AddResponsibility(r models.Responsibility) {
	m.responsibilities = append(m.responsibilities, r)
}

// AddTaskTemplate seeds a task template and maps it to the given teams.
func (m *MockStore) AddTaskTemplate(t models.TaskTemplate, teamIDs ...int64) {
	if t.ID == 0 {
		m.nextTaskTplID++
		t.ID = m.nextTaskTplID
	} else if t.ID > m.nextTaskTplID {
		m.nextTaskTplID = t.ID
	}
	m.taskTemplates = append(m.taskTemplates, t)
	m.taskTeamMaps[t.ID] = append(m.taskTeamMaps[t.ID], teamIDs...)
}

// Store implementation

func (m *MockStore) Begin() (Store, error) { return m, nil }
func (m *MockStore) Commit() error         { return nil }
func (m *MockStore) Rollback() error       { return nil }
func (m *MockStore) Close() error          { return nil }

func (m *MockStore) GetUser(id int64) (models.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (m *MockStore) ListResponsibilities(teamID int64) ([]models.Responsibility, error) {
	var out []models.Responsibility
	for _, r := range m.responsibilities {
		if r.TeamID == teamID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockStore) GetResponsibility(id int64) (models.Responsibility, error) {
	for _, r := range m.responsibilities {
		if r.ID == id {
			return r, nil
		}
	}
	return models.Responsibility{}, ErrNotFound
}

func (m *MockStore) ListTeamTaskTemplates(teamID int64) ([]models.TaskTemplate, error) {
	var out []models.TaskTemplate
	for _, t := range m.taskTemplates {
		if contains(m.taskTeamMaps[t.ID], teamID) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MockStore) GetTaskTemplate(id int64) (models.TaskTemplate, error) {
	for _, t := range m.taskTemplates {
		if t.ID == id {
			return t, nil
		}
	}
	return models.TaskTemplate{}, ErrNotFound
}

func (m *MockStore) FindTaskTemplateByName(name string) (models.TaskTemplate, error) {
	for _, t := range m.taskTemplates {
		if t.Name == name {
			return t, nil
		}
	}
	return models.TaskTemplate{}, ErrNotFound
}

func (m *MockStore) SaveTaskTemplate(t models.TaskTemplate) (int64, error) {
	m.nextTaskTplID++
	t.ID = m.nextTaskTplID
	m.taskTemplates = append(m.taskTemplates, t)
	return t.ID, nil
}

func (m *MockStore) UpdateTaskTemplate(t models.TaskTemplate) error {
	for _, existing := range m.taskTemplates {
		if existing.Name == t.Name && existing.ID != t.ID {
			return ErrConflict
		}
	}
	for i, existing := range m.taskTemplates {
		if existing.ID == t.ID {
			m.taskTemplates[i] = t
			return nil
		}
	}
	return ErrNotFound
}

func (m *MockStore) DeleteTaskTemplate(id int64) error {
	for _, d := range m.definitions {
		if d.TaskTemplateID == id || (d.DependsOnTaskTemplateID != nil && *d.DependsOnTaskTemplateID == id) {
			return ErrConflict
		}
	}
	for i, t := range m.taskTemplates {
		if t.ID == id {
			m.taskTemplates = append(m.taskTemplates[:i], m.taskTemplates[i+1:]...)
			delete(m.taskTeamMaps, id)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MockStore) MapTaskTemplateToTeam(taskTemplateID, teamID int64) error {
	if contains(m.taskTeamMaps[taskTemplateID], teamID) {
		return ErrConflict
	}
	m.taskTeamMaps[taskTemplateID] = append(m.taskTeamMaps[taskTemplateID], teamID)
	return nil
}

func (m *MockStore) UnmapTaskTemplateFromTeam(taskTemplateID, teamID int64) error {
	ids := m.taskTeamMaps[taskTemplateID]
	for i, v := range ids {
		if v == teamID {
			m.taskTeamMaps[taskTemplateID] = append(ids[:i], ids[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MockStore) TaskTemplateInTeam(taskTemplateID, teamID int64) (bool, error) {
	return contains(m.taskTeamMaps[taskTemplateID], teamID), nil
}

func (m *MockStore) CountTaskTemplateTeams(taskTemplateID int64) (int64, error) {
	return int64(len(m.taskTeamMaps[taskTemplateID])), nil
}

func (m *MockStore) ListTeamWorkflowTemplates(teamID int64) ([]models.WorkflowTemplate, error) {
	var out []models.WorkflowTemplate
	for _, t := range m.templates {
		if contains(m.templateTeamMaps[t.ID], teamID) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockStore) GetTeamWorkflowTemplate(teamID, templateID int64) (models.WorkflowTemplate, error) {
	for _, t := range m.templates {
		if t.ID == templateID && contains(m.templateTeamMaps[t.ID], teamID) {
			return t, nil
		}
	}
	return models.WorkflowTemplate{}, ErrNotFound
}

func (m *MockStore) FindWorkflowTemplateByName(name string) (models.WorkflowTemplate, error) {
	for _, t := range m.templates {
		if t.Name == name {
			return t, nil
		}
	}
	return models.WorkflowTemplate{}, ErrNotFound
}

func (m *MockStore) SaveWorkflowTemplate(t models.WorkflowTemplate) (int64, error) {
	for _, existing := range m.templates {
		if existing.Name == t.Name {
			return 0, ErrConflict
		}
	}
	m.nextTemplateID++
	t.ID = m.nextTemplateID
	t.Definitions = nil
	m.templates = append(m.templates, t)
	return t.ID, nil
}

func (m *MockStore) UpdateWorkflowTemplate(t models.WorkflowTemplate) error {
	for _, existing := range m.templates {
		if existing.Name == t.Name && existing.ID != t.ID {
			return ErrConflict
		}
	}
	for i, existing := range m.templates {
		if existing.ID == t.ID {
			t.Definitions = nil
			m.templates[i] = t
			return nil
		}
	}
	return ErrNotFound
}

func (m *MockStore) DeleteWorkflowTemplate(id int64) error {
	for i, t := range m.templates {
		if t.ID == id {
			m.templates = append(m.templates[:i], m.templates[i+1:]...)
			delete(m.templateTeamMaps, id)
			var kept []models.WorkflowTemplateDefinition
			for _, d := range m.definitions {
				if d.WorkflowTemplateID != id {
					kept = append(kept, d)
				}
			}
			m.definitions = kept
			return nil
		}
	}
	return ErrNotFound
}

func (m *MockStore) MapWorkflowTemplateToTeam(templateID, teamID int64) error {
	if contains(m.templateTeamMaps[templateID], teamID) {
		return ErrConflict
	}
	m.templateTeamMaps[templateID] = append(m.templateTeamMaps[templateID], teamID)
	return nil
}

func (m *MockStore) LockWorkflowTemplate(templateID int64) error {
	for _, t := range m.templates {
		if t.ID == templateID {
			return nil
		}
	}
	return ErrNotFound
}

func (m *MockStore) ListDefinitions(templateID int64) ([]models.WorkflowTemplateDefinition, error) {
	var out []models.WorkflowTemplateDefinition
	for _, d := range m.definitions {
		if d.WorkflowTemplateID == templateID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockStore) ListDefinitionNodes(templateID int64) ([]models.GraphNode, error) {
	seen := make(map[int64]bool)
	var ids []int64
	for _, d := range m.definitions {
		if d.WorkflowTemplateID != templateID {
			continue
		}
		if !seen[d.TaskTemplateID] {
			seen[d.TaskTemplateID] = true
			ids = append(ids, d.TaskTemplateID)
		}
		if d.DependsOnTaskTemplateID != nil && !seen[*d.DependsOnTaskTemplateID] {
			seen[*d.DependsOnTaskTemplateID] = true
			ids = append(ids, *d.DependsOnTaskTemplateID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var nodes []models.GraphNode
	for _, id := range ids {
		t, err := m.GetTaskTemplate(id)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, models.GraphNode{TaskTemplateID: t.ID, Name: t.Name, Category: t.Category})
	}
	return nodes, nil
}

func (m *MockStore) GetDefinition(definitionID, templateID int64) (models.WorkflowTemplateDefinition, error) {
	for _, d := range m.definitions {
		if d.ID == definitionID && d.WorkflowTemplateID == templateID {
			return d, nil
		}
	}
	return models.WorkflowTemplateDefinition{}, ErrNotFound
}

func sameDep(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (m *MockStore) SaveDefinition(d models.WorkflowTemplateDefinition) (int64, error) {
	for _, existing := range m.definitions {
		if existing.WorkflowTemplateID == d.WorkflowTemplateID &&
			existing.TaskTemplateID == d.TaskTemplateID &&
			sameDep(existing.DependsOnTaskTemplateID, d.DependsOnTaskTemplateID) {
			return 0, ErrConflict
		}
	}
	m.nextDefID++
	d.ID = m.nextDefID
	m.definitions = append(m.definitions, d)
	return d.ID, nil
}

func (m *MockStore) UpdateDefinition(d models.WorkflowTemplateDefinition) error {
	for _, existing := range m.definitions {
		if existing.ID != d.ID &&
			existing.WorkflowTemplateID == d.WorkflowTemplateID &&
			existing.TaskTemplateID == d.TaskTemplateID &&
			sameDep(existing.DependsOnTaskTemplateID, d.DependsOnTaskTemplateID) {
			return ErrConflict
		}
	}
	for i, existing := range m.definitions {
		if existing.ID == d.ID && existing.WorkflowTemplateID == d.WorkflowTemplateID {
			m.definitions[i] = d
			return nil
		}
	}
	return ErrNotFound
}

func (m *MockStore) DeleteDefinition(definitionID, templateID int64) error {
	for i, d := range m.definitions {
		if d.ID == definitionID && d.WorkflowTemplateID == templateID {
			m.definitions = append(m.definitions[:i], m.definitions[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MockStore) DeleteDefinitionsForTask(templateID, taskTemplateID int64) (int64, error) {
	var kept []models.WorkflowTemplateDefinition
	var removed int64
	for _, d := range m.definitions {
		ref := d.WorkflowTemplateID == templateID &&
			(d.TaskTemplateID == taskTemplateID ||
				(d.DependsOnTaskTemplateID != nil && *d.DependsOnTaskTemplateID == taskTemplateID))
		if ref {
			removed++
			continue
		}
		kept = append(kept, d)
	}
	m.definitions = kept
	return removed, nil
}
