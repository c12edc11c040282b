package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dozin22/teamflow/pkg/models"
	"github.com/dozin22/teamflow/pkg/service"
	"github.com/dozin22/teamflow/pkg/storage"
)

type nopLogger struct{}

func (nopLogger) Infof(format string, args ...interface{})  {}
func (nopLogger) Errorf(format string, args ...interface{}) {}

func ptr(v int64) *int64 { return &v }

// newTemplateService seeds two teams: team 1 owns task templates 1-3, team 2
// owns task template 99.
func newTemplateService() (*service.TemplateService, *storage.MockStore) {
	store := storage.NewMockStore()
	store.AddTeam(models.Team{ID: 1, Name: "Platform"})
	store.AddTeam(models.Team{ID: 2, Name: "Data"})
	store.AddTaskTemplate(models.TaskTemplate{ID: 1, Name: "Design", Type: "GENERAL", Category: "Planning"}, 1)
	store.AddTaskTemplate(models.TaskTemplate{ID: 2, Name: "Implement", Type: "GENERAL", Category: "Build"}, 1)
	store.AddTaskTemplate(models.TaskTemplate{ID: 3, Name: "Review", Type: "GENERAL", Category: "QA"}, 1)
	store.AddTaskTemplate(models.TaskTemplate{ID: 99, Name: "Ingest", Type: "GENERAL", Category: "Data"}, 2)
	return service.NewTemplateService(store, nopLogger{}), store
}

func createTemplate(t *testing.T, svc *service.TemplateService, teamID int64, name string) models.WorkflowTemplate {
	t.Helper()
	tpl, err := svc.CreateTemplate(teamID, name, "")
	require.NoError(t, err)
	return tpl
}

func TestCreateTemplate(t *testing.T) {
	svc, _ := newTemplateService()

	t.Run("Success", func(t *testing.T) {
		tpl, err := svc.CreateTemplate(1, "Release Checklist", "per-release steps")
		require.NoError(t, err)
		assert.NotZero(t, tpl.ID)
		assert.Equal(t, "Release Checklist", tpl.Name)

		listed, err := svc.ListTemplates(1)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, tpl.ID, listed[0].ID)
	})

	t.Run("TrimsName", func(t *testing.T) {
		tpl, err := svc.CreateTemplate(1, "  Onboarding  ", "")
		require.NoError(t, err)
		assert.Equal(t, "Onboarding", tpl.Name)
	})

	t.Run("BlankNameRejected", func(t *testing.T) {
		_, err := svc.CreateTemplate(1, "   ", "")
		assert.ErrorIs(t, err, service.ErrValidation)
	})

	t.Run("DuplicateNameConflicts", func(t *testing.T) {
		_, err := svc.CreateTemplate(1, "Release Checklist", "")
		assert.ErrorIs(t, err, service.ErrConflict)
	})

	t.Run("NotVisibleToOtherTeam", func(t *testing.T) {
		listed, err := svc.ListTemplates(2)
		require.NoError(t, err)
		assert.Empty(t, listed)
	})
}

func TestUpdateTemplate(t *testing.T) {
	svc, _ := newTemplateService()
	tpl := createTemplate(t, svc, 1, "Sprint Flow")
	createTemplate(t, svc, 1, "Hotfix Flow")

	t.Run("PartialUpdate", func(t *testing.T) {
		desc := "two-week cadence"
		updated, err := svc.UpdateTemplate(1, tpl.ID, nil, &desc)
		require.NoError(t, err)
		assert.Equal(t, "Sprint Flow", updated.Name)
		assert.Equal(t, desc, updated.Description)
	})

	t.Run("RenameToTakenNameConflicts", func(t *testing.T) {
		name := "Hotfix Flow"
		_, err := svc.UpdateTemplate(1, tpl.ID, &name, nil)
		assert.ErrorIs(t, err, service.ErrConflict)
	})

	t.Run("BlankNameRejected", func(t *testing.T) {
		name := " "
		_, err := svc.UpdateTemplate(1, tpl.ID, &name, nil)
		assert.ErrorIs(t, err, service.ErrValidation)
	})

	t.Run("OtherTeamSeesNotFound", func(t *testing.T) {
		name := "Stolen"
		_, err := svc.UpdateTemplate(2, tpl.ID, &name, nil)
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestDeleteTemplate(t *testing.T) {
	svc, _ := newTemplateService()
	tpl := createTemplate(t, svc, 1, "Doomed")
	_, err := svc.AddDefinition(1, tpl.ID, 2, ptr(1))
	require.NoError(t, err)

	t.Run("OtherTeamSeesNotFound", func(t *testing.T) {
		assert.ErrorIs(t, svc.DeleteTemplate(2, tpl.ID), service.ErrNotFound)
	})

	t.Run("DeleteCascadesDefinitions", func(t *testing.T) {
		require.NoError(t, svc.DeleteTemplate(1, tpl.ID))
		_, err := svc.GetDefinitionGraph(1, tpl.ID)
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("RepeatDeleteNotFound", func(t *testing.T) {
		assert.ErrorIs(t, svc.DeleteTemplate(1, tpl.ID), service.ErrNotFound)
	})
}

func TestAddDefinition(t *testing.T) {
	svc, _ := newTemplateService()
	tpl := createTemplate(t, svc, 1, "Build Graph")

	t.Run("EntryNode", func(t *testing.T) {
		id, err := svc.AddDefinition(1, tpl.ID, 1, nil)
		require.NoError(t, err)
		assert.NotZero(t, id)
	})

	t.Run("Edge", func(t *testing.T) {
		_, err := svc.AddDefinition(1, tpl.ID, 2, ptr(1))
		require.NoError(t, err)
	})

	t.Run("DuplicateEdgeConflicts", func(t *testing.T) {
		_, err := svc.AddDefinition(1, tpl.ID, 2, ptr(1))
		assert.ErrorIs(t, err, service.ErrConflict)
		assert.Contains(t, err.Error(), "this dependency already exists")
	})

	t.Run("DuplicateEntryNodeConflicts", func(t *testing.T) {
		_, err := svc.AddDefinition(1, tpl.ID, 1, nil)
		assert.ErrorIs(t, err, service.ErrConflict)
	})

	t.Run("SelfDependencyRejected", func(t *testing.T) {
		_, err := svc.AddDefinition(1, tpl.ID, 1, ptr(1))
		assert.ErrorIs(t, err, service.ErrValidation)
		assert.Contains(t, err.Error(), "cannot depend on itself")
	})

	t.Run("DirectCycleRejected", func(t *testing.T) {
		// 2 depends on 1 already; 1 depending on 2 closes the loop.
		_, err := svc.AddDefinition(1, tpl.ID, 1, ptr(2))
		assert.ErrorIs(t, err, service.ErrValidation)
		assert.Contains(t, err.Error(), "would create a cycle")
	})

	t.Run("TransitiveCycleRejected", func(t *testing.T) {
		_, err := svc.AddDefinition(1, tpl.ID, 3, ptr(2))
		require.NoError(t, err)
		// 1 -> 2 -> 3 exists, so 1 depending on 3 is a cycle.
		_, err = svc.AddDefinition(1, tpl.ID, 1, ptr(3))
		assert.ErrorIs(t, err, service.ErrValidation)
	})

	t.Run("ForeignTaskForbidden", func(t *testing.T) {
		_, err := svc.AddDefinition(1, tpl.ID, 99, nil)
		assert.ErrorIs(t, err, service.ErrForbidden)

		_, err = svc.AddDefinition(1, tpl.ID, 3, ptr(99))
		assert.ErrorIs(t, err, service.ErrForbidden)
	})

	t.Run("OtherTeamSeesNotFound", func(t *testing.T) {
		_, err := svc.AddDefinition(2, tpl.ID, 99, nil)
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestUpdateDefinition(t *testing.T) {
	svc, _ := newTemplateService()
	tpl := createTemplate(t, svc, 1, "Repoint Graph")
	d1, err := svc.AddDefinition(1, tpl.ID, 2, ptr(1)) // 1 -> 2
	require.NoError(t, err)
	d2, err := svc.AddDefinition(1, tpl.ID, 3, ptr(2)) // 2 -> 3
	require.NoError(t, err)

	t.Run("KeepingSamePairIsNotDuplicate", func(t *testing.T) {
		// Re-submitting the edge's own pair must pass the duplicate check.
		err := svc.UpdateDefinition(1, tpl.ID, d1, ptr(2), ptr(1), true)
		assert.NoError(t, err)
	})

	t.Run("RepointToAnotherEdgePairConflicts", func(t *testing.T) {
		err := svc.UpdateDefinition(1, tpl.ID, d1, ptr(3), ptr(2), true)
		assert.ErrorIs(t, err, service.ErrConflict)
	})

	t.Run("OwnEdgeExcludedFromCycleCheck", func(t *testing.T) {
		// Turning 2->3 into 1->3 skips the about-to-be-replaced edge, so no
		// cycle is found even though 3 was downstream of 1 before.
		err := svc.UpdateDefinition(1, tpl.ID, d2, nil, ptr(1), true)
		assert.NoError(t, err)
	})

	t.Run("CycleStillDetected", func(t *testing.T) {
		// Graph is now 1->2 (d1) and 1->3 (d2). Re-pointing d2 to make task 1
		// depend on 2 closes 1->2->1.
		err := svc.UpdateDefinition(1, tpl.ID, d2, ptr(1), ptr(2), true)
		assert.ErrorIs(t, err, service.ErrValidation)
	})

	t.Run("OmittedDependencyKept", func(t *testing.T) {
		// Only the task endpoint changes; the dependency stays 1.
		err := svc.UpdateDefinition(1, tpl.ID, d2, ptr(3), nil, false)
		require.NoError(t, err)
		graph, err := svc.GetDefinitionGraph(1, tpl.ID)
		require.NoError(t, err)
		for _, d := range graph.Definitions {
			if d.ID == d2 {
				require.NotNil(t, d.DependsOnTaskTemplateID)
				assert.EqualValues(t, 1, *d.DependsOnTaskTemplateID)
			}
		}
	})

	t.Run("SelfDependencyRejected", func(t *testing.T) {
		err := svc.UpdateDefinition(1, tpl.ID, d1, ptr(1), ptr(1), true)
		assert.ErrorIs(t, err, service.ErrValidation)
	})

	t.Run("UnknownDefinitionNotFound", func(t *testing.T) {
		err := svc.UpdateDefinition(1, tpl.ID, 777, ptr(2), nil, false)
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("OtherTeamSeesNotFound", func(t *testing.T) {
		err := svc.UpdateDefinition(2, tpl.ID, d1, ptr(2), nil, false)
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestDeleteDefinition(t *testing.T) {
	svc, _ := newTemplateService()
	tpl := createTemplate(t, svc, 1, "Trim Graph")
	defID, err := svc.AddDefinition(1, tpl.ID, 2, ptr(1))
	require.NoError(t, err)

	t.Run("OtherTeamSeesNotFound", func(t *testing.T) {
		assert.ErrorIs(t, svc.DeleteDefinition(2, tpl.ID, defID), service.ErrNotFound)
	})

	t.Run("Success", func(t *testing.T) {
		require.NoError(t, svc.DeleteDefinition(1, tpl.ID, defID))
		graph, err := svc.GetDefinitionGraph(1, tpl.ID)
		require.NoError(t, err)
		assert.Empty(t, graph.Definitions)
	})

	t.Run("RepeatDeleteNotFound", func(t *testing.T) {
		assert.ErrorIs(t, svc.DeleteDefinition(1, tpl.ID, defID), service.ErrNotFound)
	})
}

func TestDeleteTaskNode(t *testing.T) {
	svc, _ := newTemplateService()
	tpl := createTemplate(t, svc, 1, "Node Removal")
	other := createTemplate(t, svc, 1, "Untouched")

	// Task 2 appears as both endpoint kinds: 1->2, 2->3, plus an entry row.
	_, err := svc.AddDefinition(1, tpl.ID, 2, ptr(1))
	require.NoError(t, err)
	_, err = svc.AddDefinition(1, tpl.ID, 3, ptr(2))
	require.NoError(t, err)
	_, err = svc.AddDefinition(1, tpl.ID, 2, nil)
	require.NoError(t, err)
	// Same task in a different template must survive.
	_, err = svc.AddDefinition(1, other.ID, 2, nil)
	require.NoError(t, err)

	t.Run("RemovesEveryReferencingEdge", func(t *testing.T) {
		removed, err := svc.DeleteTaskNode(1, tpl.ID, 2)
		require.NoError(t, err)
		assert.EqualValues(t, 3, removed)

		graph, err := svc.GetDefinitionGraph(1, tpl.ID)
		require.NoError(t, err)
		assert.Empty(t, graph.Definitions)

		otherGraph, err := svc.GetDefinitionGraph(1, other.ID)
		require.NoError(t, err)
		assert.Len(t, otherGraph.Definitions, 1)
	})

	t.Run("AbsentNodeNotFound", func(t *testing.T) {
		_, err := svc.DeleteTaskNode(1, tpl.ID, 2)
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("OtherTeamSeesNotFound", func(t *testing.T) {
		_, err := svc.DeleteTaskNode(2, other.ID, 2)
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestDuplicateTemplate(t *testing.T) {
	svc, _ := newTemplateService()
	tpl := createTemplate(t, svc, 1, "Release")
	_, err := svc.AddDefinition(1, tpl.ID, 1, nil)
	require.NoError(t, err)
	_, err = svc.AddDefinition(1, tpl.ID, 2, ptr(1))
	require.NoError(t, err)
	_, err = svc.AddDefinition(1, tpl.ID, 3, ptr(2))
	require.NoError(t, err)

	t.Run("CopiesEveryEdgeUnderNewIdentity", func(t *testing.T) {
		dup, err := svc.DuplicateTemplate(1, tpl.ID)
		require.NoError(t, err)
		assert.Equal(t, "Copy of Release", dup.Name)
		assert.NotEqual(t, tpl.ID, dup.ID)
		require.Len(t, dup.Definitions, 3)
		for _, d := range dup.Definitions {
			assert.Equal(t, dup.ID, d.WorkflowTemplateID)
		}

		// Structure matches the source edge for edge.
		src, err := svc.GetDefinitionGraph(1, tpl.ID)
		require.NoError(t, err)
		copied, err := svc.GetDefinitionGraph(1, dup.ID)
		require.NoError(t, err)
		require.Len(t, copied.Definitions, len(src.Definitions))
		for i := range src.Definitions {
			assert.Equal(t, src.Definitions[i].TaskTemplateID, copied.Definitions[i].TaskTemplateID)
		}
		assert.Equal(t, src.Nodes, copied.Nodes)
	})

	t.Run("SecondCopyGetsCounter", func(t *testing.T) {
		dup, err := svc.DuplicateTemplate(1, tpl.ID)
		require.NoError(t, err)
		assert.Equal(t, "Copy of Release (2)", dup.Name)
	})

	t.Run("SourceUnchanged", func(t *testing.T) {
		graph, err := svc.GetDefinitionGraph(1, tpl.ID)
		require.NoError(t, err)
		assert.Len(t, graph.Definitions, 3)
	})

	t.Run("OtherTeamSeesNotFound", func(t *testing.T) {
		_, err := svc.DuplicateTemplate(2, tpl.ID)
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestListCandidates(t *testing.T) {
	svc, _ := newTemplateService()
	tpl := createTemplate(t, svc, 1, "Pickable")

	t.Run("TeamScopedAndNameOrdered", func(t *testing.T) {
		candidates, err := svc.ListCandidates(1, tpl.ID)
		require.NoError(t, err)
		require.Len(t, candidates, 3)
		assert.Equal(t, "Design", candidates[0].Name)
		assert.Equal(t, "Implement", candidates[1].Name)
		assert.Equal(t, "Review", candidates[2].Name)
	})

	t.Run("OtherTeamSeesNotFound", func(t *testing.T) {
		_, err := svc.ListCandidates(2, tpl.ID)
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestGetDefinitionGraph(t *testing.T) {
	svc, _ := newTemplateService()
	tpl := createTemplate(t, svc, 1, "Projection")
	_, err := svc.AddDefinition(1, tpl.ID, 2, ptr(1))
	require.NoError(t, err)
	_, err = svc.AddDefinition(1, tpl.ID, 3, ptr(2))
	require.NoError(t, err)

	graph, err := svc.GetDefinitionGraph(1, tpl.ID)
	require.NoError(t, err)
	require.Len(t, graph.Definitions, 2)
	require.Len(t, graph.Nodes, 3)
	assert.EqualValues(t, 1, graph.Nodes[0].TaskTemplateID)
	assert.Equal(t, "Design", graph.Nodes[0].Name)
	assert.Equal(t, "Planning", graph.Nodes[0].Category)
}
