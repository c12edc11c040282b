package service

import "github.com/dozin22/teamflow/pkg/models"

// wouldCreateCycle reports whether adding (or re-pointing) the edge
// "taskID depends on depID" would close a cycle in the template's graph.
//
// Edges run dependency -> dependent for traversal: if any path already leads
// from taskID to depID, the new edge completes a loop. excludeDefinitionID
// drops the edge being updated from the graph; pass 0 when adding.
//
// The walk is an explicit-stack DFS with a visited set, so it terminates even
// on malformed data that already contains a cycle. O(V+E) per check.
func wouldCreateCycle(defs []models.WorkflowTemplateDefinition, taskID, depID int64, excludeDefinitionID int64) bool {
	if taskID == depID {
		return true
	}

	dependents := make(map[int64][]int64, len(defs))
	for _, d := range defs {
		if d.ID == excludeDefinitionID || d.DependsOnTaskTemplateID == nil {
			continue
		}
		from := *d.DependsOnTaskTemplateID
		dependents[from] = append(dependents[from], d.TaskTemplateID)
	}

	visited := make(map[int64]bool)
	stack := []int64{taskID}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node == depID {
			return true
		}
		if visited[node] {
			continue
		}
		visited[node] = true
		stack = append(stack, dependents[node]...)
	}
	return false
}
