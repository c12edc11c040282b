package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/dozin22/teamflow/internal/metrics"
	"github.com/dozin22/teamflow/pkg/service"
)

func (h *Handler) listTemplates(c *gin.Context) {
	ident := identityFrom(c)
	templates, err := h.templates.ListTemplates(ident.TeamID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workflow_templates": templates})
}

func (h *Handler) createTemplate(c *gin.Context) {
	var req createTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	ident := identityFrom(c)
	tpl, err := h.templates.CreateTemplate(ident.TeamID, req.TemplateName, req.Description)
	if err != nil {
		abortWithError(c, err)
		return
	}
	metrics.TemplateMutations.WithLabelValues("create_template").Inc()
	c.JSON(http.StatusCreated, tpl)
}

func (h *Handler) updateTemplate(c *gin.Context) {
	templateID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	ident := identityFrom(c)
	tpl, err := h.templates.UpdateTemplate(ident.TeamID, templateID, req.TemplateName, req.Description)
	if err != nil {
		abortWithError(c, err)
		return
	}
	metrics.TemplateMutations.WithLabelValues("update_template").Inc()
	c.JSON(http.StatusOK, tpl)
}

func (h *Handler) deleteTemplate(c *gin.Context) {
	templateID, ok := pathID(c, "id")
	if !ok {
		return
	}
	ident := identityFrom(c)
	if err := h.templates.DeleteTemplate(ident.TeamID, templateID); err != nil {
		abortWithError(c, err)
		return
	}
	metrics.TemplateMutations.WithLabelValues("delete_template").Inc()
	c.Status(http.StatusNoContent)
}

func (h *Handler) duplicateTemplate(c *gin.Context) {
	templateID, ok := pathID(c, "id")
	if !ok {
		return
	}
	ident := identityFrom(c)
	dup, err := h.templates.DuplicateTemplate(ident.TeamID, templateID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	metrics.TemplateMutations.WithLabelValues("duplicate_template").Inc()
	c.JSON(http.StatusCreated, dup)
}

func (h *Handler) listCandidates(c *gin.Context) {
	templateID, ok := pathID(c, "id")
	if !ok {
		return
	}
	ident := identityFrom(c)
	candidates, err := h.templates.ListCandidates(ident.TeamID, templateID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task_templates": candidates})
}

func (h *Handler) listDefinitions(c *gin.Context) {
	templateID, ok := pathID(c, "id")
	if !ok {
		return
	}
	ident := identityFrom(c)
	graph, err := h.templates.GetDefinitionGraph(ident.TeamID, templateID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, graph)
}

func (h *Handler) addDefinition(c *gin.Context) {
	templateID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req addDefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	ident := identityFrom(c)
	definitionID, err := h.templates.AddDefinition(ident.TeamID, templateID, req.TaskTemplateID, req.DependsOnTaskTemplateID)
	if err != nil {
		countEdgeRejection(err)
		abortWithError(c, err)
		return
	}
	metrics.TemplateMutations.WithLabelValues("add_definition").Inc()
	c.JSON(http.StatusCreated, gin.H{"definition_id": definitionID})
}

func (h *Handler) updateDefinition(c *gin.Context) {
	templateID, ok := pathID(c, "id")
	if !ok {
		return
	}
	definitionID, ok := pathID(c, "defId")
	if !ok {
		return
	}
	var req updateDefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	ident := identityFrom(c)
	err := h.templates.UpdateDefinition(ident.TeamID, templateID, definitionID,
		req.TaskTemplateID, req.DependsOnTaskTemplateID.Value, req.DependsOnTaskTemplateID.Present)
	if err != nil {
		countEdgeRejection(err)
		abortWithError(c, err)
		return
	}
	metrics.TemplateMutations.WithLabelValues("update_definition").Inc()
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteDefinition(c *gin.Context) {
	templateID, ok := pathID(c, "id")
	if !ok {
		return
	}
	definitionID, ok := pathID(c, "defId")
	if !ok {
		return
	}
	ident := identityFrom(c)
	if err := h.templates.DeleteDefinition(ident.TeamID, templateID, definitionID); err != nil {
		abortWithError(c, err)
		return
	}
	metrics.TemplateMutations.WithLabelValues("delete_definition").Inc()
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteTaskNode(c *gin.Context) {
	templateID, ok := pathID(c, "id")
	if !ok {
		return
	}
	taskTemplateID, ok := pathID(c, "taskId")
	if !ok {
		return
	}
	ident := identityFrom(c)
	removed, err := h.templates.DeleteTaskNode(ident.TeamID, templateID, taskTemplateID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	metrics.TemplateMutations.WithLabelValues("delete_task_node").Inc()
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func countEdgeRejection(err error) {
	switch {
	case errors.Is(err, service.ErrConflict):
		metrics.EdgeRejections.WithLabelValues("duplicate").Inc()
	case errors.Is(err, service.ErrValidation):
		metrics.EdgeRejections.WithLabelValues("validation").Inc()
	case errors.Is(err, service.ErrForbidden):
		metrics.EdgeRejections.WithLabelValues("forbidden").Inc()
	}
}
