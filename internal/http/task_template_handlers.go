package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dozin22/teamflow/pkg/models"
)

func (h *Handler) listTaskTemplates(c *gin.Context) {
	ident := identityFrom(c)
	catalog, err := h.taskTemplates.ListCatalog(ident.TeamID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, catalog)
}

func (h *Handler) createTaskTemplate(c *gin.Context) {
	var req createTaskTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	ident := identityFrom(c)
	tpl, created, err := h.taskTemplates.Create(ident.TeamID, models.TaskTemplate{
		Name:                     req.TemplateName,
		Type:                     req.TaskType,
		Category:                 req.Category,
		Description:              req.Description,
		RequiredResponsibilityID: req.RequiredResponsibilityID,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	// An existing template mapped to the team is a 200, not a 201.
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, tpl)
}

func (h *Handler) updateTaskTemplate(c *gin.Context) {
	templateID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateTaskTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	ident := identityFrom(c)
	clearResp := req.RequiredResponsibilityID.Present && req.RequiredResponsibilityID.Value == nil
	tpl, err := h.taskTemplates.Update(ident.TeamID, templateID,
		req.TemplateName, req.TaskType, req.Category, req.Description,
		req.RequiredResponsibilityID.Value, clearResp)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

func (h *Handler) deleteTaskTemplate(c *gin.Context) {
	templateID, ok := pathID(c, "id")
	if !ok {
		return
	}
	ident := identityFrom(c)
	deleted, err := h.taskTemplates.Delete(ident.TeamID, templateID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if deleted {
		c.JSON(http.StatusOK, gin.H{"message": "task template removed from team and deleted"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "task template removed from team"})
}
