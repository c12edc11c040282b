package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dozin22/teamflow/internal/log"
	"github.com/dozin22/teamflow/pkg/service"
	"github.com/dozin22/teamflow/pkg/storage"
)

const identityKey = "identity"

// Handler carries the services behind the HTTP surface.
type Handler struct {
	auth          *service.AuthService
	templates     *service.TemplateService
	taskTemplates *service.TaskTemplateService
}

func NewHandler(auth *service.AuthService, templates *service.TemplateService, taskTemplates *service.TaskTemplateService) *Handler {
	return &Handler{auth: auth, templates: templates, taskTemplates: taskTemplates}
}

// NewRouter builds the full route table. Credential verification happens
// upstream; the identity middleware trusts the X-User-ID header and resolves
// team and role from the store.
func NewRouter(store storage.Store) *gin.Engine {
	logger := log.GetLogger()
	h := NewHandler(
		service.NewAuthService(store, logger),
		service.NewTemplateService(store, logger),
		service.NewTaskTemplateService(store, logger),
	)

	router := gin.New()
	router.Use(gin.Recovery(), requestID())

	router.GET("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/", h.identity())
	{
		api.GET("/workflow-templates", h.requireAdmin(), h.listTemplates)
		api.POST("/workflow-templates", h.requireAdmin(), h.createTemplate)
		api.PUT("/workflow-templates/:id", h.requireAdmin(), h.updateTemplate)
		api.DELETE("/workflow-templates/:id", h.requireAdmin(), h.deleteTemplate)
		api.POST("/workflow-templates/:id/duplicate", h.requireAdmin(), h.duplicateTemplate)
		api.GET("/workflow-templates/:id/candidates", h.requireAdmin(), h.listCandidates)
		api.GET("/workflow-templates/:id/definitions", h.listDefinitions)
		api.POST("/workflow-templates/:id/definitions", h.requireAdmin(), h.addDefinition)
		api.PUT("/workflow-templates/:id/definitions/:defId", h.requireAdmin(), h.updateDefinition)
		api.DELETE("/workflow-templates/:id/definitions/:defId", h.requireAdmin(), h.deleteDefinition)
		api.DELETE("/workflow-templates/:id/tasks/:taskId", h.requireAdmin(), h.deleteTaskNode)

		api.GET("/task-templates", h.requireAdmin(), h.listTaskTemplates)
		api.POST("/task-templates", h.requireAdmin(), h.createTaskTemplate)
		api.PUT("/task-templates/:id", h.requireAdmin(), h.updateTaskTemplate)
		api.DELETE("/task-templates/:id", h.requireAdmin(), h.deleteTaskTemplate)
	}

	return router
}

// StartServer runs the HTTP server on the given port.
func StartServer(port string, store storage.Store) error {
	router := NewRouter(store)
	log.GetLogger().Infof("Starting teamflow server on :%s", port)
	return router.Run(":" + port)
}

func healthHandler(c *gin.Context) {
	c.String(http.StatusOK, "teamflow server is running")
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// identity resolves the verified caller id into a service.Identity for the
// rest of the chain.
func (h *Handler) identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-User-ID")
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing user identity"})
			return
		}
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid user identity"})
			return
		}
		ident, err := h.auth.Authorize(userID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(identityKey, ident)
		c.Next()
	}
}

func (h *Handler) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := service.RequireTemplateAdmin(identityFrom(c)); err != nil {
			abortWithError(c, err)
			return
		}
		c.Next()
	}
}

func identityFrom(c *gin.Context) service.Identity {
	return c.MustGet(identityKey).(service.Identity)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid " + name + " parameter"})
		return 0, false
	}
	return id, true
}

// abortWithError maps the service error taxonomy onto HTTP statuses. Unknown
// errors are logged and hidden behind a generic 500.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		log.GetLogger().Errorf("Unhandled error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.AbortWithStatusJSON(status, gin.H{"message": "internal server error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"message": err.Error()})
}
