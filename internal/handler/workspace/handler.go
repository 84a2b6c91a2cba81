package workspace

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coachpulse/engage-api/internal/handler"
	"github.com/coachpulse/engage-api/internal/middleware"
	"github.com/coachpulse/engage-api/internal/service/workspace"
)

type Handler struct {
	service workspace.Service
}

func NewHandler(service workspace.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	ws := r.Group("/workspace")
	{
		ws.GET("", h.GetView)
		ws.POST("/clients/:id/select", h.SelectClient)
		ws.POST("/detect", h.RunDetection)
		ws.POST("/recommendations/:id/dismiss", h.DismissRecommendation)
	}
}

// SelectClient switches the coach's workspace to the given client. The feed
// fills in asynchronously; poll GetView for the loaded sections.
func (h *Handler) SelectClient(c *gin.Context) {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid client ID"))
		return
	}

	view, err := h.service.Select(c.Request.Context(), coachFromContext(c), clientID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(view))
}

func (h *Handler) GetView(c *gin.Context) {
	view, err := h.service.View(c.Request.Context(), coachFromContext(c))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(view))
}

func (h *Handler) RunDetection(c *gin.Context) {
	if err := h.service.Detect(c.Request.Context(), coachFromContext(c)); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusAccepted, handler.NewSuccessResponse(gin.H{"detection": "started"}))
}

func (h *Handler) DismissRecommendation(c *gin.Context) {
	recID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid recommendation ID"))
		return
	}

	if err := h.service.Dismiss(c.Request.Context(), coachFromContext(c), recID); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"dismissed": true}))
}

func coachFromContext(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(middleware.ContextCoachID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
