package trigger

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coachpulse/engage-api/internal/handler"
	"github.com/coachpulse/engage-api/internal/model"
	"github.com/coachpulse/engage-api/internal/service/engagement"
	"github.com/coachpulse/engage-api/internal/service/trigger"
)

type Handler struct {
	service    trigger.Service
	engagement engagement.Service
}

func NewHandler(service trigger.Service, eng engagement.Service) *Handler {
	return &Handler{service: service, engagement: eng}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/clients/:id/detect", h.RunDetection)
	r.GET("/clients/:id/triggers", h.ListTriggers)
	r.POST("/triggers/:id/resolve", h.ResolveTrigger)
}

// RunDetection scans the client's recent activity and creates triggers and
// pending recommendations for every rule that fires.
func (h *Handler) RunDetection(c *gin.Context) {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid client ID"))
		return
	}

	outcome, err := h.engagement.RunDetection(c.Request.Context(), clientID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(outcome))
}

func (h *Handler) ListTriggers(c *gin.Context) {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid client ID"))
		return
	}

	filters := &model.TriggerFilters{
		ClientID:   clientID,
		Unresolved: c.Query("unresolved") == "true",
		Type:       model.TriggerType(c.Query("type")),
	}

	triggers, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(triggers))
}

func (h *Handler) ResolveTrigger(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid trigger ID"))
		return
	}

	if err := h.service.Resolve(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"resolved": true}))
}
