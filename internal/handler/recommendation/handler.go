package recommendation

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coachpulse/engage-api/internal/channel"
	"github.com/coachpulse/engage-api/internal/handler"
	"github.com/coachpulse/engage-api/internal/model"
	"github.com/coachpulse/engage-api/internal/service/dispatch"
	"github.com/coachpulse/engage-api/internal/service/recommendation"
)

type Handler struct {
	service    recommendation.Service
	dispatcher dispatch.Service
}

func NewHandler(service recommendation.Service, dispatcher dispatch.Service) *Handler {
	return &Handler{service: service, dispatcher: dispatcher}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/clients/:id/recommendations", h.ListRecommendations)
	r.POST("/recommendations/:id/dispatch", h.DispatchRecommendation)
	r.POST("/recommendations/:id/dismiss", h.DismissRecommendation)
}

func (h *Handler) ListRecommendations(c *gin.Context) {
	clientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid client ID"))
		return
	}

	filters := &model.RecommendationFilters{
		ClientID: clientID,
		Status:   model.RecommendationStatus(c.Query("status")),
	}

	recs, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(recs))
}

type dispatchRequest struct {
	Channels []string `json:"channels"`
}

// DispatchRecommendation is the coach's approval: attempt delivery now.
// A manual send always includes the in-app fallback channel on top of
// whatever the request asked for.
func (h *Handler) DispatchRecommendation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid recommendation ID"))
		return
	}

	var req dispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	requested := requestedChannels(req.Channels)
	result, err := h.dispatcher.Dispatch(c.Request.Context(), id, requested, time.Now())
	if err != nil {
		if result != nil {
			c.JSON(http.StatusServiceUnavailable, handler.NewPartialResponse(err.Error(), result))
			return
		}
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func (h *Handler) DismissRecommendation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid recommendation ID"))
		return
	}

	if err := h.service.Dismiss(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"dismissed": true}))
}

// requestedChannels converts the request's channel names, always adding
// in-app as the manual-send fallback. Nil means all enabled channels.
func requestedChannels(names []string) []channel.Channel {
	if len(names) == 0 {
		return nil
	}
	out := []channel.Channel{channel.InApp}
	for _, n := range names {
		switch channel.Channel(n) {
		case channel.SMS:
			out = append(out, channel.SMS)
		case channel.WebPush:
			out = append(out, channel.WebPush)
		case channel.InApp:
			// already included
		}
	}
	return out
}
