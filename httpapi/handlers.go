package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gocmd "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-webhook-dispatcher/command"
	"github.com/goliatone/go-webhook-dispatcher/core"
	"github.com/goliatone/go-webhook-dispatcher/query"
)

// Handler exposes ingestion and lookup over HTTP. Writes go through the
// command bus, reads through the query bus; the handler itself never sees
// the store.
type Handler struct {
	enqueue      *command.EnqueueEventCommand
	getEvent     *query.GetEventQuery
	listAttempts *query.ListAttemptsQuery
}

func NewHandler(
	enqueue *command.EnqueueEventCommand,
	getEvent *query.GetEventQuery,
	listAttempts *query.ListAttemptsQuery,
) *Handler {
	return &Handler{
		enqueue:      enqueue,
		getEvent:     getEvent,
		listAttempts: listAttempts,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.POST("/events", h.postEvent)
	router.GET("/events/:id", h.getEventByID)
	router.GET("/events/:id/attempts", h.listEventAttempts)
}

type enqueueEventRequest struct {
	Payload   json.RawMessage `json:"payload"`
	TargetURL string          `json:"target_url"`
}

type eventResponse struct {
	ID           string          `json:"id"`
	Payload      json.RawMessage `json:"payload"`
	TargetURL    string          `json:"target_url"`
	Status       string          `json:"status"`
	AttemptCount int             `json:"attempt_count"`
	LastError    *string         `json:"last_error"`
	NextRetryAt  *time.Time      `json:"next_retry_at"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type attemptResponse struct {
	ID            string    `json:"id"`
	EventID       string    `json:"event_id"`
	AttemptNumber int       `json:"attempt_number"`
	StatusCode    *int      `json:"status_code"`
	ResponseBody  string    `json:"response_body,omitempty"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (h *Handler) postEvent(c *gin.Context) {
	var req enqueueEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "request body must be a JSON object",
			"text_code": core.DispatchErrorBadInput,
		})
		return
	}

	collector := gocmd.NewResult[core.Event]()
	ctx := gocmd.ContextWithResult(c.Request.Context(), collector)
	err := h.enqueue.Execute(ctx, command.EnqueueEventMessage{
		Payload:   req.Payload,
		TargetURL: req.TargetURL,
	})
	if err != nil {
		renderError(c, err)
		return
	}
	event, ok := collector.Load()
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "enqueue produced no result",
			"text_code": core.DispatchErrorInternal,
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"id":     event.ID,
		"status": "accepted",
	})
}

func (h *Handler) getEventByID(c *gin.Context) {
	event, err := h.getEvent.Query(c.Request.Context(), query.GetEventMessage{
		EventID: c.Param("id"),
	})
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEventResponse(event))
}

func (h *Handler) listEventAttempts(c *gin.Context) {
	attempts, err := h.listAttempts.Query(c.Request.Context(), query.ListAttemptsMessage{
		EventID: c.Param("id"),
	})
	if err != nil {
		renderError(c, err)
		return
	}
	out := make([]attemptResponse, 0, len(attempts))
	for _, attempt := range attempts {
		out = append(out, toAttemptResponse(attempt))
	}
	c.JSON(http.StatusOK, gin.H{"attempts": out})
}

func renderError(c *gin.Context, err error) {
	env := core.MapError(err)
	if env == nil {
		env = core.MapError(goerrors.New("unknown error", goerrors.CategoryInternal))
	}
	c.JSON(env.Code, gin.H{
		"error":     env.Message,
		"text_code": env.TextCode,
	})
}

func toEventResponse(event core.Event) eventResponse {
	resp := eventResponse{
		ID:           event.ID,
		Payload:      event.Payload,
		TargetURL:    event.TargetURL,
		Status:       string(event.Status),
		AttemptCount: event.AttemptCount,
		NextRetryAt:  event.NextRetryAt,
		CreatedAt:    event.CreatedAt,
		UpdatedAt:    event.UpdatedAt,
	}
	if event.LastError != "" {
		lastError := event.LastError
		resp.LastError = &lastError
	}
	return resp
}

func toAttemptResponse(attempt core.Attempt) attemptResponse {
	return attemptResponse{
		ID:            attempt.ID,
		EventID:       attempt.EventID,
		AttemptNumber: attempt.AttemptNumber,
		StatusCode:    attempt.StatusCode,
		ResponseBody:  attempt.ResponseBody,
		Error:         attempt.Error,
		CreatedAt:     attempt.CreatedAt,
	}
}
