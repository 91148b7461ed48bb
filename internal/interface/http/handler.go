package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/yanqian/temppredict/internal/domain/forecast"
	"github.com/yanqian/temppredict/internal/domain/inventory"
	"github.com/yanqian/temppredict/internal/domain/session"
	"github.com/yanqian/temppredict/internal/domain/upload"
	"github.com/yanqian/temppredict/internal/infra/config"
	"github.com/yanqian/temppredict/pkg/metrics"
	"github.com/yanqian/temppredict/pkg/util"
)

const (
	opPredictPoint = "predict_point"
	opPredictYear  = "predict_year"
	opHistory      = "history"
	opListModels   = "list_models"
	opUpload       = "upload"
)

var validate = validator.New()

// Handler serves the gated views and API endpoints.
type Handler struct {
	forecastSvc    forecast.Service
	inventorySvc   inventory.Service
	uploadSvc      upload.Service
	tracker        *session.Tracker
	metrics        *metrics.Metrics
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(cfg *config.Config, forecastSvc forecast.Service, inventorySvc inventory.Service, uploadSvc upload.Service, tracker *session.Tracker, m *metrics.Metrics, logger *slog.Logger) *Handler {
	return &Handler{
		forecastSvc:    forecastSvc,
		inventorySvc:   inventorySvc,
		uploadSvc:      uploadSvc,
		tracker:        tracker,
		metrics:        m,
		maxUploadBytes: cfg.Upload.MaxBytes,
		logger:         logger.With("component", "http.handler"),
	}
}

type pointResponse struct {
	Year             int                 `json:"year"`
	Month            int                 `json:"month"`
	PredictedAvgTemp float64             `json:"predicted_avg_temp"`
	Series           forecast.TimeSeries `json:"series"`
}

type yearResponse struct {
	Year   int                 `json:"year"`
	Series forecast.TimeSeries `json:"series"`
}

type dashboardQuery struct {
	Year  int `form:"year" validate:"omitempty,min=1"`
	Month int `form:"month" validate:"omitempty,min=1,max=12"`
}

type historyQuery struct {
	Station string `form:"station" validate:"omitempty,max=64,printascii"`
}

// PredictPoint returns one monthly prediction.
func (h *Handler) PredictPoint(c *gin.Context) {
	var req forecast.PredictionQuery
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", bindingMessage(err), err))
		return
	}
	tickets, sess, ok := h.begin(c, opPredictPoint)
	if !ok {
		return
	}
	defer tickets.Done()

	value, err := h.forecastSvc.PredictPoint(c.Request.Context(), req, sess)
	if !h.settle(c, tickets, err) {
		return
	}
	resp, err := pointView(req, value)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PredictYear returns the twelve-month series of a year.
func (h *Handler) PredictYear(c *gin.Context) {
	var req forecast.PredictionQuery
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", bindingMessage(err), err))
		return
	}
	tickets, sess, ok := h.begin(c, opPredictYear)
	if !ok {
		return
	}
	defer tickets.Done()

	series, err := h.forecastSvc.PredictYear(c.Request.Context(), req, sess)
	if !h.settle(c, tickets, err) {
		return
	}
	c.JSON(http.StatusOK, yearResponse{Year: req.Year, Series: series})
}

// History returns the historical series of one station.
func (h *Handler) History(c *gin.Context) {
	var q historyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", bindingMessage(err), err))
		return
	}
	if err := validate.Struct(q); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", bindingMessage(err), err))
		return
	}
	tickets, sess, ok := h.begin(c, opHistory)
	if !ok {
		return
	}
	defer tickets.Done()

	history, err := h.forecastSvc.History(c.Request.Context(), q.Station, sess)
	if !h.settle(c, tickets, err) {
		return
	}
	c.JSON(http.StatusOK, history)
}

// ListModels returns the model inventory.
func (h *Handler) ListModels(c *gin.Context) {
	tickets, sess, ok := h.begin(c, opListModels)
	if !ok {
		return
	}
	defer tickets.Done()

	models, err := h.inventorySvc.ListModels(c.Request.Context(), sess)
	if !h.settle(c, tickets, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": models})
}

// ModelsView is the models page view model.
func (h *Handler) ModelsView(c *gin.Context) {
	tickets, sess, ok := h.begin(c, opListModels)
	if !ok {
		return
	}
	defer tickets.Done()

	models, err := h.inventorySvc.ListModels(c.Request.Context(), sess)
	if !h.settle(c, tickets, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": sess.ToView(), "models": models})
}

// Dashboard is the dashboard view model: the year series and, with a month, one point.
func (h *Handler) Dashboard(c *gin.Context) {
	var q dashboardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", bindingMessage(err), err))
		return
	}
	if err := validate.Struct(q); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", bindingMessage(err), err))
		return
	}
	if q.Year == 0 {
		q.Year = util.NowUTC().Year()
	}
	// The dashboard issues the same model-service calls as the API routes and
	// shares their in-flight slots.
	ops := []string{opPredictYear}
	if q.Month > 0 {
		ops = append(ops, opPredictPoint)
	}
	tickets, sess, ok := h.begin(c, ops...)
	if !ok {
		return
	}
	defer tickets.Done()

	ctx := c.Request.Context()
	view := gin.H{"user": sess.ToView(), "year": q.Year}
	series, err := h.forecastSvc.PredictYear(ctx, forecast.PredictionQuery{Year: q.Year}, sess)
	if err == nil && q.Month > 0 {
		month := q.Month
		query := forecast.PredictionQuery{Year: q.Year, Month: &month}
		var value float64
		if value, err = h.forecastSvc.PredictPoint(ctx, query, sess); err == nil {
			var point pointResponse
			if point, err = pointView(query, value); err == nil {
				view["point"] = point
			}
		}
	}
	if !h.settle(c, tickets, err) {
		return
	}
	view["series"] = series
	c.JSON(http.StatusOK, view)
}

// Upload forwards one file with the session's bearer token.
func (h *Handler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "file field is required", err))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "failed to read file", err))
		return
	}
	defer file.Close()

	var reader io.Reader = file
	if h.maxUploadBytes > 0 {
		reader = io.LimitReader(file, h.maxUploadBytes+1)
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "failed to read file", err))
		return
	}

	tickets, sess, ok := h.begin(c, opUpload)
	if !ok {
		return
	}
	defer tickets.Done()

	result, err := h.uploadSvc.Upload(c.Request.Context(), sess, upload.Request{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     content,
	})
	if !h.settle(c, tickets, err) {
		return
	}
	c.JSON(http.StatusOK, result)
}

// ticketSet holds the in-flight slots admitted for one request.
type ticketSet []*session.Ticket

func (ts ticketSet) Done() {
	for _, ticket := range ts {
		ticket.Done()
	}
}

// stale returns the first ticket whose result must be discarded.
func (ts ticketSet) stale() (*session.Ticket, bool) {
	for _, ticket := range ts {
		if !ticket.Current() {
			return ticket, true
		}
	}
	return nil, false
}

// begin admits the call for the caller's browser context or aborts with 409.
// Every operation must be free; slots taken before a conflict are released.
func (h *Handler) begin(c *gin.Context, operations ...string) (ticketSet, session.Session, bool) {
	contextID, sess, ok := getSession(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "session required", nil))
		return nil, session.Session{}, false
	}
	tickets := make(ticketSet, 0, len(operations))
	for _, operation := range operations {
		ticket, err := h.tracker.Begin(c.Request.Context(), contextID, operation)
		if err != nil {
			tickets.Done()
			h.metrics.InflightRejected(operation)
			abortWithError(c, fromDomainError(err))
			return nil, session.Session{}, false
		}
		tickets = append(tickets, ticket)
	}
	return tickets, sess, true
}

// settle discards results that arrive after the view changed, then maps errors.
func (h *Handler) settle(c *gin.Context, tickets ticketSet, err error) bool {
	if ticket, stale := tickets.stale(); stale {
		h.metrics.StaleDiscarded(ticket.Operation())
		h.logger.Info("discarding stale result", "operation", ticket.Operation())
		abortWithError(c, fromDomainError(session.Superseded(ticket.Operation())))
		return false
	}
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return false
	}
	return true
}

func pointView(query forecast.PredictionQuery, value float64) (pointResponse, error) {
	series, err := forecast.Normalize(forecast.ScalarPayload{Year: query.Year, Month: *query.Month, Value: value})
	if err != nil {
		return pointResponse{}, err
	}
	return pointResponse{
		Year:             query.Year,
		Month:            *query.Month,
		PredictedAvgTemp: value,
		Series:           series,
	}, nil
}

func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errMessage(err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		if fe.Tag() == "required" {
			parts = append(parts, field+" is required")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s is invalid (%s)", field, fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
