package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/yanqian/temppredict/internal/domain/session"
	apperrors "github.com/yanqian/temppredict/pkg/errors"
)

// Service orchestrates prediction and history requests.
type Service interface {
	PredictPoint(ctx context.Context, query PredictionQuery, sess session.Session) (float64, error)
	PredictYear(ctx context.Context, query PredictionQuery, sess session.Session) (TimeSeries, error)
	History(ctx context.Context, station string, sess session.Session) (StationHistory, error)
}

type service struct {
	cfg     Config
	backend Backend
	logger  *slog.Logger
}

// NewService constructs a Service instance.
func NewService(cfg Config, backend Backend, logger *slog.Logger) Service {
	if cfg.DefaultStation == "" {
		cfg.DefaultStation = "GLOBAL"
	}
	return &service{
		cfg:     cfg,
		backend: backend,
		logger:  logger.With("component", "forecast.service"),
	}
}

func (s *service) PredictPoint(ctx context.Context, query PredictionQuery, sess session.Session) (float64, error) {
	if query.Month == nil {
		return 0, apperrors.Wrap(CodeInvalidInput, "month is required for a point prediction", nil)
	}
	if err := s.validate(query); err != nil {
		return 0, err
	}
	value, err := s.backend.PredictPoint(ctx, query.Year, *query.Month, s.token(sess))
	if err != nil {
		return 0, s.backendError("predict_point", err)
	}
	if value == nil || !finite(*value) {
		return 0, s.backendError("predict_point", fmt.Errorf("%w: predicted_avg_temp missing or not a finite number", ErrMalformed))
	}
	return *value, nil
}

func (s *service) PredictYear(ctx context.Context, query PredictionQuery, sess session.Session) (TimeSeries, error) {
	if err := s.validate(query); err != nil {
		return nil, err
	}
	raw, err := s.backend.PredictYear(ctx, query.Year, s.token(sess))
	if err != nil {
		return nil, s.backendError("predict_year", err)
	}
	if len(raw) != MonthsPerYear {
		return nil, s.backendError("predict_year", fmt.Errorf("%w: expected %d predictions, got %d", ErrMalformed, MonthsPerYear, len(raw)))
	}
	values := make([]float64, 0, MonthsPerYear)
	for i, v := range raw {
		if v == nil || !finite(*v) {
			return nil, s.backendError("predict_year", fmt.Errorf("%w: prediction %d is not a finite number", ErrMalformed, i))
		}
		values = append(values, *v)
	}
	return Normalize(MonthlyPayload{Year: query.Year, Values: values})
}

func (s *service) History(ctx context.Context, station string, sess session.Session) (StationHistory, error) {
	station = strings.TrimSpace(station)
	if station == "" {
		station = s.cfg.DefaultStation
	}
	records, err := s.backend.History(ctx, s.token(sess))
	if err != nil {
		return StationHistory{}, s.backendError("history", err)
	}
	series, err := Normalize(RecordsPayload{Source: station, Records: records})
	if err != nil {
		s.logger.Info("history normalization failed", "station", station, "records", len(records), "error", err)
		return StationHistory{}, err
	}
	return StationHistory{Station: station, Series: series}, nil
}

func (s *service) validate(query PredictionQuery) error {
	if query.Year < s.cfg.MinYear || query.Year > s.cfg.MaxYear {
		return apperrors.Wrap(CodeInvalidInput, fmt.Sprintf("year must be between %d and %d", s.cfg.MinYear, s.cfg.MaxYear), nil)
	}
	if query.Month != nil && (*query.Month < 1 || *query.Month > MonthsPerYear) {
		return apperrors.Wrap(CodeInvalidInput, "month must be between 1 and 12", nil)
	}
	return nil
}

func (s *service) token(sess session.Session) string {
	if !s.cfg.AttachToken {
		return ""
	}
	return sess.Token
}

func (s *service) backendError(op string, err error) error {
	switch {
	case errors.Is(err, ErrRejected):
		s.logger.Warn("model service rejected request", "operation", op, "error", err)
		return apperrors.Wrap(CodeRejected, "model service rejected the request", err)
	case errors.Is(err, ErrMalformed):
		s.logger.Error("model service returned malformed payload", "operation", op, "error", err)
		return apperrors.Wrap(CodeMalformed, "model service returned an unexpected payload", err)
	default:
		s.logger.Warn("model service unreachable", "operation", op, "error", err)
		return apperrors.Wrap(CodeUnreachable, "model service unreachable", err)
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
