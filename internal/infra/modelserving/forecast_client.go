package modelserving

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/yanqian/temppredict/internal/domain/forecast"
	"github.com/yanqian/temppredict/internal/infra/upstream"
)

// Endpoints lists the model-service URLs.
type Endpoints struct {
	Predict     string
	PredictYear string
	History     string
}

// ForecastClient calls the prediction endpoints and the historical dataset.
type ForecastClient struct {
	transport *upstream.Client
	endpoints Endpoints
	logger    *slog.Logger
}

// NewForecastClient builds a client over transport.
func NewForecastClient(transport *upstream.Client, endpoints Endpoints, logger *slog.Logger) *ForecastClient {
	return &ForecastClient{
		transport: transport,
		endpoints: endpoints,
		logger:    logger.With("component", "modelserving.forecast"),
	}
}

type pointRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type pointResponse struct {
	PredictedAvgTemp *float64 `json:"predicted_avg_temp"`
}

type yearRequest struct {
	Year int `json:"year"`
}

type yearResponse struct {
	Predictions []*float64 `json:"predictions"`
}

type historyRecord struct {
	Timestamp   string   `json:"timestamp"`
	Temperature *float64 `json:"temperature"`
	StationID   string   `json:"station_id"`
}

// PredictPoint implements forecast.Backend.
func (c *ForecastClient) PredictPoint(ctx context.Context, year, month int, token string) (*float64, error) {
	body, err := c.transport.PostJSON(ctx, c.endpoints.Predict, pointRequest{Year: year, Month: month}, token)
	if err != nil {
		return nil, c.classify(err)
	}
	var resp pointResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, c.classify(upstream.Malformed(err))
	}
	return resp.PredictedAvgTemp, nil
}

// PredictYear implements forecast.Backend.
func (c *ForecastClient) PredictYear(ctx context.Context, year int, token string) ([]*float64, error) {
	body, err := c.transport.PostJSON(ctx, c.endpoints.PredictYear, yearRequest{Year: year}, token)
	if err != nil {
		return nil, c.classify(err)
	}
	var resp yearResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, c.classify(upstream.Malformed(err))
	}
	return resp.Predictions, nil
}

// History implements forecast.Backend. Records with an unparsable timestamp or
// a null temperature are dropped.
func (c *ForecastClient) History(ctx context.Context, token string) ([]forecast.Record, error) {
	body, err := c.transport.GetJSON(ctx, c.endpoints.History, token)
	if err != nil {
		return nil, c.classify(err)
	}
	var raw []historyRecord
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, c.classify(upstream.Malformed(err))
	}
	records := make([]forecast.Record, 0, len(raw))
	dropped := 0
	for _, rec := range raw {
		ts := parseTime(rec.Timestamp)
		if ts.IsZero() || rec.Temperature == nil {
			dropped++
			continue
		}
		records = append(records, forecast.Record{
			Timestamp: ts,
			Value:     *rec.Temperature,
			Source:    strings.TrimSpace(rec.StationID),
		})
	}
	if dropped > 0 {
		c.logger.Warn("dropped unusable history records", "dropped", dropped, "kept", len(records))
	}
	return records, nil
}

func (c *ForecastClient) classify(err error) error {
	return classify(err, forecast.ErrUnreachable, forecast.ErrRejected, forecast.ErrMalformed)
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

var _ forecast.Backend = (*ForecastClient)(nil)
