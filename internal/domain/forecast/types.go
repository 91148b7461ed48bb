package forecast

import (
	"context"
	"time"
)

// MonthsPerYear is the fixed length of a year-series prediction.
const MonthsPerYear = 12

// Config holds the supported query range and history defaults.
type Config struct {
	MinYear        int
	MaxYear        int
	DefaultStation string
	AttachToken    bool
}

// PredictionQuery selects a year and, for point predictions, a month.
type PredictionQuery struct {
	Year  int  `json:"year" form:"year" binding:"required"`
	Month *int `json:"month,omitempty" form:"month"`
}

// StationHistory is a historical series and the station it was filtered on.
type StationHistory struct {
	Station string     `json:"station"`
	Series  TimeSeries `json:"series"`
}

// Point is one entry of a canonical time series.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Record is one timestamped reading from a heterogeneous source.
type Record struct {
	Timestamp time.Time
	Value     float64
	Source    string
}

// Backend talks to the model service and the historical dataset.
// Implementations return ErrUnreachable, ErrRejected or ErrMalformed (possibly wrapped).
type Backend interface {
	PredictPoint(ctx context.Context, year, month int, token string) (*float64, error)
	PredictYear(ctx context.Context, year int, token string) ([]*float64, error)
	History(ctx context.Context, token string) ([]Record, error)
}
