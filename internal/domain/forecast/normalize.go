package forecast

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/yanqian/temppredict/pkg/errors"
	"github.com/yanqian/temppredict/pkg/util"
)

// TimeSeries is ordered ascending by timestamp with no duplicate timestamps.
type TimeSeries []Point

// Validate checks the ordering invariant.
func (ts TimeSeries) Validate() error {
	for i := 1; i < len(ts); i++ {
		prev, cur := ts[i-1].Timestamp, ts[i].Timestamp
		if cur.Equal(prev) {
			return apperrors.Wrap(CodeNormalizeDuplicate, fmt.Sprintf("duplicate timestamp %s", cur.Format("2006-01-02")), nil)
		}
		if cur.Before(prev) {
			return apperrors.Wrap(CodeNormalizeUnsorted, fmt.Sprintf("timestamp %s out of order", cur.Format("2006-01-02")), nil)
		}
	}
	return nil
}

// Payload is one of ScalarPayload, MonthlyPayload or RecordsPayload.
type Payload interface {
	payload()
}

// ScalarPayload is a single prediction keyed to (Year, Month).
type ScalarPayload struct {
	Year  int
	Month int
	Value float64
}

// MonthlyPayload holds twelve values, index 0 being January of Year.
type MonthlyPayload struct {
	Year   int
	Values []float64
}

// RecordsPayload holds timestamped records to be filtered by Source.
// An empty Source keeps every record.
type RecordsPayload struct {
	Source  string
	Records []Record
}

func (ScalarPayload) payload()  {}
func (MonthlyPayload) payload() {}
func (RecordsPayload) payload() {}

// Normalize converts any payload into a canonical time series.
func Normalize(p Payload) (TimeSeries, error) {
	var (
		out TimeSeries
		err error
	)
	switch v := p.(type) {
	case ScalarPayload:
		out, err = normalizeScalar(v)
	case MonthlyPayload:
		out, err = normalizeMonthly(v)
	case RecordsPayload:
		out, err = normalizeRecords(v)
	default:
		return nil, apperrors.Wrap(CodeNormalizeShape, fmt.Sprintf("unsupported payload %T", p), nil)
	}
	if err != nil {
		return nil, err
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeScalar(p ScalarPayload) (TimeSeries, error) {
	if p.Month < 1 || p.Month > MonthsPerYear {
		return nil, apperrors.Wrap(CodeNormalizeShape, fmt.Sprintf("month %d out of range", p.Month), nil)
	}
	return TimeSeries{{Timestamp: util.MonthStart(p.Year, p.Month), Value: p.Value}}, nil
}

func normalizeMonthly(p MonthlyPayload) (TimeSeries, error) {
	if len(p.Values) != MonthsPerYear {
		return nil, apperrors.Wrap(CodeNormalizeShape, fmt.Sprintf("expected %d monthly values, got %d", MonthsPerYear, len(p.Values)), nil)
	}
	out := make(TimeSeries, 0, MonthsPerYear)
	for i, v := range p.Values {
		out = append(out, Point{Timestamp: util.MonthStart(p.Year, i+1), Value: v})
	}
	return out, nil
}

func normalizeRecords(p RecordsPayload) (TimeSeries, error) {
	source := strings.TrimSpace(p.Source)
	kept := make([]Record, 0, len(p.Records))
	for _, rec := range p.Records {
		if source != "" && rec.Source != source {
			continue
		}
		kept = append(kept, rec)
	}
	if len(kept) == 0 {
		return nil, apperrors.Wrap(CodeNormalizeEmpty, fmt.Sprintf("no records for source %q", source), nil)
	}

	// Stable sort keeps input order among equal timestamps so the first occurrence wins below.
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Timestamp.Before(kept[j].Timestamp)
	})

	out := make(TimeSeries, 0, len(kept))
	for _, rec := range kept {
		ts := rec.Timestamp.UTC()
		if n := len(out); n > 0 && out[n-1].Timestamp.Equal(ts) {
			continue
		}
		out = append(out, Point{Timestamp: ts, Value: rec.Value})
	}
	return out, nil
}
