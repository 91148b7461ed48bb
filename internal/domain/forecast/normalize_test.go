package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/temppredict/pkg/errors"
)

func TestNormalize_Monthly(t *testing.T) {
	values := []float64{1.1, 1.2, 1.3, 1.4, 1.5, 1.6, 1.7, 1.6, 1.5, 1.4, 1.3, 1.2}
	series, err := Normalize(MonthlyPayload{Year: 2025, Values: values})
	require.NoError(t, err)
	require.Len(t, series, 12)
	for i, p := range series {
		require.Equal(t, time.Date(2025, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC), p.Timestamp)
		require.Equal(t, values[i], p.Value)
	}
	require.NoError(t, series.Validate())
}

func TestNormalize_MonthlyWrongLength(t *testing.T) {
	for _, n := range []int{0, 11, 13} {
		_, err := Normalize(MonthlyPayload{Year: 2025, Values: make([]float64, n)})
		require.True(t, apperrors.IsCode(err, CodeNormalizeShape), "len=%d", n)
	}
}

func TestNormalize_Scalar(t *testing.T) {
	series, err := Normalize(ScalarPayload{Year: 2025, Month: 6, Value: 15.42})
	require.NoError(t, err)
	require.Equal(t, TimeSeries{{Timestamp: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), Value: 15.42}}, series)

	_, err = Normalize(ScalarPayload{Year: 2025, Month: 13})
	require.True(t, apperrors.IsCode(err, CodeNormalizeShape))
}

func TestNormalize_RecordsFilterSortAndFirstWins(t *testing.T) {
	jan := time.Date(1850, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(1850, 2, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(1850, 3, 1, 0, 0, 0, 0, time.UTC)
	records := []Record{
		{Timestamp: mar, Value: 3, Source: "GLOBAL"},
		{Timestamp: jan, Value: 1, Source: "GLOBAL"},
		{Timestamp: feb, Value: 99, Source: "NORTH"},
		{Timestamp: jan, Value: -1, Source: "GLOBAL"},
		{Timestamp: feb, Value: 2, Source: "GLOBAL"},
	}

	series, err := Normalize(RecordsPayload{Source: "GLOBAL", Records: records})
	require.NoError(t, err)
	require.Equal(t, TimeSeries{
		{Timestamp: jan, Value: 1},
		{Timestamp: feb, Value: 2},
		{Timestamp: mar, Value: 3},
	}, series)
}

func TestNormalize_RecordsEmptySourceKeepsAll(t *testing.T) {
	jan := time.Date(1850, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(1850, 2, 1, 0, 0, 0, 0, time.UTC)
	series, err := Normalize(RecordsPayload{Records: []Record{
		{Timestamp: feb, Value: 2, Source: "A"},
		{Timestamp: jan, Value: 1, Source: "B"},
	}})
	require.NoError(t, err)
	require.Len(t, series, 2)
	require.Equal(t, jan, series[0].Timestamp)
}

func TestNormalize_RecordsEmptyAfterFilter(t *testing.T) {
	_, err := Normalize(RecordsPayload{Source: "GLOBAL", Records: []Record{
		{Timestamp: time.Now(), Value: 1, Source: "NORTH"},
	}})
	require.True(t, apperrors.IsCode(err, CodeNormalizeEmpty))

	_, err = Normalize(RecordsPayload{Source: "GLOBAL"})
	require.True(t, apperrors.IsCode(err, CodeNormalizeEmpty))
}

func TestNormalize_RecordsConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	local := time.Date(2024, 7, 1, 8, 0, 0, 0, loc)
	series, err := Normalize(RecordsPayload{Records: []Record{{Timestamp: local, Value: 1}}})
	require.NoError(t, err)
	require.Equal(t, time.UTC, series[0].Timestamp.Location())
	require.True(t, series[0].Timestamp.Equal(local))
}

func TestNormalize_IdempotentOnCanonicalInput(t *testing.T) {
	first, err := Normalize(MonthlyPayload{Year: 2024, Values: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}})
	require.NoError(t, err)

	records := make([]Record, 0, len(first))
	for _, p := range first {
		records = append(records, Record{Timestamp: p.Timestamp, Value: p.Value})
	}
	second, err := Normalize(RecordsPayload{Records: records})
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestTimeSeriesValidate(t *testing.T) {
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, TimeSeries{}.Validate())
	require.True(t, apperrors.IsCode(TimeSeries{{Timestamp: jan}, {Timestamp: jan}}.Validate(), CodeNormalizeDuplicate))
	require.True(t, apperrors.IsCode(TimeSeries{{Timestamp: feb}, {Timestamp: jan}}.Validate(), CodeNormalizeUnsorted))
}

type unknownPayload struct{}

func (unknownPayload) payload() {}

func TestNormalize_UnknownPayload(t *testing.T) {
	_, err := Normalize(unknownPayload{})
	require.True(t, apperrors.IsCode(err, CodeNormalizeShape))
}
