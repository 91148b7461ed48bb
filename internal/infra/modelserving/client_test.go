package modelserving

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/temppredict/internal/domain/forecast"
	"github.com/yanqian/temppredict/internal/domain/inventory"
	"github.com/yanqian/temppredict/internal/infra/upstream"
)

func TestPredictPoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/predict", r.URL.Path)
		var req map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, map[string]int{"year": 2025, "month": 6}, req)
		_, _ = w.Write([]byte(`{"predicted_avg_temp": 15.42}`))
	}))
	defer server.Close()

	value, err := newForecastClient(server.URL).PredictPoint(context.Background(), 2025, 6, "")
	require.NoError(t, err)
	require.NotNil(t, value)
	require.Equal(t, 15.42, *value)
}

func TestPredictPointMissingFieldIsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"something_else": 1}`))
	}))
	defer server.Close()

	value, err := newForecastClient(server.URL).PredictPoint(context.Background(), 2025, 6, "")
	require.NoError(t, err)
	require.Nil(t, value)
}

func TestPredictYear(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/predict_year", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"predictions": [1.1,1.2,1.3,1.4,1.5,1.6,1.7,1.6,1.5,1.4,1.3,null]}`))
	}))
	defer server.Close()

	values, err := newForecastClient(server.URL).PredictYear(context.Background(), 2025, "tok")
	require.NoError(t, err)
	require.Len(t, values, 12)
	require.Equal(t, 1.1, *values[0])
	require.Nil(t, values[11])
}

func TestForecastClientErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"bad request", http.StatusBadRequest, `{"error":"year and month required"}`, forecast.ErrRejected},
		{"server error", http.StatusInternalServerError, `{}`, forecast.ErrRejected},
		{"not json", http.StatusOK, `<html>`, forecast.ErrMalformed},
		{"wrong type", http.StatusOK, `{"predicted_avg_temp":"warm"}`, forecast.ErrMalformed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			_, err := newForecastClient(server.URL).PredictPoint(context.Background(), 2025, 6, "")
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestForecastClientUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	_, err := newForecastClient(endpoint).PredictYear(context.Background(), 2025, "")
	require.ErrorIs(t, err, forecast.ErrUnreachable)
}

func TestHistoryParsesRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`[
			{"timestamp":"1850-01-01T00:00:00Z","temperature":-0.6746,"station_id":"GLOBAL"},
			{"timestamp":"1850-02-01","temperature":-0.33,"station_id":" GLOBAL "},
			{"timestamp":"not a date","temperature":1,"station_id":"GLOBAL"},
			{"timestamp":"1850-03-01T00:00:00Z","temperature":null,"station_id":"GLOBAL"}
		]`))
	}))
	defer server.Close()

	records, err := newForecastClient(server.URL).History(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, []forecast.Record{
		{Timestamp: time.Date(1850, 1, 1, 0, 0, 0, 0, time.UTC), Value: -0.6746, Source: "GLOBAL"},
		{Timestamp: time.Date(1850, 2, 1, 0, 0, 0, 0, time.UTC), Value: -0.33, Source: "GLOBAL"},
	}, records)
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"models":[{"name":"sarima","files":["sarima.pkl"]}]}`))
	}))
	defer server.Close()

	models, err := newInventoryClient(server.URL).ListModels(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, []inventory.ModelDescriptor{{Name: "sarima", Files: []string{"sarima.pkl"}}}, models)
}

func TestListModelsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	models, err := newInventoryClient(server.URL).ListModels(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, models)
}

func TestListModelsErrors(t *testing.T) {
	rejecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer rejecting.Close()
	_, err := newInventoryClient(rejecting.URL).ListModels(context.Background(), "")
	require.ErrorIs(t, err, inventory.ErrBackend)

	garbled := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[`))
	}))
	defer garbled.Close()
	_, err = newInventoryClient(garbled.URL).ListModels(context.Background(), "")
	require.ErrorIs(t, err, inventory.ErrUnavailable)
}

func newForecastClient(base string) *ForecastClient {
	logger := testLogger()
	transport := upstream.NewClient("model", upstream.Options{Timeout: time.Second}, nil, logger)
	return NewForecastClient(transport, Endpoints{
		Predict:     base + "/predict",
		PredictYear: base + "/predict_year",
		History:     base + "/datasets/global_temp.json",
	}, logger)
}

func newInventoryClient(base string) *InventoryClient {
	transport := upstream.NewClient("inventory", upstream.Options{Timeout: time.Second}, nil, testLogger())
	return NewInventoryClient(transport, base+"/models")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
