package uploadapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/temppredict/internal/domain/upload"
	"github.com/yanqian/temppredict/internal/infra/upstream"
)

func TestUploadSendsMultipartWithBearer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		require.Equal(t, "temps.csv", header.Filename)
		require.Equal(t, "text/csv", header.Header.Get("Content-Type"))
		require.Equal(t, "year,temp\n", string(data))
		_, _ = w.Write([]byte(`{"status":"success","hdfs_path":"/data/raw/temps.csv"}`))
	}))
	defer server.Close()

	res, err := newClient(server.URL).Upload(context.Background(), "tok", upload.Request{
		Filename:    "temps.csv",
		ContentType: "text/csv",
		Content:     []byte("year,temp\n"),
	})
	require.NoError(t, err)
	require.Equal(t, upload.Result{"status": "success", "hdfs_path": "/data/raw/temps.csv"}, res)
}

func TestUploadClassifiesFailures(t *testing.T) {
	rejecting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Invalid token"}`))
	}))
	defer rejecting.Close()
	_, err := newClient(rejecting.URL).Upload(context.Background(), "tok", sampleRequest())
	require.ErrorIs(t, err, upload.ErrRejected)

	garbled := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[1,2]`))
	}))
	defer garbled.Close()
	_, err = newClient(garbled.URL).Upload(context.Background(), "tok", sampleRequest())
	require.ErrorIs(t, err, upload.ErrUnavailable)

	closed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := closed.URL
	closed.Close()
	_, err = newClient(endpoint).Upload(context.Background(), "tok", sampleRequest())
	require.ErrorIs(t, err, upload.ErrUnavailable)
}

func TestUploadEmptySuccessBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	res, err := newClient(server.URL).Upload(context.Background(), "tok", sampleRequest())
	require.NoError(t, err)
	require.Empty(t, res)
}

func sampleRequest() upload.Request {
	return upload.Request{Filename: "a.csv", Content: []byte("1")}
}

func newClient(endpoint string) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	transport := upstream.NewClient("upload", upstream.Options{Timeout: time.Second}, nil, logger)
	return NewClient(transport, endpoint)
}
