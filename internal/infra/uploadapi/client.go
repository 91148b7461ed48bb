package uploadapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/yanqian/temppredict/internal/domain/upload"
	"github.com/yanqian/temppredict/internal/infra/upstream"
)

const fileField = "file"

// Client forwards files to the ingestion backend as multipart/form-data.
type Client struct {
	transport *upstream.Client
	endpoint  string
}

// NewClient builds a client posting to endpoint.
func NewClient(transport *upstream.Client, endpoint string) *Client {
	return &Client{transport: transport, endpoint: endpoint}
}

// Upload implements upload.Backend.
func (c *Client) Upload(ctx context.Context, token string, req upload.Request) (upload.Result, error) {
	body, contentType, err := encodeMultipart(req)
	if err != nil {
		return nil, fmt.Errorf("encode upload: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	payload, err := c.transport.Do(httpReq, token)
	if err != nil {
		var statusErr *upstream.StatusError
		if errors.As(err, &statusErr) {
			return nil, fmt.Errorf("%w: status %d", upload.ErrRejected, statusErr.Status)
		}
		return nil, fmt.Errorf("%w: %v", upload.ErrUnavailable, err)
	}
	result := upload.Result{}
	if len(bytes.TrimSpace(payload)) == 0 {
		return result, nil
	}
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", upload.ErrUnavailable, upstream.Malformed(err))
	}
	return result, nil
}

func encodeMultipart(req upload.Request) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, req.Filename))
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(req.Content); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf, writer.FormDataContentType(), nil
}

var _ upload.Backend = (*Client)(nil)
