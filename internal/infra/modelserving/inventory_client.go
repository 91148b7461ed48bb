package modelserving

import (
	"context"
	"encoding/json"

	"github.com/yanqian/temppredict/internal/domain/inventory"
	"github.com/yanqian/temppredict/internal/infra/upstream"
)

// InventoryClient lists trained models from the backend.
type InventoryClient struct {
	transport *upstream.Client
	modelsURL string
}

// NewInventoryClient builds a client over transport.
func NewInventoryClient(transport *upstream.Client, modelsURL string) *InventoryClient {
	return &InventoryClient{transport: transport, modelsURL: modelsURL}
}

type modelsResponse struct {
	Models []inventory.ModelDescriptor `json:"models"`
}

// ListModels implements inventory.Backend. Undecodable bodies count as unavailable.
func (c *InventoryClient) ListModels(ctx context.Context, token string) ([]inventory.ModelDescriptor, error) {
	body, err := c.transport.GetJSON(ctx, c.modelsURL, token)
	if err != nil {
		return nil, classify(err, inventory.ErrUnavailable, inventory.ErrBackend, inventory.ErrUnavailable)
	}
	var resp modelsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, classify(upstream.Malformed(err), inventory.ErrUnavailable, inventory.ErrBackend, inventory.ErrUnavailable)
	}
	return resp.Models, nil
}

var _ inventory.Backend = (*InventoryClient)(nil)
