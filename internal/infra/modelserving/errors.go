package modelserving

import (
	"errors"
	"fmt"

	"github.com/yanqian/temppredict/internal/infra/upstream"
)

// classify maps transport errors onto the sentinels of the calling domain.
func classify(err error, unreachable, rejected, malformed error) error {
	var statusErr *upstream.StatusError
	switch {
	case errors.As(err, &statusErr):
		return fmt.Errorf("%w: status %d", rejected, statusErr.Status)
	case errors.Is(err, upstream.ErrMalformed):
		return fmt.Errorf("%w: %v", malformed, err)
	default:
		return fmt.Errorf("%w: %v", unreachable, err)
	}
}
