package forecast

import "errors"

var (
	// ErrUnreachable marks transport failures, timeouts and open circuits.
	ErrUnreachable = errors.New("model service unreachable")
	// ErrRejected marks a non-2xx answer from the model service.
	ErrRejected = errors.New("model service rejected request")
	// ErrMalformed marks a 2xx answer whose payload has the wrong shape.
	ErrMalformed = errors.New("model service response malformed")
)

const (
	CodeInvalidInput = "invalid_input"
	CodeUnreachable  = "predict_unreachable"
	CodeRejected     = "predict_rejected"
	CodeMalformed    = "predict_malformed"

	CodeNormalizeEmpty     = "normalize_empty"
	CodeNormalizeDuplicate = "normalize_duplicate"
	CodeNormalizeUnsorted  = "normalize_unsorted"
	CodeNormalizeShape     = "normalize_shape"
)
