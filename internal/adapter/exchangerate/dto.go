package exchangerate

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const resultSuccess = "success"

// PairResponse is the body of GET /v6/{key}/pair/{from}/{to}.
type PairResponse struct {
	Result             string          `json:"result"`
	ErrorType          string          `json:"error-type,omitempty"`
	BaseCode           string          `json:"base_code"`
	TargetCode         string          `json:"target_code"`
	ConversionRate     decimal.Decimal `json:"conversion_rate"`
	TimeLastUpdateUnix int64           `json:"time_last_update_unix"`
}

// APIError is returned when the provider answers with a non-success result.
type APIError struct {
	Result    string
	ErrorType string
}

func (e *APIError) Error() string {
	if e.ErrorType == "" {
		return fmt.Sprintf("exchangerate api result %q: unknown error", e.Result)
	}
	return fmt.Sprintf("exchangerate api result %q: %s", e.Result, e.ErrorType)
}
