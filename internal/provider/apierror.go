package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// APIError representa uma resposta de erro da API de um provedor fiscal.
// StatusCode zero indica falha de rede, sem resposta HTTP.
type APIError struct {
	Provider   string
	StatusCode int
	Body       json.RawMessage
	RetryAfter time.Duration
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: falha de rede: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: API retornou HTTP %d", e.Provider, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsClientError indica um erro 4xx do provedor
func (e *APIError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// IsTransient classifica um erro como passível de retry: HTTP 429, 5xx ou
// qualquer falha sem status HTTP (rede, timeout)
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 0 {
			return true
		}
		if apiErr.StatusCode == 429 {
			return true
		}
		return apiErr.StatusCode >= 500 && apiErr.StatusCode <= 599
	}
	// Sem status algum: falha de infraestrutura
	return true
}
