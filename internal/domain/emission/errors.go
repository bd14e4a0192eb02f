package emission

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Erros comuns relacionados a emissões
var (
	// ErrNotFound ocorre quando uma emissão não é encontrada
	ErrNotFound = errors.New("emissão não encontrada")

	// ErrDuplicateReference ocorre quando a referência externa já existe para o provedor
	ErrDuplicateReference = errors.New("referência externa já registrada para este provedor")
)

// ValidationError indica campos obrigatórios ausentes ou inválidos na requisição
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("campos obrigatórios ausentes: %s", strings.Join(e.Fields, ", "))
}

// ProviderRejectedError indica que o provedor recusou a requisição por erro de negócio
type ProviderRejectedError struct {
	Provider   Provider
	StatusCode int
	Body       json.RawMessage
}

func (e *ProviderRejectedError) Error() string {
	return fmt.Sprintf("%s rejeitou a requisição (HTTP %d)", e.Provider, e.StatusCode)
}

// RateLimitedError indica que a sincronização manual foi bloqueada pelo intervalo mínimo
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("sincronização de artefatos limitada, tente novamente em %s", e.RetryAfter)
}
