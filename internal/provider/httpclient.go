package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// ClientConfig contém os limites do contrato HTTP de saída de um provedor
type ClientConfig struct {
	Timeout      time.Duration
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	RPS          float64
}

// ClientConfigFromEnv cria a configuração a partir de variáveis de ambiente
func ClientConfigFromEnv() ClientConfig {
	return ClientConfig{
		Timeout:      envDuration("PROVIDER_HTTP_TIMEOUT_MS", 30000),
		MaxRetries:   envInt("PROVIDER_HTTP_MAX_RETRIES", 3),
		InitialDelay: envDuration("PROVIDER_HTTP_INITIAL_DELAY_MS", 500),
		MaxDelay:     envDuration("PROVIDER_HTTP_MAX_DELAY_MS", 10000),
		RPS:          envFloat("PROVIDER_HTTP_RPS", 5),
	}
}

// RequestSpec descreve uma requisição à API do provedor
type RequestSpec struct {
	Method string
	URL    string
	Query  url.Values
	Body   any
	Header http.Header
}

// Client é o cliente HTTP compartilhado pelos provedores: injeta autenticação,
// limita a vazão de saída e aplica retry com backoff exponencial limitado para
// falhas transitórias, respeitando o cabeçalho Retry-After quando presente.
type Client struct {
	Name      string
	Config    ClientConfig
	Authorize func(ctx context.Context, req *http.Request) error

	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient cria um cliente HTTP para o provedor informado
func NewClient(name string, cfg ClientConfig, authorize func(ctx context.Context, req *http.Request) error) *Client {
	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}
	return &Client{
		Name:       name,
		Config:     cfg,
		Authorize:  authorize,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
	}
}

// Request executa a requisição e retorna o corpo da resposta. Erros HTTP são
// retornados como *APIError; falhas transitórias já esgotaram o retry.
func (c *Client) Request(ctx context.Context, spec RequestSpec) ([]byte, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.Config.InitialDelay
	bo.MaxInterval = c.Config.MaxDelay
	bo.MaxElapsedTime = 0
	bo.Reset()

	attempts := 0
	for {
		body, err := c.doOnce(ctx, spec)
		if err == nil {
			return body, nil
		}

		if !IsTransient(err) || attempts >= c.Config.MaxRetries {
			return nil, err
		}
		attempts++

		delay := bo.NextBackOff()
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
			delay = apiErr.RetryAfter
		}
		if delay > c.Config.MaxDelay {
			delay = c.Config.MaxDelay
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (c *Client) doOnce(ctx context.Context, spec RequestSpec) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	target := spec.URL
	if len(spec.Query) > 0 {
		target = target + "?" + spec.Query.Encode()
	}

	var reader io.Reader
	if spec.Body != nil {
		encoded, err := json.Marshal(spec.Body)
		if err != nil {
			return nil, fmt.Errorf("falha ao serializar corpo da requisição: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, spec.Method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("falha ao criar requisição: %w", err)
	}
	if spec.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range spec.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	if c.Authorize != nil {
		if err := c.Authorize(ctx, req); err != nil {
			return nil, fmt.Errorf("falha ao autenticar requisição: %w", err)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Provider: c.Name, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Provider: c.Name, Err: err}
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			Provider:   c.Name,
			StatusCode: resp.StatusCode,
			Body:       payload,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	return payload, nil
}

func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return 0
}

func envInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func envFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func envDuration(key string, defaultMs int) time.Duration {
	return time.Duration(envInt(key, defaultMs)) * time.Millisecond
}
