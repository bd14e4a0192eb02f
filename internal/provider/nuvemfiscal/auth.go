package nuvemfiscal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Janela de segurança antes da expiração real do token
const tokenSafetyWindow = 30 * time.Second

// Erros de autenticação
var ErrMissingCredentials = errors.New("NUVEMFISCAL_CLIENT_ID/NUVEMFISCAL_CLIENT_SECRET não configurados")

type oauthTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
}

// TokenSource mantém o token OAuth em cache e o renova antes de expirar.
// O cache pertence ao cliente HTTP do provedor, sem estado global.
type TokenSource struct {
	config     Config
	httpClient *http.Client

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

// NewTokenSource cria um TokenSource para as credenciais informadas
func NewTokenSource(config Config) *TokenSource {
	return &TokenSource{
		config:     config,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// AccessToken retorna o token em cache ou obtém um novo via client_credentials
func (ts *TokenSource) AccessToken(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.accessToken != "" && time.Now().Before(ts.expiresAt) {
		return ts.accessToken, nil
	}

	if ts.config.ClientID == "" || ts.config.ClientSecret == "" {
		return "", ErrMissingCredentials
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", ts.config.ClientID)
	form.Set("client_secret", ts.config.ClientSecret)
	form.Set("scope", ts.config.Scope)

	tokenURL := ts.config.AuthBaseURL + "/oauth/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("falha ao criar requisição de token: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("falha ao obter token da NuvemFiscal: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("NuvemFiscal retornou HTTP %d ao emitir token: %s", resp.StatusCode, string(body))
	}

	var token oauthTokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("falha ao decodificar resposta de token: %w", err)
	}

	ttl := time.Duration(token.ExpiresIn)*time.Second - tokenSafetyWindow
	if ttl < 0 {
		ttl = 0
	}

	ts.accessToken = token.AccessToken
	ts.expiresAt = time.Now().Add(ttl)

	return ts.accessToken, nil
}
