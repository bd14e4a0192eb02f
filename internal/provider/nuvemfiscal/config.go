package nuvemfiscal

import "os"

// Environment define o ambiente da NuvemFiscal
type Environment string

const (
	Sandbox    Environment = "sandbox"
	Production Environment = "production"
)

// Config contém as credenciais e endpoints da NuvemFiscal
type Config struct {
	Environment  Environment
	ClientID     string
	ClientSecret string
	Scope        string
	AuthBaseURL  string
	APIBaseURL   string
}

// ConfigFromEnv cria a configuração a partir de variáveis de ambiente
func ConfigFromEnv() Config {
	environment := Environment(getEnv("NUVEMFISCAL_ENV", string(Sandbox)))

	apiBaseURL := "https://api.sandbox.nuvemfiscal.com.br"
	if environment == Production {
		apiBaseURL = "https://api.nuvemfiscal.com.br"
	}

	return Config{
		Environment:  environment,
		ClientID:     os.Getenv("NUVEMFISCAL_CLIENT_ID"),
		ClientSecret: os.Getenv("NUVEMFISCAL_CLIENT_SECRET"),
		Scope:        getEnv("NUVEMFISCAL_SCOPE", "nfse"),
		AuthBaseURL:  getEnv("NUVEMFISCAL_AUTH_BASE_URL", "https://auth.nuvemfiscal.com.br"),
		APIBaseURL:   getEnv("NUVEMFISCAL_API_BASE_URL", apiBaseURL),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
