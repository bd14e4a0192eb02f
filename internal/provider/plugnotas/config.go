package plugnotas

import (
	"os"
	"strings"
)

// Environment define o ambiente da PlugNotas
type Environment string

const (
	Sandbox    Environment = "sandbox"
	Production Environment = "production"
)

// Config contém as credenciais e templates de caminho da PlugNotas
type Config struct {
	Environment     Environment
	BaseURL         string
	APIKey          string
	XMLPathTemplate string
	PDFPathTemplate string
}

// ConfigFromEnv cria a configuração a partir de variáveis de ambiente.
// O ambiente é inferido da URL base quando não informado explicitamente.
func ConfigFromEnv() Config {
	baseURL := getEnv("PLUGNOTAS_BASE_URL", "https://api.sandbox.plugnotas.com.br")

	environment := Environment(os.Getenv("PLUGNOTAS_ENV"))
	if environment == "" {
		environment = Production
		if strings.Contains(baseURL, "sandbox") {
			environment = Sandbox
		}
	}

	return Config{
		Environment:     environment,
		BaseURL:         baseURL,
		APIKey:          os.Getenv("PLUGNOTAS_API_KEY"),
		XMLPathTemplate: getEnv("PLUGNOTAS_NFSE_XML_PATH", "/nfse/xml/{id}"),
		PDFPathTemplate: getEnv("PLUGNOTAS_NFSE_PDF_PATH", "/nfse/pdf/{id}"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
