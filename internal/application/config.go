package application

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// PollingConfig contém os parâmetros da reconciliação por polling
type PollingConfig struct {
	Enabled        bool
	Interval       time.Duration
	Jitter         time.Duration
	Limit          int
	OlderThan      time.Duration
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	BackoffJitter  time.Duration
	MaxAttempts    int
	StoreArtifacts bool
}

// NewPollingConfigFromEnv cria a configuração de polling a partir de variáveis
// de ambiente. O intervalo tem piso de um minuto para não sobrecarregar o
// provedor externo.
func NewPollingConfigFromEnv() PollingConfig {
	interval := envDuration("NFSE_POLLING_INTERVAL_MS", 300000)
	if interval < time.Minute {
		interval = 5 * time.Minute
	}

	return PollingConfig{
		Enabled:        envBool("NFSE_POLLING_ENABLED", true),
		Interval:       interval,
		Jitter:         envDuration("NFSE_POLLING_JITTER_MS", 15000),
		Limit:          envInt("NFSE_POLLING_LIMIT", 50),
		OlderThan:      envDuration("NFSE_POLLING_OLDER_THAN_MS", 30000),
		BackoffBase:    envDuration("NFSE_POLLING_BACKOFF_BASE_MS", 60000),
		BackoffMax:     envDuration("NFSE_POLLING_BACKOFF_MAX_MS", 900000),
		BackoffJitter:  envDuration("NFSE_POLLING_BACKOFF_JITTER_MS", 5000),
		MaxAttempts:    envInt("NFSE_POLLING_MAX_ATTEMPTS", 12),
		StoreArtifacts: envBool("NFSE_STORE_ARTIFACTS", true),
	}
}

// SyncConfig contém os parâmetros da sincronização manual de artefatos
type SyncConfig struct {
	MinInterval time.Duration
}

// NewSyncConfigFromEnv cria a configuração de sincronização manual
func NewSyncConfigFromEnv() SyncConfig {
	return SyncConfig{
		MinInterval: envDuration("NFSE_SYNC_ARTIFACTS_MIN_INTERVAL_MS", 60000),
	}
}

func envInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func envBool(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1"
}

func envDuration(key string, defaultMs int) time.Duration {
	return time.Duration(envInt(key, defaultMs)) * time.Millisecond
}
