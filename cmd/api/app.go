package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hugohenrick/nfse-gateway/internal/adapter/api/controller"
	"github.com/hugohenrick/nfse-gateway/internal/adapter/api/route"
	"github.com/hugohenrick/nfse-gateway/internal/adapter/repository"
	"github.com/hugohenrick/nfse-gateway/internal/application"
	"github.com/hugohenrick/nfse-gateway/internal/domain/emission"
	"github.com/hugohenrick/nfse-gateway/internal/infrastructure/database"
	"github.com/hugohenrick/nfse-gateway/internal/provider"
	"github.com/hugohenrick/nfse-gateway/internal/provider/nuvemfiscal"
	"github.com/hugohenrick/nfse-gateway/internal/provider/plugnotas"
	"github.com/hugohenrick/nfse-gateway/pkg/auth"
	"github.com/hugohenrick/nfse-gateway/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
)

// App representa a aplicação e suas dependências
type App struct {
	router     *gin.Engine
	db         *pgxpool.Pool
	pollRunner *application.PollRunner
	logger     logger.Logger
}

// selectProvider escolhe a implementação de provedor fiscal pela variável
// FISCAL_PROVIDER
func selectProvider(log logger.Logger) (provider.FiscalProvider, emission.Provider, error) {
	clientConfig := provider.ClientConfigFromEnv()

	name := strings.ToUpper(strings.TrimSpace(os.Getenv("FISCAL_PROVIDER")))
	if name == "" {
		name = string(emission.ProviderNuvemFiscal)
	}

	switch emission.Provider(name) {
	case emission.ProviderNuvemFiscal:
		return nuvemfiscal.NewProvider(nuvemfiscal.ConfigFromEnv(), clientConfig, log), emission.ProviderNuvemFiscal, nil
	case emission.ProviderPlugNotas:
		return plugnotas.NewProvider(plugnotas.ConfigFromEnv(), clientConfig, log), emission.ProviderPlugNotas, nil
	default:
		return nil, "", fmt.Errorf("provedor fiscal desconhecido: %s", name)
	}
}

// NewApp cria uma nova instância do aplicativo
func NewApp() (*App, error) {
	log := logger.NewLogger()

	// Configurar banco de dados
	db, err := database.NewPostgresDB()
	if err != nil {
		return nil, err
	}

	// Selecionar o provedor fiscal
	fiscalProvider, providerName, err := selectProvider(logger.NewComponentLogger("provider"))
	if err != nil {
		db.Close()
		return nil, err
	}
	log.Info("Provedor fiscal configurado", "provider", string(providerName))

	// Criar repositórios
	emissionRepo := repository.NewEmissionRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Criar serviços de aplicação
	pollingConfig := application.NewPollingConfigFromEnv()
	syncConfig := application.NewSyncConfigFromEnv()

	emitService := application.NewEmitirNfseService(emissionRepo, fiscalProvider, logger.NewComponentLogger("emit"))
	pollService := application.NewPollNfseStatusService(emissionRepo, fiscalProvider, pollingConfig, logger.NewComponentLogger("poll"))
	syncService := application.NewSyncNfseArtifactsService(emissionRepo, fiscalProvider, syncConfig, logger.NewComponentLogger("sync"))
	pollRunner := application.NewPollRunner(pollService, pollingConfig, logger.NewComponentLogger("poll-runner"))

	// Criar serviço de JWT
	jwtService, err := auth.NewJWTService()
	if err != nil {
		db.Close()
		return nil, err
	}

	// Criar controllers
	fiscalController := controller.NewFiscalController(emissionRepo, emitService, syncService, logger.NewComponentLogger("fiscal"))
	webhookController := controller.NewWebhookController(emissionRepo, logger.NewComponentLogger("webhook"))
	authController := controller.NewAuthController(userRepo, jwtService, logger.NewComponentLogger("auth"))
	setupController := controller.NewSetupController(userRepo, logger.NewComponentLogger("setup"))

	// Configurar router
	router := gin.Default()
	router.Use(cors.Default())

	api := router.Group("/api/v1")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"provider": string(providerName),
		})
	})

	route.SetupSetupRoutes(api, setupController)
	route.SetupAuthRoutes(api, authController)
	route.SetupWebhookRoutes(api, webhookController)
	route.SetupFiscalRoutes(api, fiscalController, jwtService)

	return &App{
		router:     router,
		db:         db,
		pollRunner: pollRunner,
		logger:     log,
	}, nil
}

// Start inicia o servidor HTTP e o polling em segundo plano, encerrando
// ambos de forma ordenada ao receber SIGINT ou SIGTERM
func (a *App) Start() error {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.pollRunner.Start(ctx)

	server := &http.Server{
		Addr:    ":" + port,
		Handler: a.router,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Servidor iniciado", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		a.logger.Info("Encerrando servidor", "signal", sig.String())
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return server.Shutdown(shutdownCtx)
}

// Close libera os recursos da aplicação
func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
