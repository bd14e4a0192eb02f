package route

import (
	"github.com/gin-gonic/gin"
	"github.com/hugohenrick/nfse-gateway/internal/adapter/api/controller"
	"github.com/hugohenrick/nfse-gateway/pkg/auth"
)

// SetupFiscalRoutes configura as rotas para o módulo de emissões de NFS-e
func SetupFiscalRoutes(router *gin.RouterGroup, fiscalController *controller.FiscalController, jwtService *auth.JWTService) {
	// Todas as rotas de emissão requerem autenticação
	fiscalRouter := router.Group("/nfse")
	fiscalRouter.Use(auth.Middleware(jwtService))
	{
		fiscalRouter.POST("/emitir", fiscalController.Emitir)
		fiscalRouter.GET("", fiscalController.List)
		fiscalRouter.GET("/:id", fiscalController.GetByID)
		fiscalRouter.GET("/external/:externalId", fiscalController.GetByExternalID)

		// Diagnóstico e artefatos
		fiscalRouter.GET("/:id/provider-response", fiscalController.ProviderResponse)
		fiscalRouter.GET("/external/:externalId/provider-response", fiscalController.ProviderResponseByExternalID)
		fiscalRouter.GET("/:id/artifacts", fiscalController.Artifacts)
		fiscalRouter.GET("/:id/xml", fiscalController.DownloadXML)
		fiscalRouter.GET("/:id/pdf", fiscalController.DownloadPDF)
		fiscalRouter.POST("/:id/sync-artifacts", fiscalController.SyncArtifacts)
	}
}
