package route

import (
	"github.com/gin-gonic/gin"
	"github.com/hugohenrick/nfse-gateway/internal/adapter/api/controller"
)

// SetupSetupRoutes configura as rotas de configuração inicial do sistema
func SetupSetupRoutes(router *gin.RouterGroup, setupController *controller.SetupController) {
	setupRouter := router.Group("/setup")
	{
		setupRouter.POST("/admin", setupController.CreateAdminUser)
	}
}
