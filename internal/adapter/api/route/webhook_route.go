package route

import (
	"github.com/gin-gonic/gin"
	"github.com/hugohenrick/nfse-gateway/internal/adapter/api/controller"
)

// SetupWebhookRoutes configura as rotas de notificações dos provedores.
// Webhooks são autenticados pelo provedor, não por token de usuário.
func SetupWebhookRoutes(router *gin.RouterGroup, webhookController *controller.WebhookController) {
	router.POST("/webhooks/fiscal", webhookController.Receive)
}
