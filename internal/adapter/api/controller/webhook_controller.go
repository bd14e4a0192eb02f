package controller

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hugohenrick/nfse-gateway/internal/adapter/api/dto"
	"github.com/hugohenrick/nfse-gateway/internal/domain/emission"
	"github.com/hugohenrick/nfse-gateway/pkg/logger"
)

// WebhookController recebe notificações assíncronas dos provedores fiscais
type WebhookController struct {
	emissionRepo emission.Repository
	logger       logger.Logger
}

// NewWebhookController cria uma nova instância de WebhookController
func NewWebhookController(emissionRepo emission.Repository, logger logger.Logger) *WebhookController {
	return &WebhookController{
		emissionRepo: emissionRepo,
		logger:       logger,
	}
}

func webhookString(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := payload[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}

// @Summary Receber notificação do provedor
// @Description Processa notificações de mudança de status enviadas pelos provedores. A notificação endereça a emissão pelo externalId; a mesma guarda de status do polling se aplica.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param notification body object true "Corpo da notificação"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /webhooks/fiscal [post]
func (c *WebhookController) Receive(ctx *gin.Context) {
	body, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(http.StatusBadRequest, "corpo inválido", err.Error()))
		return
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(http.StatusBadRequest, "notificação inválida", err.Error()))
		return
	}

	externalID := webhookString(payload, "externalId", "id", "idNota", "protocol", "protocolo")
	if externalID == "" {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(http.StatusBadRequest, "notificação sem identificador da emissão", ""))
		return
	}

	rawStatus := webhookString(payload, "status", "situacao")
	status, ok := emission.ParseStatus(rawStatus)
	if !ok {
		// Status desconhecido mantém a emissão em acompanhamento pelo polling
		status = emission.StatusPending
	}

	update := emission.StatusUpdate{
		ExternalID:       externalID,
		Status:           status,
		ProviderResponse: body,
	}

	if err := c.emissionRepo.UpdateByExternalID(ctx.Request.Context(), update); err != nil {
		c.logger.Error("Falha ao aplicar notificação de webhook",
			"externalId", externalID,
			"error", err.Error())
		ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, "erro ao processar notificação", err.Error()))
		return
	}

	c.logger.Info("Notificação de webhook processada",
		"externalId", externalID,
		"status", string(status))

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse("notificação processada", nil))
}
