package controller

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hugohenrick/nfse-gateway/internal/adapter/api/dto"
	"github.com/hugohenrick/nfse-gateway/internal/application"
	"github.com/hugohenrick/nfse-gateway/internal/domain/emission"
	"github.com/hugohenrick/nfse-gateway/pkg/logger"
)

// FiscalController manipula as requisições relacionadas a emissões de NFS-e
type FiscalController struct {
	emissionRepo emission.Repository
	emitService  *application.EmitirNfseService
	syncService  *application.SyncNfseArtifactsService
	logger       logger.Logger
}

// NewFiscalController cria uma nova instância de FiscalController
func NewFiscalController(emissionRepo emission.Repository, emitService *application.EmitirNfseService, syncService *application.SyncNfseArtifactsService, logger logger.Logger) *FiscalController {
	return &FiscalController{
		emissionRepo: emissionRepo,
		emitService:  emitService,
		syncService:  syncService,
		logger:       logger,
	}
}

// @Summary Emitir NFS-e
// @Description Submete uma NFS-e ao provedor fiscal configurado. Requisições repetidas com a mesma referência externa retornam a emissão já registrada.
// @Tags NFS-e
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param nfse body emission.EmitirNfseInput true "Dados da NFS-e"
// @Success 202 {object} dto.EmitirNfseResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /nfse/emitir [post]
func (c *FiscalController) Emitir(ctx *gin.Context) {
	var input emission.EmitirNfseInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(http.StatusBadRequest, "dados inválidos", err.Error()))
		return
	}

	out, err := c.emitService.Execute(ctx.Request.Context(), &input)
	if err != nil {
		var validationErr *emission.ValidationError
		if errors.As(err, &validationErr) {
			ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(http.StatusBadRequest, "requisição inválida", validationErr.Error()))
			return
		}

		var rejectedErr *emission.ProviderRejectedError
		if errors.As(err, &rejectedErr) {
			ctx.JSON(http.StatusUnprocessableEntity, dto.NewErrorResponse(http.StatusUnprocessableEntity, "emissão rejeitada pelo provedor", rejectedErr.Error()))
			return
		}

		c.logger.Error("Falha ao submeter emissão", "error", err.Error())
		ctx.JSON(http.StatusBadGateway, dto.NewErrorResponse(http.StatusBadGateway, "falha ao comunicar com o provedor", err.Error()))
		return
	}

	status := http.StatusAccepted
	if out.IdempotentReplay {
		status = http.StatusOK
	}
	ctx.JSON(status, dto.ToEmitirNfseResponse(out))
}

// @Summary Listar emissões
// @Description Lista emissões com paginação e filtros opcionais de provedor e status
// @Tags NFS-e
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param page query int false "Página"
// @Param limit query int false "Itens por página"
// @Param provider query string false "Provedor (NUVEMFISCAL ou PLUGNOTAS)"
// @Param status query string false "Status (PENDING, AUTHORIZED, REJECTED, CANCELED, ERROR)"
// @Success 200 {object} dto.EmissionListResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /nfse [get]
func (c *FiscalController) List(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if limit > 100 {
		limit = 100
	}

	filter := emission.ListFilter{
		Provider: ctx.Query("provider"),
		Page:     page,
		Limit:    limit,
	}

	if raw := ctx.Query("status"); raw != "" {
		status, ok := emission.ParseStatus(raw)
		if !ok {
			ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(http.StatusBadRequest, "status inválido", raw))
			return
		}
		filter.Status = &status
	}

	result, err := c.emissionRepo.FindPaginated(ctx.Request.Context(), filter)
	if err != nil {
		c.logger.Error("Falha ao listar emissões", "error", err.Error())
		ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, "erro ao listar emissões", err.Error()))
		return
	}

	ctx.JSON(http.StatusOK, dto.ToEmissionListResponse(result))
}

func (c *FiscalController) findEmission(ctx *gin.Context) (*emission.Emission, bool) {
	e, err := c.emissionRepo.FindByID(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		if errors.Is(err, emission.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, dto.NewErrorResponse(http.StatusNotFound, "emissão não encontrada", ""))
			return nil, false
		}
		c.logger.Error("Falha ao buscar emissão", "id", ctx.Param("id"), "error", err.Error())
		ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, "erro ao buscar emissão", err.Error()))
		return nil, false
	}
	return e, true
}

// @Summary Buscar emissão por ID
// @Description Retorna os dados de uma emissão pelo seu identificador interno
// @Tags NFS-e
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param id path string true "ID da emissão"
// @Success 200 {object} dto.EmissionResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /nfse/{id} [get]
func (c *FiscalController) GetByID(ctx *gin.Context) {
	e, ok := c.findEmission(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, dto.ToEmissionResponse(e))
}

// @Summary Buscar emissão por externalId
// @Description Retorna os dados de uma emissão pelo identificador atribuído pelo provedor
// @Tags NFS-e
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param externalId path string true "Identificador no provedor"
// @Success 200 {object} dto.EmissionResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /nfse/external/{externalId} [get]
func (c *FiscalController) GetByExternalID(ctx *gin.Context) {
	e, err := c.emissionRepo.FindByExternalID(ctx.Request.Context(), ctx.Param("externalId"))
	if err != nil {
		if errors.Is(err, emission.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, dto.NewErrorResponse(http.StatusNotFound, "emissão não encontrada", ""))
			return
		}
		c.logger.Error("Falha ao buscar emissão por externalId", "externalId", ctx.Param("externalId"), "error", err.Error())
		ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, "erro ao buscar emissão", err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, dto.ToEmissionResponse(e))
}

// @Summary Consultar resposta bruta do provedor
// @Description Retorna a última resposta recebida do provedor para a emissão
// @Tags NFS-e
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param id path string true "ID da emissão"
// @Success 200 {object} dto.ProviderResponseResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /nfse/{id}/provider-response [get]
func (c *FiscalController) ProviderResponse(ctx *gin.Context) {
	e, ok := c.findEmission(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, dto.ToProviderResponseResponse(e))
}

// @Summary Consultar resposta bruta do provedor por externalId
// @Tags NFS-e
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param externalId path string true "Identificador no provedor"
// @Success 200 {object} dto.ProviderResponseResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /nfse/external/{externalId}/provider-response [get]
func (c *FiscalController) ProviderResponseByExternalID(ctx *gin.Context) {
	e, err := c.emissionRepo.FindByExternalID(ctx.Request.Context(), ctx.Param("externalId"))
	if err != nil {
		if errors.Is(err, emission.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, dto.NewErrorResponse(http.StatusNotFound, "emissão não encontrada", ""))
			return
		}
		c.logger.Error("Falha ao buscar emissão por externalId", "externalId", ctx.Param("externalId"), "error", err.Error())
		ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, "erro ao buscar emissão", err.Error()))
		return
	}
	ctx.JSON(http.StatusOK, dto.ToProviderResponseResponse(e))
}

// @Summary Consultar artefatos da emissão
// @Description Informa quais artefatos (XML e PDF) estão disponíveis para download
// @Tags NFS-e
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param id path string true "ID da emissão"
// @Success 200 {object} dto.ArtifactsResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /nfse/{id}/artifacts [get]
func (c *FiscalController) Artifacts(ctx *gin.Context) {
	e, ok := c.findEmission(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, dto.ToArtifactsResponse(e))
}

func (c *FiscalController) downloadArtifact(ctx *gin.Context, encoded, contentType, extension string) {
	if encoded == "" {
		ctx.JSON(http.StatusNotFound, dto.NewErrorResponse(http.StatusNotFound, "artefato não disponível para esta emissão", ""))
		return
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		c.logger.Error("Falha ao decodificar artefato armazenado", "id", ctx.Param("id"), "error", err.Error())
		ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, "artefato armazenado é inválido", err.Error()))
		return
	}

	filename := fmt.Sprintf("nfse-%s.%s", ctx.Param("id"), extension)
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	ctx.Data(http.StatusOK, contentType, data)
}

// @Summary Baixar XML da NFS-e
// @Tags NFS-e
// @Produce xml
// @Param Authorization header string true "Bearer token"
// @Param id path string true "ID da emissão"
// @Success 200 {file} binary
// @Failure 404 {object} dto.ErrorResponse
// @Router /nfse/{id}/xml [get]
func (c *FiscalController) DownloadXML(ctx *gin.Context) {
	e, ok := c.findEmission(ctx)
	if !ok {
		return
	}
	c.downloadArtifact(ctx, e.XMLBase64, "application/xml", "xml")
}

// @Summary Baixar PDF da NFS-e
// @Tags NFS-e
// @Produce octet-stream
// @Param Authorization header string true "Bearer token"
// @Param id path string true "ID da emissão"
// @Success 200 {file} binary
// @Failure 404 {object} dto.ErrorResponse
// @Router /nfse/{id}/pdf [get]
func (c *FiscalController) DownloadPDF(ctx *gin.Context) {
	e, ok := c.findEmission(ctx)
	if !ok {
		return
	}
	c.downloadArtifact(ctx, e.PDFBase64, "application/pdf", "pdf")
}

// @Summary Sincronizar artefatos manualmente
// @Description Recupera XML e PDF diretamente do provedor para emissões autorizadas cujo polling não os obteve
// @Tags NFS-e
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param id path string true "ID da emissão"
// @Success 200 {object} dto.SyncArtifactsResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Router /nfse/{id}/sync-artifacts [post]
func (c *FiscalController) SyncArtifacts(ctx *gin.Context) {
	input := application.SyncNfseArtifactsInput{
		EmissionID:  ctx.Param("id"),
		RequestedBy: ctx.GetString("user_email"),
		IP:          ctx.ClientIP(),
	}

	result, err := c.syncService.Execute(ctx.Request.Context(), input)
	if err != nil {
		var rateLimitedErr *emission.RateLimitedError
		if errors.As(err, &rateLimitedErr) {
			ctx.Header("Retry-After", strconv.Itoa(int(rateLimitedErr.RetryAfter/time.Second)+1))
			ctx.JSON(http.StatusTooManyRequests, dto.NewErrorResponse(http.StatusTooManyRequests, "sincronização limitada", rateLimitedErr.Error()))
			return
		}

		var validationErr *emission.ValidationError
		if errors.As(err, &validationErr) {
			ctx.JSON(http.StatusUnprocessableEntity, dto.NewErrorResponse(http.StatusUnprocessableEntity, "emissão sem identificador no provedor", validationErr.Error()))
			return
		}

		c.logger.Error("Falha ao sincronizar artefatos", "id", ctx.Param("id"), "error", err.Error())
		ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, "erro ao sincronizar artefatos", err.Error()))
		return
	}

	if !result.Found {
		ctx.JSON(http.StatusNotFound, dto.NewErrorResponse(http.StatusNotFound, "emissão não encontrada", ""))
		return
	}

	ctx.JSON(http.StatusOK, dto.ToSyncArtifactsResponse(result))
}
