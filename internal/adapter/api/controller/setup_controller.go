package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hugohenrick/nfse-gateway/internal/adapter/api/dto"
	"github.com/hugohenrick/nfse-gateway/internal/domain/user"
	"github.com/hugohenrick/nfse-gateway/pkg/logger"
)

// SetupController manipula a configuração inicial do sistema
type SetupController struct {
	userRepo user.Repository
	logger   logger.Logger
}

// NewSetupController cria uma nova instância de SetupController
func NewSetupController(userRepo user.Repository, logger logger.Logger) *SetupController {
	return &SetupController{
		userRepo: userRepo,
		logger:   logger,
	}
}

// @Summary Criar usuário administrador inicial
// @Description Cria o primeiro usuário administrador. Disponível apenas enquanto nenhum administrador existir.
// @Tags Setup
// @Accept json
// @Produce json
// @Param user body dto.CreateUserRequest true "Dados do administrador"
// @Success 201 {object} dto.UserResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /setup/admin [post]
func (c *SetupController) CreateAdminUser(ctx *gin.Context) {
	count, err := c.userRepo.CountAdmins(ctx.Request.Context())
	if err != nil {
		c.logger.Error("Falha ao verificar administradores existentes", "error", err.Error())
		ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, "erro ao verificar configuração", err.Error()))
		return
	}
	if count > 0 {
		ctx.JSON(http.StatusForbidden, dto.NewErrorResponse(http.StatusForbidden, "sistema já configurado", ""))
		return
	}

	var req dto.CreateUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(http.StatusBadRequest, "dados inválidos", err.Error()))
		return
	}

	u, err := user.NewUser(req.Name, req.Email, req.Password, user.RoleAdmin)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(http.StatusBadRequest, "erro ao criar usuário", err.Error()))
		return
	}

	if err := c.userRepo.Create(ctx.Request.Context(), u); err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			ctx.JSON(http.StatusConflict, dto.NewErrorResponse(http.StatusConflict, "email já cadastrado", ""))
			return
		}
		c.logger.Error("Falha ao criar administrador inicial", "error", err.Error())
		ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, "erro ao criar usuário", err.Error()))
		return
	}

	c.logger.Info("Administrador inicial criado", "email", u.Email)

	ctx.JSON(http.StatusCreated, dto.ToUserResponse(u))
}
