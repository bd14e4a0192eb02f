package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hugohenrick/nfse-gateway/internal/adapter/api/dto"
	"github.com/hugohenrick/nfse-gateway/internal/domain/user"
	"github.com/hugohenrick/nfse-gateway/pkg/auth"
	"github.com/hugohenrick/nfse-gateway/pkg/logger"
)

// AuthController manipula as requisições de autenticação
type AuthController struct {
	userRepo   user.Repository
	jwtService *auth.JWTService
	logger     logger.Logger
}

// NewAuthController cria uma nova instância de AuthController
func NewAuthController(userRepo user.Repository, jwtService *auth.JWTService, logger logger.Logger) *AuthController {
	return &AuthController{
		userRepo:   userRepo,
		jwtService: jwtService,
		logger:     logger,
	}
}

// @Summary Login
// @Description Autentica um usuário e retorna um token JWT
// @Tags Autenticação
// @Accept json
// @Produce json
// @Param credentials body dto.LoginRequest true "Credenciais"
// @Success 200 {object} dto.LoginResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(http.StatusBadRequest, "dados inválidos", err.Error()))
		return
	}

	u, err := c.userRepo.FindByEmail(ctx.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(http.StatusUnauthorized, "credenciais inválidas", ""))
			return
		}
		c.logger.Error("Falha ao buscar usuário no login", "error", err.Error())
		ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, "erro ao autenticar", err.Error()))
		return
	}

	if !u.Active || !u.CheckPassword(req.Password) {
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(http.StatusUnauthorized, "credenciais inválidas", ""))
		return
	}

	token, err := c.jwtService.GenerateToken(u)
	if err != nil {
		c.logger.Error("Falha ao gerar token", "error", err.Error())
		ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(http.StatusInternalServerError, "erro ao gerar token", err.Error()))
		return
	}

	ctx.JSON(http.StatusOK, dto.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		User:        dto.ToUserResponse(u),
	})
}
