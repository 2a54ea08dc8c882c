package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/circuit-microservice/internal/pkg/errors"
	"github.com/circuit-microservice/internal/pkg/utils"
	"github.com/circuit-microservice/internal/pkg/validator"
	"github.com/circuit-microservice/internal/usecase"
	"github.com/circuit-microservice/internal/usecase/dto"
)

// GPXHandler - обработчик импорта GPX файлов
type GPXHandler struct {
	reconcileUC *usecase.ReconcileUseCase
	logger      *zap.Logger
}

// NewGPXHandler - создание нового GPXHandler
func NewGPXHandler(reconcileUC *usecase.ReconcileUseCase, logger *zap.Logger) *GPXHandler {
	return &GPXHandler{
		reconcileUC: reconcileUC,
		logger:      logger,
	}
}

// Analyze godoc
// @Summary Анализ импортируемого GPX
// @Description Решает, принадлежит ли файл целевому circuit: зона карты, встроенный идентификатор, затем эвристика близости. Файлы без идентификатора получают токен подтверждения.
// @Tags GPX
// @Accept json
// @Produce json
// @Param request body dto.GPXImportRequest true "Файл и цель"
// @Success 200 {object} utils.SuccessResponse{data=dto.GPXImportDecision}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /api/v1/gpx/import [post]
func (h *GPXHandler) Analyze(c *fiber.Ctx) error {
	var req dto.GPXImportRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest)
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	decision, err := h.reconcileUC.Analyze(c.Context(), req)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, decision, nil)
}

// Confirm godoc
// @Summary Подтвердить или отклонить отложенный импорт
// @Description Завершает импорт по токену из ответа анализа. Истёкший или использованный токен равнозначен отказу.
// @Tags GPX
// @Accept json
// @Produce json
// @Param token path string true "Токен отложенного импорта"
// @Param request body dto.GPXConfirmRequest true "Решение пользователя"
// @Success 200 {object} utils.SuccessResponse{data=dto.GPXImportDecision}
// @Failure 410 {object} utils.ErrorResponse
// @Router /api/v1/gpx/import/{token}/confirm [post]
func (h *GPXHandler) Confirm(c *fiber.Ctx) error {
	var req dto.GPXConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest)
	}

	decision, err := h.reconcileUC.Confirm(c.Context(), c.Params("token"), req)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, decision, nil)
}
