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

// FusionHandler - обработчик батч-слияния мобильных бэкапов
type FusionHandler struct {
	fusionUC *usecase.FusionUseCase
	logger   *zap.Logger
}

// NewFusionHandler - создание нового FusionHandler
func NewFusionHandler(fusionUC *usecase.FusionUseCase, logger *zap.Logger) *FusionHandler {
	return &FusionHandler{
		fusionUC: fusionUC,
		logger:   logger,
	}
}

// Analyze godoc
// @Summary Анализ слияния бэкапа
// @Description Классифицирует расхождения между каноническим GeoJSON и мобильным бэкапом: новые POI, GPS-коррекции, обогащение контента. Ничего не изменяет.
// @Tags Fusion
// @Accept json
// @Produce json
// @Param request body dto.FusionAnalyzeRequest true "Source и backup"
// @Success 200 {object} utils.SuccessResponse{data=dto.FusionAnalyzeResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/fusion/analyze [post]
func (h *FusionHandler) Analyze(c *fiber.Ctx) error {
	var req dto.FusionAnalyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest)
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	resp, err := h.fusionUC.Analyze(c.Context(), req)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, resp, nil)
}

// Apply godoc
// @Summary Применить выбранные изменения
// @Description Применяет отмеченные оператором изменения к source и возвращает итоговый GeoJSON. Детерминированно: одинаковые входы дают побайтово одинаковый выход.
// @Tags Fusion
// @Accept json
// @Produce json
// @Param request body dto.FusionApplyRequest true "Source, backup и выбор"
// @Success 200 {object} utils.SuccessResponse{data=dto.FusionApplyResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/fusion/apply [post]
func (h *FusionHandler) Apply(c *fiber.Ctx) error {
	var req dto.FusionApplyRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest)
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	resp, err := h.fusionUC.Apply(c.Context(), req)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, resp, nil)
}
