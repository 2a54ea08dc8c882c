package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/circuit-microservice/internal/pkg/errors"
	"github.com/circuit-microservice/internal/pkg/utils"
	"github.com/circuit-microservice/internal/pkg/validator"
	"github.com/circuit-microservice/internal/usecase"
	"github.com/circuit-microservice/internal/usecase/dto"
)

// CircuitHandler - обработчик операций над circuits и черновиком
type CircuitHandler struct {
	circuitUC *usecase.CircuitUseCase
	logger    *zap.Logger
}

// NewCircuitHandler - создание нового CircuitHandler
func NewCircuitHandler(circuitUC *usecase.CircuitUseCase, logger *zap.Logger) *CircuitHandler {
	return &CircuitHandler{
		circuitUC: circuitUC,
		logger:    logger,
	}
}

// GetDraft godoc
// @Summary Текущий черновик circuit
// @Description Возвращает рабочее состояние черновика карты: список точек, сгенерированное имя, дистанцию и флаг read-only.
// @Tags Circuits
// @Produce json
// @Param map_id path string true "Идентификатор карты"
// @Success 200 {object} utils.SuccessResponse{data=dto.DraftResponse}
// @Router /api/v1/maps/{map_id}/draft [get]
func (h *CircuitHandler) GetDraft(c *fiber.Ctx) error {
	resp := h.circuitUC.Draft(c.Context(), c.Params("map_id"))
	return utils.SendSuccess(c, resp, nil)
}

// AddPoi godoc
// @Summary Добавить POI в черновик
// @Description Добавляет точку в конец черновика. Отказы (дубликат подряд, переполнение, read-only) возвращаются как ошибки с кодами.
// @Tags Circuits
// @Accept json
// @Produce json
// @Param map_id path string true "Идентификатор карты"
// @Param request body dto.AddPoiRequest true "POI"
// @Success 200 {object} utils.SuccessResponse{data=dto.DraftResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /api/v1/maps/{map_id}/draft/points [post]
func (h *CircuitHandler) AddPoi(c *fiber.Ctx) error {
	var req dto.AddPoiRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest)
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	resp, err := h.circuitUC.AddPoi(c.Context(), c.Params("map_id"), req.PoiID)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, resp, nil)
}

// Reorder godoc
// @Summary Переставить точку черновика
// @Description Меняет точку местами с соседней. Перемещение за границу списка - no-op, а не ошибка.
// @Tags Circuits
// @Accept json
// @Produce json
// @Param map_id path string true "Идентификатор карты"
// @Param request body dto.ReorderRequest true "Индекс и направление"
// @Success 200 {object} utils.SuccessResponse{data=dto.DraftResponse}
// @Router /api/v1/maps/{map_id}/draft/reorder [post]
func (h *CircuitHandler) Reorder(c *fiber.Ctx) error {
	var req dto.ReorderRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest)
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	resp, err := h.circuitUC.Reorder(c.Context(), c.Params("map_id"), req.Index, req.Direction)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, resp, nil)
}

// RemovePoint godoc
// @Summary Удалить точку черновика
// @Tags Circuits
// @Produce json
// @Param map_id path string true "Идентификатор карты"
// @Param index path int true "Индекс точки"
// @Success 200 {object} utils.SuccessResponse{data=dto.DraftResponse}
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/maps/{map_id}/draft/points/{index} [delete]
func (h *CircuitHandler) RemovePoint(c *fiber.Ctx) error {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest)
	}

	resp, removed, err := h.circuitUC.RemovePoint(c.Context(), c.Params("map_id"), index)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, fiber.Map{
		"draft":          resp,
		"removed_poi_id": removed,
	}, nil)
}

// Loop godoc
// @Summary Замкнуть черновик
// @Description Добавляет стартовую точку в конец маршрута. Единственная операция, которой разрешён повтор последней точки.
// @Tags Circuits
// @Produce json
// @Param map_id path string true "Идентификатор карты"
// @Success 200 {object} utils.SuccessResponse{data=dto.DraftResponse}
// @Failure 409 {object} utils.ErrorResponse
// @Router /api/v1/maps/{map_id}/draft/loop [post]
func (h *CircuitHandler) Loop(c *fiber.Ctx) error {
	resp, err := h.circuitUC.Loop(c.Context(), c.Params("map_id"))
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, resp, nil)
}

// Save godoc
// @Summary Сохранить черновик
// @Description Присваивает черновику идентификатор при первом сохранении и записывает его. Пустое имя заменяется сгенерированным.
// @Tags Circuits
// @Accept json
// @Produce json
// @Param map_id path string true "Идентификатор карты"
// @Param request body dto.SaveCircuitRequest true "Имя, описание, транспорт"
// @Success 200 {object} utils.SuccessResponse{data=domain.Circuit}
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/maps/{map_id}/draft/save [post]
func (h *CircuitHandler) Save(c *fiber.Ctx) error {
	var req dto.SaveCircuitRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest)
	}

	circuit, err := h.circuitUC.Save(c.Context(), c.Params("map_id"), req)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, circuit, nil)
}

// ConvertToDraft godoc
// @Summary Отвязать активный circuit
// @Description Сбрасывает идентификатор активного circuit, сохраняя список точек. Снимает read-only с официальных circuits.
// @Tags Circuits
// @Produce json
// @Param map_id path string true "Идентификатор карты"
// @Success 200 {object} utils.SuccessResponse{data=dto.DraftResponse}
// @Router /api/v1/maps/{map_id}/draft/detach [post]
func (h *CircuitHandler) ConvertToDraft(c *fiber.Ctx) error {
	resp, err := h.circuitUC.ConvertToDraft(c.Context(), c.Params("map_id"))
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, resp, nil)
}

// List godoc
// @Summary Circuits карты
// @Tags Circuits
// @Produce json
// @Param map_id path string true "Идентификатор карты"
// @Success 200 {object} utils.SuccessResponse{data=dto.CircuitListResponse}
// @Router /api/v1/maps/{map_id}/circuits [get]
func (h *CircuitHandler) List(c *fiber.Ctx) error {
	resp, err := h.circuitUC.List(c.Context(), c.Params("map_id"))
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, resp, &utils.Meta{Total: resp.Total})
}

// Load godoc
// @Summary Загрузить circuit для просмотра
// @Description Делает circuit активным. Официальные circuits открываются в read-only; реальный трек подтягивается из GPX лениво.
// @Tags Circuits
// @Produce json
// @Param map_id path string true "Идентификатор карты"
// @Param id path string true "Идентификатор circuit"
// @Success 200 {object} utils.SuccessResponse{data=dto.DraftResponse}
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/maps/{map_id}/circuits/{id} [get]
func (h *CircuitHandler) Load(c *fiber.Ctx) error {
	resp, err := h.circuitUC.LoadByID(c.Context(), c.Params("map_id"), c.Params("id"))
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, resp, nil)
}

// Delete godoc
// @Summary Удалить circuit
// @Description Soft-delete. Отказ для официального circuit - ожидаемый результат (success=false), а не ошибка.
// @Tags Circuits
// @Produce json
// @Param map_id path string true "Идентификатор карты"
// @Param id path string true "Идентификатор circuit"
// @Success 200 {object} utils.SuccessResponse{data=dto.DeleteResult}
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/maps/{map_id}/circuits/{id} [delete]
func (h *CircuitHandler) Delete(c *fiber.Ctx) error {
	result, err := h.circuitUC.Delete(c.Context(), c.Params("map_id"), c.Params("id"))
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, result, nil)
}

// SetVisited godoc
// @Summary Статус посещения circuit
// @Tags Circuits
// @Accept json
// @Produce json
// @Param map_id path string true "Идентификатор карты"
// @Param id path string true "Идентификатор circuit"
// @Param request body dto.SetVisitedRequest true "Статус"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/maps/{map_id}/circuits/{id}/visited [put]
func (h *CircuitHandler) SetVisited(c *fiber.Ctx) error {
	var req dto.SetVisitedRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest)
	}

	if err := h.circuitUC.SetVisited(c.Context(), c.Params("map_id"), c.Params("id"), req.Visited); err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, fiber.Map{"visited": req.Visited}, nil)
}

// ExportGPX godoc
// @Summary Экспорт circuit в GPX
// @Description Возвращает GPX файл с тройным встраиванием идентификатора в метаданные.
// @Tags Circuits
// @Produce application/gpx+xml
// @Param map_id path string true "Идентификатор карты"
// @Param id path string true "Идентификатор circuit"
// @Success 200 {string} string "GPX документ"
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/maps/{map_id}/circuits/{id}/gpx [get]
func (h *CircuitHandler) ExportGPX(c *fiber.Ctx) error {
	filename, data, err := h.circuitUC.ExportGPX(c.Context(), c.Params("map_id"), c.Params("id"))
	if err != nil {
		return utils.SendError(c, err)
	}

	c.Set(fiber.HeaderContentType, "application/gpx+xml")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(data)
}

// ImportShareLink godoc
// @Summary Импорт circuit из shared-ссылки
// @Description Принимает query-строку "?import=...", legacy токен "hw:..." или список id. POI, отсутствующие на карте, молча отбрасываются.
// @Tags Circuits
// @Accept json
// @Produce json
// @Param request body dto.ImportLinkRequest true "Ссылка"
// @Success 200 {object} utils.SuccessResponse{data=domain.Circuit}
// @Failure 404 {object} utils.ErrorResponse
// @Router /api/v1/circuits/import-link [post]
func (h *CircuitHandler) ImportShareLink(c *fiber.Ctx) error {
	var req dto.ImportLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest)
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	circuit, err := h.circuitUC.ImportFromShareLink(c.Context(), req)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, circuit, nil)
}
