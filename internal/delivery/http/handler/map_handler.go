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

// MapHandler - обработчик базового слоя карты, аннотаций и экспорта
type MapHandler struct {
	mapUC  *usecase.MapUseCase
	logger *zap.Logger
}

// NewMapHandler - создание нового MapHandler
func NewMapHandler(mapUC *usecase.MapUseCase, logger *zap.Logger) *MapHandler {
	return &MapHandler{
		mapUC:  mapUC,
		logger: logger,
	}
}

// LoadGeoJSON godoc
// @Summary Загрузить базовый GeoJSON карты
// @Description Загружает слой POI в сессию. Features без распознаваемого идентификатора отбрасываются.
// @Tags Maps
// @Accept json
// @Produce json
// @Param map_id path string true "Идентификатор карты"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/maps/{map_id}/geojson [post]
func (h *MapHandler) LoadGeoJSON(c *fiber.Ctx) error {
	loaded, dropped, err := h.mapUC.LoadGeoJSON(c.Context(), c.Params("map_id"), c.Body())
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, fiber.Map{
		"loaded":  loaded,
		"dropped": dropped,
	}, &utils.Meta{Total: loaded})
}

// Annotate godoc
// @Summary Обновить аннотации POI
// @Description Частичное обновление: читается существующая запись, сливается с переданными полями, несвязанные поля не затираются. Каждое изменившееся поле журналируется.
// @Tags Maps
// @Accept json
// @Produce json
// @Param map_id path string true "Идентификатор карты"
// @Param poi_id path string true "Идентификатор POI"
// @Param request body dto.AnnotateRequest true "Поля аннотаций"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Router /api/v1/maps/{map_id}/pois/{poi_id}/annotations [put]
func (h *MapHandler) Annotate(c *fiber.Ctx) error {
	var req dto.AnnotateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, errors.ErrInvalidRequest)
	}
	if err := validator.Validate(&req); err != nil {
		return utils.SendError(c, err)
	}

	merged, err := h.mapUC.Annotate(c.Context(), c.Params("map_id"), c.Params("poi_id"), req)
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, merged, nil)
}

// Annotations godoc
// @Summary Все аннотации карты
// @Tags Maps
// @Produce json
// @Param map_id path string true "Идентификатор карты"
// @Success 200 {object} utils.SuccessResponse
// @Router /api/v1/maps/{map_id}/annotations [get]
func (h *MapHandler) Annotations(c *fiber.Ctx) error {
	annotations, err := h.mapUC.Annotations(c.Context(), c.Params("map_id"))
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, annotations, &utils.Meta{Total: len(annotations)})
}

// PoiClusters godoc
// @Summary Кластеры POI карты
// @Description Группирует загруженные POI транзитивным замыканием по порогу близости; выбросы из общего облака точек возвращаются отдельно.
// @Tags Maps
// @Produce json
// @Param map_id path string true "Идентификатор карты"
// @Success 200 {object} utils.SuccessResponse
// @Router /api/v1/maps/{map_id}/clusters [get]
func (h *MapHandler) PoiClusters(c *fiber.Ctx) error {
	clusters, err := h.mapUC.PoiClusters(c.Context(), c.Params("map_id"))
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, clusters, &utils.Meta{Total: len(clusters.Clusters)})
}

// ExportBackup godoc
// @Summary Экспорт бэкапа карты
// @Description Полный снимок: базовый GeoJSON, аннотации, circuits, скрытые POI.
// @Tags Maps
// @Produce json
// @Param map_id path string true "Идентификатор карты"
// @Success 200 {object} domain.Backup
// @Router /api/v1/maps/{map_id}/backup [get]
func (h *MapHandler) ExportBackup(c *fiber.Ctx) error {
	backup, err := h.mapUC.ExportBackup(c.Context(), c.Params("map_id"))
	if err != nil {
		return utils.SendError(c, err)
	}

	c.Set(fiber.HeaderContentDisposition, `attachment; filename="backup.json"`)
	return c.JSON(backup)
}

// ExportModLog godoc
// @Summary Журнал модификаций карты
// @Description Append-only журнал изменений аннотаций в порядке добавления.
// @Tags Maps
// @Produce json
// @Param map_id path string true "Идентификатор карты"
// @Success 200 {object} utils.SuccessResponse
// @Router /api/v1/maps/{map_id}/modlog [get]
func (h *MapHandler) ExportModLog(c *fiber.Ctx) error {
	entries, err := h.mapUC.ExportModLog(c.Context(), c.Params("map_id"))
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, entries, &utils.Meta{Total: len(entries)})
}

// RecoverDraft godoc
// @Summary Восстановить черновик из recovery-слота
// @Description Возвращает черновик, сохранённый перед сбоем клиента. Пустой слот - data: null, не ошибка.
// @Tags Maps
// @Produce json
// @Param map_id path string true "Идентификатор карты"
// @Success 200 {object} utils.SuccessResponse
// @Router /api/v1/maps/{map_id}/draft/recover [post]
func (h *MapHandler) RecoverDraft(c *fiber.Ctx) error {
	draft, err := h.mapUC.RecoverDraft(c.Context(), c.Params("map_id"))
	if err != nil {
		return utils.SendError(c, err)
	}
	return utils.SendSuccess(c, draft, nil)
}
