// Package docs Circuit Microservice API.
//
// Сервис редактора circuits для карт точек интереса. Ведёт черновики
// маршрутов, сохранённые circuits, аннотации POI, импорт и экспорт GPX
// с согласованием принадлежности файлов, а также батч-слияние мобильных
// бэкапов в канонический GeoJSON.
//
// Основные возможности:
// - Стейт-машина черновика circuit (добавление, перестановка, замыкание, сохранение)
// - Аннотации POI с журналом модификаций
// - GPX кодек с тройным встраиванием идентификатора circuit
// - Согласование импортируемых GPX файлов
// - Слияние мобильных бэкапов в канонический GeoJSON
//
//	Schemes: http, https
//	BasePath: /
//	Version: 1.0.0
//
//	Consumes:
//	- application/json
//
//	Produces:
//	- application/json
//	- application/gpx+xml
//
// swagger:meta
package docs
