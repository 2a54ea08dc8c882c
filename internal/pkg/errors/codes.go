package errors

import "net/http"

// Validation rejections: состояние не меняется, пользователю показывается warning
var (
	ErrCircuitFull = New(
		"CIRCUIT_FULL",
		"Circuit has reached the maximum number of points",
		http.StatusConflict,
	)

	ErrDuplicatePoint = New(
		"DUPLICATE_POINT",
		"This POI is already the last point of the circuit",
		http.StatusConflict,
	)

	ErrCircuitReadOnly = New(
		"CIRCUIT_READ_ONLY",
		"Active circuit is read-only, convert it to draft first",
		http.StatusConflict,
	)

	ErrPoiNotIdentified = New(
		"POI_NOT_IDENTIFIED",
		"Feature has no resolvable identifier",
		http.StatusBadRequest,
	)
)

// Trust/safety отказы импорта (wrong zone, id mismatch) - не ошибки,
// а отрицательные решения: см. dto.GPXImportDecision. Ошибкой остаётся
// только протухший токен подтверждения.
var (
	ErrImportExpired = New(
		"IMPORT_EXPIRED",
		"Pending GPX import has expired or does not exist",
		http.StatusGone,
	)
)

// Technical failures
var (
	ErrCircuitNotFound = New(
		"CIRCUIT_NOT_FOUND",
		"Circuit not found",
		http.StatusNotFound,
	)

	ErrGPXNoPoints = New(
		"GPX_NO_POINTS",
		"No track points found in GPX file",
		http.StatusBadRequest,
	)

	ErrGPXMalformed = New(
		"GPX_MALFORMED",
		"GPX file could not be parsed",
		http.StatusBadRequest,
	)

	ErrGPXFetchFailed = New(
		"GPX_FETCH_FAILED",
		"Failed to fetch GPX file for circuit",
		http.StatusBadGateway,
	)

	ErrShareLinkNoMatches = New(
		"SHARE_LINK_NO_MATCHES",
		"No POI from the shared link exists on this map",
		http.StatusBadRequest,
	)

	ErrBackupMalformed = New(
		"BACKUP_MALFORMED",
		"File is not a valid backup payload",
		http.StatusBadRequest,
	)

	ErrGeoJSONMalformed = New(
		"GEOJSON_MALFORMED",
		"GeoJSON could not be parsed",
		http.StatusBadRequest,
	)

	ErrDatabaseError = New(
		"DATABASE_ERROR",
		"Database operation failed",
		http.StatusInternalServerError,
	)

	ErrCacheError = New(
		"CACHE_ERROR",
		"Cache operation failed",
		http.StatusInternalServerError,
	)

	ErrInvalidRequest = New(
		"INVALID_REQUEST",
		"Invalid request parameters",
		http.StatusBadRequest,
	)

	ErrInternalServer = New(
		"INTERNAL_SERVER_ERROR",
		"Internal server error",
		http.StatusInternalServerError,
	)
)
