package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	Circuit  CircuitConfig
	GPX      GPXConfig
	Fusion   FusionConfig
}

type ServerConfig struct {
	Host string
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type LogConfig struct {
	Level string
}

// CircuitConfig - лимиты и пороги для работы с цепочками точек (circuits)
type CircuitConfig struct {
	MaxPoints        int
	ClusterThreshold float64 // метры, для группировки близких POI
	OutlierThreshold float64 // метры, нижняя граница для отсечения выбросов
}

// GPXConfig - параметры импорта/экспорта GPX
type GPXConfig struct {
	// WaypointTolerance - допуск (в метрах) для сопоставления waypoint'а GPX
	// с точкой circuit при эвристическом матчинге
	WaypointTolerance float64
	// BBoxMarginDeg - расширение bounding box карты в градусах
	// для географической проверки импортируемого трека
	BBoxMarginDeg float64
	// PendingImportTTL - время жизни незавершённого импорта,
	// ожидающего подтверждения пользователя
	PendingImportTTL time.Duration
	// FileBaseURL - базовый URL для ленивой загрузки GPX файлов
	// официальных circuits
	FileBaseURL string
	// FetchTimeout - таймаут загрузки GPX файла
	FetchTimeout time.Duration
}

// FusionConfig - пороги для слияния мобильного бэкапа с каноническим GeoJSON
type FusionConfig struct {
	// GPSCorrectionThreshold - минимальное смещение координат (в метрах),
	// которое считается GPS-коррекцией
	GPSCorrectionThreshold float64
	// CurrencySuffix добавляется к денежным полям новых POI
	CurrencySuffix string
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("API_HOST"),
			Port: viper.GetInt("API_PORT"),
			Env:  viper.GetString("API_ENV"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			DBName:          viper.GetString("DB_NAME"),
			SSLMode:         viper.GetString("DB_SSLMODE"),
			MaxConns:        viper.GetInt("DB_MAX_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(viper.GetInt("DB_CONN_MAX_LIFETIME")) * time.Second,
			ConnMaxIdleTime: time.Duration(viper.GetInt("DB_CONN_MAX_IDLE_TIME")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetInt("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
		Circuit: CircuitConfig{
			MaxPoints:        viper.GetInt("CIRCUIT_MAX_POINTS"),
			ClusterThreshold: viper.GetFloat64("CIRCUIT_CLUSTER_THRESHOLD_M"),
			OutlierThreshold: viper.GetFloat64("CIRCUIT_OUTLIER_THRESHOLD_M"),
		},
		GPX: GPXConfig{
			WaypointTolerance: viper.GetFloat64("GPX_WAYPOINT_TOLERANCE_M"),
			BBoxMarginDeg:     viper.GetFloat64("GPX_BBOX_MARGIN_DEG"),
			PendingImportTTL:  time.Duration(viper.GetInt("GPX_PENDING_IMPORT_TTL")) * time.Second,
			FileBaseURL:       viper.GetString("GPX_FILE_BASE_URL"),
			FetchTimeout:      time.Duration(viper.GetInt("GPX_FETCH_TIMEOUT")) * time.Second,
		},
		Fusion: FusionConfig{
			GPSCorrectionThreshold: viper.GetFloat64("FUSION_GPS_THRESHOLD_M"),
			CurrencySuffix:         viper.GetString("FUSION_CURRENCY_SUFFIX"),
		},
	}

	// Set default values if not provided
	// Пороговые значения - это доменные константы, подобранные по опыту
	// эксплуатации; меняются только при развёртывании в другом регионе
	if cfg.Circuit.MaxPoints == 0 {
		cfg.Circuit.MaxPoints = 15
	}
	if cfg.Circuit.ClusterThreshold == 0 {
		cfg.Circuit.ClusterThreshold = 100
	}
	if cfg.Circuit.OutlierThreshold == 0 {
		cfg.Circuit.OutlierThreshold = 500
	}
	if cfg.GPX.WaypointTolerance == 0 {
		cfg.GPX.WaypointTolerance = 50
	}
	if cfg.GPX.BBoxMarginDeg == 0 {
		cfg.GPX.BBoxMarginDeg = 0.1
	}
	if cfg.GPX.PendingImportTTL == 0 {
		cfg.GPX.PendingImportTTL = 15 * time.Minute
	}
	if cfg.GPX.FetchTimeout == 0 {
		cfg.GPX.FetchTimeout = 10 * time.Second
	}
	if cfg.Fusion.GPSCorrectionThreshold == 0 {
		cfg.Fusion.GPSCorrectionThreshold = 5
	}
	if cfg.Fusion.CurrencySuffix == "" {
		cfg.Fusion.CurrencySuffix = " MAD"
	}

	return cfg, nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
