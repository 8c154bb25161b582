// Пакет config — загрузка и валидация конфигурации Archive Module
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Archive Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера (диапазон 8040-8049)
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	// Таймаут чтения HTTP-сервера (по умолчанию 30s)
	HTTPReadTimeout time.Duration
	// Таймаут записи HTTP-сервера (по умолчанию 60s)
	HTTPWriteTimeout time.Duration
	// Таймаут простоя HTTP-сервера (по умолчанию 120s)
	HTTPIdleTimeout time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown (по умолчанию 5s)
	ShutdownTimeout time.Duration

	// --- База данных (PostgreSQL) ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Пользователь
	DBUser string
	// Пароль
	DBPassword string
	// Режим SSL (disable, require, verify-ca, verify-full)
	DBSSLMode string

	// --- Аутентификация (Keycloak / JWT) ---

	// Включена ли JWT-аутентификация (false — только для локальной разработки)
	AuthEnabled bool
	// URL Keycloak (например, https://keycloak.kryukov.lan)
	KeycloakURL string
	// Имя realm в Keycloak
	KeycloakRealm string
	// Issuer JWT (авто-вычисляется из KeycloakURL, если не задан)
	JWTIssuer string
	// URL JWKS endpoint (авто-вычисляется из KeycloakURL, если не задан)
	JWTJWKSURL string
	// Путь к CA-сертификату для TLS-подключения к JWKS (опционально)
	JWTCACertPath string
	// Допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration
	// Таймаут HTTP-клиента JWKS
	JWKSClientTimeout time.Duration
	// Интервал фонового обновления JWKS-ключей
	JWKSRefreshInterval time.Duration

	// Группы Keycloak, дающие роль admin (через запятую)
	AdminGroups []string
	// Группы Keycloak, дающие роль editor (через запятую)
	EditorGroups []string
	// Группы Keycloak, дающие роль approver (через запятую)
	ApproverGroups []string
	// Группы Keycloak, дающие роль archiviste (через запятую)
	ArchivisteGroups []string

	// --- Кэш метаданных ---

	// Максимальное количество записей в LRU-кэше
	CacheMaxSize int
	// TTL записи кэша
	CacheTTL time.Duration

	// --- Dependency health (topologymetrics) ---

	// Имя группы в метриках dephealth
	DepHealthGroup string
	// Интервал проверки зависимостей
	DepHealthCheckInterval time.Duration
	// Является ли модуль entry point графа (лейбл isentry=yes)
	DepHealthIsEntry bool
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// ARM_PORT — порт HTTP-сервера (по умолчанию 8040)
	cfg.Port, err = getEnvInt("ARM_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("ARM_PORT: %w", err)
	}

	// ARM_LOG_LEVEL — уровень логирования (по умолчанию info)
	logLevel := getEnvDefault("ARM_LOG_LEVEL", "info")
	cfg.LogLevel, err = parseLogLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("ARM_LOG_LEVEL: %w", err)
	}

	// ARM_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("ARM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("ARM_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- HTTP Server Timeouts ---

	// ARM_HTTP_READ_TIMEOUT — таймаут чтения (по умолчанию 30s)
	cfg.HTTPReadTimeout, err = getEnvDuration("ARM_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ARM_HTTP_READ_TIMEOUT: %w", err)
	}

	// ARM_HTTP_WRITE_TIMEOUT — таймаут записи (по умолчанию 60s)
	cfg.HTTPWriteTimeout, err = getEnvDuration("ARM_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ARM_HTTP_WRITE_TIMEOUT: %w", err)
	}

	// ARM_HTTP_IDLE_TIMEOUT — таймаут простоя (по умолчанию 120s)
	cfg.HTTPIdleTimeout, err = getEnvDuration("ARM_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ARM_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// --- Graceful shutdown ---

	// ARM_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("ARM_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ARM_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- База данных ---

	// ARM_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("ARM_DB_HOST")
	if err != nil {
		return nil, err
	}

	// ARM_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("ARM_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("ARM_DB_PORT: %w", err)
	}

	// ARM_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("ARM_DB_NAME")
	if err != nil {
		return nil, err
	}

	// ARM_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("ARM_DB_USER")
	if err != nil {
		return nil, err
	}

	// ARM_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("ARM_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// ARM_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("ARM_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("ARM_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Аутентификация ---

	// ARM_AUTH_ENABLED — включение JWT-аутентификации (по умолчанию true)
	cfg.AuthEnabled, err = getEnvBool("ARM_AUTH_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("ARM_AUTH_ENABLED: %w", err)
	}

	if cfg.AuthEnabled {
		// ARM_KEYCLOAK_URL — обязательный при включённой аутентификации
		cfg.KeycloakURL, err = getEnvRequired("ARM_KEYCLOAK_URL")
		if err != nil {
			return nil, err
		}
		cfg.KeycloakURL = strings.TrimRight(cfg.KeycloakURL, "/")
	}

	// ARM_KEYCLOAK_REALM — имя realm (по умолчанию godocstore)
	cfg.KeycloakRealm = getEnvDefault("ARM_KEYCLOAK_REALM", "godocstore")

	// ARM_JWT_ISSUER — авто-вычисляется из KeycloakURL, если не задан
	cfg.JWTIssuer = getEnvDefault("ARM_JWT_ISSUER",
		fmt.Sprintf("%s/realms/%s", cfg.KeycloakURL, cfg.KeycloakRealm))

	// ARM_JWT_JWKS_URL — авто-вычисляется из KeycloakURL, если не задан
	cfg.JWTJWKSURL = getEnvDefault("ARM_JWT_JWKS_URL",
		fmt.Sprintf("%s/realms/%s/protocol/openid-connect/certs", cfg.KeycloakURL, cfg.KeycloakRealm))

	// ARM_JWT_CA_CERT — путь к CA-сертификату (опционально)
	cfg.JWTCACertPath = getEnvDefault("ARM_JWT_CA_CERT", "")

	// ARM_JWT_LEEWAY — допустимое отклонение времени (по умолчанию 30s)
	cfg.JWTLeeway, err = getEnvDuration("ARM_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ARM_JWT_LEEWAY: %w", err)
	}

	// ARM_JWKS_CLIENT_TIMEOUT — таймаут HTTP-клиента JWKS (по умолчанию 10s)
	cfg.JWKSClientTimeout, err = getEnvDuration("ARM_JWKS_CLIENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ARM_JWKS_CLIENT_TIMEOUT: %w", err)
	}

	// ARM_JWKS_REFRESH_INTERVAL — интервал обновления JWKS (по умолчанию 5m)
	cfg.JWKSRefreshInterval, err = getEnvDuration("ARM_JWKS_REFRESH_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("ARM_JWKS_REFRESH_INTERVAL: %w", err)
	}

	// Маппинг групп Keycloak → роли консоли архива
	cfg.AdminGroups = splitCSV(getEnvDefault("ARM_ADMIN_GROUPS", "/archive-admins"))
	cfg.EditorGroups = splitCSV(getEnvDefault("ARM_EDITOR_GROUPS", "/archive-editors"))
	cfg.ApproverGroups = splitCSV(getEnvDefault("ARM_APPROVER_GROUPS", "/archive-approvers"))
	cfg.ArchivisteGroups = splitCSV(getEnvDefault("ARM_ARCHIVISTE_GROUPS", "/archive-archivistes"))

	// --- Кэш ---

	// ARM_CACHE_MAX_SIZE — размер LRU-кэша (по умолчанию 512)
	cfg.CacheMaxSize, err = getEnvInt("ARM_CACHE_MAX_SIZE", 512)
	if err != nil {
		return nil, fmt.Errorf("ARM_CACHE_MAX_SIZE: %w", err)
	}
	if cfg.CacheMaxSize <= 0 {
		return nil, fmt.Errorf("ARM_CACHE_MAX_SIZE: значение должно быть > 0")
	}

	// ARM_CACHE_TTL — TTL записи кэша (по умолчанию 5m)
	cfg.CacheTTL, err = getEnvDuration("ARM_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("ARM_CACHE_TTL: %w", err)
	}

	// --- Dependency health ---

	// ARM_DEPHEALTH_GROUP — имя группы в метриках (по умолчанию godocstore)
	cfg.DepHealthGroup = getEnvDefault("ARM_DEPHEALTH_GROUP", "godocstore")

	// ARM_DEPHEALTH_CHECK_INTERVAL — интервал проверки (по умолчанию 30s)
	cfg.DepHealthCheckInterval, err = getEnvDuration("ARM_DEPHEALTH_CHECK_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ARM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// DEPHEALTH_ISENTRY — общий для всех модулей флаг entry point
	cfg.DepHealthIsEntry, err = getEnvBool("DEPHEALTH_ISENTRY", false)
	if err != nil {
		return nil, fmt.Errorf("DEPHEALTH_ISENTRY: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL (без пароля).
// Используется для лейблов метрик dephealth.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s@%s:%d/%s",
		c.DBUser, c.DBHost, c.DBPort, c.DBName,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// splitCSV разбирает список значений через запятую, отбрасывая пустые элементы.
func splitCSV(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
