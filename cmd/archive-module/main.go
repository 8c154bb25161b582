// Точка входа Archive Module — реестр документов системы Docstore.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// загружает in-memory снимок реестра, инициализирует JWT middleware,
// topologymetrics и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/godocstore/archive-module/internal/api/handlers"
	"github.com/bigkaa/godocstore/archive-module/internal/api/middleware"
	"github.com/bigkaa/godocstore/archive-module/internal/config"
	"github.com/bigkaa/godocstore/archive-module/internal/database"
	"github.com/bigkaa/godocstore/archive-module/internal/repository"
	"github.com/bigkaa/godocstore/archive-module/internal/server"
	"github.com/bigkaa/godocstore/archive-module/internal/service"
	"github.com/bigkaa/godocstore/archive-module/internal/store"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Archive Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if os.Getenv("ARM_DEPHEALTH_GROUP") == "" {
		logger.Warn("ARM_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DepHealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	// Проверка здоровья PostgreSQL идёт через существующий пул соединений,
	// что позволяет обнаружить его исчерпание.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Repository + in-memory снимок + кэш
	docRepo := repository.NewDocumentRepository(pool)
	registry := store.New()
	cacheSvc := service.NewCacheService(cfg.CacheMaxSize, cfg.CacheTTL)

	// 6. Сервис реестра документов
	documentsSvc := service.NewDocumentService(docRepo, registry, cacheSvc, logger)

	// 7. Начальная загрузка снимка из PostgreSQL
	logger.Info("Начальная загрузка снимка реестра...")
	if err := documentsSvc.Load(ctx); err != nil {
		logger.Error("Ошибка начальной загрузки снимка", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 8. Readiness checkers (PostgreSQL + Keycloak при включённой аутентификации)
	pgChecker := database.NewReadinessChecker(pool)

	var kcChecker handlers.ReadinessChecker
	var jwtAuth *middleware.JWTAuth

	// 9. JWT middleware (ARM_AUTH_ENABLED=true)
	if cfg.AuthEnabled {
		checker, err := middleware.NewKeycloakReadinessChecker(cfg.JWTJWKSURL, cfg.JWTCACertPath, cfg.JWKSClientTimeout)
		if err != nil {
			logger.Error("Ошибка создания Keycloak readiness checker", slog.String("error", err.Error()))
			os.Exit(1)
		}
		kcChecker = checker

		jwtAuth, err = middleware.NewJWTAuth(
			cfg.JWTJWKSURL,
			cfg.JWTCACertPath,
			cfg.JWTIssuer,
			middleware.GroupMapping{
				Admin:      cfg.AdminGroups,
				Editor:     cfg.EditorGroups,
				Approver:   cfg.ApproverGroups,
				Archiviste: cfg.ArchivisteGroups,
			},
			cfg.JWKSClientTimeout,
			cfg.JWKSRefreshInterval,
			cfg.JWTLeeway,
			logger,
		)
		if err != nil {
			logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer jwtAuth.Close()
		logger.Info("JWT middleware инициализирован",
			slog.String("jwks_url", cfg.JWTJWKSURL),
			slog.String("issuer", cfg.JWTIssuer),
		)
	} else {
		logger.Warn("Аутентификация отключена (ARM_AUTH_ENABLED=false), роль берётся из заголовка X-Archive-Role")
	}

	healthHandler := handlers.NewHealthHandler(pgChecker, kcChecker)

	// 10. API handler
	apiHandler := handlers.NewAPIHandler(healthHandler, documentsSvc, logger)

	// 11. topologymetrics — мониторинг зависимостей (PostgreSQL)
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"archive-module",
		cfg.DepHealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.DepHealthCheckInterval,
		cfg.DepHealthIsEntry,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DepHealthGroup),
				slog.String("check_interval", cfg.DepHealthCheckInterval.String()),
			)
		}
	}

	// 12. Middleware chain: метрики → логирование → JWT (кроме health и metrics)
	middlewares := []func(http.Handler) http.Handler{
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
	}
	if jwtAuth != nil {
		middlewares = append(middlewares, server.JWTAuthWithExclusions(
			jwtAuth.Middleware(),
			"/health", "/metrics",
		))
	}

	// 13. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, middlewares...)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 14. Graceful shutdown фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Archive Module остановлен")
}
