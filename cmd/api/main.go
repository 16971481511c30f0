package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/almacen-api/internal/application/ledger"
	"github.com/jhoicas/almacen-api/internal/application/request"
	"github.com/jhoicas/almacen-api/internal/application/reservation"
	"github.com/jhoicas/almacen-api/internal/application/restriction"
	"github.com/jhoicas/almacen-api/internal/application/usecase"
	"github.com/jhoicas/almacen-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/almacen-api/internal/interfaces/http"
	"github.com/jhoicas/almacen-api/pkg/config"
	"github.com/jhoicas/almacen-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	materialRepo := postgres.NewMaterialRepository(pool)
	warehouseRepo := postgres.NewWarehouseRepository(pool)
	stockRepo := postgres.NewWarehouseStockRepository(pool)
	movementRepo := postgres.NewStockMovementRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	appendUC := ledger.NewAppendMovementUseCase(txRunner, materialRepo, warehouseRepo, ledger.RetryConfig{
		MaxAttempts: cfg.Ledger.MaxRetries,
		Backoff:     cfg.Ledger.RetryBackoff,
	}, log.Component("ledger"))
	queryUC := ledger.NewQueryUseCase(stockRepo, movementRepo)
	rebuildUC := ledger.NewRebuildBalanceUseCase(txRunner, log.Component("rebuild"))
	reservationUC := reservation.NewUseCase(txRunner, appendUC, cfg.Ledger.ReservationTTL, log.Component("reservas"))
	restrictionUC := restriction.NewUseCase(txRunner, appendUC, log.Component("restricciones"))
	balanceUC := request.NewBalanceUseCase(txRunner)
	materialUC := usecase.NewMaterialUseCase(materialRepo)
	warehouseUC := usecase.NewWarehouseUseCase(warehouseRepo)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Almacén API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		MaterialUC:    materialUC,
		WarehouseUC:   warehouseUC,
		AppendUC:      appendUC,
		QueryUC:       queryUC,
		RebuildUC:     rebuildUC,
		ReservationUC: reservationUC,
		BalanceUC:     balanceUC,
		RestrictionUC: restrictionUC,
		JWTSecret:     cfg.JWT.Secret,
	})

	// Barrido periódico de reservas vencidas: las cancela y devuelve la
	// cantidad al saldo libre.
	sweepCtx, stopSweep := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(cfg.Ledger.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case now := <-ticker.C:
				n, err := reservationUC.ExpireSweep(sweepCtx, now, cfg.Ledger.SweepBatchSize)
				if err != nil {
					log.Error().Err(err).Msg("barrido de reservas vencidas")
					continue
				}
				if n > 0 {
					log.Info().Int("canceladas", n).Msg("reservas vencidas canceladas")
				}
			}
		}
	}()

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
