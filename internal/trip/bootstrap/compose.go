// Package bootstrap собирает trip service: инфраструктура, репозитории,
// use cases и входящие адаптеры (HTTP, WebSocket, AMQP).
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"buildorite/internal/shared/auth"
	"buildorite/internal/shared/config"
	"buildorite/internal/shared/db"
	"buildorite/internal/shared/logger"
	"buildorite/internal/shared/mq"
	"buildorite/internal/shared/user"
	"buildorite/internal/shared/ws"
	inamqp "buildorite/internal/trip/adapter/in/in_amqp"
	"buildorite/internal/trip/adapter/in/in_ws"
	"buildorite/internal/trip/adapter/in/transport"
	"buildorite/internal/trip/adapter/out/out_amqp"
	"buildorite/internal/trip/adapter/out/out_metrics"
	"buildorite/internal/trip/adapter/out/out_ws"
	"buildorite/internal/trip/adapter/out/repo"
	"buildorite/internal/trip/application/usecase"
)

const shutdownTimeout = 15 * time.Second

// Run запускает trip service и блокируется до отмены ctx.
func Run(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	log.Info(logger.Entry{Action: "trip_service_starting", Message: "initializing trip service"})

	// Инфраструктура
	pool, err := db.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close(pool, log)

	if err := db.Migrate(ctx, pool, log); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	mqConn, err := mq.NewRabbitMQ(ctx, cfg.RabbitMQ, log)
	if err != nil {
		return fmt.Errorf("connect rabbitmq: %w", err)
	}
	defer mqConn.Close()

	if err := mq.SetupTopology(ctx, mqConn, log); err != nil {
		return fmt.Errorf("setup rabbitmq topology: %w", err)
	}

	jwtService := auth.NewJWTService(cfg.JWT)

	hub := ws.NewHub(in_ws.NewAuthFunc(jwtService), cfg.WebSocket.AllowedOrigins, log)
	go hub.Run(ctx)

	// Адаптеры
	tripRepo := repo.NewTripPgRepository(pool, log)
	userRepo := user.NewPgRepository(pool, log)
	publisher := out_amqp.NewTripEventPublisher(mqConn, log)
	notifier := out_ws.NewWsTripNotifier(hub, log)
	recorder := out_metrics.NewPrometheusRecorder()

	// Use cases
	uc := transport.UseCases{
		Advance:     usecase.NewAdvanceMilestoneService(tripRepo, publisher, notifier, recorder, log),
		Verify:      usecase.NewVerifyMilestoneService(tripRepo, publisher, notifier, recorder, log),
		ReportIssue: usecase.NewReportIssueService(tripRepo, publisher, notifier, recorder, log),
		Cancel:      usecase.NewCancelTripService(tripRepo, publisher, notifier, recorder, log),
		Get:         usecase.NewGetTripService(tripRepo, log),
		List:        usecase.NewListTripsService(tripRepo, log),
	}
	createTrip := usecase.NewCreateTripService(tripRepo, publisher, notifier, recorder, log)

	// Consumer назначений: request.driver_assigned → новый рейс
	if err := inamqp.NewAssignmentConsumer(mqConn, createTrip, log).Start(ctx); err != nil {
		return fmt.Errorf("start assignment consumer: %w", err)
	}

	participantWS := in_ws.NewParticipantWSHandler(hub, uc.Get, log)

	mux := http.NewServeMux()
	transport.NewHTTPHandler(uc, log).RegisterRoutes(mux,
		transport.JWTMiddleware(jwtService, userRepo, log),
		transport.WriteRateLimit(cfg.RateLimit.WritesPerWindow, cfg.RateLimit.Window),
	)
	mux.HandleFunc("GET /ws", participantWS.ServeWS)

	servers := []*http.Server{newServer(cfg.Services.TripServicePort, transport.RequestIDMiddleware(mux))}
	if cfg.WebSocket.Port != 0 && cfg.WebSocket.Port != cfg.Services.TripServicePort {
		wsMux := http.NewServeMux()
		wsMux.HandleFunc("GET /ws", participantWS.ServeWS)
		servers = append(servers, newServer(cfg.WebSocket.Port, wsMux))
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			log.Info(logger.Entry{
				Action:  "http_server_starting",
				Message: fmt.Sprintf("listening on %s", srv.Addr),
			})
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
		}(srv)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}
	log.Info(logger.Entry{Action: "trip_service_stopping", Message: "shutting down trip service"})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(logger.Entry{
				Action:  "http_server_shutdown_failed",
				Message: err.Error(),
				Error:   &logger.ErrObj{Msg: err.Error()},
			})
		}
	}

	log.Info(logger.Entry{Action: "trip_service_stopped", Message: "trip service stopped"})
	return runErr
}

func newServer(port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
