package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"buildorite/internal/shared/config"
	"buildorite/internal/shared/logger"
	tripboot "buildorite/internal/trip/bootstrap"
)

func main() {
	svc := flag.String("service", "trip", "trip")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	switch *svc {
	case "trip":
		log, err := logger.NewLoggerWithOptions("trip-service", cfg.Log.Level, cfg.Log.Dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
			os.Exit(1)
		}
		defer log.Close()

		if err := tripboot.Run(ctx, cfg, log); err != nil {
			log.Error(logger.Entry{
				Action:  "trip_service_failed",
				Message: err.Error(),
				Error:   &logger.ErrObj{Msg: err.Error()},
			})
			log.Close()
			os.Exit(1)
		}

	default:
		log := logger.NewLogger("bootstrap")
		log.Fatal(logger.Entry{Action: "invalid_service", Message: *svc})
	}
}
