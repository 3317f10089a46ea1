package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KotFed0t/trading_terminal/config"
	"github.com/KotFed0t/trading_terminal/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/KotFed0t/trading_terminal/internal/externalApi/tradeApi"
	"github.com/KotFed0t/trading_terminal/internal/fundsAggregator"
	"github.com/KotFed0t/trading_terminal/internal/orderChecker"
	"github.com/KotFed0t/trading_terminal/internal/reportGenerator/chartGenerator"
	"github.com/KotFed0t/trading_terminal/internal/reportGenerator/xslsxGenerator"
	"github.com/KotFed0t/trading_terminal/internal/scheduler"
	"github.com/KotFed0t/trading_terminal/internal/service/terminalService"
	"github.com/KotFed0t/trading_terminal/internal/tgbot"
	"github.com/KotFed0t/trading_terminal/internal/transport/telegram"
	"github.com/KotFed0t/trading_terminal/utils"
	"github.com/go-co-op/gocron/v2"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx := utils.WithNewRqID(context.Background())

	tradeApiClient := tradeApi.New(cfg)

	sched := scheduler.New(cfg.Jobs.RefreshInterval, gocron.WithStopTimeout(5*time.Second))
	sched.Start()
	defer sched.Stop()

	checker := orderChecker.New(cfg.Limits.MaxOrderQuantity, cfg.Limits.MaxOrderNotional)
	aggregator := fundsAggregator.New(cfg.Limits.BaseMarginCredit)
	reportGenerator := xslsxGenerator.New()
	chartGen := chartGenerator.New()

	terminalSrv := terminalService.New(tradeApiClient, sched, checker, aggregator, reportGenerator, chartGen, cfg.Currency)
	defer terminalSrv.Close()

	if err := terminalSrv.SetAccount(ctx, cfg.Account.UID); err != nil {
		slog.Error("can't select account", slog.Int64("uid", cfg.Account.UID), slog.String("err", err.Error()))
		os.Exit(1)
	}

	var storage telegram.CloudStorage
	if cfg.GoogleDrive.CredentialsFile != "" {
		driveApi, err := googleDriveApi.New(ctx, cfg)
		if err != nil {
			slog.Error("can't init google drive", slog.String("err", err.Error()))
			os.Exit(1)
		}
		storage = driveApi

		err = sched.NewIntervalJob("delete old reports", driveApi.DeleteOldFiles, cfg.Jobs.ReportsCleanupInterval, true)
		if err != nil {
			slog.Error("can't schedule reports cleanup", slog.String("err", err.Error()))
			os.Exit(1)
		}
	}

	tgController := telegram.NewController(cfg, terminalSrv, storage)

	tgBot := tgbot.New(cfg, tgController, terminalSrv)
	terminalSrv.OnUpdate(tgBot.Notify)
	tgBot.Start()
	defer tgBot.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
