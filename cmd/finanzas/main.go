package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"finanzas-core/internal/config"
	"finanzas-core/internal/rates"
	"finanzas-core/internal/server"
	"finanzas-core/pkg/constants"
)

var version = "dev"

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// Determine log level (CLI override takes precedence)
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var zapConfig zap.Config
	switch format {
	case "console":
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	case "json":
		zapConfig = zap.NewProductionConfig()
		zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		if file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		} else {
			_ = file.Close()
		}

		zapConfig.OutputPaths = []string{loggingConfig.OutputFile}
		zapConfig.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return zapConfig.Build()
}

func main() {
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	serverConfigLocation := flag.String("server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	flag.Parse()

	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		return
	}

	serverConf, err := server.LoadConfig(*serverConfigLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load server configuration\", \"error\": \"%v\"}\n", err)
		return
	}

	logger, err := initializeLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Validate configuration and display any warnings
	warnings := conf.ValidateConfiguration()
	for _, warning := range warnings {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	// Wire the exchange-rate context from config.
	var source rates.Source
	if conf.Rates.SourceURL != "" {
		source = rates.NewHTTPSource(conf.Rates.SourceURL,
			time.Duration(conf.Rates.RequestTimeoutSeconds)*time.Second, logger)
	}

	var history rates.HistoryStore
	if conf.Rates.RedisAddress != "" {
		history = rates.NewRedisHistoryStore(conf.Rates.RedisAddress)
	} else {
		history = rates.NewMemoryHistoryStore()
	}

	ratesCtx := rates.NewContext(source, history, logger)
	ratesCtx.SetDefaultRate(conf.Rates.DefaultParallelRate)

	// Load an initial market rate; a failure degrades to the default
	// constant rather than blocking startup.
	if source != nil {
		refreshCtx, cancel := context.WithTimeout(context.Background(),
			time.Duration(conf.Rates.RequestTimeoutSeconds)*time.Second)
		if err := ratesCtx.Refresh(refreshCtx); err != nil {
			logger.Warn("initial rate fetch failed, starting with the default rate",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
		cancel()
	}

	apiHandler := server.NewHandler(logger, server.Options{
		Rates:            ratesCtx,
		MinProfitability: conf.Amortization.MinimumProfitabilityPercent,
		CashEligible:     conf.Currencies.CashEligible,
		ConversionBase:   conf.Currencies.ConversionBase,
		ConversionQuote:  conf.Currencies.ConversionQuote,
		Version:          version,
	})

	httpServer := &http.Server{
		Addr:         serverConf.Address,
		Handler:      apiHandler,
		ReadTimeout:  serverConf.ReadTimeoutDuration(),
		WriteTimeout: serverConf.WriteTimeoutDuration(),
	}

	go func() {
		logger.Info("starting API server",
			zap.String("op", "main"),
			zap.String("address", serverConf.Address),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("API server failed",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down", zap.String("op", "main"))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
}
