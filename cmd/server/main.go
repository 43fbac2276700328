package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"go.uber.org/zap"

	"github.com/thereceipt/pos-print-engine/internal/api"
	"github.com/thereceipt/pos-print-engine/internal/dispatcher"
	"github.com/thereceipt/pos-print-engine/internal/encoder"
	"github.com/thereceipt/pos-print-engine/internal/history"
	"github.com/thereceipt/pos-print-engine/internal/registry"
	"github.com/thereceipt/pos-print-engine/internal/transport"
)

// Version is set during build via ldflags
var Version = "dev"

const historyCap = 500

func main() {
	logger := newLogger()
	defer logger.Sync()

	port := getPort()
	stateDir := getStateDir()
	logger.Info("print engine starting",
		zap.String("version", Version),
		zap.String("state_dir", stateDir))

	store, err := registry.NewStore(stateDir, logger)
	if err != nil {
		logger.Fatal("failed to open printer store", zap.Error(err))
	}

	ledger, err := history.Open(filepath.Join(stateDir, "history"), historyCap, logger)
	if err != nil {
		logger.Fatal("failed to open history ledger", zap.Error(err))
	}
	defer ledger.Close()

	usb := transport.NewUSB(logger)
	defer usb.Close()

	reg := registry.New(usb, store, logger)

	// Best effort: printers that moved or were unplugged since the last run
	// stay disconnected until the operator re-pairs them.
	reg.ReconnectAll()

	disp := dispatcher.New(reg, store, ledger, dispatcher.Options{
		TrackingBaseURL: os.Getenv("TRACKING_BASE_URL"),
		Logos:           encoder.NewHTTPLogoFetcher(),
	}, logger)

	server := api.NewServer(reg, store, disp, ledger, logger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Run(fmt.Sprintf("0.0.0.0:%s", port))
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logger.Fatal("server error", zap.Error(err))
	case sig := <-sigChan:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}
}

func newLogger() *zap.Logger {
	var logger *zap.Logger
	var err error
	if os.Getenv("DEBUG") != "" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func getPort() string {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		return port
	}

	for i, arg := range os.Args {
		if arg == "--port" && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
	}

	return "12212"
}

// getStateDir returns the directory holding printer metadata, per-role
// configs and the history ledger. It prefers a writable directory next to
// the executable, then the working directory, then the user config dir.
func getStateDir() string {
	if dir := os.Getenv("STATE_DIR"); dir != "" {
		os.MkdirAll(dir, 0755)
		return dir
	}

	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		testFile := filepath.Join(exeDir, ".pos-print-engine-write-test")
		if f, err := os.Create(testFile); err == nil {
			f.Close()
			os.Remove(testFile)
			stateDir := filepath.Join(exeDir, "state")
			os.MkdirAll(stateDir, 0755)
			return stateDir
		}
	}

	if wd, err := os.Getwd(); err == nil {
		stateDir := filepath.Join(wd, "state")
		os.MkdirAll(stateDir, 0755)
		return stateDir
	}

	var configDir string
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			configDir = filepath.Join(appData, "pos-print-engine")
		}
	} else {
		if home := os.Getenv("HOME"); home != "" {
			configDir = filepath.Join(home, ".config", "pos-print-engine")
		}
	}

	if configDir != "" {
		os.MkdirAll(configDir, 0755)
		return configDir
	}

	return "state"
}
