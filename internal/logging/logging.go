package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const logFileName = "revforecast.log"

// Init initializes the global logger with dual sinks: os.Stderr and a rotating file.
// Stdout is never written to, since the MCP transport owns it.
func Init(verbose bool) {
	// LOGS_FOLDER may live in the binary-relative .env, and Init runs before config.Load.
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		_ = godotenv.Load(filepath.Join(exeDir, ".env"))
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	isTerminal := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !isTerminal,
	}

	logDir := resolveLogDir(os.Getenv("LOGS_FOLDER"), exeDir)
	fileWriter, err := newFileWriter(logDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	multi := zerolog.MultiLevelWriter(io.Writer(consoleWriter), fileWriter)

	log.Logger = zerolog.New(multi).
		With().
		Timestamp().
		Logger()
}

func resolveLogDir(configured, exeDir string) string {
	switch {
	case configured != "":
		return configured
	case exeDir != "":
		return filepath.Join(exeDir, "logs")
	default:
		return "logs"
	}
}

// newFileWriter returns a rotating writer under dir, failing early when the
// directory cannot be created or written.
func newFileWriter(dir string) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %q: %w", dir, err)
	}

	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
		return nil, fmt.Errorf("log directory %q is not writable: %w", dir, err)
	}
	_ = os.Remove(testFile)

	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, logFileName),
		MaxSize:    16, // megabytes
		MaxBackups: 32,
		MaxAge:     365, // days
		Compress:   true,
	}, nil
}
