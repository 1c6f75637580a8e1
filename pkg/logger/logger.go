package logger

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// L is the process-wide logger. Init replaces it; until then it is a
// no-op so packages can log safely from tests.
var L = zap.NewNop()

// Init configures the global logger. Logs go to stdout and, when LOGS_DIR
// is set, additionally to a rotated file per run.
func Init() (*zap.Logger, error) {
	encoderCfg := zapcore.EncoderConfig{
		TimeKey:      "ts",
		LevelKey:     "level",
		MessageKey:   "msg",
		CallerKey:    "caller",
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeLevel:  zapcore.CapitalLevelEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(os.Stdout), zap.InfoLevel),
	}

	if dir := os.Getenv("LOGS_DIR"); dir != "" {
		runTimestamp := time.Now().UTC().Format("2006-01-02T15-04-05")
		lumberjackLogger := &lumberjack.Logger{
			Filename:   filepath.Join(dir, "freightflow-"+runTimestamp+".log"),
			MaxSize:    100, // MB before it rolls
			MaxBackups: 7,   // Keep last 7 logs
			MaxAge:     30,  // Days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(lumberjackLogger), zap.InfoLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	L = logger
	return logger, nil
}
