package logger

import (
	"fmt"
	"os"
	"time"

	"github.com/zfogg/circle/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the global logger instance. It discards everything until
// Initialize runs, so packages can log unconditionally in tests.
var Log = zap.NewNop()

// Initialize sets up the structured logger. Development mode writes a
// colored console format to stdout, otherwise stdout gets JSON. A File
// other than "" or "-" additionally receives JSON with rotation.
func Initialize(cfg config.LogConfig, development bool) error {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		var err error
		if level, err = zapcore.ParseLevel(cfg.Level); err != nil {
			return fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.Level, err)
		}
	}

	Log = zap.New(newCore(cfg, level, development),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	).With(zap.String("service", "circle"))

	Log.Info("Logger initialized",
		zap.Stringer("level", level),
		zap.String("file", cfg.File),
		zap.Bool("development", development),
	)
	return nil
}

func newCore(cfg config.LogConfig, level zapcore.Level, development bool) zapcore.Core {
	jsonConfig := zap.NewProductionEncoderConfig()
	jsonConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	jsonEncoder := zapcore.NewJSONEncoder(jsonConfig)

	stdoutEncoder := jsonEncoder
	if development {
		consoleConfig := zap.NewDevelopmentEncoderConfig()
		consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		stdoutEncoder = zapcore.NewConsoleEncoder(consoleConfig)
	}
	cores := []zapcore.Core{zapcore.NewCore(stdoutEncoder, zapcore.Lock(os.Stdout), level)}

	if cfg.File != "" && cfg.File != "-" {
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(jsonEncoder, fileWriter, level))
	}
	return zapcore.NewTee(cores...)
}

// Close flushes the logger before shutdown
func Close() error {
	return Log.Sync()
}

// ErrorWithFields logs an error message with an error
func ErrorWithFields(msg string, err error) {
	Log.Error(msg, zap.Error(err))
}

// FatalWithFields logs a fatal error and exits
func FatalWithFields(msg string, err error) {
	Log.Fatal(msg, zap.Error(err))
}

// Field helpers for common identifiers

func WithRequestID(requestID string) zap.Field {
	return zap.String("request_id", requestID)
}

func WithUserID(userID string) zap.Field {
	return zap.String("user_id", userID)
}

func WithPostID(postID string) zap.Field {
	return zap.String("post_id", postID)
}

func WithCommentID(commentID string) zap.Field {
	return zap.String("comment_id", commentID)
}

// WithTarget tags a log line with a polymorphic relationship target
func WithTarget(targetType, targetID string) zap.Field {
	return zap.Dict("target", zap.String("type", targetType), zap.String("id", targetID))
}

func WithKind(kind string) zap.Field {
	return zap.String("kind", kind)
}

func WithIP(ip string) zap.Field {
	return zap.String("ip", ip)
}

func WithStatus(status int) zap.Field {
	return zap.Int("status", status)
}

func WithDuration(d time.Duration) zap.Field {
	return zap.Duration("duration", d)
}
