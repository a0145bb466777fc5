package log

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/flabs/taskmanager/types"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	globalLogger zerolog.Logger
	sentryDSN    string
)

// SetupLog init logger
func SetupLog(ctx context.Context, cfg *types.ServerLogConfig, dsn string) error {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return err
	}

	var writer io.Writer = zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC822,
	}
	switch {
	case cfg.Filename != "":
		writer = &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxAge:     cfg.MaxAge,
			MaxBackups: cfg.MaxBackups,
		}
	case cfg.UseJSON:
		writer = os.Stdout
	}

	setLogger(writer, level)

	// Sentry
	if dsn != "" {
		sentryDSN = dsn
		WithFunc("log.SetupLog").Infof(ctx, "sentry %v", sentryDSN)
		_ = sentry.Init(sentry.ClientOptions{Dsn: sentryDSN})
	}
	return nil
}

func setLogger(w io.Writer, level zerolog.Level) {
	zerolog.ErrorStackMarshaler = stackMarshaler
	globalLogger = zerolog.New(w).With().Timestamp().Logger().Level(level)
}

// Fatalf forwards to sentry
func Fatalf(ctx context.Context, err error, format string, args ...any) {
	fatalf(ctx, err, format, nil, args...)
}

// Warnf is Warnf
func Warnf(ctx context.Context, format string, args ...any) {
	warnf(ctx, format, nil, args...)
}

// Warn is Warn
func Warn(ctx context.Context, args ...any) {
	Warnf(ctx, "%+v", args...)
}

// Infof is Infof
func Infof(ctx context.Context, format string, args ...any) {
	infof(ctx, format, nil, args...)
}

// Info is Info
func Info(ctx context.Context, args ...any) {
	Infof(ctx, "%+v", args...)
}

// Debugf is Debugf
func Debugf(ctx context.Context, format string, args ...any) {
	debugf(ctx, format, nil, args...)
}

// Debug is Debug
func Debug(ctx context.Context, args ...any) {
	Debugf(ctx, "%+v", args...)
}

// Errorf forwards to sentry
func Errorf(ctx context.Context, err error, format string, args ...any) {
	errorf(ctx, err, format, nil, args...)
}

// Error forwards to sentry
func Error(ctx context.Context, err error, args ...any) {
	Errorf(ctx, err, "%+v", args...)
}
