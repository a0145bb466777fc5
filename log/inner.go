package log

import (
	"context"

	"github.com/flabs/taskmanager/types"

	"github.com/alphadose/haxmap"
	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
)

func fatalf(ctx context.Context, err error, format string, fields *haxmap.Map[string, any], args ...any) {
	args = argsValidate(args)
	reportToSentry(ctx, sentry.LevelFatal, err, format, args...)
	f := globalLogger.Fatal()
	wrap(ctx, f, fields).Err(err).Msgf(format, args...)
}

func warnf(ctx context.Context, format string, fields *haxmap.Map[string, any], args ...any) {
	args = argsValidate(args)
	wrap(ctx, globalLogger.Warn(), fields).Msgf(format, args...)
}

func infof(ctx context.Context, format string, fields *haxmap.Map[string, any], args ...any) {
	args = argsValidate(args)
	wrap(ctx, globalLogger.Info(), fields).Msgf(format, args...)
}

func debugf(ctx context.Context, format string, fields *haxmap.Map[string, any], args ...any) {
	args = argsValidate(args)
	wrap(ctx, globalLogger.Debug(), fields).Msgf(format, args...)
}

func errorf(ctx context.Context, err error, format string, fields *haxmap.Map[string, any], args ...any) {
	if err == nil {
		return
	}
	args = argsValidate(args)
	reportToSentry(ctx, sentry.LevelError, err, format, args...)
	f := globalLogger.Error()
	wrap(ctx, f, fields).Stack().Err(err).Msgf(format, args...)
}

func argsValidate(args []any) []any {
	if len(args) > 0 {
		return args
	}
	return []any{""}
}

// wrap adds the tracing id of ctx and the fields to the event
func wrap(ctx context.Context, f *zerolog.Event, kv *haxmap.Map[string, any]) *zerolog.Event {
	if ctx != nil {
		if tid, ok := ctx.Value(types.TracingID).(string); ok && tid != "" {
			f = f.Str("tracing", tid)
		}
	}
	if kv == nil {
		return f
	}
	kv.ForEach(func(k string, v any) bool {
		f = f.Interface(k, v)
		return true
	})
	return f
}
