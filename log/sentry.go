package log

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
	"github.com/getsentry/sentry-go"
)

// SentryDefer .
func SentryDefer() {
	if sentryDSN == "" {
		return
	}
	defer sentry.Flush(2 * time.Second)
	if r := recover(); r != nil {
		sentry.CaptureMessage(fmt.Sprintf("%+v: %s", r, debug.Stack()))
		panic(r)
	}
}

func tracingInfo(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if tid, ok := ctx.Value(types.TracingID).(string); ok && tid != "" {
		return fmt.Sprintf("[%s] ", tid)
	}
	return ""
}

func stackMarshaler(err error) any {
	return fmt.Sprintf("%+v", errors.GetReportableStackTrace(err))
}

func reportToSentry(ctx context.Context, level sentry.Level, err error, format string, args ...any) { //nolint
	if sentryDSN == "" {
		return
	}
	defer sentry.Flush(2 * time.Second)
	event, extraDetails := errors.BuildSentryReport(err)
	for k, v := range extraDetails {
		event.Extra[k] = v
	}
	event.Level = level

	if msg := fmt.Sprintf(format, args...); msg != "" {
		event.Tags["message"] = msg
	}

	if tracing := tracingInfo(ctx); tracing != "" {
		event.Tags["tracing"] = tracing
	}

	if res := sentry.CaptureEvent(event); res != nil {
		Infof(ctx, "Report to Sentry ID: %s", string(*res))
	}
}
