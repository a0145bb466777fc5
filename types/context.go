package types

type ctxKey string

// TracingID key for tracing id in context
const TracingID ctxKey = "TracingID"
