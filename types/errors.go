package types

import (
	"github.com/cockroachdb/errors"
)

// errors
var (
	ErrKeyIsEmpty    = errors.New("key is empty")
	ErrInvaildCount  = errors.New("invalid count")
	ErrKeyNotExists  = errors.New("key not exists")
	ErrKeyExists     = errors.New("key exists")
	ErrEmptyTaskID   = errors.New("task id is empty")
	ErrEmptySpecID   = errors.New("task spec id is empty")
	ErrEmptyAddress  = errors.New("bus address is empty")
	ErrInvalidStatus = errors.New("invalid task status")

	ErrTaskSpecNotFound  = errors.New("task spec not found")
	ErrHierarchyNotFound = errors.New("task hierarchy not found")
	ErrTaskNotFound      = errors.New("task instance not found")
	ErrHierarchyActive   = errors.New("task hierarchy still in flight")

	ErrNoTaskSpec         = errors.New("unable to find task spec")
	ErrPersistHierarchies = errors.New("unable to persist hierarchies")

	ErrUnknownDriver = errors.New("unknown sql driver")
	ErrUnknownStore  = errors.New("unknown store type")

	ErrUnknownCodec = errors.New("unknown codec")
	ErrBadPayload   = errors.New("bad wire payload")
	ErrNoConsumer   = errors.New("no consumer registered on address")
	ErrReplyTimeout = errors.New("timeout waiting for reply")
	ErrBadReply     = errors.New("unexpected reply body")
	ErrBusClosed    = errors.New("bus is closed")

	ErrInvalidSourceMessage = errors.New("invalid source message")
	ErrUnknownSource        = errors.New("unknown source")
	ErrInvalidCron          = errors.New("invalid cron expression")

	ErrUnregisteredWALEventType = errors.New("unregistered WAL event type")
	ErrInvalidWALBucket         = errors.New("invalid WAL bucket")
	ErrBadWALEvent              = errors.New("bad WAL event")

	ErrMetricsTypeNotSupport = errors.New("metrics type not support")
	ErrLockNotHeld           = errors.New("lock not held")
	ErrLockSessionDone       = errors.New("lock session done")
	ErrLockTimeout           = errors.New("timeout waiting for lock")
	ErrNoOps                 = errors.New("no operations")
)

// ReplyError is carried by a failed bus reply
type ReplyError struct {
	Code    int    `json:"code" msgpack:"code"`
	Message string `json:"message" msgpack:"message"`
}

// Error .
func (e *ReplyError) Error() string {
	return e.Message
}

// NewDetailedErr returns an error with details
func NewDetailedErr(err error, details any) error {
	return errors.Wrapf(err, "%+v", details)
}
