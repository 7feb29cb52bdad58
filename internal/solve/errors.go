package solve

import "errors"

// ErrUnknownTaskType reports a task type name or value with no registered
// solver. It surfaces through ParseTaskType and Registry lookups.
var ErrUnknownTaskType = errors.New("unknown task type")
