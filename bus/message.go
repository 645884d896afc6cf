// Package bus consumes the gateway's write commands and read requests and
// dispatches them to dimension repositories.
//
// Commands arrive in SQS batches and are acknowledged upstream before they
// are applied, so outcomes that a retry cannot change (conflicts, missing
// records, malformed input) are logged and dropped. Only transient or
// unexpected failures are handed back for redelivery. Read requests are
// answered synchronously with a status, never with a bare error.
package bus

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Op names a repository operation.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpGet    Op = "get"
	OpList   Op = "list"
)

// ErrInvalid marks messages that can never be applied.
var ErrInvalid = errors.New("bus: invalid message")

// Command is one asynchronous write.
type Command struct {
	ID     string `json:"id"`
	Entity string `json:"entity"`
	Op     Op     `json:"op"`
	// Key addresses update and delete.
	Key int64 `json:"key,omitempty"`
	// Payload is the JSON entity for create and update.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewCommand builds a command with a fresh ID, encoding payload if non-nil.
func NewCommand(entity string, op Op, key int64, payload any) (Command, error) {
	cmd := Command{ID: uuid.NewString(), Entity: entity, Op: op, Key: key}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Command{}, errors.Wrap(err, "encode payload")
		}
		cmd.Payload = raw
	}
	return cmd, nil
}

func decodeCommand(body string) (Command, error) {
	var cmd Command
	if err := json.Unmarshal([]byte(body), &cmd); err != nil {
		return Command{}, errors.Mark(errors.Wrap(err, "decode command"), ErrInvalid)
	}
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}
	return cmd, nil
}

// Status is the outcome of a read request.
type Status string

const (
	StatusOK          Status = "ok"
	StatusNotFound    Status = "not_found"
	StatusUnavailable Status = "unavailable"
	StatusInvalid     Status = "invalid"
)

// ReadRequest is one synchronous read.
type ReadRequest struct {
	Entity string `json:"entity"`
	Op     Op     `json:"op"`
	// Key addresses get.
	Key int64 `json:"key,omitempty"`
	// Where filters list by field equality. Values are in text form.
	Where map[string]string `json:"where,omitempty"`
	// OrderBy overrides the natural order of list.
	OrderBy []string `json:"order_by,omitempty"`
}

// ReadResponse carries either Data or a failure status with its reason.
type ReadResponse struct {
	Status Status          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}
