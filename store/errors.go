package store

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/cockroachdb/errors"

	"github.com/jacentio/dimstore/dimension"
)

// errConcurrentModification is returned internally when the version or
// refs guard of a write fails. Replace and Remove re-read and retry.
var errConcurrentModification = errors.New("store: record was modified concurrently")

const (
	reasonNone                   = "None"
	reasonConditionalCheckFailed = "ConditionalCheckFailed"
	reasonTransactionConflict    = "TransactionConflict"
)

// throttleReasons are cancellation reason codes that clear up on retry.
var throttleReasons = map[string]bool{
	"ProvisionedThroughputExceeded": true,
	"ThrottlingError":               true,
}

// throttleCodes are client-fault codes that clear up on retry.
var throttleCodes = map[string]bool{
	"ProvisionedThroughputExceededException": true,
	"ThrottlingException":                    true,
	"RequestLimitExceeded":                   true,
	"LimitExceededException":                 true,
	"TransactionInProgressException":         true,
}

// classify turns a non-transactional API error into the error taxonomy.
// Client faults other than throttling point at a malformed request or a
// missing table; they are returned wrapped but unclassified so callers do
// not retry them.
func classify(entity, op string, err error) error {
	if err == nil {
		return nil
	}
	if dimension.IsClassified(err) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &dimension.TransientError{Entity: entity, Op: op, Err: err}
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorFault() == smithy.FaultClient && !throttleCodes[apiErr.ErrorCode()] {
		return errors.Wrapf(err, "%s %s", entity, op)
	}
	return &dimension.TransientError{Entity: entity, Op: op, Err: err}
}

// isConditionFailed reports whether err is a failed single-item condition.
func isConditionFailed(err error) bool {
	var condErr *types.ConditionalCheckFailedException
	return errors.As(err, &condErr)
}

// role describes what one item of a write transaction guards, so a
// cancellation reason can be traced back to a declared constraint.
type role struct {
	kind roleKind
	// name is the constraint or reference name.
	name string
}

type roleKind int

const (
	// roleKey claims a fresh surrogate key.
	roleKey roleKind = iota
	// roleEntity guards an existing record by version.
	roleEntity
	roleConstraint
	roleParent
	roleRelease
	roleCleanup
)

// failedRole returns the index of the first item that failed its condition.
// ok is false when err is not a cancellation caused by a condition; retry
// reports a cancellation caused only by contention.
func failedRole(err error) (index int, ok, retry bool) {
	var txErr *types.TransactionCanceledException
	if !errors.As(err, &txErr) {
		return -1, false, false
	}
	for i, reason := range txErr.CancellationReasons {
		switch aws.ToString(reason.Code) {
		case reasonConditionalCheckFailed:
			return i, true, false
		case reasonTransactionConflict:
			retry = true
		}
	}
	return -1, false, retry
}

// classifyCancellation handles a cancelled transaction that neither a
// condition nor contention explains. Throttled items are transient; any
// other reason, such as ValidationError, is returned unclassified.
func classifyCancellation(entity, op string, txErr *types.TransactionCanceledException, err error) error {
	for _, reason := range txErr.CancellationReasons {
		code := aws.ToString(reason.Code)
		if code == "" || code == reasonNone || throttleReasons[code] {
			continue
		}
		return errors.Wrapf(err, "%s %s: transaction cancelled with %s", entity, op, code)
	}
	return &dimension.TransientError{Entity: entity, Op: op, Err: err}
}
