package dimension

import "context"

// SequenceCounter is the persisted state of one named sequence.
type SequenceCounter struct {
	Name  string
	Value int64
}

// Allocator issues surrogate keys.
//
// AllocateNext returns a value strictly greater than every value previously
// returned for name and never returns the same value twice, however many
// callers race. The increment runs inside the storage engine as one atomic
// operation. On failure no value is issued and the error is a
// TransientError; retrying is safe and may leave a gap.
type Allocator interface {
	AllocateNext(ctx context.Context, name string) (int64, error)
}

// CounterReader exposes the current state of a sequence.
type CounterReader interface {
	Counter(ctx context.Context, name string) (SequenceCounter, error)
}

// SequenceStore combines allocation and inspection.
type SequenceStore interface {
	Allocator
	CounterReader
}
