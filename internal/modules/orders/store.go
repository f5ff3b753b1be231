package orders

import "context"

// Store persists Records. Mutate is the only write path and must make the
// load-modify-save of a single reference atomic.
type Store interface {
	// Mutate loads ref (or seeds it when absent), calls fn and persists the
	// result when fn returns true or the record was just created. seed may
	// be called more than once when an insert has to be retried.
	Mutate(ctx context.Context, ref string, seed func() (Record, error), fn func(rec *Record) bool) (Record, error)
	Get(ctx context.Context, ref string) (Record, error)
	// GetByVerificationCode expects an already upper-cased code.
	GetByVerificationCode(ctx context.Context, code string) (Record, error)
}
