package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const maxCodeAttempts = 5

// StatusChange describes one applied transition.
type StatusChange struct {
	Reference        string    `json:"reference"`
	From             Status    `json:"from"`
	To               Status    `json:"to"`
	VerificationCode string    `json:"verificationCode"`
	At               time.Time `json:"at"`
}

// Notifier is told about applied transitions after the store write has
// committed. Errors are logged, never returned to the caller.
type Notifier interface {
	StatusChanged(ctx context.Context, ch StatusChange) error
}

type nopNotifier struct{}

func (nopNotifier) StatusChanged(context.Context, StatusChange) error { return nil }

// Ledger is the only writer of order status and history.
type Ledger struct {
	store    Store
	codes    CodeGenerator
	notifier Notifier
	now      func() time.Time
	logger   *slog.Logger
}

type Option func(*Ledger)

func WithCodeGenerator(g CodeGenerator) Option { return func(l *Ledger) { l.codes = g } }
func WithNotifier(n Notifier) Option           { return func(l *Ledger) { l.notifier = n } }
func WithClock(now func() time.Time) Option    { return func(l *Ledger) { l.now = now } }
func WithLogger(lg *slog.Logger) Option        { return func(l *Ledger) { l.logger = lg } }

func NewLedger(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:    store,
		codes:    GenerateVerificationCode,
		notifier: nopNotifier{},
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Ensure returns the record for ref, creating a pending one if needed.
func (l *Ledger) Ensure(ctx context.Context, ref string) (Record, error) {
	ref = NormalizeReference(ref)
	if ref == "" {
		return Record{}, ErrEmptyReference
	}
	return l.mutate(ctx, ref, func(*Record) bool { return false })
}

// RegisterDraft attaches line items without touching status.
func (l *Ledger) RegisterDraft(ctx context.Context, ref string, items []string) (Record, error) {
	ref = NormalizeReference(ref)
	if ref == "" {
		return Record{}, ErrEmptyReference
	}
	cp := append([]string{}, items...)
	return l.mutate(ctx, ref, func(rec *Record) bool {
		rec.Items = cp
		return true
	})
}

// Transition applies st to ref. It reports false without touching the
// store when ref is empty. Any transition is accepted, including moves
// out of a terminal state; history keeps the trail.
func (l *Ledger) Transition(ctx context.Context, ref string, st Status) (Record, bool, error) {
	ref = NormalizeReference(ref)
	if ref == "" {
		return Record{}, false, nil
	}
	if !st.Valid() {
		return Record{}, false, fmt.Errorf("%w: %q", ErrInvalidStatus, st)
	}

	var from Status
	rec, err := l.mutate(ctx, ref, func(rec *Record) bool {
		from = rec.Status
		rec.apply(st, l.now())
		return true
	})
	if err != nil {
		return Record{}, false, err
	}

	ch := StatusChange{
		Reference:        rec.Reference,
		From:             from,
		To:               rec.Status,
		VerificationCode: rec.VerificationCode,
		At:               rec.UpdatedAt,
	}
	if err := l.notifier.StatusChanged(ctx, ch); err != nil {
		l.logger.WarnContext(ctx, "status change notification failed",
			"reference", ref, "from", from, "to", st, "err", err)
	}
	return rec, true, nil
}

func (l *Ledger) GetByReference(ctx context.Context, ref string) (Record, error) {
	return l.store.Get(ctx, NormalizeReference(ref))
}

func (l *Ledger) GetByVerificationCode(ctx context.Context, code string) (Record, error) {
	code = NormalizeCode(code)
	if code == "" {
		return Record{}, ErrNotFound
	}
	return l.store.GetByVerificationCode(ctx, code)
}

func (l *Ledger) mutate(ctx context.Context, ref string, fn func(*Record) bool) (Record, error) {
	// The code is only used if the record does not exist yet. Allocating it
	// here keeps store locks free of extra lookups.
	var code string
	if _, err := l.store.Get(ctx, ref); errors.Is(err, ErrNotFound) {
		code, err = l.allocateCode(ctx, ref)
		if err != nil {
			return Record{}, err
		}
	} else if err != nil {
		return Record{}, err
	}

	// A store calls seed again only after its insert lost a race or hit a
	// code collision, so later calls draw a fresh code.
	seeded := false
	seed := func() (Record, error) {
		c := code
		if seeded || c == "" {
			var err error
			if c, err = l.codes(ref); err != nil {
				return Record{}, fmt.Errorf("generate verification code: %w", err)
			}
			c = NormalizeCode(c)
		}
		seeded = true
		return newRecord(ref, c, l.now()), nil
	}
	return l.store.Mutate(ctx, ref, seed, fn)
}

func (l *Ledger) allocateCode(ctx context.Context, ref string) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		c, err := l.codes(ref)
		if err != nil {
			return "", fmt.Errorf("generate verification code: %w", err)
		}
		c = NormalizeCode(c)
		_, err = l.store.GetByVerificationCode(ctx, c)
		if errors.Is(err, ErrNotFound) {
			return c, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", ErrCodeExhausted
}
