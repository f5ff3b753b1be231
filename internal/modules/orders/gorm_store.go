package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRow is the payment_orders table.
type OrderRow struct {
	Reference        string         `gorm:"type:varchar(191);primaryKey"`
	Status           string         `gorm:"type:varchar(16);not null"`
	VerificationCode string         `gorm:"type:varchar(32);not null;uniqueIndex:ux_payment_orders_code"`
	HistoryJSON      datatypes.JSON `gorm:"not null"`
	ItemsJSON        datatypes.JSON `gorm:"not null"`
	StatusUpdatedAt  time.Time      `gorm:"not null"`
	CreatedAt        time.Time      `gorm:"not null"`
}

func (OrderRow) TableName() string { return "payment_orders" }

// GormStore keeps records in SQL. Mutate locks the row with
// SELECT ... FOR UPDATE inside a transaction.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

// Migrate creates or updates the payment_orders table.
func (s *GormStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&OrderRow{})
}

// Mutate retries the whole transaction when two first deliveries race on
// the same missing row (duplicate key or InnoDB deadlock on the gap lock)
// or a fresh verification code collides with the unique index.
func (s *GormStore) Mutate(ctx context.Context, ref string, seed func() (Record, error), fn func(rec *Record) bool) (Record, error) {
	var err error
	for attempt := 0; attempt < gormMaxAttempts; attempt++ {
		var rec Record
		rec, err = s.mutateOnce(ctx, ref, seed, fn)
		if !isRetryable(err) {
			return rec, err
		}
		if cerr := ctx.Err(); cerr != nil {
			return Record{}, cerr
		}
	}
	return Record{}, fmt.Errorf("%w: %v", ErrConcurrentWrite, err)
}

func (s *GormStore) mutateOnce(ctx context.Context, ref string, seed func() (Record, error), fn func(rec *Record) bool) (Record, error) {
	var out Record
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row OrderRow
		err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&row, "reference = ?", ref).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			if out, err = seed(); err != nil {
				return err
			}
			fn(&out)
			row, err := toRow(out)
			if err != nil {
				return err
			}
			return tx.WithContext(ctx).Create(&row).Error
		}
		if err != nil {
			return err
		}

		out, err = fromRow(row)
		if err != nil {
			return err
		}
		if !fn(&out) {
			return nil
		}

		upd, err := toRow(out)
		if err != nil {
			return err
		}
		return tx.WithContext(ctx).Model(&OrderRow{}).
			Where("reference = ?", ref).
			Updates(map[string]any{
				"status":            upd.Status,
				"history_json":      upd.HistoryJSON,
				"items_json":        upd.ItemsJSON,
				"status_updated_at": upd.StatusUpdatedAt,
			}).Error
	})
	if err != nil {
		return Record{}, err
	}
	return out.Clone(), nil
}

func (s *GormStore) Get(ctx context.Context, ref string) (Record, error) {
	var row OrderRow
	if err := s.db.WithContext(ctx).First(&row, "reference = ?", ref).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return fromRow(row)
}

func (s *GormStore) GetByVerificationCode(ctx context.Context, code string) (Record, error) {
	var row OrderRow
	if err := s.db.WithContext(ctx).First(&row, "verification_code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return fromRow(row)
}

func toRow(r Record) (OrderRow, error) {
	h, err := json.Marshal(r.Clone().History)
	if err != nil {
		return OrderRow{}, fmt.Errorf("marshal history: %w", err)
	}
	it, err := json.Marshal(r.Clone().Items)
	if err != nil {
		return OrderRow{}, fmt.Errorf("marshal items: %w", err)
	}
	return OrderRow{
		Reference:        r.Reference,
		Status:           string(r.Status),
		VerificationCode: r.VerificationCode,
		HistoryJSON:      datatypes.JSON(h),
		ItemsJSON:        datatypes.JSON(it),
		StatusUpdatedAt:  r.UpdatedAt,
	}, nil
}

func fromRow(row OrderRow) (Record, error) {
	r := Record{
		Reference:        row.Reference,
		Status:           Status(row.Status),
		UpdatedAt:        row.StatusUpdatedAt,
		VerificationCode: row.VerificationCode,
	}
	if len(row.HistoryJSON) > 0 {
		if err := json.Unmarshal(row.HistoryJSON, &r.History); err != nil {
			return Record{}, fmt.Errorf("unmarshal history for %s: %w", row.Reference, err)
		}
	}
	if len(row.ItemsJSON) > 0 {
		if err := json.Unmarshal(row.ItemsJSON, &r.Items); err != nil {
			return Record{}, fmt.Errorf("unmarshal items for %s: %w", row.Reference, err)
		}
	}
	return r.Clone(), nil
}

const (
	gormMaxAttempts = 5

	mysqlErrDupEntry        = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrLockDeadlock    = 1213
)

// isRetryable reports errors after which rerunning the transaction can
// succeed: a lost insert race, a deadlock, or a lock wait timeout.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	switch me.Number {
	case mysqlErrDupEntry, mysqlErrLockWaitTimeout, mysqlErrLockDeadlock:
		return true
	}
	return false
}
