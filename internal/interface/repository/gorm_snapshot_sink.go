package repository

import (
	"context"
	"fmt"
	"time"

	"access-reconcile-service/internal/domain/entity"
	"access-reconcile-service/internal/domain/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	ownersTable = "owners_financial_status"
	accessTable = "access_with_owners"
	batchSize   = 500
)

// GormSnapshotSink writes run snapshots to a SQL database
type GormSnapshotSink struct {
	db   *gorm.DB
	name string
}

// NewGormSnapshotSink creates a new GORM snapshot sink
func NewGormSnapshotSink(db *gorm.DB, name string) repository.SnapshotSink {
	return &GormSnapshotSink{
		db:   db,
		name: name,
	}
}

// OwnerFinancialStatus GORM model for the owner register table
type OwnerFinancialStatus struct {
	ID             uint                `gorm:"primaryKey"`
	RunID          string              `gorm:"column:run_id;index"`
	ApartmentID    string              `gorm:"column:apartment_id;index"`
	UnitLabel      string              `gorm:"column:unit_label"`
	OwnerName      string              `gorm:"column:owner_name"`
	MonthlyFee     decimal.NullDecimal `gorm:"column:monthly_fee;type:numeric"`
	Debt           decimal.NullDecimal `gorm:"column:debt;type:numeric"`
	PaymentPartner *string             `gorm:"column:payment_partner"`
	SourceRow      int                 `gorm:"column:source_row"`
	SyncedAt       time.Time           `gorm:"column:synced_at"`
}

// TableName overrides the default table name
func (OwnerFinancialStatus) TableName() string {
	return ownersTable
}

// AccessWithOwner GORM model for the reconciled access table
type AccessWithOwner struct {
	ID             uint                `gorm:"primaryKey"`
	RunID          string              `gorm:"column:run_id;index"`
	ApartmentID    string              `gorm:"column:apartment_id;index"`
	RawLabel       string              `gorm:"column:raw_label"`
	Person         string              `gorm:"column:person"`
	GrantType      string              `gorm:"column:grant_type"`
	LockID         int64               `gorm:"column:lock_id"`
	LockName       string              `gorm:"column:lock_name"`
	Username       string              `gorm:"column:username"`
	KeyID          *int64              `gorm:"column:key_id"`
	KeyStatus      *string             `gorm:"column:key_status"`
	CardID         *int64              `gorm:"column:card_id"`
	CardNumber     *string             `gorm:"column:card_number"`
	ValidFrom      *time.Time          `gorm:"column:valid_from"`
	ValidTo        *time.Time          `gorm:"column:valid_to"`
	CreatedAt      *time.Time          `gorm:"column:created_at"`
	OwnerName      *string             `gorm:"column:owner_name"`
	MonthlyFee     decimal.NullDecimal `gorm:"column:monthly_fee;type:numeric"`
	Debt           decimal.NullDecimal `gorm:"column:debt;type:numeric"`
	PaymentPartner *string             `gorm:"column:payment_partner"`
	OwnerConflict  bool                `gorm:"column:owner_conflict"`
	SyncedAt       time.Time           `gorm:"column:synced_at"`
}

// TableName overrides the default table name
func (AccessWithOwner) TableName() string {
	return accessTable
}

// Name returns the sink name used in reports
func (s *GormSnapshotSink) Name() string {
	return s.name
}

// ReplaceSnapshot replaces both tables in one transaction, so a failure
// leaves the previous run's snapshot in place
func (s *GormSnapshotSink) ReplaceSnapshot(ctx context.Context, runID string, owners []entity.OwnerRecord, records []entity.ReconciledRecord) error {
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := replaceOwners(tx, runID, owners, now); err != nil {
			return fmt.Errorf("owners: %w", err)
		}
		if err := replaceAccess(tx, runID, records, now); err != nil {
			return fmt.Errorf("access records: %w", err)
		}
		return nil
	})
}

// ReplaceOwners drops and recreates the owner table with the given rows
func (s *GormSnapshotSink) ReplaceOwners(ctx context.Context, runID string, owners []entity.OwnerRecord) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceOwners(tx, runID, owners, time.Now().UTC())
	})
}

// ReplaceAccess drops and recreates the access table with the given rows
func (s *GormSnapshotSink) ReplaceAccess(ctx context.Context, runID string, records []entity.ReconciledRecord) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceAccess(tx, runID, records, time.Now().UTC())
	})
}

func replaceOwners(tx *gorm.DB, runID string, owners []entity.OwnerRecord, now time.Time) error {
	models := make([]OwnerFinancialStatus, len(owners))
	for i, o := range owners {
		models[i] = OwnerFinancialStatus{
			RunID:          runID,
			ApartmentID:    string(o.ApartmentKey),
			UnitLabel:      o.UnitLabel,
			OwnerName:      o.OwnerName,
			MonthlyFee:     o.MonthlyFee,
			Debt:           o.Debt,
			PaymentPartner: o.PaymentPartner,
			SourceRow:      o.SourceRow,
			SyncedAt:       now,
		}
	}
	return replaceTable(tx, &OwnerFinancialStatus{}, &models, len(models))
}

func replaceAccess(tx *gorm.DB, runID string, records []entity.ReconciledRecord, now time.Time) error {
	models := make([]AccessWithOwner, len(records))
	for i, r := range records {
		models[i] = toAccessModel(runID, r, now)
	}
	return replaceTable(tx, &AccessWithOwner{}, &models, len(models))
}

// replaceTable swaps the table contents within tx
func replaceTable(tx *gorm.DB, model any, rows any, n int) error {
	if err := tx.Migrator().DropTable(model); err != nil {
		return fmt.Errorf("failed to drop table: %w", err)
	}
	if err := tx.AutoMigrate(model); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	if n == 0 {
		return nil
	}
	if err := tx.CreateInBatches(rows, batchSize).Error; err != nil {
		return fmt.Errorf("failed to insert rows: %w", err)
	}
	return nil
}

func toAccessModel(runID string, r entity.ReconciledRecord, syncedAt time.Time) AccessWithOwner {
	g := r.Entry.Grant
	m := AccessWithOwner{
		RunID:          runID,
		ApartmentID:    string(r.Entry.ApartmentKey),
		RawLabel:       r.Entry.RawLabel,
		Person:         string(r.Entry.Person),
		GrantType:      string(g.Kind),
		LockID:         g.LockID,
		LockName:       g.LockName,
		Username:       g.Username,
		PaymentPartner: r.PaymentPartner,
		OwnerConflict:  r.OwnerConflict,
		SyncedAt:       syncedAt,
	}
	if g.Key != nil {
		m.KeyID = &g.Key.KeyID
		m.KeyStatus = &g.Key.Status
	}
	if g.Card != nil {
		m.CardID = &g.Card.CardID
		m.CardNumber = &g.Card.CardNumber
		m.ValidFrom = g.Card.ValidFrom
		m.ValidTo = g.Card.ValidTo
		m.CreatedAt = g.Card.CreatedAt
	}
	if r.Owner != nil {
		m.OwnerName = &r.Owner.OwnerName
		m.MonthlyFee = r.Owner.MonthlyFee
		m.Debt = r.Owner.Debt
	}
	return m
}
