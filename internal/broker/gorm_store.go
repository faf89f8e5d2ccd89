package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	dbpkg "haggle.local/haggle-gateway/internal/db"
	"haggle.local/haggle-gateway/internal/negotiate"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(driver, dsn string) (*GormStore, error) {
	gormDB, err := dbpkg.OpenGorm(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	return NewGormStoreFrom(gormDB)
}

// NewGormStoreFrom wraps an existing handle so the session and history
// stores can share one database.
func NewGormStoreFrom(gormDB *gorm.DB) (*GormStore, error) {
	store := &GormStore{db: gormDB}
	if err := store.db.AutoMigrate(&sessionRow{}); err != nil {
		return nil, fmt.Errorf("migrate session store: %w", err)
	}
	return store, nil
}

func (s *GormStore) Create(ctx context.Context, rec SessionRecord) error {
	if err := validateSessionID(rec.SessionID); err != nil {
		return err
	}
	row, err := sessionRowFromRecord(rec)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing sessionRow
		err := tx.Where("session_id = ?", rec.SessionID).Take(&existing).Error
		if err == nil {
			return fmt.Errorf("%w: %s", ErrSessionExists, rec.SessionID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check session: %w", err)
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		return nil
	})
}

func (s *GormStore) Get(ctx context.Context, sessionID string) (SessionRecord, error) {
	if err := validateSessionID(sessionID); err != nil {
		return SessionRecord{}, err
	}

	var row sessionRow
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SessionRecord{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return SessionRecord{}, fmt.Errorf("get session: %w", err)
	}
	return row.toRecord()
}

func (s *GormStore) Save(ctx context.Context, rec SessionRecord) error {
	if err := validateSessionID(rec.SessionID); err != nil {
		return err
	}
	row, err := sessionRowFromRecord(rec)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("unwrap session store: %w", err)
	}
	return sqlDB.Close()
}

type sessionRow struct {
	SessionID    string `gorm:"column:session_id;primaryKey"`
	ProductID    int64  `gorm:"column:product_id;index"`
	Status       string `gorm:"column:status"`
	SnapshotJSON []byte `gorm:"column:snapshot_json"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (sessionRow) TableName() string {
	return "negotiation_sessions"
}

func sessionRowFromRecord(rec SessionRecord) (sessionRow, error) {
	encoded, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return sessionRow{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	return sessionRow{
		SessionID:    rec.SessionID,
		ProductID:    rec.ProductID,
		Status:       string(rec.Status),
		SnapshotJSON: encoded,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}, nil
}

func (r sessionRow) toRecord() (SessionRecord, error) {
	var snap negotiate.Snapshot
	if err := json.Unmarshal(r.SnapshotJSON, &snap); err != nil {
		return SessionRecord{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return SessionRecord{
		SessionID: r.SessionID,
		ProductID: r.ProductID,
		Status:    negotiate.Status(r.Status),
		Snapshot:  snap,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}, nil
}
