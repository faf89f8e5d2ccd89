package history

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	dbpkg "haggle.local/haggle-gateway/internal/db"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(driver, dsn string) (*GormStore, error) {
	gormDB, err := dbpkg.OpenGorm(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	store := &GormStore{db: gormDB}
	if err := store.db.AutoMigrate(&historyRow{}); err != nil {
		return nil, fmt.Errorf("migrate history store: %w", err)
	}
	return store, nil
}

// NewGormStoreFrom shares an already-open database handle, used when the
// session store and history store live in the same database.
func NewGormStoreFrom(gormDB *gorm.DB) (*GormStore, error) {
	store := &GormStore{db: gormDB}
	if err := store.db.AutoMigrate(&historyRow{}); err != nil {
		return nil, fmt.Errorf("migrate history store: %w", err)
	}
	return store, nil
}

func (s *GormStore) Append(ctx context.Context, row Row) error {
	record := historyRowFromRow(row)
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("append history row: %w", err)
	}
	return nil
}

func (s *GormStore) QueryByProduct(ctx context.Context, productID int64) ([]Row, error) {
	var records []historyRow
	err := s.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("row_id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("query history rows: %w", err)
	}
	rows := make([]Row, 0, len(records))
	for _, record := range records {
		rows = append(rows, record.toRow())
	}
	return rows, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	return sqlDB.Close()
}

type historyRow struct {
	RowID       string    `gorm:"primaryKey;size:64"`
	SessionID   string    `gorm:"size:191;index;not null"`
	ProductID   int64     `gorm:"index;not null"`
	UserOffer   *float64
	BotOffer    *float64
	Accepted    *bool
	UserMessage string `gorm:"type:text"`
	BotMessage  string `gorm:"type:text"`
	Status      string `gorm:"size:32;not null"`
	FinalPrice  *float64
	CreatedAt   time.Time `gorm:"not null"`
}

func (historyRow) TableName() string {
	return "negotiation_history"
}

func historyRowFromRow(row Row) historyRow {
	return historyRow{
		RowID:       row.RowID,
		SessionID:   row.SessionID,
		ProductID:   row.ProductID,
		UserOffer:   row.UserOffer,
		BotOffer:    row.BotOffer,
		Accepted:    row.Accepted,
		UserMessage: row.UserMessage,
		BotMessage:  row.BotMessage,
		Status:      row.Status,
		FinalPrice:  row.FinalPrice,
		CreatedAt:   row.CreatedAt,
	}
}

func (r historyRow) toRow() Row {
	return Row{
		RowID:       r.RowID,
		SessionID:   r.SessionID,
		ProductID:   r.ProductID,
		UserOffer:   r.UserOffer,
		BotOffer:    r.BotOffer,
		Accepted:    r.Accepted,
		UserMessage: r.UserMessage,
		BotMessage:  r.BotMessage,
		Status:      r.Status,
		FinalPrice:  r.FinalPrice,
		CreatedAt:   r.CreatedAt,
	}
}
