package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"call-insights-go/internal/logger"
	"call-insights-go/internal/types"
)

// ErrNotFound is returned when no call has the requested id.
var ErrNotFound = errors.New("call not found")

// Store persists call records in a single SQLite table.
type Store struct {
	db  *gorm.DB
	log *logger.Logger
}

// Options tunes Open. Zero values select defaults.
type Options struct {
	ConnectTimeout time.Duration
}

// Open creates the database file if needed, waits until it answers, and migrates the schema.
func Open(ctx context.Context, path string, log *logger.Logger, opts Options) (*Store, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 15 * time.Second
	}
	log = log.Component("store")

	if dir := filepath.Dir(path); dir != "" && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite allows one writer; a single connection avoids "database is locked".
	sqlDB.SetMaxOpenConns(1)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = opts.ConnectTimeout
	attempt := 0
	ping := func() error {
		attempt++
		err := sqlDB.PingContext(ctx)
		if err != nil {
			log.WithError(err).WithField("attempt", attempt).Warn("database ping failed")
		}
		return err
	}
	if err := backoff.Retry(ping, backoff.WithContext(bo, ctx)); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&types.CallRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.WithField("path", path).Info("database ready")
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping returns err if DB not reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("db health: %w", err)
	}
	return nil
}

// Create inserts a placeholder record for a freshly saved file.
func (s *Store) Create(ctx context.Context, filename string, meta types.FileMetadata) (*types.CallRecord, error) {
	rec := &types.CallRecord{
		Filename:     filename,
		FileMetadata: datatypes.NewJSONType(meta),
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("create call: %w", err)
	}
	return rec, nil
}

// Fields is a partial update; nil members are left untouched.
type Fields struct {
	Transcript *string
	Analysis   *types.Analysis
	Tags       *[]string
	CustomTags *[]string
}

func (f Fields) columns() map[string]any {
	cols := map[string]any{}
	if f.Transcript != nil {
		cols["transcript"] = *f.Transcript
	}
	if f.Analysis != nil {
		cols["analysis_json"] = datatypes.NewJSONType(*f.Analysis)
	}
	if f.Tags != nil {
		cols["tags"] = datatypes.NewJSONSlice(nonNil(*f.Tags))
	}
	if f.CustomTags != nil {
		cols["custom_tags"] = datatypes.NewJSONSlice(nonNil(*f.CustomTags))
	}
	return cols
}

// Update writes only the columns set in f and returns the stored record.
func (s *Store) Update(ctx context.Context, id uint, f Fields) (*types.CallRecord, error) {
	var rec types.CallRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rec, id).Error; err != nil {
			return err
		}
		cols := f.columns()
		if len(cols) == 0 {
			return nil
		}
		if err := tx.Model(&types.CallRecord{}).Where("id = ?", id).Updates(cols).Error; err != nil {
			return err
		}
		rec = types.CallRecord{}
		return tx.First(&rec, id).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update call %d: %w", id, err)
	}
	return &rec, nil
}

func (s *Store) Get(ctx context.Context, id uint) (*types.CallRecord, error) {
	var rec types.CallRecord
	err := s.db.WithContext(ctx).First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get call %d: %w", id, err)
	}
	return &rec, nil
}

// List returns every record. Callers impose their own order.
func (s *Store) List(ctx context.Context) ([]types.CallRecord, error) {
	var recs []types.CallRecord
	if err := s.db.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}
	return recs, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
