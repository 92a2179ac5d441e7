package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Mnrljan/report-backend/config"
	"github.com/Mnrljan/report-backend/model"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormStore persists reports and users in a SQL database.
type GormStore struct {
	db *gorm.DB
}

// OpenGorm connects to sqlite or postgres according to cfg.Driver.
func OpenGorm(cfg *config.StoreConfig) (*GormStore, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.URI)
	default:
		dsn := cfg.URI
		if dsn == "" {
			dsn = "laporan.db"
		}
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return NewGormStore(db)
}

// NewGormStore migrates the schema on db and wraps it.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&model.Report{}, &model.User{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) CreateReport(ctx context.Context, report *model.Report) error {
	report.ID = uuid.New().String()
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

func (s *GormStore) FindReport(ctx context.Context, id string) (*model.Report, error) {
	var report model.Report
	err := s.db.WithContext(ctx).First(&report, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	return &report, nil
}

func (s *GormStore) ListReports(ctx context.Context, offset, limit int) ([]*model.Report, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&model.Report{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reports: %w", err)
	}

	reports := []*model.Report{}
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&reports).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, total, nil
}

func (s *GormStore) SubmitReport(ctx context.Context, id string, version int64, formData map[string]any, submittedAt time.Time) (*model.Report, error) {
	res := s.db.WithContext(ctx).
		Model(&model.Report{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]any{
			"form_data":       datatypes.JSONMap(formData),
			"status":          model.StatusSubmitted,
			"submission_date": submittedAt,
			"version":         gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to submit report: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Either the report is gone or another submission got there first.
		if _, err := s.FindReport(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrVersionConflict
	}
	return s.FindReport(ctx, id)
}

func (s *GormStore) DeleteReport(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&model.Report{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete report: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteAllReports(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("1 = 1").Delete(&model.Report{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete reports: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *GormStore) CreateUser(ctx context.Context, user *model.User) error {
	if _, err := s.FindUserByUsername(ctx, user.Username); err == nil {
		return ErrDuplicate
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	user.ID = uuid.New().String()
	err := s.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *GormStore) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.findUser(ctx, "id = ?", id)
}

func (s *GormStore) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.findUser(ctx, "username = ?", username)
}

func (s *GormStore) findUser(ctx context.Context, query string, arg string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).First(&user, query, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

func (s *GormStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
