// Package store persists reports and user accounts.
//
// Three drivers implement Store: an in-process map (memory), a SQL database
// through gorm (sqlite, postgres) and MongoDB. All of them assign ids on
// insert, order report listings by creation time descending and implement
// SubmitReport as a conditional write on the report version.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Mnrljan/report-backend/config"
	"github.com/Mnrljan/report-backend/model"
)

var (
	// ErrNotFound is returned when no record matches the id or key.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("duplicate key")
	// ErrVersionConflict is returned when a conditional write lost a race.
	ErrVersionConflict = errors.New("version conflict")
)

// ReportStore is the persistent collection of reports.
type ReportStore interface {
	CreateReport(ctx context.Context, report *model.Report) error
	FindReport(ctx context.Context, id string) (*model.Report, error)
	// ListReports returns one page ordered by CreatedAt descending along
	// with the total number of reports.
	ListReports(ctx context.Context, offset, limit int) ([]*model.Report, int64, error)
	// SubmitReport replaces the form data, marks the report submitted and
	// bumps its version, but only if the stored version still equals
	// version.
	SubmitReport(ctx context.Context, id string, version int64, formData map[string]any, submittedAt time.Time) (*model.Report, error)
	DeleteReport(ctx context.Context, id string) error
	DeleteAllReports(ctx context.Context) (int64, error)
}

// UserStore is the persistent collection of accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	FindUserByID(ctx context.Context, id string) (*model.User, error)
	FindUserByUsername(ctx context.Context, username string) (*model.User, error)
}

// Store bundles both collections behind one connection.
type Store interface {
	ReportStore
	UserStore
	Close(ctx context.Context) error
}

// Open connects the driver named in cfg.
func Open(ctx context.Context, cfg *config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite", "postgres":
		return OpenGorm(cfg)
	case "mongo":
		return OpenMongo(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
