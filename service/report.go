package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Mnrljan/report-backend/config"
	"github.com/Mnrljan/report-backend/model"
	"github.com/Mnrljan/report-backend/pkg/logger"
	"github.com/Mnrljan/report-backend/store"
)

// ReportService owns the report lifecycle: an administrator creates a DRAFT,
// the inspector submits form data through the shared link, and the report
// becomes SUBMITTED.
type ReportService struct {
	reports store.ReportStore
	events  Publisher
	limits  config.ReportsConfig
	now     func() time.Time
}

func NewReportService(reports store.ReportStore, events Publisher, limits config.ReportsConfig) *ReportService {
	if events == nil {
		events = NopPublisher{}
	}
	if limits.DefaultLimit <= 0 {
		limits.DefaultLimit = 10
	}
	if limits.MaxLimit <= 0 {
		limits.MaxLimit = 100
	}
	return &ReportService{
		reports: reports,
		events:  events,
		limits:  limits,
		now:     time.Now,
	}
}

// CreateReportInput is the administrator's create payload. Its field names
// are the ones the front end sends; Report maps them onto the stored names.
type CreateReportInput struct {
	ReportNumberManual string `json:"reportNumberManual"`
	ServiceID          string `json:"serviceId"`
	ServiceName        string `json:"serviceName"`
	InspectionDate     string `json:"inspectionDate"`

	OwnerName         string `json:"ownerName"`
	Address           string `json:"address"`
	ContractorName    string `json:"contractorName"`
	Location          string `json:"location"`
	InstallerName     string `json:"installerName"`
	Jenis             string `json:"jenis"`
	Instalasi         string `json:"instalasi"`
	AppointmentLetter string `json:"appointmentLetter"`
	DrawingApproval   string `json:"drawingApproval"`
	NoSukeD           string `json:"noSukeD"`
}

// Report validates the required fields and builds the DRAFT report.
func (in *CreateReportInput) Report() (*model.Report, error) {
	if strings.TrimSpace(in.ServiceID) == "" ||
		strings.TrimSpace(in.ServiceName) == "" ||
		strings.TrimSpace(in.InspectionDate) == "" {
		return nil, fmt.Errorf("%w: serviceId, serviceName and inspectionDate are required", ErrValidation)
	}

	inspectionDate, err := ParseInspectionDate(in.InspectionDate)
	if err != nil {
		return nil, err
	}

	return &model.Report{
		ReportNumberManual:  in.ReportNumberManual,
		ServiceID:           in.ServiceID,
		ServiceName:         in.ServiceName,
		InspectionDate:      inspectionDate,
		NamaPemilik:         in.OwnerName,
		Alamat:              in.Address,
		NamaKontraktor:      in.ContractorName,
		LokasiPemeriksaan:   in.Location,
		InstalasiPemasangan: in.InstallerName,
		Jenis:               in.Jenis,
		Instalasi:           in.Instalasi,
		SuratPenunjukan:     in.AppointmentLetter,
		PengesahanGambar:    in.DrawingApproval,
		NoSuket:             in.NoSukeD,
		ExpertName:          model.DefaultExpertName,
		ExpertCertNo:        model.DefaultExpertCertNo,
		Status:              model.StatusDraft,
		FormData:            map[string]any{},
	}, nil
}

// ParseInspectionDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func ParseInspectionDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: inspectionDate %q is not a valid date", ErrValidation, s)
}

// CreatedReport is the result of Create.
type CreatedReport struct {
	Report        *model.Report
	InspectorLink string
}

// Create stores a new DRAFT report and returns it together with the link
// the administrator forwards to the inspector.
func (s *ReportService) Create(ctx context.Context, in CreateReportInput, baseURL string) (*CreatedReport, error) {
	report, err := in.Report()
	if err != nil {
		return nil, err
	}

	if err := s.reports.CreateReport(ctx, report); err != nil {
		return nil, err
	}

	link := InspectorLink(baseURL, report.ID)
	logger.Info(ctx, "report created", "report_id", report.ID, "service_id", report.ServiceID)
	s.publish(ctx, Event{
		Type:          EventReportCreated,
		ReportID:      report.ID,
		ServiceID:     report.ServiceID,
		InspectorLink: link,
	})

	return &CreatedReport{Report: report, InspectorLink: link}, nil
}

// InspectorLink builds the unguarded link to a report.
func InspectorLink(baseURL, id string) string {
	return strings.TrimRight(baseURL, "/") + "/reports/" + url.PathEscape(id)
}

// ReportPage is one page of the report listing.
type ReportPage struct {
	Reports      []*model.Report `json:"reports"`
	CurrentPage  int             `json:"currentPage"`
	TotalPages   int             `json:"totalPages"`
	TotalReports int64           `json:"totalReports"`
}

// ParsePage turns raw query values into a page number and page size.
// Missing, malformed and non-positive values fall back to the defaults;
// sizes above the configured maximum are clamped to it.
func (s *ReportService) ParsePage(pageParam, limitParam string) (page, limit int) {
	page = positiveOr(pageParam, 1)
	limit = positiveOr(limitParam, s.limits.DefaultLimit)
	if limit > s.limits.MaxLimit {
		limit = s.limits.MaxLimit
	}
	return page, limit
}

func positiveOr(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// List returns one page of reports, newest first.
func (s *ReportService) List(ctx context.Context, page, limit int) (*ReportPage, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = s.limits.DefaultLimit
	}
	if limit > s.limits.MaxLimit {
		limit = s.limits.MaxLimit
	}

	reports, total, err := s.reports.ListReports(ctx, pageOffset(page, limit), limit)
	if err != nil {
		return nil, err
	}

	return &ReportPage{
		Reports:      reports,
		CurrentPage:  page,
		TotalPages:   int((total + int64(limit) - 1) / int64(limit)),
		TotalReports: total,
	}, nil
}

// pageOffset is the number of reports before page. Offsets that do not fit
// in an int saturate, which every store treats as past the end.
func pageOffset(page, limit int) int {
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}

// Get returns the report with the given id.
func (s *ReportService) Get(ctx context.Context, id string) (*model.Report, error) {
	report, err := s.reports.FindReport(ctx, id)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return report, nil
}

// Submit records the inspector's form data. The previous form data is
// replaced, not merged. Submitting again is allowed; of two submissions
// racing on the same version only one is stored and the other gets
// ErrConflict.
func (s *ReportService) Submit(ctx context.Context, id string, formData map[string]any) (*model.Report, error) {
	current, err := s.reports.FindReport(ctx, id)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	if formData == nil {
		formData = map[string]any{}
	}

	updated, err := s.reports.SubmitReport(ctx, id, current.Version, formData, s.now())
	if err != nil {
		return nil, translateStoreErr(err)
	}

	logger.Info(ctx, "report submitted", "report_id", id, "version", updated.Version, "fields", len(formData))
	s.publish(ctx, Event{Type: EventReportSubmitted, ReportID: id, ServiceID: updated.ServiceID})
	return updated, nil
}

// Delete removes one report permanently.
func (s *ReportService) Delete(ctx context.Context, id string) error {
	if err := s.reports.DeleteReport(ctx, id); err != nil {
		return translateStoreErr(err)
	}

	logger.Info(ctx, "report deleted", "report_id", id)
	s.publish(ctx, Event{Type: EventReportDeleted, ReportID: id})
	return nil
}

// DeleteAll removes every report and returns how many were removed.
func (s *ReportService) DeleteAll(ctx context.Context) (int64, error) {
	n, err := s.reports.DeleteAllReports(ctx)
	if err != nil {
		return 0, err
	}

	logger.Warn(ctx, "all reports deleted", "deleted_count", n)
	s.publish(ctx, Event{Type: EventReportsPurged, DeletedCount: n})
	return n, nil
}

func (s *ReportService) publish(ctx context.Context, ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = s.now()
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		logger.Warn(ctx, "failed to publish report event", "type", ev.Type, "report_id", ev.ReportID, "error", err)
	}
}

func translateStoreErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrVersionConflict):
		return ErrConflict
	}
	return err
}
