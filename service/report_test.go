package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/Mnrljan/report-backend/config"
	"github.com/Mnrljan/report-backend/model"
	"github.com/Mnrljan/report-backend/store"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

var fixedNow = time.Date(2024, time.October, 15, 9, 0, 0, 0, time.UTC)

func newTestReportService(t *testing.T) (*ReportService, *store.MemoryStore, *recordingPublisher) {
	t.Helper()
	st := store.NewMemoryStore()
	pub := &recordingPublisher{}
	svc := NewReportService(st, pub, config.ReportsConfig{DefaultLimit: 10, MaxLimit: 100})
	svc.now = func() time.Time { return fixedNow }
	return svc, st, pub
}

func validInput() CreateReportInput {
	return CreateReportInput{
		ReportNumberManual: "055/IPP/X/2024",
		ServiceID:          "SRV01",
		ServiceName:        "Instalasi Penyalur Petir",
		InspectionDate:     "2024-02-29",
		OwnerName:          "PT Maju",
		Address:            "Jl. Merdeka 1",
		ContractorName:     "CV Petir",
		Location:           "Gedung A",
		InstallerName:      "Budi",
		Jenis:              "Konvensional",
		Instalasi:          "Baru",
		AppointmentLetter:  "SP-01",
		DrawingApproval:    "PG-01",
		NoSukeD:            "SK-01",
	}
}

func TestReportServiceCreate(t *testing.T) {
	ctx := context.Background()
	svc, st, pub := newTestReportService(t)

	created, err := svc.Create(ctx, validInput(), "https://laporan.example.com/")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	r := created.Report
	if r.ID == "" {
		t.Fatal("Expected generated ID")
	}
	if r.Status != model.StatusDraft {
		t.Errorf("Expected DRAFT, got %s", r.Status)
	}
	if r.NamaPemilik != "PT Maju" || r.InstalasiPemasangan != "Budi" || r.NoSuket != "SK-01" {
		t.Errorf("Unexpected field mapping: %+v", r)
	}
	if r.SuratPenunjukan != "SP-01" || r.PengesahanGambar != "PG-01" || r.LokasiPemeriksaan != "Gedung A" {
		t.Errorf("Unexpected field mapping: %+v", r)
	}
	if r.ExpertName != model.DefaultExpertName || r.ExpertCertNo != model.DefaultExpertCertNo {
		t.Errorf("Expected default expert, got %q %q", r.ExpertName, r.ExpertCertNo)
	}
	if len(r.FormData) != 0 {
		t.Errorf("Expected empty form data, got %v", r.FormData)
	}
	if r.SubmissionDate != nil {
		t.Error("Expected no submission date")
	}
	if !r.InspectionDate.Equal(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected inspection date %v", r.InspectionDate)
	}

	want := "https://laporan.example.com/reports/" + r.ID
	if created.InspectorLink != want {
		t.Errorf("Expected link %q, got %q", want, created.InspectorLink)
	}
	if st.Count() != 1 {
		t.Errorf("Expected 1 stored report, got %d", st.Count())
	}

	if len(pub.events) != 1 || pub.events[0].Type != EventReportCreated || pub.events[0].InspectorLink != want {
		t.Errorf("Unexpected events %+v", pub.events)
	}
}

func TestReportServiceCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *CreateReportInput)
	}{
		{"missing serviceId", func(in *CreateReportInput) { in.ServiceID = "" }},
		{"missing serviceName", func(in *CreateReportInput) { in.ServiceName = "  " }},
		{"missing inspectionDate", func(in *CreateReportInput) { in.InspectionDate = "" }},
		{"bad inspectionDate", func(in *CreateReportInput) { in.InspectionDate = "29/02/2024" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st, pub := newTestReportService(t)
			in := validInput()
			tt.mutate(&in)

			_, err := svc.Create(context.Background(), in, "http://localhost")
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("Expected ErrValidation, got %v", err)
			}
			if st.Count() != 0 {
				t.Errorf("Expected nothing persisted, got %d reports", st.Count())
			}
			if len(pub.events) != 0 {
				t.Errorf("Expected no events, got %v", pub.types())
			}
		})
	}
}

func TestReportServiceCreateWithoutReportNumber(t *testing.T) {
	svc, _, _ := newTestReportService(t)
	in := validInput()
	in.ReportNumberManual = ""

	created, err := svc.Create(context.Background(), in, "http://localhost")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.Report.ReportNumberManual != "" {
		t.Errorf("Expected empty report number, got %q", created.Report.ReportNumberManual)
	}
}

func TestParseInspectionDate(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Time
		wantErr  bool
	}{
		{"2024-02-29", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), false},
		{"2024-02-29T08:30:00Z", time.Date(2024, 2, 29, 8, 30, 0, 0, time.UTC), false},
		{" 2024-01-05 ", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), false},
		{"yesterday", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseInspectionDate(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Errorf("Expected ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !got.Equal(tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestInspectorLink(t *testing.T) {
	tests := []struct {
		base, id, expected string
	}{
		{"http://localhost:5173", "abc", "http://localhost:5173/reports/abc"},
		{"http://localhost:5173/", "abc", "http://localhost:5173/reports/abc"},
		{"https://x.id", "a b", "https://x.id/reports/a%20b"},
	}
	for _, tt := range tests {
		if got := InspectorLink(tt.base, tt.id); got != tt.expected {
			t.Errorf("InspectorLink(%q, %q) = %q, want %q", tt.base, tt.id, got, tt.expected)
		}
	}
}

func TestParsePage(t *testing.T) {
	svc, _, _ := newTestReportService(t)

	tests := []struct {
		name          string
		page, limit   string
		expectedPage  int
		expectedLimit int
	}{
		{"defaults", "", "", 1, 10},
		{"explicit", "3", "25", 3, 25},
		{"malformed", "abc", "xyz", 1, 10},
		{"non-positive", "0", "-5", 1, 10},
		{"clamped", "2", "1000000", 2, 100},
		{"huge page", "1844674407370955162", "10", 1844674407370955162, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, limit := svc.ParsePage(tt.page, tt.limit)
			if page != tt.expectedPage || limit != tt.expectedLimit {
				t.Errorf("Expected (%d, %d), got (%d, %d)", tt.expectedPage, tt.expectedLimit, page, limit)
			}
		})
	}
}

func TestReportServiceList(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestReportService(t)

	for i := 0; i < 5; i++ {
		if _, err := svc.Create(ctx, validInput(), "http://localhost"); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	page, err := svc.List(ctx, 1, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page.Reports) != 2 || page.CurrentPage != 1 || page.TotalPages != 3 || page.TotalReports != 5 {
		t.Errorf("Unexpected first page: %d reports, page %d/%d, total %d",
			len(page.Reports), page.CurrentPage, page.TotalPages, page.TotalReports)
	}

	last, err := svc.List(ctx, 3, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(last.Reports) != 1 {
		t.Errorf("Expected 1 report on last page, got %d", len(last.Reports))
	}

	beyond, err := svc.List(ctx, 4, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(beyond.Reports) != 0 || beyond.TotalReports != 5 || beyond.CurrentPage != 4 {
		t.Errorf("Expected empty page past the end, got %+v", beyond)
	}
}

func TestReportServiceListHugePage(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestReportService(t)
	for i := 0; i < 3; i++ {
		if _, err := svc.Create(ctx, validInput(), "http://localhost"); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	page, limit := svc.ParsePage("1844674407370955162", "10")
	result, err := svc.List(ctx, page, limit)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(result.Reports) != 0 {
		t.Errorf("Expected empty page, got %d reports", len(result.Reports))
	}
	if result.CurrentPage != page || result.TotalPages != 1 || result.TotalReports != 3 {
		t.Errorf("Unexpected metadata %+v", result)
	}
}

func TestPageOffset(t *testing.T) {
	tests := []struct {
		page, limit, expected int
	}{
		{1, 10, 0},
		{3, 25, 50},
		{1844674407370955162, 10, math.MaxInt},
		{math.MaxInt, 100, math.MaxInt},
	}
	for _, tt := range tests {
		if got := pageOffset(tt.page, tt.limit); got != tt.expected {
			t.Errorf("pageOffset(%d, %d) = %d, want %d", tt.page, tt.limit, got, tt.expected)
		}
	}
}

func TestReportServiceListEmpty(t *testing.T) {
	svc, _, _ := newTestReportService(t)

	page, err := svc.List(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if page.TotalPages != 0 || page.TotalReports != 0 || len(page.Reports) != 0 {
		t.Errorf("Expected empty listing, got %+v", page)
	}
}

func TestReportServiceSubmit(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newTestReportService(t)

	created, err := svc.Create(ctx, validInput(), "http://localhost")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	id := created.Report.ID

	first, err := svc.Submit(ctx, id, map[string]any{"HasilPengukuran": "1.2 Ohm", "Catatan": "baik"})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if first.Status != model.StatusSubmitted {
		t.Errorf("Expected SUBMITTED, got %s", first.Status)
	}
	if first.SubmissionDate == nil || !first.SubmissionDate.Equal(fixedNow) {
		t.Errorf("Expected submission date %v, got %v", fixedNow, first.SubmissionDate)
	}

	second, err := svc.Submit(ctx, id, map[string]any{"HasilPengukuran": "0.9 Ohm"})
	if err != nil {
		t.Fatalf("Resubmit failed: %v", err)
	}
	if len(second.FormData) != 1 || second.FormData["HasilPengukuran"] != "0.9 Ohm" {
		t.Errorf("Expected form data replaced wholesale, got %v", second.FormData)
	}
	if second.Version != first.Version+1 {
		t.Errorf("Expected version %d, got %d", first.Version+1, second.Version)
	}

	stored, err := svc.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, ok := stored.FormData["Catatan"]; ok {
		t.Error("Expected previous form data keys to be gone")
	}

	types := pub.types()
	if len(types) != 3 || types[1] != EventReportSubmitted || types[2] != EventReportSubmitted {
		t.Errorf("Unexpected events %v", types)
	}
}

func TestReportServiceSubmitNilFormData(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestReportService(t)

	created, _ := svc.Create(ctx, validInput(), "http://localhost")
	r, err := svc.Submit(ctx, created.Report.ID, nil)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if r.FormData == nil || len(r.FormData) != 0 {
		t.Errorf("Expected empty form data, got %v", r.FormData)
	}
	if r.Status != model.StatusSubmitted {
		t.Errorf("Expected SUBMITTED, got %s", r.Status)
	}
}

func TestReportServiceSubmitNotFound(t *testing.T) {
	svc, _, _ := newTestReportService(t)

	_, err := svc.Submit(context.Background(), "missing", map[string]any{"a": "b"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

// conflictingStore loses every version race.
type conflictingStore struct {
	*store.MemoryStore
}

func (conflictingStore) SubmitReport(context.Context, string, int64, map[string]any, time.Time) (*model.Report, error) {
	return nil, store.ErrVersionConflict
}

func TestReportServiceSubmitConflict(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	svc := NewReportService(conflictingStore{mem}, nil, config.ReportsConfig{})

	created, err := svc.Create(ctx, validInput(), "http://localhost")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err = svc.Submit(ctx, created.Report.ID, map[string]any{"a": "b"})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("Expected ErrConflict, got %v", err)
	}

	stored, _ := svc.Get(ctx, created.Report.ID)
	if stored.Status != model.StatusDraft {
		t.Errorf("Expected report untouched, got %s", stored.Status)
	}
}

func TestReportServiceConcurrentSubmits(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestReportService(t)

	created, _ := svc.Create(ctx, validInput(), "http://localhost")
	id := created.Report.ID

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Submit(ctx, id, map[string]any{"n": float64(i)})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, ErrConflict):
			t.Errorf("Unexpected error %v", err)
		}
	}
	if succeeded == 0 {
		t.Fatal("Expected at least one submission to win")
	}

	stored, _ := svc.Get(ctx, id)
	if stored.Version != int64(succeeded) {
		t.Errorf("Expected version %d, got %d", succeeded, stored.Version)
	}
	if len(stored.FormData) != 1 {
		t.Errorf("Expected one winner's form data, got %v", stored.FormData)
	}
}

func TestReportServiceDelete(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newTestReportService(t)

	created, _ := svc.Create(ctx, validInput(), "http://localhost")
	if err := svc.Delete(ctx, created.Report.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := svc.Get(ctx, created.Report.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := svc.Delete(ctx, created.Report.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}

	types := pub.types()
	if types[len(types)-1] != EventReportDeleted {
		t.Errorf("Expected report.deleted event, got %v", types)
	}
}

func TestReportServiceDeleteAll(t *testing.T) {
	ctx := context.Background()
	svc, st, pub := newTestReportService(t)

	n, err := svc.DeleteAll(ctx)
	if err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected 0 deleted on empty store, got %d", n)
	}

	for i := 0; i < 3; i++ {
		svc.Create(ctx, validInput(), "http://localhost")
	}
	n, err = svc.DeleteAll(ctx)
	if err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}
	if n != 3 || st.Count() != 0 {
		t.Errorf("Expected 3 deleted and empty store, got %d and %d", n, st.Count())
	}

	last := pub.events[len(pub.events)-1]
	if last.Type != EventReportsPurged || last.DeletedCount != 3 {
		t.Errorf("Unexpected purge event %+v", last)
	}
}

func TestReportServicePublishFailureIgnored(t *testing.T) {
	st := store.NewMemoryStore()
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewReportService(st, pub, config.ReportsConfig{})

	if _, err := svc.Create(context.Background(), validInput(), "http://localhost"); err != nil {
		t.Fatalf("Expected create to succeed despite publish failure, got %v", err)
	}
	if st.Count() != 1 {
		t.Errorf("Expected report stored, got %d", st.Count())
	}
}
