package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/Mnrljan/report-backend/config"
	"github.com/Mnrljan/report-backend/model"
	"github.com/Mnrljan/report-backend/pkg/logger"
	"github.com/Mnrljan/report-backend/store"
	"github.com/lukasjarosch/go-docx"
)

const (
	// NotAvailable replaces every empty placeholder value.
	NotAvailable = "N/A"

	DocumentContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	// ImagePlaceholder is the template slot reserved for inspection photos.
	ImagePlaceholder = "ProsesPemeriksaanSatu"

	// Inspection photos are pasted into the document by an administrator.
	manualImageNotice = "GAMBAR DIINPUT MANUAL OLEH ADMIN"
)

// Document is a rendered report ready to be downloaded.
type Document struct {
	Filename    string
	ContentType string
	Content     []byte
}

// DocumentArchive keeps a copy of every rendered document.
type DocumentArchive interface {
	Archive(ctx context.Context, reportID string, doc *Document) error
}

// ImageResolver supplies the value of the image placeholder of a report.
type ImageResolver interface {
	ResolveImage(ctx context.Context, report *model.Report) (string, error)
}

// ManualImages leaves photos to an administrator and fills the image
// placeholder with a notice saying so.
type ManualImages struct{}

func (ManualImages) ResolveImage(context.Context, *model.Report) (string, error) {
	return manualImageNotice, nil
}

// DocumentRenderer fills the report template with the data of one report.
type DocumentRenderer struct {
	reports     store.ReportStore
	template    TemplateSource
	archive     DocumentArchive
	images      ImageResolver
	serviceCode string
	loc         *time.Location
	now         func() time.Time
}

func NewDocumentRenderer(reports store.ReportStore, template TemplateSource, cfg *config.RenderConfig) (*DocumentRenderer, error) {
	loc := time.UTC
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid render timezone %q: %w", cfg.Timezone, err)
		}
		loc = l
	}
	serviceCode := cfg.ServiceCode
	if serviceCode == "" {
		serviceCode = "IPP"
	}

	return &DocumentRenderer{
		reports:     reports,
		template:    template,
		images:      ManualImages{},
		serviceCode: serviceCode,
		loc:         loc,
		now:         time.Now,
	}, nil
}

// SetArchive enables archiving of rendered documents.
func (r *DocumentRenderer) SetArchive(a DocumentArchive) {
	r.archive = a
}

// SetImageResolver replaces the resolver of the image placeholder.
func (r *DocumentRenderer) SetImageResolver(images ImageResolver) {
	r.images = images
}

// Render produces the document for the report with the given id. Either a
// complete document is returned or an error; the report is not modified.
func (r *DocumentRenderer) Render(ctx context.Context, id string) (*Document, error) {
	report, err := r.reports.FindReport(ctx, id)
	if err != nil {
		return nil, translateStoreErr(err)
	}

	tpl, err := r.template.Load(ctx)
	if err != nil {
		logger.Error(ctx, "failed to load report template", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}

	data := r.Placeholders(report, r.now())
	image, err := r.images.ResolveImage(ctx, report)
	if err != nil {
		logger.Error(ctx, "failed to resolve report images", "report_id", id, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	data[ImagePlaceholder] = orNA(image)

	content, err := FillTemplate(tpl, data)
	if err != nil {
		logger.Error(ctx, "failed to fill report template", "report_id", id, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}

	doc := &Document{
		Filename:    DocumentFilename(report),
		ContentType: DocumentContentType,
		Content:     content,
	}

	if r.archive != nil {
		if err := r.archive.Archive(ctx, report.ID, doc); err != nil {
			logger.Warn(ctx, "failed to archive rendered report", "report_id", id, "error", err)
		}
	}
	return doc, nil
}

// Placeholders computes the template values for report as of now.
//
// Assignment order matters: form data keys override the fixed fields with
// the same name, and the re-inspection date, report date and the image
// notice override form data in turn.
func (r *DocumentRenderer) Placeholders(report *model.Report, now time.Time) map[string]string {
	inspection := report.InspectionDate.In(r.loc)
	today := now.In(r.loc)

	data := map[string]string{
		"NamaPerusahaan":   orNA(report.NamaPemilik),
		"AlamatPerusahaan": orNA(report.Alamat),

		"NomorLaporan":       orNA(report.ReportNumberManual),
		"BulanLaporan":       ToRoman(int(today.Month())),
		"ServiceCode":        r.serviceCode,
		"TanggalPemeriksaan": FormatLongDate(inspection, r.loc),
		"TahunLaporan":       strconv.Itoa(inspection.Year()),

		"NamaPemilik":          orNA(report.NamaPemilik),
		"Alamat":               orNA(report.Alamat),
		"NamaKontraktor":       orNA(report.NamaKontraktor),
		"LokasiPemeriksaan":    orNA(report.LokasiPemeriksaan),
		"InstalatirPemasangan": orNA(report.InstalasiPemasangan),
		"Jenis":                orNA(report.Jenis),
		"Instalasi":            orNA(report.Instalasi),
		"SuratPenunjukan":      orNA(report.SuratPenunjukan),
		"PengesahanGambar":     orNA(report.PengesahanGambar),
		"NoSuket":              orNA(report.NoSuket),

		"NamaAhli":        orNA(report.ExpertName),
		"NomorSertifikat": orNA(report.ExpertCertNo),
	}

	for key, value := range report.FormData {
		data[key] = placeholderValue(value)
	}

	data["TanggalPemeriksaanKembali"] = FormatLongDate(ReinspectionDate(inspection), r.loc)
	data["TanggalLaporan"] = FormatLongDate(today, r.loc)
	data[ImagePlaceholder] = manualImageNotice

	return data
}

// FillTemplate replaces every {Key} placeholder of the DOCX template with
// its value from data.
func FillTemplate(template []byte, data map[string]string) ([]byte, error) {
	doc, err := docx.OpenBytes(template)
	if err != nil {
		return nil, fmt.Errorf("failed to open template: %w", err)
	}
	defer doc.Close()

	replacements := make(docx.PlaceholderMap, len(data))
	for k, v := range data {
		replacements[k] = v
	}
	if err := doc.ReplaceAll(replacements); err != nil {
		return nil, fmt.Errorf("failed to replace placeholders: %w", err)
	}

	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write document: %w", err)
	}
	return buf.Bytes(), nil
}

// DocumentFilename is the download name of a report, e.g.
// Laporan-055-IPP-X-2024-SRV01.docx.
func DocumentFilename(report *model.Report) string {
	number := report.ReportNumberManual
	if number == "" {
		number = "N_A"
	}
	return fmt.Sprintf("Laporan-%s-%s.docx", strings.ReplaceAll(number, "/", "-"), report.ServiceID)
}

func orNA(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}

// placeholderValue renders an inspector-supplied value. Empty values
// (nil, "", false, zero, NaN) become N/A.
func placeholderValue(v any) string {
	if isEmptyValue(v) {
		return NotAvailable
	}

	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		return x.String()
	case fmt.Stringer:
		return x.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32:
		return fmt.Sprint(v)
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.Len() == 0
	case reflect.Bool:
		return !rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f == 0 || math.IsNaN(f)
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
