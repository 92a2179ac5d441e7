package model

import (
	"time"

	"gorm.io/datatypes"
)

// Report represents one inspection report and the data the inspector
// submitted for it.
type Report struct {
	ID                 string `json:"_id" bson:"-" gorm:"primaryKey;size:64"`
	ReportNumberManual string `json:"reportNumberManual" bson:"reportNumberManual"`
	ServiceID          string `json:"serviceId" bson:"serviceId" gorm:"not null"`
	ServiceName        string `json:"serviceName" bson:"serviceName" gorm:"not null"`

	// General data (section A of the document)
	NamaPemilik         string `json:"namaPemilik,omitempty" bson:"namaPemilik,omitempty"`
	Alamat              string `json:"alamat,omitempty" bson:"alamat,omitempty"`
	NamaKontraktor      string `json:"namaKontraktor,omitempty" bson:"namaKontraktor,omitempty"`
	LokasiPemeriksaan   string `json:"lokasiPemeriksaan,omitempty" bson:"lokasiPemeriksaan,omitempty"`
	InstalasiPemasangan string `json:"instalasiPemasangan,omitempty" bson:"instalasiPemasangan,omitempty"`
	Jenis               string `json:"jenis,omitempty" bson:"jenis,omitempty"`
	Instalasi           string `json:"instalasi,omitempty" bson:"instalasi,omitempty"`
	SuratPenunjukan     string `json:"suratPenunjukan,omitempty" bson:"suratPenunjukan,omitempty"`
	PengesahanGambar    string `json:"pengesahanGambar,omitempty" bson:"pengesahanGambar,omitempty"`
	NoSuket             string `json:"noSuket,omitempty" bson:"noSuket,omitempty"`

	ExpertName   string `json:"expertName" bson:"expertName"`
	ExpertCertNo string `json:"expertCertNo" bson:"expertCertNo"`

	Status         ReportStatus      `json:"status" bson:"status" gorm:"size:16;index"`
	InspectionDate time.Time         `json:"inspectionDate" bson:"inspectionDate" gorm:"not null"`
	SubmissionDate *time.Time        `json:"submissionDate,omitempty" bson:"submissionDate,omitempty"`
	FormData       datatypes.JSONMap `json:"formData" bson:"formData"`

	// Version is bumped on every submission and guards concurrent writes.
	Version   int64     `json:"__v" bson:"__v" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt" gorm:"index"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// ReportStatus is the lifecycle stage of a report.
type ReportStatus string

// ReportStatus constants
const (
	StatusDraft     ReportStatus = "DRAFT"
	StatusSubmitted ReportStatus = "SUBMITTED"
	// StatusCompleted is part of the stored enum but no operation moves a
	// report into it.
	StatusCompleted ReportStatus = "COMPLETED"
)

// Fixed expert identity printed on every report.
const (
	DefaultExpertName   = "Muhammad Rifki Fauzan, S.T."
	DefaultExpertCertNo = "5/22610/AS.01.04/XI/2024"
)

// Valid reports whether s is one of the declared statuses.
func (s ReportStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusCompleted:
		return true
	}
	return false
}
