package models

import (
	"time"

	"gorm.io/gorm"
)

// Document type constants
const (
	DocumentTypeBOL              = "bill_of_lading"
	DocumentTypePOD              = "proof_of_delivery"
	DocumentTypeRateConfirmation = "rate_confirmation"
	DocumentTypeInvoice          = "invoice"
	DocumentTypeWeightTicket     = "weight_ticket"
	DocumentTypeLumperReceipt    = "lumper_receipt"
	DocumentTypeOther            = "other"
)

// Verification status constants
const (
	VerificationPending  = "pending"
	VerificationVerified = "verified"
	VerificationRejected = "rejected"
)

var documentTypes = map[string]bool{
	DocumentTypeBOL:              true,
	DocumentTypePOD:              true,
	DocumentTypeRateConfirmation: true,
	DocumentTypeInvoice:          true,
	DocumentTypeWeightTicket:     true,
	DocumentTypeLumperReceipt:    true,
	DocumentTypeOther:            true,
}

// ValidDocumentType reports whether the given string is a known document type.
func ValidDocumentType(t string) bool {
	return documentTypes[t]
}

// Document is an uploaded file reference tied to a load, with a
// verification sub-state of its own.
type Document struct {
	gorm.Model
	LoadID             uint       `json:"loadId" gorm:"not null;index"`
	UploadedBy         uint       `json:"uploadedBy" gorm:"not null"`
	Type               string     `json:"type" gorm:"not null"`
	Name               string     `json:"name" gorm:"not null"`
	FileURL            string     `json:"fileUrl" gorm:"not null"`
	FileSize           int64      `json:"fileSize"`
	MimeType           string     `json:"mimeType"`
	Notes              string     `json:"notes,omitempty"`
	VerificationStatus string     `json:"verificationStatus" gorm:"not null;default:'pending'"`
	VerifiedBy         *uint      `json:"verifiedBy,omitempty"`
	VerifiedAt         *time.Time `json:"verifiedAt,omitempty"`
	IsActive           bool       `json:"isActive" gorm:"not null;default:true"`

	Load     *Load `json:"load,omitempty" gorm:"foreignKey:LoadID"`
	Uploader *User `json:"uploader,omitempty" gorm:"foreignKey:UploadedBy"`
	Verifier *User `json:"verifier,omitempty" gorm:"foreignKey:VerifiedBy"`
}

// TableName specifies the table name
func (Document) TableName() string {
	return "documents"
}
