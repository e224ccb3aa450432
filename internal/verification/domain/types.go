package domain

import "strings"

// Status is the authenticity verdict of a scan
type Status string

const (
	StatusGenuine    Status = "genuine"
	StatusFake       Status = "fake"
	StatusSuspicious Status = "suspicious"
)

// ParseStatus maps the verdict spellings the AI gateway is known to emit
// onto a Status. Anything unrecognised is suspicious.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "genuine", "real", "1":
		return StatusGenuine
	case "fake", "counterfeit", "0":
		return StatusFake
	default:
		return StatusSuspicious
	}
}

// ScanMethod records how a scan was submitted
type ScanMethod string

const (
	ScanMethodUpload ScanMethod = "upload"
	ScanMethodQR     ScanMethod = "qr"
)

// ClampConfidence bounds a confidence score to [0,100]
func ClampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}

// ExtractedInfo holds best-effort fields pulled out of free text.
// A nil field means no pattern matched.
type ExtractedInfo struct {
	BatchNumber  *string `json:"batchNumber,omitempty"`
	ExpiryDate   *string `json:"expiryDate,omitempty"`
	Manufacturer *string `json:"manufacturer,omitempty"`
	MedicineName *string `json:"medicineName,omitempty"`
}

// Empty reports whether no field was extracted
func (e ExtractedInfo) Empty() bool {
	return e.BatchNumber == nil && e.ExpiryDate == nil && e.Manufacturer == nil && e.MedicineName == nil
}

// Merge returns e with every nil field filled from fallback
func (e ExtractedInfo) Merge(fallback ExtractedInfo) ExtractedInfo {
	if e.BatchNumber == nil {
		e.BatchNumber = fallback.BatchNumber
	}
	if e.ExpiryDate == nil {
		e.ExpiryDate = fallback.ExpiryDate
	}
	if e.Manufacturer == nil {
		e.Manufacturer = fallback.Manufacturer
	}
	if e.MedicineName == nil {
		e.MedicineName = fallback.MedicineName
	}
	return e
}

// FDAInfo is drug label metadata resolved from OpenFDA
type FDAInfo struct {
	GenericName       string `json:"genericName"`
	BrandName         string `json:"brandName"`
	Manufacturer      string `json:"manufacturer,omitempty"`
	Purpose           string `json:"purpose"`
	DosageForm        string `json:"dosageForm"`
	Composition       string `json:"composition"`
	SideEffects       string `json:"sideEffects"`
	Contraindications string `json:"contraindications"`
}

// BatchVerification is the verdict for a batch number
type BatchVerification struct {
	IsVerified   bool           `json:"isVerified"`
	Timestamp    *int64         `json:"timestamp,omitempty"`
	Manufacturer string         `json:"manufacturer,omitempty"`
	MedicineName string         `json:"medicineName,omitempty"`
	Source       string         `json:"source,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Message      string         `json:"message,omitempty"`
}

// Prediction is the reshaped AI gateway answer
type Prediction struct {
	Prediction   Status   `json:"prediction"`
	Confidence   int      `json:"confidence"`
	MedicineName string   `json:"medicine_name"`
	BatchNumber  string   `json:"batch_number"`
	ExpiryDate   string   `json:"expiry_date"`
	Manufacturer string   `json:"manufacturer"`
	Details      string   `json:"details"`
	FDAInfo      *FDAInfo `json:"fdaInfo,omitempty"`
}

// QR payload types
const (
	QRTypeURL      = "url"
	QRTypeImageURL = "image_url"
	QRTypeJSON     = "json"
	QRTypeText     = "text"
)

// QRExtracted is the extraction block of a classified QR payload
type QRExtracted struct {
	ExtractedInfo
	ShouldAnalyzeImage bool           `json:"shouldAnalyzeImage,omitempty"`
	FoundInWebsite     bool           `json:"foundInWebsite,omitempty"`
	WebsiteURL         string         `json:"websiteUrl,omitempty"`
	RawJSON            map[string]any `json:"rawJson,omitempty"`
}

// QRResult is the classification of a raw QR payload
type QRResult struct {
	Type      string      `json:"type"`
	Data      string      `json:"data"`
	Extracted QRExtracted `json:"extracted"`
	ImageURL  string      `json:"imageUrl,omitempty"`
}

// ScanResult is one completed scan as shown to the user and kept in history
type ScanResult struct {
	ID                     string             `json:"id"`
	Timestamp              string             `json:"timestamp"`
	Status                 Status             `json:"status"`
	Confidence             int                `json:"confidence"`
	MedicineName           string             `json:"medicineName"`
	BatchNumber            string             `json:"batchNumber"`
	ExpiryDate             string             `json:"expiryDate"`
	Manufacturer           string             `json:"manufacturer"`
	Details                string             `json:"details"`
	FDAInfo                *FDAInfo           `json:"fdaInfo,omitempty"`
	BlockchainVerification *BatchVerification `json:"blockchainVerification,omitempty"`
	IsExpired              *bool              `json:"isExpired,omitempty"`
	Purpose                string             `json:"purpose,omitempty"`
	SideEffects            string             `json:"sideEffects,omitempty"`
	VoiceMessage           string             `json:"voiceMessage,omitempty"`
	ScanMethod             ScanMethod         `json:"scanMethod"`
}

// Pharmacy is a nearby pharmacy stocking a medicine
type Pharmacy struct {
	Name      string  `json:"name"`
	Distance  string  `json:"distance"`
	Price     string  `json:"price"`
	Available bool    `json:"available"`
	Rating    float64 `json:"rating"`
	Address   string  `json:"address"`
	Phone     string  `json:"phone"`
}
