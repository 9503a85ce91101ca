package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Report is an uploaded inspection report.
type Report struct {
	ID               string
	Address          string
	CustomerName     string
	CustomerEmail    string
	CustomerPhone    string
	InspectorName    string
	InspectionDate   time.Time
	ReportType       string
	OriginalFilename string
	FilePath         string
	FileSize         int64
	ExtractedText    string
	Summary          string
	ShareToken       string
	IsShared         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Question is one persisted question/answer exchange against a report.
type Question struct {
	ID        string
	ReportID  string
	Question  string
	IssueType string
	Answer    string
	CreatedAt time.Time
}

type Contractor struct {
	ID          string
	Name        string
	Specialty   string
	Phone       string
	Email       string
	ZipCodes    string // comma separated
	City        string
	State       string
	Rating      float64
	ReviewCount int
	Description string
	Website     string
	IsLicensed  bool
	IsBonded    bool
	IsInsured   bool
	CostPerLead float64
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const (
	LeadPending   = "pending"
	LeadContacted = "contacted"
	LeadConverted = "converted"
	LeadLost      = "lost"
)

// Lead is a customer's quote request routed to a contractor.
type Lead struct {
	ID            string
	ReportID      string
	QuestionID    string
	ContractorID  string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Status        string
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// LeadView is a lead joined with the contractor name and question issue type.
type LeadView struct {
	Lead
	ContractorName string
	IssueType      string
}

// ContractorLeadStats summarizes lead outcomes for one contractor.
type ContractorLeadStats struct {
	ContractorID   string
	Name           string
	Specialty      string
	Rating         float64
	TotalLeads     int
	ConvertedLeads int
}

// Warranty is an uploaded builder warranty document.
type Warranty struct {
	ID               string
	BuilderName      string
	WarrantyType     string
	Jurisdiction     string
	FilePath         string
	OriginalFilename string
	FileSize         int64
	ExtractedText    string
	CoverageSummary  string
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ReportWarranty links a warranty to the report it covers.
type ReportWarranty struct {
	ID                string
	ReportID          string
	WarrantyID        string
	CertificateNumber string
	StartDate         time.Time
	EndDate           time.Time
	CreatedAt         time.Time
}

const ClaimabilityInquiry = "INQUIRY"

// WarrantyQuery records a claim check or a conversational warranty question.
type WarrantyQuery struct {
	ID                string
	ReportID          string
	WarrantyID        string
	Question          string
	InspectionFinding string
	Claimability      string
	ClaimReason       string
	WarrantySection   string
	Analysis          string
	CreatedAt         time.Time
}

type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}
