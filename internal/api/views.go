package api

import (
	"time"

	"github.com/assure/inspectd/internal/storage"
)

// JSON shapes for storage records.

type contractorView struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Specialty   string  `json:"specialty"`
	Phone       string  `json:"phone"`
	Email       string  `json:"email"`
	ZipCodes    string  `json:"zip_codes"`
	City        string  `json:"city"`
	State       string  `json:"state"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
	Description string  `json:"description"`
	Website     string  `json:"website"`
	IsLicensed  bool    `json:"is_licensed"`
	IsBonded    bool    `json:"is_bonded"`
	IsInsured   bool    `json:"is_insured"`
	CostPerLead float64 `json:"cost_per_lead"`
	IsActive    bool    `json:"is_active"`
	CreatedAt   string  `json:"created_at"`
}

func newContractorView(c storage.Contractor) contractorView {
	return contractorView{
		ID:          c.ID,
		Name:        c.Name,
		Specialty:   c.Specialty,
		Phone:       c.Phone,
		Email:       c.Email,
		ZipCodes:    c.ZipCodes,
		City:        c.City,
		State:       c.State,
		Rating:      c.Rating,
		ReviewCount: c.ReviewCount,
		Description: c.Description,
		Website:     c.Website,
		IsLicensed:  c.IsLicensed,
		IsBonded:    c.IsBonded,
		IsInsured:   c.IsInsured,
		CostPerLead: c.CostPerLead,
		IsActive:    c.IsActive,
		CreatedAt:   timestamp(c.CreatedAt),
	}
}

func contractorViews(cs []storage.Contractor) []contractorView {
	out := make([]contractorView, len(cs))
	for i, c := range cs {
		out[i] = newContractorView(c)
	}
	return out
}

// referralView is the contractor card attached to an answer.
type referralView struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Specialty   string  `json:"specialty"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
	IsLicensed  bool    `json:"is_licensed"`
	IsBonded    bool    `json:"is_bonded"`
	IsInsured   bool    `json:"is_insured"`
	Phone       string  `json:"phone"`
	Email       string  `json:"email"`
	City        string  `json:"city"`
	State       string  `json:"state"`
}

func referralViews(cs []storage.Contractor) []referralView {
	out := make([]referralView, len(cs))
	for i, c := range cs {
		out[i] = referralView{
			ID:          c.ID,
			Name:        c.Name,
			Specialty:   c.Specialty,
			Rating:      c.Rating,
			ReviewCount: c.ReviewCount,
			IsLicensed:  c.IsLicensed,
			IsBonded:    c.IsBonded,
			IsInsured:   c.IsInsured,
			Phone:       c.Phone,
			Email:       c.Email,
			City:        c.City,
			State:       c.State,
		}
	}
	return out
}

type questionView struct {
	ID        string `json:"id"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	IssueType string `json:"issue_type"`
	Timestamp string `json:"timestamp"`
}

type leadView struct {
	ID             string `json:"id"`
	ReportID       string `json:"report_id"`
	QuestionID     string `json:"question_id"`
	ContractorID   string `json:"contractor_id"`
	ContractorName string `json:"contractor_name"`
	IssueType      string `json:"issue_type"`
	CustomerName   string `json:"customer_name"`
	CustomerEmail  string `json:"customer_email"`
	CustomerPhone  string `json:"customer_phone"`
	Status         string `json:"status"`
	Notes          string `json:"notes"`
	CreatedAt      string `json:"created_at"`
}

type warrantyView struct {
	ID               string `json:"id"`
	BuilderName      string `json:"builder_name"`
	WarrantyType     string `json:"warranty_type"`
	Jurisdiction     string `json:"jurisdiction"`
	OriginalFilename string `json:"original_filename"`
	CoverageSummary  string `json:"coverage_summary"`
	IsActive         bool   `json:"is_active"`
	CreatedAt        string `json:"created_at"`
}

func newWarrantyView(w storage.Warranty) warrantyView {
	return warrantyView{
		ID:               w.ID,
		BuilderName:      w.BuilderName,
		WarrantyType:     w.WarrantyType,
		Jurisdiction:     w.Jurisdiction,
		OriginalFilename: w.OriginalFilename,
		CoverageSummary:  w.CoverageSummary,
		IsActive:         w.IsActive,
		CreatedAt:        timestamp(w.CreatedAt),
	}
}

type warrantyQueryView struct {
	ID                string `json:"id"`
	WarrantyID        string `json:"warranty_id"`
	Question          string `json:"question"`
	InspectionFinding string `json:"inspection_finding"`
	Claimability      string `json:"claimability"`
	Reasoning         string `json:"reasoning"`
	WarrantySection   string `json:"warranty_section"`
	CreatedAt         string `json:"created_at"`
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
