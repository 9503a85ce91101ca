package inspection

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/assure/inspectd/internal/storage"
)

// ContractorInput creates or patches a contractor. Nil fields are left
// unchanged on update and take their defaults on create.
type ContractorInput struct {
	Name        *string  `json:"name"`
	Specialty   *string  `json:"specialty"`
	Phone       *string  `json:"phone"`
	Email       *string  `json:"email"`
	ZipCodes    *string  `json:"zip_codes"`
	City        *string  `json:"city"`
	State       *string  `json:"state"`
	Rating      *float64 `json:"rating"`
	ReviewCount *int     `json:"review_count"`
	Description *string  `json:"description"`
	Website     *string  `json:"website"`
	IsLicensed  *bool    `json:"is_licensed"`
	IsBonded    *bool    `json:"is_bonded"`
	IsInsured   *bool    `json:"is_insured"`
	CostPerLead *float64 `json:"cost_per_lead"`
	IsActive    *bool    `json:"is_active"`
}

func (in ContractorInput) applyTo(c *storage.Contractor) {
	setString(&c.Name, in.Name)
	setString(&c.Specialty, in.Specialty)
	setString(&c.Phone, in.Phone)
	setString(&c.Email, in.Email)
	setString(&c.ZipCodes, in.ZipCodes)
	setString(&c.City, in.City)
	setString(&c.State, in.State)
	setString(&c.Description, in.Description)
	setString(&c.Website, in.Website)
	if in.Rating != nil {
		c.Rating = *in.Rating
	}
	if in.ReviewCount != nil {
		c.ReviewCount = *in.ReviewCount
	}
	if in.CostPerLead != nil {
		c.CostPerLead = *in.CostPerLead
	}
	setBool(&c.IsLicensed, in.IsLicensed)
	setBool(&c.IsBonded, in.IsBonded)
	setBool(&c.IsInsured, in.IsInsured)
	setBool(&c.IsActive, in.IsActive)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func (s *Service) ListContractors() ([]storage.Contractor, error) {
	return s.store.ListContractors()
}

// CreateContractor adds a contractor. Name, specialty, phone and email are required.
func (s *Service) CreateContractor(in ContractorInput) (storage.Contractor, error) {
	var missing []string
	for _, f := range []struct {
		name string
		v    *string
	}{{"name", in.Name}, {"specialty", in.Specialty}, {"phone", in.Phone}, {"email", in.Email}} {
		if f.v == nil || strings.TrimSpace(*f.v) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return storage.Contractor{}, invalid("Missing required fields: %s", strings.Join(missing, ", "))
	}

	c := storage.Contractor{
		ID:          uuid.NewString(),
		IsLicensed:  true,
		IsBonded:    true,
		IsInsured:   true,
		IsActive:    true,
		CostPerLead: 25,
		CreatedAt:   s.now(),
	}
	in.applyTo(&c)
	c.Specialty = strings.ToLower(c.Specialty)
	if err := s.store.SaveContractor(c); err != nil {
		return storage.Contractor{}, err
	}
	return c, nil
}

// UpdateContractor applies the non-nil fields of in to an existing contractor.
func (s *Service) UpdateContractor(id string, in ContractorInput) (storage.Contractor, error) {
	c, err := s.store.GetContractor(id)
	if err != nil {
		return storage.Contractor{}, notFound(err, "Contractor")
	}
	in.applyTo(&c)
	c.Specialty = strings.ToLower(c.Specialty)
	if err := s.store.UpdateContractor(c); err != nil {
		return storage.Contractor{}, notFound(err, "Contractor")
	}
	return c, nil
}

func (s *Service) DeleteContractor(id string) error {
	return notFound(s.store.DeleteContractor(id), "Contractor")
}

func (s *Service) ListLeads() ([]storage.LeadView, error) {
	return s.store.ListLeads()
}

// UpdateLead sets a lead's status and/or notes.
func (s *Service) UpdateLead(id string, status, notes *string) error {
	if status != nil {
		switch *status {
		case storage.LeadPending, storage.LeadContacted, storage.LeadConverted, storage.LeadLost:
		default:
			return invalid("Invalid status %q", *status)
		}
	}
	return notFound(s.store.UpdateLead(id, status, notes), "Lead")
}

// ReferralInput is a customer's request for a quote from one contractor.
type ReferralInput struct {
	ReportID      string `json:"report_id"`
	QuestionID    string `json:"question_id"`
	ContractorID  string `json:"contractor_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

// RequestReferral creates a pending lead whose notes hold a punchlist for the
// contractor's specialty, and schedules the contractor email. A failure to
// schedule the email does not fail the request.
func (s *Service) RequestReferral(ctx context.Context, in ReferralInput) (storage.Lead, error) {
	var missing []string
	for _, f := range []struct{ name, v string }{
		{"report_id", in.ReportID},
		{"question_id", in.QuestionID},
		{"contractor_id", in.ContractorID},
		{"customer_name", in.CustomerName},
		{"customer_email", in.CustomerEmail},
		{"customer_phone", in.CustomerPhone},
	} {
		if strings.TrimSpace(f.v) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return storage.Lead{}, invalid("Missing required fields: %s", strings.Join(missing, ", "))
	}

	const what = "Report, question, or contractor"
	if _, err := s.store.GetReport(in.ReportID); err != nil {
		return storage.Lead{}, notFound(err, what)
	}
	question, err := s.store.GetQuestion(in.QuestionID)
	if err != nil {
		return storage.Lead{}, notFound(err, what)
	}
	if question.ReportID != in.ReportID {
		return storage.Lead{}, &NotFoundError{What: what}
	}
	if _, err := s.store.GetContractor(in.ContractorID); err != nil {
		return storage.Lead{}, notFound(err, what)
	}

	if err := s.store.UpdateReportCustomer(in.ReportID, in.CustomerName, in.CustomerEmail, in.CustomerPhone); err != nil {
		return storage.Lead{}, err
	}

	punchlist, err := s.analyzer.Punchlist(op(ctx, "punchlist"), question.IssueType, question.Question, question.Answer)
	if err != nil {
		return storage.Lead{}, err
	}

	lead := storage.Lead{
		ID:            uuid.NewString(),
		ReportID:      in.ReportID,
		QuestionID:    in.QuestionID,
		ContractorID:  in.ContractorID,
		CustomerName:  in.CustomerName,
		CustomerEmail: in.CustomerEmail,
		CustomerPhone: in.CustomerPhone,
		Status:        storage.LeadPending,
		Notes:         punchlist,
		CreatedAt:     s.now(),
	}
	if err := s.store.SaveLead(lead); err != nil {
		return storage.Lead{}, err
	}

	if s.leads == nil {
		s.logger.Info("lead email disabled", "lead_id", lead.ID)
	} else if err := s.leads.EnqueueLeadEmail(ctx, lead.ID); err != nil {
		s.logger.Warn("failed to schedule lead email", "lead_id", lead.ID, "error", err)
	}
	return lead, nil
}
