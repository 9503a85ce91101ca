package inspection

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/assure/inspectd/internal/analysis"
	"github.com/assure/inspectd/internal/conversation"
	"github.com/assure/inspectd/internal/routing"
	"github.com/assure/inspectd/internal/storage"
)

// WarrantyInput is an uploaded builder warranty document.
type WarrantyInput struct {
	Filename     string
	Data         []byte
	BuilderName  string
	WarrantyType string
	Jurisdiction string
}

// UploadWarranty stores and summarizes a warranty and links it to a report.
// The coverage summary is bounded by the analyzer's warranty timeout.
func (s *Service) UploadWarranty(ctx context.Context, reportID string, in WarrantyInput) (w storage.Warranty, err error) {
	if _, err := s.Report(reportID); err != nil {
		return storage.Warranty{}, err
	}
	if err := checkPDF(in.Filename, in.Data); err != nil {
		return storage.Warranty{}, err
	}
	defer func() { s.observeUpload("warranty", err) }()

	doc, err := s.storeAndExtract(ctx, in.Filename, in.Data)
	if err != nil {
		return storage.Warranty{}, err
	}

	builder := orDefault(in.BuilderName, "Unknown Builder")
	wtype := orDefault(in.WarrantyType, "Standard")

	coverage, err := s.analyzer.WarrantyCoverage(op(ctx, "warranty_coverage"), doc.text, builder, wtype)
	if err != nil {
		return storage.Warranty{}, err
	}

	now := s.now()
	w = storage.Warranty{
		ID:               uuid.NewString(),
		BuilderName:      builder,
		WarrantyType:     wtype,
		Jurisdiction:     orDefault(in.Jurisdiction, "USA"),
		FilePath:         doc.location,
		OriginalFilename: in.Filename,
		FileSize:         int64(len(in.Data)),
		ExtractedText:    doc.text,
		CoverageSummary:  coverage,
		IsActive:         true,
		CreatedAt:        now,
	}
	if err := s.store.SaveWarranty(w); err != nil {
		return storage.Warranty{}, err
	}
	if err := s.store.LinkWarranty(storage.ReportWarranty{
		ID:         uuid.NewString(),
		ReportID:   reportID,
		WarrantyID: w.ID,
		StartDate:  now,
		CreatedAt:  now,
	}); err != nil {
		return storage.Warranty{}, err
	}

	if err := s.regroundReport(reportID); err != nil {
		return storage.Warranty{}, err
	}

	s.logger.Info("warranty uploaded", "report_id", reportID, "warranty_id", w.ID, "builder", builder)
	return w, nil
}

// regroundReport rebuilds a resident report conversation that has not been
// asked anything yet, so its first turn carries the linked coverage.
// A conversation already under way keeps its original grounding.
func (s *Service) regroundReport(reportID string) error {
	engine, ok := s.reports.Get(reportID)
	if !ok || engine.Turns() > 0 {
		return nil
	}
	fresh, err := s.reportEngineFactory(reportID)()
	if err != nil {
		return err
	}
	s.reports.Put(reportID, fresh)
	return nil
}

// Warranty returns a warranty linked to the report.
func (s *Service) Warranty(reportID, warrantyID string) (storage.Warranty, error) {
	w, err := s.store.GetReportWarranty(reportID, warrantyID)
	if err != nil {
		return storage.Warranty{}, notFound(err, "Warranty")
	}
	return w, nil
}

// ReportWarranties lists the active warranties linked to a report.
func (s *Service) ReportWarranties(reportID string) ([]storage.Warranty, error) {
	if _, err := s.Report(reportID); err != nil {
		return nil, err
	}
	return s.store.ListReportWarranties(reportID)
}

// ClaimCheck is a persisted claim analysis.
type ClaimCheck struct {
	QueryID  string
	Analysis analysis.ClaimAnalysis
}

// CheckClaim decides whether an inspection finding is claimable under a
// linked warranty. An empty issueType is classified from the finding.
func (s *Service) CheckClaim(ctx context.Context, reportID, warrantyID, finding, issueType string) (ClaimCheck, error) {
	finding = strings.TrimSpace(finding)
	if finding == "" {
		return ClaimCheck{}, invalid("Missing inspection_finding")
	}
	if issueType = strings.TrimSpace(issueType); issueType == "" {
		issueType = routing.ClassifyIssue(finding)
	}

	w, err := s.Warranty(reportID, warrantyID)
	if err != nil {
		return ClaimCheck{}, err
	}

	res, err := s.analyzer.CheckClaim(op(ctx, "claim_check"), analysis.ClaimInput{
		BuilderName:     w.BuilderName,
		WarrantyType:    w.WarrantyType,
		CoverageSummary: w.CoverageSummary,
		WarrantyText:    w.ExtractedText,
		Finding:         finding,
		IssueType:       issueType,
	})
	if err != nil {
		return ClaimCheck{}, err
	}

	raw, err := json.Marshal(res)
	if err != nil {
		return ClaimCheck{}, err
	}
	q := storage.WarrantyQuery{
		ID:                uuid.NewString(),
		ReportID:          reportID,
		WarrantyID:        warrantyID,
		Question:          fmt.Sprintf("Is '%s' covered?", finding),
		InspectionFinding: finding,
		Claimability:      res.Claimability,
		ClaimReason:       res.Reasoning,
		WarrantySection:   res.WarrantySection,
		Analysis:          string(raw),
		CreatedAt:         s.now(),
	}
	if err := s.store.SaveWarrantyQuery(q); err != nil {
		return ClaimCheck{}, err
	}
	return ClaimCheck{QueryID: q.ID, Analysis: res}, nil
}

// WarrantyKey is the warranty conversation cache key.
func WarrantyKey(reportID, warrantyID string) string {
	return reportID + "/" + warrantyID
}

// AskWarranty answers a coverage question in a multi-turn conversation
// grounded in both the inspection report and the warranty document.
func (s *Service) AskWarranty(ctx context.Context, reportID, warrantyID, question string) (storage.WarrantyQuery, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return storage.WarrantyQuery{}, invalid("Question cannot be empty")
	}

	report, err := s.store.GetReport(reportID)
	if err != nil {
		return storage.WarrantyQuery{}, notFound(err, "Report or warranty")
	}
	w, err := s.store.GetReportWarranty(reportID, warrantyID)
	if err != nil {
		return storage.WarrantyQuery{}, notFound(err, "Report or warranty")
	}

	engine, err := s.warranties.GetOrCreate(WarrantyKey(reportID, warrantyID), func() (*conversation.Engine, error) {
		doc := analysis.WarrantyDocument(report.ExtractedText, w.ExtractedText)
		return conversation.NewEngine(conversation.NewState(doc), s.completer,
			analysis.WarrantyFraming(w.BuilderName, w.WarrantyType)), nil
	})
	if err != nil {
		return storage.WarrantyQuery{}, err
	}

	answer, err := engine.Answer(op(ctx, "warranty_ask"), question)
	if err != nil {
		return storage.WarrantyQuery{}, err
	}

	q := storage.WarrantyQuery{
		ID:                uuid.NewString(),
		ReportID:          reportID,
		WarrantyID:        warrantyID,
		Question:          question,
		InspectionFinding: "conversational",
		Claimability:      storage.ClaimabilityInquiry,
		ClaimReason:       answer,
		Analysis:          answer,
		CreatedAt:         s.now(),
	}
	if err := s.store.SaveWarrantyQuery(q); err != nil {
		return storage.WarrantyQuery{}, err
	}
	return q, nil
}

func (s *Service) WarrantyQueries(reportID string) ([]storage.WarrantyQuery, error) {
	return s.store.ListWarrantyQueries(reportID)
}
