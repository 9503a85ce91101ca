package inspection

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/assure/inspectd/internal/analysis"
	"github.com/assure/inspectd/internal/blob"
	"github.com/assure/inspectd/internal/conversation"
	"github.com/assure/inspectd/internal/routing"
	"github.com/assure/inspectd/internal/storage"
)

// UploadInput is a new inspection report and its form fields.
type UploadInput struct {
	Filename      string
	Data          []byte
	Address       string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	InspectorName string
	ReportType    string
}

// storedDoc is an uploaded document after storage and extraction.
type storedDoc struct {
	location string
	text     string
}

// storeAndExtract writes the blob and extracts text concurrently.
func (s *Service) storeAndExtract(ctx context.Context, filename string, data []byte) (storedDoc, error) {
	var doc storedDoc
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		loc, err := s.blobs.Put(gctx, blob.ObjectName(filename), bytes.NewReader(data), int64(len(data)), "application/pdf")
		if err != nil {
			return fmt.Errorf("storing upload: %w", err)
		}
		doc.location = loc
		return nil
	})
	g.Go(func() error {
		text, err := s.extractor.Extract(gctx, data)
		if err != nil {
			return fmt.Errorf("extracting text: %w", err)
		}
		doc.text = text
		return nil
	})
	if err := g.Wait(); err != nil {
		return storedDoc{}, err
	}
	return doc, nil
}

// Upload stores, extracts, summarizes and persists a report, then seeds the
// conversation cache with a fresh conversation over its text.
func (s *Service) Upload(ctx context.Context, in UploadInput) (report storage.Report, err error) {
	if err := checkPDF(in.Filename, in.Data); err != nil {
		return storage.Report{}, err
	}
	defer func() { s.observeUpload("report", err) }()

	doc, err := s.storeAndExtract(ctx, in.Filename, in.Data)
	if err != nil {
		return storage.Report{}, err
	}

	summary, err := s.analyzer.Summarize(op(ctx, "summary"), doc.text)
	if err != nil {
		return storage.Report{}, err
	}

	now := s.now()
	report = storage.Report{
		ID:               uuid.NewString(),
		Address:          orDefault(in.Address, "Unknown Address"),
		CustomerName:     orDefault(in.CustomerName, "Unknown"),
		CustomerEmail:    strings.TrimSpace(in.CustomerEmail),
		CustomerPhone:    strings.TrimSpace(in.CustomerPhone),
		InspectorName:    orDefault(in.InspectorName, "Inspector"),
		InspectionDate:   now,
		ReportType:       orDefault(in.ReportType, "home_inspection"),
		OriginalFilename: in.Filename,
		FilePath:         doc.location,
		FileSize:         int64(len(in.Data)),
		ExtractedText:    doc.text,
		Summary:          summary,
		ShareToken:       uuid.NewString(),
		IsShared:         true,
		CreatedAt:        now,
	}
	if err := s.store.SaveReport(report); err != nil {
		return storage.Report{}, err
	}

	s.reports.Put(report.ID, s.reportEngine(doc.text))
	s.logger.Info("report uploaded", "report_id", report.ID, "bytes", len(in.Data))
	return report, nil
}

func (s *Service) reportEngine(documentText string) *conversation.Engine {
	return conversation.NewEngine(conversation.NewState(documentText), s.completer, analysis.ReportFraming())
}

// reportEngineFactory rebuilds a conversation from persisted text, with the
// coverage summaries of any linked warranties appended.
func (s *Service) reportEngineFactory(reportID string) func() (*conversation.Engine, error) {
	return func() (*conversation.Engine, error) {
		text, err := s.store.GetExtractedText(reportID)
		if err != nil {
			return nil, fmt.Errorf("loading report text: %w", err)
		}
		warranties, err := s.store.ListReportWarranties(reportID)
		if err != nil {
			return nil, fmt.Errorf("loading warranties: %w", err)
		}
		var coverage []string
		for _, w := range warranties {
			if w.CoverageSummary != "" {
				coverage = append(coverage, fmt.Sprintf("%s %s:\n%s", w.BuilderName, w.WarrantyType, w.CoverageSummary))
			}
		}
		return s.reportEngine(analysis.ReportWithCoverage(text, coverage)), nil
	}
}

// Answer is the result of one report question.
type Answer struct {
	QuestionID string
	Question   string
	Answer     string
	IssueType  string
	Referrals  []storage.Contractor
	Timestamp  time.Time
}

// Ask answers a question through the report's cached conversation, records
// it and attaches contractor referrals for the classified issue type.
func (s *Service) Ask(ctx context.Context, reportID, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, invalid("Question cannot be empty")
	}

	report, err := s.store.GetReport(reportID)
	if err != nil {
		return Answer{}, notFound(err, "Report")
	}

	engine, err := s.reports.GetOrCreate(reportID, s.reportEngineFactory(reportID))
	if err != nil {
		return Answer{}, err
	}

	answer, err := engine.Answer(op(ctx, "ask"), question)
	if err != nil {
		return Answer{}, err
	}

	q := storage.Question{
		ID:        uuid.NewString(),
		ReportID:  reportID,
		Question:  question,
		IssueType: routing.ClassifyIssue(question),
		Answer:    answer,
		CreatedAt: s.now(),
	}
	if err := s.store.RecordQuestion(q); err != nil {
		return Answer{}, err
	}

	referrals, err := s.matcher.Match(q.IssueType, routing.ZipFromAddress(report.Address))
	if err != nil {
		s.logger.Warn("contractor matching failed", "report_id", reportID, "error", err)
		referrals = nil
	}

	return Answer{
		QuestionID: q.ID,
		Question:   question,
		Answer:     answer,
		IssueType:  q.IssueType,
		Referrals:  referrals,
		Timestamp:  q.CreatedAt,
	}, nil
}

// Report returns a stored report.
func (s *Service) Report(reportID string) (storage.Report, error) {
	r, err := s.store.GetReport(reportID)
	if err != nil {
		return storage.Report{}, notFound(err, "Report")
	}
	return r, nil
}

// Conversations returns the persisted Q&A log of a report, oldest first.
func (s *Service) Conversations(reportID string) ([]storage.Question, error) {
	if _, err := s.Report(reportID); err != nil {
		return nil, err
	}
	return s.store.ListQuestions(reportID)
}

// Shared returns the report published under token.
func (s *Service) Shared(token string) (storage.Report, error) {
	r, err := s.store.GetSharedReport(token)
	if err != nil {
		return storage.Report{}, notFound(err, "Report")
	}
	return r, nil
}
