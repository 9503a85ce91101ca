// Package inspection implements the report workflows behind the HTTP and MCP
// surfaces: upload, question answering through the conversation cache,
// contractor referrals and warranty analysis.
package inspection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/assure/inspectd/internal/analysis"
	"github.com/assure/inspectd/internal/blob"
	"github.com/assure/inspectd/internal/conversation"
	"github.com/assure/inspectd/internal/metrics"
	"github.com/assure/inspectd/internal/routing"
	"github.com/assure/inspectd/internal/storage"
)

// ErrValidation marks errors caused by bad caller input.
var ErrValidation = errors.New("invalid request")

// ValidationError carries a message that is safe to show the caller.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string        { return e.Msg }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError names the missing record. It matches storage.ErrNotFound.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string { return e.What + " not found" }
func (e *NotFoundError) Unwrap() error { return storage.ErrNotFound }

// notFound converts storage.ErrNotFound into a NotFoundError for what and
// passes other errors through.
func notFound(err error, what string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return &NotFoundError{What: what}
	}
	return err
}

// Store is the persistence the service needs; *storage.Store implements it.
type Store interface {
	SaveReport(r storage.Report) error
	GetReport(id string) (storage.Report, error)
	GetSharedReport(token string) (storage.Report, error)
	GetExtractedText(id string) (string, error)
	UpdateReportCustomer(id, name, email, phone string) error
	CountReports() (int, error)

	RecordQuestion(q storage.Question) error
	GetQuestion(id string) (storage.Question, error)
	ListQuestions(reportID string) ([]storage.Question, error)
	CountQuestions() (int, error)
	QuestionCountsByIssueType() (map[string]int, error)

	SaveContractor(c storage.Contractor) error
	UpdateContractor(c storage.Contractor) error
	DeleteContractor(id string) error
	GetContractor(id string) (storage.Contractor, error)
	ListContractors() ([]storage.Contractor, error)
	ListActiveContractorsBySpecialty(specialty string, limit int) ([]storage.Contractor, error)
	CountContractors() (int, error)

	SaveLead(l storage.Lead) error
	GetLead(id string) (storage.Lead, error)
	ListLeads() ([]storage.LeadView, error)
	UpdateLead(id string, status, notes *string) error
	CountLeads() (int, error)
	LeadCountsByStatus() (map[string]int, error)
	ContractorLeadStats() ([]storage.ContractorLeadStats, error)

	SaveWarranty(w storage.Warranty) error
	LinkWarranty(rw storage.ReportWarranty) error
	GetReportWarranty(reportID, warrantyID string) (storage.Warranty, error)
	ListReportWarranties(reportID string) ([]storage.Warranty, error)
	SaveWarrantyQuery(q storage.WarrantyQuery) error
	ListWarrantyQueries(reportID string) ([]storage.WarrantyQuery, error)
}

// Extractor turns an uploaded document into text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// LeadQueue schedules contractor notification for a new lead.
type LeadQueue interface {
	EnqueueLeadEmail(ctx context.Context, leadID string) error
}

// Deps wires a Service. Leads and Metrics are optional.
type Deps struct {
	Store      Store
	Extractor  Extractor
	Blobs      blob.Store
	Completer  conversation.Completer
	Analyzer   *analysis.Analyzer
	Reports    *conversation.Cache
	Warranties *conversation.Cache
	Leads      LeadQueue
	Metrics    *metrics.Metrics
}

type Service struct {
	store      Store
	extractor  Extractor
	blobs      blob.Store
	completer  conversation.Completer
	analyzer   *analysis.Analyzer
	reports    *conversation.Cache
	warranties *conversation.Cache
	matcher    *routing.Matcher
	leads      LeadQueue
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a Service. Missing caches are created with the default capacity
// and a missing Analyzer is built on Completer.
func New(d Deps) *Service {
	s := &Service{
		store:      d.Store,
		extractor:  d.Extractor,
		blobs:      d.Blobs,
		completer:  d.Completer,
		analyzer:   d.Analyzer,
		reports:    d.Reports,
		warranties: d.Warranties,
		matcher:    routing.NewMatcher(d.Store),
		leads:      d.Leads,
		metrics:    d.Metrics,
		logger:     slog.Default(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	if s.analyzer == nil {
		s.analyzer = analysis.New(d.Completer, 0)
	}
	if s.reports == nil {
		s.reports = conversation.NewCache(conversation.DefaultCapacity)
	}
	if s.warranties == nil {
		s.warranties = conversation.NewCache(conversation.DefaultCapacity)
	}
	return s
}

// CacheStatus reports the resident report conversations, oldest first.
func (s *Service) CacheStatus() conversation.Status {
	return s.reports.Snapshot()
}

// ReportCache exposes the report conversation cache.
func (s *Service) ReportCache() *conversation.Cache {
	return s.reports
}

func (s *Service) observeUpload(kind string, err error) {
	if s.metrics != nil {
		s.metrics.ObserveUpload(kind, err)
	}
}

func op(ctx context.Context, name string) context.Context {
	return metrics.WithOperation(ctx, name)
}

// checkPDF validates an uploaded file's presence and extension.
func checkPDF(filename string, data []byte) error {
	if filename == "" {
		return invalid("No file selected")
	}
	if len(data) == 0 {
		return invalid("No file provided")
	}
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return invalid("Only PDF files allowed")
	}
	return nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
