package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/assure/inspectd/internal/storage"
)

// JobType is the queue type of lead email jobs.
const JobType = "lead_email"

// JobStore abstracts the job queue and the records a lead email is built from.
type JobStore interface {
	EnqueueJob(job storage.Job) error
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
	GetLead(id string) (storage.Lead, error)
	GetReport(id string) (storage.Report, error)
	GetQuestion(id string) (storage.Question, error)
	GetContractor(id string) (storage.Contractor, error)
}

type leadPayload struct {
	LeadID string `json:"lead_id"`
}

// Queue enqueues lead email jobs.
type Queue struct {
	store JobStore
}

func NewQueue(store JobStore) *Queue {
	return &Queue{store: store}
}

// EnqueueLeadEmail schedules the notification for leadID.
func (q *Queue) EnqueueLeadEmail(ctx context.Context, leadID string) error {
	payload, err := json.Marshal(leadPayload{LeadID: leadID})
	if err != nil {
		return err
	}
	return q.store.EnqueueJob(storage.Job{
		ID:          uuid.NewString(),
		Type:        JobType,
		PayloadJSON: string(payload),
	})
}

// Worker processes lead_email jobs from the SQLite job queue.
type Worker struct {
	store  JobStore
	mailer Mailer
	poll   time.Duration
	logger *slog.Logger
}

// NewWorker creates a Worker with the given dependencies.
// If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(store JobStore, mailer Mailer, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:  store,
		mailer: mailer,
		poll:   pollInterval,
		logger: slog.Default(),
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single lead_email job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob([]string{JobType})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	if err := w.processJob(ctx, job); err != nil {
		w.logger.Warn("lead email failed", "job_id", job.ID, "error", err)
		if failErr := w.store.FailJob(job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteJob(job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

func (w *Worker) processJob(ctx context.Context, job *storage.Job) error {
	var payload leadPayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}

	lead, err := w.store.GetLead(payload.LeadID)
	if err != nil {
		return fmt.Errorf("loading lead %s: %w", payload.LeadID, err)
	}
	report, err := w.store.GetReport(lead.ReportID)
	if err != nil {
		return fmt.Errorf("loading report %s: %w", lead.ReportID, err)
	}
	question, err := w.store.GetQuestion(lead.QuestionID)
	if err != nil {
		return fmt.Errorf("loading question %s: %w", lead.QuestionID, err)
	}
	contractor, err := w.store.GetContractor(lead.ContractorID)
	if err != nil {
		return fmt.Errorf("loading contractor %s: %w", lead.ContractorID, err)
	}

	msg, err := LeadEmail(LeadDetails{
		ContractorEmail: contractor.Email,
		ContractorName:  contractor.Name,
		CustomerName:    lead.CustomerName,
		CustomerEmail:   lead.CustomerEmail,
		CustomerPhone:   lead.CustomerPhone,
		Address:         report.Address,
		IssueType:       question.IssueType,
		Punchlist:       lead.Notes,
	})
	if err != nil {
		return fmt.Errorf("rendering email: %w", err)
	}

	if err := w.mailer.Send(ctx, msg); err != nil {
		return err
	}
	w.logger.Info("lead email sent", "lead_id", lead.ID, "contractor_id", contractor.ID)
	return nil
}
