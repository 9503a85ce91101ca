// Package analysis wraps the one-shot completion calls the product makes:
// report summaries, contractor punchlists, warranty coverage summaries and
// warranty claim checks. It also owns the framings for multi-turn Q&A.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/assure/inspectd/internal/completion"
)

// Completer is the text-completion service.
type Completer interface {
	Complete(ctx context.Context, req completion.Request) (string, error)
}

const (
	ClaimCovered            = "COVERED"
	ClaimNotCovered         = "NOT_COVERED"
	ClaimPartial            = "PARTIAL"
	ClaimRequiresSpecialist = "REQUIRES_SPECIALIST"
)

// ErrMalformedAnalysis is returned when a claim check response is not valid JSON.
var ErrMalformedAnalysis = errors.New("malformed claim analysis")

// ClaimAnalysis is the structured answer to "is this finding covered?".
type ClaimAnalysis struct {
	Claimability    string   `json:"claimability"`
	WarrantySection string   `json:"warranty_section"`
	CoveragePeriod  string   `json:"coverage_period"`
	Reasoning       string   `json:"reasoning"`
	NextSteps       []string `json:"next_steps"`
}

type Analyzer struct {
	completer       Completer
	warrantyTimeout time.Duration
}

// New creates an Analyzer. warrantyTimeout bounds warranty coverage parsing;
// zero means no bound.
func New(c Completer, warrantyTimeout time.Duration) *Analyzer {
	return &Analyzer{completer: c, warrantyTimeout: warrantyTimeout}
}

// Summarize produces a short, calm summary of an inspection report.
func (a *Analyzer) Summarize(ctx context.Context, reportText string) (string, error) {
	out, err := a.completer.Complete(ctx, completion.Request{
		System:    summarySystemPrompt,
		Messages:  userMessage("Please summarize this inspection report:\n\n" + reportText),
		MaxTokens: summaryMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("summarizing report: %w", err)
	}
	return out, nil
}

// Punchlist turns one Q&A answer into a work list for a contractor of issueType.
func (a *Analyzer) Punchlist(ctx context.Context, issueType, question, answer string) (string, error) {
	msg := fmt.Sprintf("Create a punchlist for a %s contractor from this inspection answer:\n\nQuestion: %s\n\nAnswer:\n%s",
		issueType, question, answer)
	out, err := a.completer.Complete(ctx, completion.Request{
		System:    fmt.Sprintf(punchlistSystemTemplate, issueType),
		Messages:  userMessage(msg),
		MaxTokens: punchlistMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("generating punchlist: %w", err)
	}
	return out, nil
}

// WarrantyCoverage summarizes a warranty document under the configured timeout.
func (a *Analyzer) WarrantyCoverage(ctx context.Context, warrantyText, builderName, warrantyType string) (string, error) {
	if a.warrantyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.warrantyTimeout)
		defer cancel()
	}

	out, err := a.completer.Complete(ctx, completion.Request{
		System:    fmt.Sprintf(warrantySummarySystemTemplate, builderName, warrantyType),
		Messages:  userMessage("Please summarize this warranty document:\n\n" + warrantyText),
		MaxTokens: warrantyMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("parsing warranty coverage: %w", err)
	}
	return out, nil
}

// ClaimInput is what CheckClaim needs to decide on one finding.
type ClaimInput struct {
	BuilderName     string
	WarrantyType    string
	CoverageSummary string
	WarrantyText    string
	Finding         string
	IssueType       string
}

// CheckClaim asks whether a finding is claimable under a warranty.
// An unrecognised claimability is reported as REQUIRES_SPECIALIST.
func (a *Analyzer) CheckClaim(ctx context.Context, in ClaimInput) (ClaimAnalysis, error) {
	var b strings.Builder
	if in.CoverageSummary != "" {
		fmt.Fprintf(&b, "<COVERAGE_SUMMARY>\n%s\n</COVERAGE_SUMMARY>\n\n", in.CoverageSummary)
	}
	fmt.Fprintf(&b, "<WARRANTY_DOCUMENT>\n%s\n</WARRANTY_DOCUMENT>\n\n", in.WarrantyText)
	fmt.Fprintf(&b, "Inspection finding (%s): %s", in.IssueType, in.Finding)

	raw, err := a.completer.Complete(ctx, completion.Request{
		System:    fmt.Sprintf(claimSystemTemplate, in.BuilderName, in.WarrantyType),
		Messages:  userMessage(b.String()),
		MaxTokens: claimMaxTokens,
	})
	if err != nil {
		return ClaimAnalysis{}, fmt.Errorf("checking claim: %w", err)
	}

	res, err := parseClaim(raw)
	if err != nil {
		slog.Warn("failed to unmarshal claim analysis", "error", err, "response", raw)
		return ClaimAnalysis{}, err
	}
	return res, nil
}

func parseClaim(raw string) (ClaimAnalysis, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return ClaimAnalysis{}, ErrMalformedAnalysis
	}

	var res ClaimAnalysis
	if err := json.Unmarshal([]byte(raw[start:end+1]), &res); err != nil {
		return ClaimAnalysis{}, fmt.Errorf("%w: %v", ErrMalformedAnalysis, err)
	}

	res.Claimability = strings.ToUpper(strings.TrimSpace(res.Claimability))
	switch res.Claimability {
	case ClaimCovered, ClaimNotCovered, ClaimPartial, ClaimRequiresSpecialist:
	default:
		res.Claimability = ClaimRequiresSpecialist
	}
	if res.NextSteps == nil {
		res.NextSteps = []string{}
	}
	return res, nil
}

func userMessage(content string) []completion.Message {
	return []completion.Message{{Role: completion.RoleUser, Content: content}}
}
