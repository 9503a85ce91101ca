// Package routing decides which contractor specialty a customer question is
// about and picks contractors to refer.
package routing

import (
	"regexp"
	"strings"

	"github.com/assure/inspectd/internal/storage"
)

const (
	IssueElectrical = "electrical"
	IssueRoofing    = "roofing"
	IssuePlumbing   = "plumbing"
	IssueHVAC       = "hvac"
	IssueStructural = "structural"
	IssueSiding     = "siding"
	IssueMold       = "mold"
	IssueRadon      = "radon"
	IssuePest       = "pest"
	IssueGeneral    = "general"
)

// MaxReferrals is the number of contractors offered per answer.
const MaxReferrals = 3

// issueKeywords is checked in order; the first type with any keyword
// appearing as a substring of the question wins.
var issueKeywords = []struct {
	issue    string
	keywords []string
}{
	{IssueElectrical, []string{"electrical", "outlet", "wire", "breaker", "amperage", "power", "panel", "gfci", "wiring"}},
	{IssueRoofing, []string{"roof", "shingles", "leak", "gutter", "chimney", "flashing"}},
	{IssuePlumbing, []string{"plumb", "drain", "water line", "trap", "pipe", "faucet", "leak", "sewer"}},
	{IssueHVAC, []string{"hvac", "heating", "cooling", "furnace", "ac", "boiler", "thermostat", "duct"}},
	{IssueStructural, []string{"foundation", "crack", "structural", "settle", "beam", "wall", "joist"}},
	{IssueSiding, []string{"siding", "exterior", "cladding", "fascia", "trim", "deck"}},
	{IssueMold, []string{"mold", "mildew", "moisture", "fungal"}},
	{IssueRadon, []string{"radon", "gas", "testing"}},
	{IssuePest, []string{"pest", "termite", "insect", "rodent"}},
	{IssueGeneral, []string{"contractor", "repair", "fix"}},
}

// IssueTypes lists every specialty in classification order.
func IssueTypes() []string {
	out := make([]string, len(issueKeywords))
	for i, ik := range issueKeywords {
		out[i] = ik.issue
	}
	return out
}

// ClassifyIssue maps a question to a contractor specialty. Matching is a
// case-insensitive substring test, so short keywords like "ac" also match
// inside longer words.
func ClassifyIssue(question string) string {
	q := strings.ToLower(question)
	for _, ik := range issueKeywords {
		for _, kw := range ik.keywords {
			if strings.Contains(q, kw) {
				return ik.issue
			}
		}
	}
	return IssueGeneral
}

var zipRE = regexp.MustCompile(`\b\d{5}\b`)

// ZipFromAddress returns the first five-digit group in address, or "".
func ZipFromAddress(address string) string {
	return zipRE.FindString(address)
}

// ContractorSource lists candidate contractors.
type ContractorSource interface {
	ListActiveContractorsBySpecialty(specialty string, limit int) ([]storage.Contractor, error)
}

type Matcher struct {
	src ContractorSource
}

func NewMatcher(src ContractorSource) *Matcher {
	return &Matcher{src: src}
}

// Match returns up to MaxReferrals of the best-rated active contractors for
// issueType. If zip is set and some of them serve it, only those are
// returned; otherwise the unfiltered list is.
func (m *Matcher) Match(issueType, zip string) ([]storage.Contractor, error) {
	top, err := m.src.ListActiveContractorsBySpecialty(issueType, MaxReferrals)
	if err != nil {
		return nil, err
	}
	if zip == "" || len(top) == 0 {
		return top, nil
	}

	var local []storage.Contractor
	for _, c := range top {
		if c.ZipCodes != "" && strings.Contains(c.ZipCodes, zip) {
			local = append(local, c)
		}
	}
	if len(local) == 0 {
		return top, nil
	}
	return local, nil
}
