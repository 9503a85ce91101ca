package routing

import (
	"errors"
	"testing"

	"github.com/assure/inspectd/internal/storage"
)

func TestClassifyIssue(t *testing.T) {
	tests := []struct {
		question string
		want     string
	}{
		{"Is the roof a problem?", IssueRoofing},
		{"What about the GFCI outlets in the kitchen?", IssueElectrical},
		{"Is there a leak under the sink?", IssueRoofing}, // roofing is checked before plumbing
		{"The drain is slow", IssuePlumbing},
		{"How old is the furnace?", IssueHVAC},
		{"Should I worry about the foundation?", IssueStructural},
		{"Does the siding need paint?", IssueSiding},
		{"Any mold in the basement?", IssueMold},
		{"Was radon measured?", IssueRadon},
		{"Are there termites?", IssuePest},
		{"Can I fix it myself?", IssueGeneral},
		{"Who should I call?", IssueGeneral},
		{"", IssueGeneral},
		{"POWER went out", IssueElectrical},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			if got := ClassifyIssue(tt.question); got != tt.want {
				t.Errorf("ClassifyIssue(%q) = %q, want %q", tt.question, got, tt.want)
			}
		})
	}
}

func TestIssueTypes(t *testing.T) {
	types := IssueTypes()
	if len(types) != 10 || types[0] != IssueElectrical || types[len(types)-1] != IssueGeneral {
		t.Errorf("IssueTypes = %v", types)
	}
}

func TestZipFromAddress(t *testing.T) {
	tests := map[string]string{
		"12 Elm St, Springfield, IL 62704":      "62704",
		"12 Elm St, Springfield, IL 62704-1234": "62704",
		"Unknown Address":                       "",
		"123456 Long Number Rd":                 "",
	}
	for addr, want := range tests {
		if got := ZipFromAddress(addr); got != want {
			t.Errorf("ZipFromAddress(%q) = %q, want %q", addr, got, want)
		}
	}
}

type fakeSource struct {
	contractors []storage.Contractor
	err         error
	gotLimit    int
}

func (f *fakeSource) ListActiveContractorsBySpecialty(specialty string, limit int) ([]storage.Contractor, error) {
	f.gotLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	var out []storage.Contractor
	for _, c := range f.contractors {
		if c.Specialty == specialty && len(out) < limit {
			out = append(out, c)
		}
	}
	return out, nil
}

func ids(cs []storage.Contractor) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func TestMatch(t *testing.T) {
	src := &fakeSource{contractors: []storage.Contractor{
		{ID: "a", Specialty: "roofing", ZipCodes: "62701,62702"},
		{ID: "b", Specialty: "roofing", ZipCodes: "62704"},
		{ID: "c", Specialty: "roofing"},
		{ID: "d", Specialty: "roofing", ZipCodes: "62704"},
	}}
	m := NewMatcher(src)

	tests := []struct {
		name string
		zip  string
		want []string
	}{
		{"no zip returns top three", "", []string{"a", "b", "c"}},
		{"zip filters top three", "62704", []string{"b"}},
		{"no local match falls back", "90210", []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Match("roofing", tt.zip)
			if err != nil {
				t.Fatal(err)
			}
			g := ids(got)
			if len(g) != len(tt.want) {
				t.Fatalf("got %v, want %v", g, tt.want)
			}
			for i := range g {
				if g[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", g, tt.want)
				}
			}
		})
	}
	if src.gotLimit != MaxReferrals {
		t.Errorf("limit = %d, want %d", src.gotLimit, MaxReferrals)
	}
}

func TestMatch_NoContractors(t *testing.T) {
	got, err := NewMatcher(&fakeSource{}).Match("mold", "62704")
	if err != nil || len(got) != 0 {
		t.Errorf("Match = %v, %v", got, err)
	}
}

func TestMatch_Error(t *testing.T) {
	boom := errors.New("db down")
	_, err := NewMatcher(&fakeSource{err: boom}).Match("mold", "")
	if !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}
