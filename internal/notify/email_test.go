package notify

import (
	"strings"
	"testing"
)

func TestLeadEmail(t *testing.T) {
	msg, err := LeadEmail(LeadDetails{
		ContractorEmail: "roofer@example.com",
		CustomerName:    "Sam <Owner>",
		CustomerEmail:   "sam@example.com",
		CustomerPhone:   "555-0100",
		Address:         "12 Elm St, Springfield 62704",
		IssueType:       "roofing",
		Punchlist:       "ROOFING PUNCHLIST\n\nIMMEDIATE ATTENTION ITEMS:\nNone requiring immediate action",
	})
	if err != nil {
		t.Fatalf("LeadEmail: %v", err)
	}

	if msg.To != "roofer@example.com" {
		t.Errorf("To = %q", msg.To)
	}
	if msg.Subject != "New Roofing Lead - 12 Elm St, Springfield 62704" {
		t.Errorf("Subject = %q", msg.Subject)
	}

	for _, want := range []string{
		"NEW QUOTE REQUEST FROM ASSURE INSPECTIONS",
		"Address: 12 Elm St, Springfield 62704",
		"Name: Sam <Owner>",
		"ROOFING PUNCHLIST",
		"Please contact the customer directly at sam@example.com or 555-0100",
		"https://www.assureinspections.com",
	} {
		if !strings.Contains(msg.Text, want) {
			t.Errorf("plain body missing %q", want)
		}
	}

	if !strings.Contains(msg.HTML, "Sam &lt;Owner&gt;") {
		t.Error("HTML body does not escape customer name")
	}
	if !strings.Contains(msg.HTML, `href="mailto:sam@example.com"`) {
		t.Error("HTML body missing mailto link")
	}
}

func TestTitleCase(t *testing.T) {
	tests := map[string]string{
		"hvac":       "Hvac",
		"electrical": "Electrical",
		"water line": "Water Line",
		"":           "",
	}
	for in, want := range tests {
		if got := titleCase(in); got != want {
			t.Errorf("titleCase(%q) = %q, want %q", in, got, want)
		}
	}
}
