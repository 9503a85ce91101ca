package notify

import (
	"bytes"
	htmltemplate "html/template"
	texttemplate "text/template"
	"unicode"
)

// LeadDetails is everything a contractor needs to follow up a quote request.
type LeadDetails struct {
	ContractorEmail string
	ContractorName  string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	Address         string
	IssueType       string
	Punchlist       string
}

const leadText = `
NEW QUOTE REQUEST FROM ASSURE INSPECTIONS

PROPERTY DETAILS:
Address: {{.Address}}

CUSTOMER INFORMATION:
Name: {{.CustomerName}}
Email: {{.CustomerEmail}}
Phone: {{.CustomerPhone}}

---

{{.Punchlist}}

---

NEXT STEPS:
Please contact the customer directly at {{.CustomerEmail}} or {{.CustomerPhone}} to discuss the work and provide a quote.

Assure Inspections AI System
https://www.assureinspections.com
`

const leadHTML = `<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 800px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #0369a1;">NEW QUOTE REQUEST FROM ASSURE INSPECTIONS</h2>

        <h3 style="color: #1f2937; margin-top: 20px;">PROPERTY DETAILS:</h3>
        <p><strong>Address:</strong> {{.Address}}</p>

        <h3 style="color: #1f2937; margin-top: 20px;">CUSTOMER INFORMATION:</h3>
        <p>
            <strong>Name:</strong> {{.CustomerName}}<br>
            <strong>Email:</strong> <a href="mailto:{{.CustomerEmail}}">{{.CustomerEmail}}</a><br>
            <strong>Phone:</strong> <a href="tel:{{.CustomerPhone}}">{{.CustomerPhone}}</a>
        </p>

        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 30px 0;">

        <div style="background: #f9fafb; padding: 20px; border-radius: 8px; border-left: 4px solid #0369a1;">
            <pre style="font-family: Arial, sans-serif; white-space: pre-wrap; word-wrap: break-word;">{{.Punchlist}}</pre>
        </div>

        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 30px 0;">

        <h3 style="color: #1f2937;">NEXT STEPS:</h3>
        <p>Please contact the customer directly at <a href="mailto:{{.CustomerEmail}}">{{.CustomerEmail}}</a> or <a href="tel:{{.CustomerPhone}}">{{.CustomerPhone}}</a> to discuss the work and provide a quote.</p>

        <p style="margin-top: 40px; color: #6b7280; font-size: 12px;">
            <strong>Assure Inspections AI System</strong><br>
            https://www.assureinspections.com
        </p>
    </div>
</body>
</html>
`

var (
	leadTextTmpl = texttemplate.Must(texttemplate.New("lead.txt").Parse(leadText))
	leadHTMLTmpl = htmltemplate.Must(htmltemplate.New("lead.html").Parse(leadHTML))
)

// LeadEmail renders the contractor notification for d.
func LeadEmail(d LeadDetails) (Message, error) {
	var text, html bytes.Buffer
	if err := leadTextTmpl.Execute(&text, d); err != nil {
		return Message{}, err
	}
	if err := leadHTMLTmpl.Execute(&html, d); err != nil {
		return Message{}, err
	}
	return Message{
		To:      d.ContractorEmail,
		Subject: "New " + titleCase(d.IssueType) + " Lead - " + d.Address,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

// titleCase upper-cases the first letter of every word: "hvac" -> "Hvac".
func titleCase(s string) string {
	rs := []rune(s)
	for i, r := range rs {
		if i == 0 || !unicode.IsLetter(rs[i-1]) {
			rs[i] = unicode.ToUpper(r)
		} else {
			rs[i] = unicode.ToLower(r)
		}
	}
	return string(rs)
}
