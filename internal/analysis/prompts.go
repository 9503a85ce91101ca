package analysis

import (
	"fmt"

	"github.com/assure/inspectd/internal/conversation"
)

const (
	summaryMaxTokens   = 500
	reportQAMaxTokens  = 800
	punchlistMaxTokens = 600
	warrantyMaxTokens  = 800
	claimMaxTokens     = 800
)

const summarySystemPrompt = `You are an expert at summarizing home inspection reports in a professional, balanced way.
Your job is to create a brief summary (2-3 paragraphs) that:
1. Clearly explains what was inspected
2. Highlights findings in order of priority
3. Uses calm, professional language - not alarmist
4. Presents issues factually without exaggeration

Do NOT make up information. Only summarize what's in the report.`

const reportQASystemPrompt = `You are a helpful assistant answering questions about a home inspection report.

TONE: Professional, balanced, factual, conversational
RULES:
1. ONLY answer from the inspection report
2. If info not in report: "This wasn't covered in the inspection"
3. For costs: "Get quotes from licensed professionals"
4. NO markdown - use plain text
5. NO financial advice
6. NO purchase recommendations

FORMAT: Use short paragraphs with headers like "Issue:", "Finding:", "What this means:"
`

const punchlistSystemTemplate = `You are an expert creating quick, actionable punchlist summaries for %[1]s contractors.

Create a professional punchlist that:
1. Filters ONLY %[1]s related issues mentioned
2. Organizes by urgency (Immediate vs. Attention needed)
3. Is clear, scannable, and actionable
4. Includes Location, Issue, Required fix, and Why it matters

Format exactly like this:

[ISSUE TYPE] PUNCHLIST

IMMEDIATE ATTENTION ITEMS:
[List any critical/safety issues, or "None requiring immediate action"]

ATTENTION ITEMS - Should be corrected:
1. [Issue Title]
   Location: [where]
   Issue: [description]
   Required: [what needs to be done]
   Why: [why it matters]

Do NOT include issues unrelated to %[1]s.`

const warrantySummarySystemTemplate = `You are an expert at summarizing home warranty documents.

Create a clear, organized summary of warranty coverage for %s (%s) that includes:
1. Coverage periods (1-year, 2-year, 5-year, 10-year, etc.)
2. What IS covered (systems, components, materials)
3. What is NOT covered (exclusions)
4. How to file claims
5. Key terms and conditions

Be concise and factual. Only include what's actually in the document.`

const warrantyQASystemTemplate = `You are helping homeowners understand their %s %s warranty coverage.

Your job is to answer questions about what IS or IS NOT covered, based on the warranty document provided and the findings of their home inspection.

RESPONSE FORMAT - Use **bold** ONLY for:
- **Coverage Status:**
- **What this means:**
- **Next Steps:**
- **Important:**

NO other markdown. Plain text for explanations.

TONE:
- Professional, clear, factual
- Conservative about coverage (when in doubt, say NOT covered)
- Empathetic to homeowner concerns
- Cite specific warranty sections when relevant
- If you don't know from the warranty document, say so

RULES:
1. Base answer ONLY on the warranty document provided
2. If not mentioned in warranty, say "This isn't addressed in your warranty"
3. Be honest about coverage limits
4. Recommend contacting warranty company for claims
5. Never make up coverage information`

const claimSystemTemplate = `You are a warranty claims analyst for %s (%s) home warranties.

Decide whether a home inspection finding is claimable under the warranty described below.
Your output must be ONLY a single valid JSON object with these fields:
- "claimability": one of "COVERED", "NOT_COVERED", "PARTIAL", "REQUIRES_SPECIALIST"
- "warranty_section": the section of the warranty that applies, or ""
- "coverage_period": the applicable coverage period, e.g. "2 years", or ""
- "reasoning": a short plain-text explanation
- "next_steps": an array of short plain-text actions for the homeowner

Be conservative: when the warranty does not clearly cover the finding, answer "NOT_COVERED" or "REQUIRES_SPECIALIST".
Do not include any other text, prose, or markdown.`

// ReportFraming is the conversation framing for inspection report Q&A.
func ReportFraming() conversation.Framing {
	return conversation.Framing{
		System:         reportQASystemPrompt,
		Preamble:       "Here is the inspection report:",
		DocumentTag:    "INSPECTION_REPORT",
		QuestionPrefix: "Customer Question:",
		MaxTokens:      reportQAMaxTokens,
	}
}

// WarrantyFraming is the conversation framing for warranty Q&A. The
// conversation document is built with WarrantyDocument.
func WarrantyFraming(builderName, warrantyType string) conversation.Framing {
	return conversation.Framing{
		System:         fmt.Sprintf(warrantyQASystemTemplate, builderName, warrantyType),
		Preamble:       "Here are your inspection report and warranty document:",
		DocumentTag:    "HOME_RECORDS",
		QuestionPrefix: "Customer Question about coverage:",
		MaxTokens:      warrantyMaxTokens,
	}
}

// WarrantyDocument combines report and warranty text into one grounding document.
func WarrantyDocument(reportText, warrantyText string) string {
	return fmt.Sprintf("<INSPECTION_REPORT>\n%s\n</INSPECTION_REPORT>\n\n<WARRANTY_DOCUMENT>\n%s\n</WARRANTY_DOCUMENT>",
		reportText, warrantyText)
}

// ReportWithCoverage appends warranty coverage summaries to report text.
func ReportWithCoverage(reportText string, coverage []string) string {
	if len(coverage) == 0 {
		return reportText
	}
	out := reportText + "\n\n<WARRANTY_COVERAGE>"
	for _, c := range coverage {
		out += "\n" + c
	}
	return out + "\n</WARRANTY_COVERAGE>"
}
