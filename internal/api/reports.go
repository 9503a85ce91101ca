package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/assure/inspectd/internal/inspection"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temp files.
const multipartMemory = 32 << 20

// readUpload parses a multipart upload. On failure it has already written
// the error response.
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (filename string, data []byte, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			httpError(w, http.StatusRequestEntityTooLarge, "File too large")
			return "", nil, false
		}
		httpError(w, http.StatusBadRequest, "No file provided")
		return "", nil, false
	}
	defer r.MultipartForm.RemoveAll()

	f, hdr, err := r.FormFile("file")
	if err != nil {
		httpError(w, http.StatusBadRequest, "No file provided")
		return "", nil, false
	}
	defer f.Close()

	data, err = io.ReadAll(f)
	if err != nil {
		httpError(w, http.StatusBadRequest, "reading upload: %v", err)
		return "", nil, false
	}
	return hdr.Filename, data, true
}

func handleUpload(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename, data, ok := readUpload(w, r, deps.MaxUploadBytes)
		if !ok {
			return
		}

		report, err := deps.Service.Upload(r.Context(), inspection.UploadInput{
			Filename:      filename,
			Data:          data,
			Address:       r.FormValue("address"),
			CustomerName:  r.FormValue("customer_name"),
			CustomerEmail: r.FormValue("customer_email"),
			CustomerPhone: r.FormValue("customer_phone"),
			InspectorName: r.FormValue("inspector_name"),
			ReportType:    r.FormValue("report_type"),
		})
		if err != nil {
			serviceError(w, r, err, "failed to process report")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"report_id":   report.ID,
			"share_token": report.ShareToken,
			"summary":     report.Summary,
			"address":     report.Address,
			"message":     "Report uploaded successfully",
		})
	}
}

type askRequest struct {
	Question *string `json:"question"`
}

func handleAsk(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req askRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Question == nil {
			httpError(w, http.StatusBadRequest, "No question provided")
			return
		}

		ans, err := deps.Service.Ask(r.Context(), chi.URLParam(r, "report_id"), *req.Question)
		if err != nil {
			serviceError(w, r, err, "failed to answer question")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success":         true,
			"question_id":     ans.QuestionID,
			"conversation_id": ans.QuestionID,
			"question":        ans.Question,
			"answer":          ans.Answer,
			"issue_type":      ans.IssueType,
			"referrals":       referralViews(ans.Referrals),
			"timestamp":       ans.Timestamp.Format(time.RFC3339),
		})
	}
}

func handleConversations(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reportID := chi.URLParam(r, "report_id")
		qs, err := deps.Service.Conversations(reportID)
		if err != nil {
			serviceError(w, r, err, "failed to list conversations")
			return
		}

		convs := make([]questionView, len(qs))
		for i, q := range qs {
			convs[i] = questionView{
				ID:        q.ID,
				Question:  q.Question,
				Answer:    q.Answer,
				IssueType: q.IssueType,
				Timestamp: timestamp(q.CreatedAt),
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"report_id":       reportID,
			"total_questions": len(convs),
			"conversations":   convs,
		})
	}
}

func handleShared(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "share_token")
		report, err := deps.Service.Shared(token)
		if err != nil {
			serviceError(w, r, err, "failed to load shared report")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":              report.ID,
			"address":         report.Address,
			"summary":         report.Summary,
			"report_type":     report.ReportType,
			"inspection_date": timestamp(report.InspectionDate),
			"share_token":     token,
		})
	}
}
