package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/assure/inspectd/internal/inspection"
)

func handleUploadWarranty(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reportID := chi.URLParam(r, "report_id")
		if _, err := deps.Service.Report(reportID); err != nil {
			serviceError(w, r, err, "failed to upload warranty")
			return
		}

		filename, data, ok := readUpload(w, r, deps.MaxUploadBytes)
		if !ok {
			return
		}

		wd, err := deps.Service.UploadWarranty(r.Context(), reportID, inspection.WarrantyInput{
			Filename:     filename,
			Data:         data,
			BuilderName:  r.FormValue("builder_name"),
			WarrantyType: r.FormValue("warranty_type"),
			Jurisdiction: r.FormValue("jurisdiction"),
		})
		if err != nil {
			serviceError(w, r, err, "failed to upload warranty")
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"success":          true,
			"warranty_id":      wd.ID,
			"builder_name":     wd.BuilderName,
			"warranty_type":    wd.WarrantyType,
			"coverage_summary": wd.CoverageSummary,
			"message":          fmt.Sprintf("%s warranty uploaded successfully", wd.BuilderName),
		})
	}
}

func handleGetWarranty(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wd, err := deps.Service.Warranty(chi.URLParam(r, "report_id"), chi.URLParam(r, "warranty_id"))
		if err != nil {
			serviceError(w, r, err, "failed to load warranty")
			return
		}
		writeJSON(w, http.StatusOK, newWarrantyView(wd))
	}
}

func handleReportWarranties(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reportID := chi.URLParam(r, "report_id")
		ws, err := deps.Service.ReportWarranties(reportID)
		if err != nil {
			serviceError(w, r, err, "failed to list warranties")
			return
		}
		views := make([]warrantyView, len(ws))
		for i, wd := range ws {
			views[i] = newWarrantyView(wd)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"report_id":        reportID,
			"total_warranties": len(views),
			"warranties":       views,
		})
	}
}

type claimCheckRequest struct {
	InspectionFinding string `json:"inspection_finding"`
	IssueType         string `json:"issue_type"`
}

func handleClaimCheck(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req claimCheckRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		check, err := deps.Service.CheckClaim(r.Context(),
			chi.URLParam(r, "report_id"), chi.URLParam(r, "warranty_id"),
			req.InspectionFinding, req.IssueType)
		if err != nil {
			serviceError(w, r, err, "failed to check warranty claim")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"query_id": check.QueryID,
			"analysis": check.Analysis,
		})
	}
}

func handleWarrantyAsk(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req askRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Question == nil {
			httpError(w, http.StatusBadRequest, "No question provided")
			return
		}
		q, err := deps.Service.AskWarranty(r.Context(),
			chi.URLParam(r, "report_id"), chi.URLParam(r, "warranty_id"), *req.Question)
		if err != nil {
			serviceError(w, r, err, "failed to answer warranty question")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"query_id": q.ID,
			"answer":   q.Analysis,
		})
	}
}

func handleWarrantyQueries(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs, err := deps.Service.WarrantyQueries(chi.URLParam(r, "report_id"))
		if err != nil {
			serviceError(w, r, err, "failed to list warranty queries")
			return
		}
		views := make([]warrantyQueryView, len(qs))
		for i, q := range qs {
			views[i] = warrantyQueryView{
				ID:                q.ID,
				WarrantyID:        q.WarrantyID,
				Question:          q.Question,
				InspectionFinding: q.InspectionFinding,
				Claimability:      q.Claimability,
				Reasoning:         q.ClaimReason,
				WarrantySection:   q.WarrantySection,
				CreatedAt:         timestamp(q.CreatedAt),
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"total_queries": len(views),
			"queries":       views,
		})
	}
}
