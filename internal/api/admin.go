package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/assure/inspectd/internal/inspection"
)

func handleListContractors(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cs, err := deps.Service.ListContractors()
		if err != nil {
			serviceError(w, r, err, "failed to list contractors")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"total_contractors": len(cs),
			"contractors":       contractorViews(cs),
		})
	}
}

func handleCreateContractor(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in inspection.ContractorInput
		if !decodeJSON(w, r, &in) {
			return
		}
		c, err := deps.Service.CreateContractor(in)
		if err != nil {
			serviceError(w, r, err, "failed to create contractor")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"success":       true,
			"contractor_id": c.ID,
			"message":       "Contractor created",
		})
	}
}

func handleUpdateContractor(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in inspection.ContractorInput
		if !decodeJSON(w, r, &in) {
			return
		}
		c, err := deps.Service.UpdateContractor(chi.URLParam(r, "id"), in)
		if err != nil {
			serviceError(w, r, err, "failed to update contractor")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "contractor_id": c.ID})
	}
}

func handleDeleteContractor(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Service.DeleteContractor(chi.URLParam(r, "id")); err != nil {
			serviceError(w, r, err, "failed to delete contractor")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func handleListLeads(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		leads, err := deps.Service.ListLeads()
		if err != nil {
			serviceError(w, r, err, "failed to list leads")
			return
		}
		views := make([]leadView, len(leads))
		for i, l := range leads {
			views[i] = leadView{
				ID:             l.ID,
				ReportID:       l.ReportID,
				QuestionID:     l.QuestionID,
				ContractorID:   l.ContractorID,
				ContractorName: l.ContractorName,
				IssueType:      l.IssueType,
				CustomerName:   orNA(l.CustomerName),
				CustomerEmail:  orNA(l.CustomerEmail),
				CustomerPhone:  orNA(l.CustomerPhone),
				Status:         l.Status,
				Notes:          l.Notes,
				CreatedAt:      timestamp(l.CreatedAt),
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"total_leads": len(views),
			"leads":       views,
		})
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

type updateLeadRequest struct {
	Status *string `json:"status"`
	Notes  *string `json:"notes"`
}

func handleUpdateLead(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateLeadRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		id := chi.URLParam(r, "id")
		if err := deps.Service.UpdateLead(id, req.Status, req.Notes); err != nil {
			serviceError(w, r, err, "failed to update lead")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "lead_id": id})
	}
}

func handleReferralRequest(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in inspection.ReferralInput
		if !decodeJSON(w, r, &in) {
			return
		}
		lead, err := deps.Service.RequestReferral(r.Context(), in)
		if err != nil {
			serviceError(w, r, err, "failed to create referral request")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"success": true,
			"lead_id": lead.ID,
			"message": "Quote request sent to contractor",
		})
	}
}

func handleQuestionAnalytics(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := deps.Service.QuestionAnalytics()
		if err != nil {
			serviceError(w, r, err, "failed to load question analytics")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"total_questions": st.Total,
			"by_issue_type":   st.ByIssueType,
		})
	}
}

type contractorStatsView struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Specialty      string  `json:"specialty"`
	TotalLeads     int     `json:"total_leads"`
	ConvertedLeads int     `json:"converted_leads"`
	ConversionRate float64 `json:"conversion_rate"`
	Rating         float64 `json:"rating"`
}

func handleContractorAnalytics(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := deps.Service.ContractorAnalytics()
		if err != nil {
			serviceError(w, r, err, "failed to load contractor analytics")
			return
		}
		views := make([]contractorStatsView, len(stats))
		for i, st := range stats {
			views[i] = contractorStatsView{
				ID:             st.ContractorID,
				Name:           st.Name,
				Specialty:      st.Specialty,
				TotalLeads:     st.TotalLeads,
				ConvertedLeads: st.ConvertedLeads,
				ConversionRate: st.ConversionRate(),
				Rating:         st.Rating,
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"contractors": views})
	}
}

func handleDashboard(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := deps.Service.Dashboard(r.Context())
		if err != nil {
			serviceError(w, r, err, "failed to load dashboard")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"total_reports":           st.TotalReports,
			"total_questions":         st.TotalQuestions,
			"total_leads":             st.TotalLeads,
			"total_contractors":       st.TotalContractors,
			"questions_by_issue_type": st.QuestionsByIssueType,
			"leads_by_status":         st.LeadsByStatus,
			"resident_conversations":  st.ResidentConversations,
		})
	}
}
