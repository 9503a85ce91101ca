package inspection

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/assure/inspectd/internal/storage"
)

// QuestionStats counts questions overall and per issue type.
type QuestionStats struct {
	Total       int
	ByIssueType map[string]int
}

func (s *Service) QuestionAnalytics() (QuestionStats, error) {
	byType, err := s.store.QuestionCountsByIssueType()
	if err != nil {
		return QuestionStats{}, err
	}
	total := 0
	for _, n := range byType {
		total += n
	}
	return QuestionStats{Total: total, ByIssueType: byType}, nil
}

func (s *Service) ContractorAnalytics() ([]storage.ContractorLeadStats, error) {
	return s.store.ContractorLeadStats()
}

// DashboardStats is the admin overview.
type DashboardStats struct {
	TotalReports          int
	TotalQuestions        int
	TotalLeads            int
	TotalContractors      int
	QuestionsByIssueType  map[string]int
	LeadsByStatus         map[string]int
	ResidentConversations int
}

// Dashboard runs the aggregate queries concurrently.
func (s *Service) Dashboard(ctx context.Context) (DashboardStats, error) {
	var st DashboardStats
	g, _ := errgroup.WithContext(ctx)

	counts := []struct {
		dst *int
		fn  func() (int, error)
	}{
		{&st.TotalReports, s.store.CountReports},
		{&st.TotalQuestions, s.store.CountQuestions},
		{&st.TotalLeads, s.store.CountLeads},
		{&st.TotalContractors, s.store.CountContractors},
	}
	for _, c := range counts {
		g.Go(func() error {
			n, err := c.fn()
			*c.dst = n
			return err
		})
	}
	g.Go(func() error {
		m, err := s.store.QuestionCountsByIssueType()
		st.QuestionsByIssueType = m
		return err
	})
	g.Go(func() error {
		m, err := s.store.LeadCountsByStatus()
		st.LeadsByStatus = m
		return err
	})

	if err := g.Wait(); err != nil {
		return DashboardStats{}, err
	}
	st.ResidentConversations = s.reports.Len()
	return st, nil
}
