package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const leadColumns = `id, report_id, question_id, contractor_id, customer_name, customer_email,
	customer_phone, status, notes, created_at, updated_at`

func (s *Store) SaveLead(l Lead) error {
	now := time.Now().UTC()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	if l.Status == "" {
		l.Status = LeadPending
	}
	_, err := s.db.Exec(`INSERT INTO leads (`+leadColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.ReportID, l.QuestionID, l.ContractorID, l.CustomerName, l.CustomerEmail,
		l.CustomerPhone, l.Status, l.Notes, formatTime(l.CreatedAt), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("inserting lead: %w", err)
	}
	return nil
}

func scanLead(row rowScanner, extra ...any) (Lead, error) {
	var l Lead
	var createdAt, updatedAt string
	dest := []any{&l.ID, &l.ReportID, &l.QuestionID, &l.ContractorID, &l.CustomerName,
		&l.CustomerEmail, &l.CustomerPhone, &l.Status, &l.Notes, &createdAt, &updatedAt}
	err := row.Scan(append(dest, extra...)...)
	if errors.Is(err, sql.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, err
	}
	if l.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return Lead{}, err
	}
	if l.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return Lead{}, err
	}
	return l, nil
}

func (s *Store) GetLead(id string) (Lead, error) {
	return scanLead(s.db.QueryRow(`SELECT `+leadColumns+` FROM leads WHERE id = ?`, id))
}

// ListLeads returns all leads, newest first, with contractor name and issue type.
func (s *Store) ListLeads() ([]LeadView, error) {
	rows, err := s.db.Query(`SELECT l.id, l.report_id, l.question_id, l.contractor_id, l.customer_name,
		l.customer_email, l.customer_phone, l.status, l.notes, l.created_at, l.updated_at,
		COALESCE(c.name, ''), COALESCE(q.issue_type, '')
		FROM leads l
		LEFT JOIN contractors c ON c.id = l.contractor_id
		LEFT JOIN questions q ON q.id = l.question_id
		ORDER BY l.created_at DESC, l.rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeadView
	for rows.Next() {
		var v LeadView
		lead, err := scanLead(rows, &v.ContractorName, &v.IssueType)
		if err != nil {
			return nil, err
		}
		v.Lead = lead
		out = append(out, v)
	}
	return out, rows.Err()
}

// UpdateLead changes a lead's status and/or notes. Nil arguments are left as is.
func (s *Store) UpdateLead(id string, status, notes *string) error {
	l, err := s.GetLead(id)
	if err != nil {
		return err
	}
	if status != nil {
		l.Status = *status
	}
	if notes != nil {
		l.Notes = *notes
	}
	res, err := s.db.Exec(`UPDATE leads SET status = ?, notes = ?, updated_at = ? WHERE id = ?`,
		l.Status, l.Notes, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("updating lead: %w", err)
	}
	return expectOneRow(res)
}

func (s *Store) CountLeads() (int, error) {
	return s.count("leads")
}

// LeadCountsByStatus returns how many leads are in each status.
func (s *Store) LeadCountsByStatus() (map[string]int, error) {
	return s.countBy(`SELECT status, COUNT(*) FROM leads GROUP BY status`)
}

// ContractorLeadStats returns total and converted lead counts for every contractor.
func (s *Store) ContractorLeadStats() ([]ContractorLeadStats, error) {
	rows, err := s.db.Query(`SELECT c.id, c.name, c.specialty, c.rating,
		COUNT(l.id),
		COALESCE(SUM(CASE WHEN l.status = ? THEN 1 ELSE 0 END), 0)
		FROM contractors c
		LEFT JOIN leads l ON l.contractor_id = c.id
		GROUP BY c.id
		ORDER BY c.name ASC`, LeadConverted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ContractorLeadStats
	for rows.Next() {
		var st ContractorLeadStats
		if err := rows.Scan(&st.ContractorID, &st.Name, &st.Specialty, &st.Rating, &st.TotalLeads, &st.ConvertedLeads); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// ConversionRate is converted leads as a percentage of all leads.
func (st ContractorLeadStats) ConversionRate() float64 {
	if st.TotalLeads == 0 {
		return 0
	}
	return float64(st.ConvertedLeads) / float64(st.TotalLeads) * 100
}
