package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const warrantyColumns = `id, builder_name, warranty_type, jurisdiction, file_path, original_filename,
	file_size, extracted_text, coverage_summary, is_active, created_at, updated_at`

func (s *Store) SaveWarranty(w Warranty) error {
	now := time.Now().UTC()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	_, err := s.db.Exec(`INSERT INTO warranties (`+warrantyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.BuilderName, w.WarrantyType, w.Jurisdiction, w.FilePath, w.OriginalFilename,
		w.FileSize, w.ExtractedText, w.CoverageSummary, w.IsActive, formatTime(w.CreatedAt), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("inserting warranty: %w", err)
	}
	return nil
}

func scanWarranty(row rowScanner) (Warranty, error) {
	var w Warranty
	var createdAt, updatedAt string
	err := row.Scan(&w.ID, &w.BuilderName, &w.WarrantyType, &w.Jurisdiction, &w.FilePath,
		&w.OriginalFilename, &w.FileSize, &w.ExtractedText, &w.CoverageSummary, &w.IsActive,
		&createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Warranty{}, ErrNotFound
	}
	if err != nil {
		return Warranty{}, err
	}
	if w.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return Warranty{}, err
	}
	if w.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return Warranty{}, err
	}
	return w, nil
}

func (s *Store) GetWarranty(id string) (Warranty, error) {
	return scanWarranty(s.db.QueryRow(`SELECT `+warrantyColumns+` FROM warranties WHERE id = ?`, id))
}

// LinkWarranty attaches a warranty to a report.
func (s *Store) LinkWarranty(rw ReportWarranty) error {
	if rw.CreatedAt.IsZero() {
		rw.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`INSERT INTO report_warranties (id, report_id, warranty_id, certificate_number, start_date, end_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rw.ID, rw.ReportID, rw.WarrantyID, rw.CertificateNumber,
		formatTime(rw.StartDate), formatTime(rw.EndDate), formatTime(rw.CreatedAt))
	if err != nil {
		return fmt.Errorf("linking warranty: %w", err)
	}
	return nil
}

// GetReportWarranty returns the warranty only if it is linked to the report.
func (s *Store) GetReportWarranty(reportID, warrantyID string) (Warranty, error) {
	return scanWarranty(s.db.QueryRow(`SELECT w.id, w.builder_name, w.warranty_type, w.jurisdiction,
		w.file_path, w.original_filename, w.file_size, w.extracted_text, w.coverage_summary, w.is_active,
		w.created_at, w.updated_at
		FROM warranties w JOIN report_warranties rw ON rw.warranty_id = w.id
		WHERE rw.report_id = ? AND w.id = ?`, reportID, warrantyID))
}

// ListReportWarranties returns the warranties linked to a report, oldest link first.
func (s *Store) ListReportWarranties(reportID string) ([]Warranty, error) {
	rows, err := s.db.Query(`SELECT w.id, w.builder_name, w.warranty_type, w.jurisdiction,
		w.file_path, w.original_filename, w.file_size, w.extracted_text, w.coverage_summary, w.is_active,
		w.created_at, w.updated_at
		FROM warranties w JOIN report_warranties rw ON rw.warranty_id = w.id
		WHERE rw.report_id = ? AND w.is_active = 1
		ORDER BY rw.created_at ASC, rw.rowid ASC`, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Warranty
	for rows.Next() {
		w, err := scanWarranty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *Store) SaveWarrantyQuery(q WarrantyQuery) error {
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`INSERT INTO warranty_queries (id, report_id, warranty_id, question,
		inspection_finding, claimability, claim_reason, warranty_section, analysis, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.ReportID, q.WarrantyID, q.Question, q.InspectionFinding, q.Claimability,
		q.ClaimReason, q.WarrantySection, q.Analysis, formatTime(q.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting warranty query: %w", err)
	}
	return nil
}

// ListWarrantyQueries returns every claim check and warranty question for a report, oldest first.
func (s *Store) ListWarrantyQueries(reportID string) ([]WarrantyQuery, error) {
	rows, err := s.db.Query(`SELECT id, report_id, warranty_id, question, inspection_finding,
		claimability, claim_reason, warranty_section, analysis, created_at
		FROM warranty_queries WHERE report_id = ? ORDER BY created_at ASC, rowid ASC`, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WarrantyQuery
	for rows.Next() {
		var q WarrantyQuery
		var createdAt string
		if err := rows.Scan(&q.ID, &q.ReportID, &q.WarrantyID, &q.Question, &q.InspectionFinding,
			&q.Claimability, &q.ClaimReason, &q.WarrantySection, &q.Analysis, &createdAt); err != nil {
			return nil, err
		}
		if q.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}
