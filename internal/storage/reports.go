package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const reportColumns = `id, address, customer_name, customer_email, customer_phone, inspector_name,
	inspection_date, report_type, original_filename, file_path, file_size, extracted_text,
	summary, share_token, is_shared, created_at, updated_at`

func (s *Store) SaveReport(r Report) error {
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.InspectionDate.IsZero() {
		r.InspectionDate = r.CreatedAt
	}
	_, err := s.db.Exec(`INSERT INTO reports (`+reportColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Address, r.CustomerName, r.CustomerEmail, r.CustomerPhone, r.InspectorName,
		formatTime(r.InspectionDate), r.ReportType, r.OriginalFilename, r.FilePath, r.FileSize,
		r.ExtractedText, r.Summary, r.ShareToken, r.IsShared, formatTime(r.CreatedAt), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("inserting report: %w", err)
	}
	return nil
}

func scanReport(row rowScanner) (Report, error) {
	var r Report
	var inspectionDate, createdAt, updatedAt string
	err := row.Scan(&r.ID, &r.Address, &r.CustomerName, &r.CustomerEmail, &r.CustomerPhone,
		&r.InspectorName, &inspectionDate, &r.ReportType, &r.OriginalFilename, &r.FilePath,
		&r.FileSize, &r.ExtractedText, &r.Summary, &r.ShareToken, &r.IsShared, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Report{}, ErrNotFound
	}
	if err != nil {
		return Report{}, err
	}
	if r.InspectionDate, err = parseTime("inspection_date", inspectionDate); err != nil {
		return Report{}, err
	}
	if r.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return Report{}, err
	}
	if r.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return Report{}, err
	}
	return r, nil
}

func (s *Store) GetReport(id string) (Report, error) {
	return scanReport(s.db.QueryRow(`SELECT `+reportColumns+` FROM reports WHERE id = ?`, id))
}

// GetSharedReport looks a report up by its share token. Reports with sharing
// disabled are reported as not found.
func (s *Store) GetSharedReport(token string) (Report, error) {
	return scanReport(s.db.QueryRow(`SELECT `+reportColumns+` FROM reports WHERE share_token = ? AND is_shared = 1`, token))
}

// GetExtractedText returns the stored document text of a report.
func (s *Store) GetExtractedText(id string) (string, error) {
	var text string
	err := s.db.QueryRow(`SELECT extracted_text FROM reports WHERE id = ?`, id).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return text, err
}

// UpdateReportCustomer replaces the customer contact details of a report.
func (s *Store) UpdateReportCustomer(id, name, email, phone string) error {
	res, err := s.db.Exec(`UPDATE reports SET customer_name = ?, customer_email = ?, customer_phone = ?, updated_at = ?
		WHERE id = ?`, name, email, phone, formatTime(time.Now()), id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (s *Store) CountReports() (int, error) {
	return s.count("reports")
}

// --- Questions ---

// RecordQuestion appends one answered question to a report's log.
func (s *Store) RecordQuestion(q Question) error {
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`INSERT INTO questions (id, report_id, question, issue_type, answer, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		q.ID, q.ReportID, q.Question, q.IssueType, q.Answer, formatTime(q.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting question: %w", err)
	}
	return nil
}

func scanQuestion(row rowScanner) (Question, error) {
	var q Question
	var createdAt string
	err := row.Scan(&q.ID, &q.ReportID, &q.Question, &q.IssueType, &q.Answer, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, ErrNotFound
	}
	if err != nil {
		return Question{}, err
	}
	q.CreatedAt, err = parseTime("created_at", createdAt)
	return q, err
}

func (s *Store) GetQuestion(id string) (Question, error) {
	return scanQuestion(s.db.QueryRow(
		`SELECT id, report_id, question, issue_type, answer, created_at FROM questions WHERE id = ?`, id))
}

// ListQuestions returns a report's questions, oldest first.
func (s *Store) ListQuestions(reportID string) ([]Question, error) {
	rows, err := s.db.Query(`SELECT id, report_id, question, issue_type, answer, created_at
		FROM questions WHERE report_id = ? ORDER BY created_at ASC, rowid ASC`, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *Store) CountQuestions() (int, error) {
	return s.count("questions")
}

// QuestionCountsByIssueType returns how many questions were classified under each issue type.
func (s *Store) QuestionCountsByIssueType() (map[string]int, error) {
	return s.countBy(`SELECT issue_type, COUNT(*) FROM questions GROUP BY issue_type`)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
