package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const contractorColumns = `id, name, specialty, phone, email, zip_codes, city, state, rating,
	review_count, description, website, is_licensed, is_bonded, is_insured, cost_per_lead,
	is_active, created_at, updated_at`

func (s *Store) SaveContractor(c Contractor) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	_, err := s.db.Exec(`INSERT INTO contractors (`+contractorColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Specialty, c.Phone, c.Email, c.ZipCodes, c.City, c.State, c.Rating,
		c.ReviewCount, c.Description, c.Website, c.IsLicensed, c.IsBonded, c.IsInsured,
		c.CostPerLead, c.IsActive, formatTime(c.CreatedAt), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("inserting contractor: %w", err)
	}
	return nil
}

// UpdateContractor overwrites every mutable field of an existing contractor.
func (s *Store) UpdateContractor(c Contractor) error {
	res, err := s.db.Exec(`UPDATE contractors SET name = ?, specialty = ?, phone = ?, email = ?,
		zip_codes = ?, city = ?, state = ?, rating = ?, review_count = ?, description = ?, website = ?,
		is_licensed = ?, is_bonded = ?, is_insured = ?, cost_per_lead = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		c.Name, c.Specialty, c.Phone, c.Email, c.ZipCodes, c.City, c.State, c.Rating, c.ReviewCount,
		c.Description, c.Website, c.IsLicensed, c.IsBonded, c.IsInsured, c.CostPerLead, c.IsActive,
		formatTime(time.Now()), c.ID,
	)
	if err != nil {
		return fmt.Errorf("updating contractor: %w", err)
	}
	return expectOneRow(res)
}

// DeleteContractor removes a contractor and, by cascade, its leads.
func (s *Store) DeleteContractor(id string) error {
	res, err := s.db.Exec(`DELETE FROM contractors WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func scanContractor(row rowScanner) (Contractor, error) {
	var c Contractor
	var createdAt, updatedAt string
	err := row.Scan(&c.ID, &c.Name, &c.Specialty, &c.Phone, &c.Email, &c.ZipCodes, &c.City,
		&c.State, &c.Rating, &c.ReviewCount, &c.Description, &c.Website, &c.IsLicensed,
		&c.IsBonded, &c.IsInsured, &c.CostPerLead, &c.IsActive, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Contractor{}, ErrNotFound
	}
	if err != nil {
		return Contractor{}, err
	}
	if c.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return Contractor{}, err
	}
	if c.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return Contractor{}, err
	}
	return c, nil
}

func (s *Store) GetContractor(id string) (Contractor, error) {
	return scanContractor(s.db.QueryRow(`SELECT `+contractorColumns+` FROM contractors WHERE id = ?`, id))
}

func (s *Store) queryContractors(query string, args ...any) ([]Contractor, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Contractor
	for rows.Next() {
		c, err := scanContractor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListContractors returns all contractors, newest first.
func (s *Store) ListContractors() ([]Contractor, error) {
	return s.queryContractors(`SELECT ` + contractorColumns + ` FROM contractors ORDER BY created_at DESC, rowid DESC`)
}

// ListActiveContractorsBySpecialty returns up to limit active contractors of
// the given specialty, best rated first.
func (s *Store) ListActiveContractorsBySpecialty(specialty string, limit int) ([]Contractor, error) {
	return s.queryContractors(`SELECT `+contractorColumns+` FROM contractors
		WHERE specialty = ? AND is_active = 1
		ORDER BY rating DESC, rowid ASC LIMIT ?`, specialty, limit)
}

func (s *Store) CountContractors() (int, error) {
	return s.count("contractors")
}
