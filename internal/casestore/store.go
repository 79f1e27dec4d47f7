package casestore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed case repository. Structured sub-entities
// (documents, attorneys, references and so on) live in JSON columns;
// everything queried or filtered on gets its own column.
type Store struct {
	db *sqlx.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS cases (
	case_id           TEXT PRIMARY KEY,
	title             TEXT NOT NULL DEFAULT '',
	status            TEXT NOT NULL DEFAULT '',
	status_code       INTEGER NOT NULL DEFAULT 0,
	status_date       TEXT NOT NULL DEFAULT '',
	description       TEXT NOT NULL DEFAULT '',
	filing_date       TEXT NOT NULL DEFAULT '',
	inventors         TEXT NOT NULL DEFAULT '[]',
	attorneys         TEXT NOT NULL DEFAULT '[]',
	mailing_addresses TEXT NOT NULL DEFAULT '[]',
	events            TEXT NOT NULL DEFAULT '[]',
	documents         TEXT NOT NULL DEFAULT '[]',
	keywords          TEXT NOT NULL DEFAULT '[]',
	embedding         TEXT NOT NULL DEFAULT '[]',
	refs              TEXT NOT NULL DEFAULT '[]',
	report            TEXT NOT NULL DEFAULT '',
	summary           TEXT NOT NULL DEFAULT '',
	created_by        TEXT NOT NULL DEFAULT '[]',
	created_date      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS alerts (
	alert_id        TEXT PRIMARY KEY,
	case_id         TEXT NOT NULL,
	similar_case_id TEXT NOT NULL,
	similarity_rate REAL NOT NULL,
	recipients      TEXT NOT NULL DEFAULT '[]',
	created_date    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_alerts_case ON alerts (case_id);
`

func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func marshalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil || v == nil {
		return "[]"
	}
	return string(b)
}

func timeToString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// Put writes the whole case, replacing any row with the same ID. A zero
// CreatedDate is stamped with the current time.
func (s *Store) Put(c *Case) error {
	if c.ID == "" {
		return errors.New("case id is required")
	}
	if c.CreatedDate.IsZero() {
		c.CreatedDate = time.Now().UTC()
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO cases (case_id, title, status, status_code, status_date,
		description, filing_date, inventors, attorneys, mailing_addresses, events, documents,
		keywords, embedding, refs, report, summary, created_by, created_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.Title,
		c.Status,
		c.StatusCode,
		c.StatusDate,
		c.Description,
		c.FilingDate,
		marshalJSON(c.Inventors),
		marshalJSON(c.Attorneys),
		marshalJSON(c.MailingAddresses),
		marshalJSON(c.Events),
		marshalJSON(c.Documents),
		marshalJSON(c.Keywords),
		marshalJSON(c.Embedding),
		marshalJSON(c.References),
		c.Report,
		c.Summary,
		marshalJSON(c.CreatedBy),
		timeToString(c.CreatedDate),
	)
	return err
}

// Get returns the case or (nil, nil) when no row matches.
func (s *Store) Get(id string) (*Case, error) {
	row := s.db.QueryRow(`SELECT case_id, title, status, status_code, status_date,
		description, filing_date, inventors, attorneys, mailing_addresses, events, documents,
		keywords, embedding, refs, report, summary, created_by, created_date
		FROM cases WHERE case_id = ?`, id)
	c, err := scanCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// List returns all cases ordered by creation time, newest first.
func (s *Store) List() ([]Case, error) {
	return s.queryCases(`SELECT case_id, title, status, status_code, status_date,
		description, filing_date, inventors, attorneys, mailing_addresses, events, documents,
		keywords, embedding, refs, report, summary, created_by, created_date
		FROM cases ORDER BY created_date DESC`)
}

// ListExcept returns every case other than id. This is the candidate set a
// new analysis is scored against.
func (s *Store) ListExcept(id string) ([]Case, error) {
	return s.queryCases(`SELECT case_id, title, status, status_code, status_date,
		description, filing_date, inventors, attorneys, mailing_addresses, events, documents,
		keywords, embedding, refs, report, summary, created_by, created_date
		FROM cases WHERE case_id != ? ORDER BY created_date DESC`, id)
}

// UpdateAnalysis replaces the derived artifacts in one write. References are
// replaced wholesale: a re-run owns the whole list, stale entries do not
// survive it.
func (s *Store) UpdateAnalysis(id string, keywords []string, embedding []float64, references []Reference) error {
	res, err := s.db.Exec(`UPDATE cases SET keywords = ?, embedding = ?, refs = ? WHERE case_id = ?`,
		marshalJSON(keywords), marshalJSON(embedding), marshalJSON(references), id)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

// UpdateReport stores the synthesized report and its summary.
func (s *Store) UpdateReport(id, report, summary string) error {
	res, err := s.db.Exec(`UPDATE cases SET report = ?, summary = ? WHERE case_id = ?`, report, summary, id)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

// Delete removes a case and its alerts.
func (s *Store) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM alerts WHERE case_id = ? OR similar_case_id = ?`, id, id); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM cases WHERE case_id = ?`, id)
	return err
}

func (s *Store) PutAlert(a *Alert) error {
	if a.ID == "" {
		return errors.New("alert id is required")
	}
	if a.CreatedDate.IsZero() {
		a.CreatedDate = time.Now().UTC()
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO alerts (alert_id, case_id, similar_case_id, similarity_rate, recipients, created_date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.CaseID, a.SimilarCaseID, a.SimilarityRate, marshalJSON(a.Recipients), timeToString(a.CreatedDate))
	return err
}

// ListAlerts returns alerts newest first, optionally filtered by case.
func (s *Store) ListAlerts(caseID string) ([]Alert, error) {
	query := `SELECT alert_id, case_id, similar_case_id, similarity_rate, recipients, created_date FROM alerts`
	args := []any{}
	if caseID != "" {
		query += ` WHERE case_id = ?`
		args = append(args, caseID)
	}
	query += ` ORDER BY created_date DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Alert
	for rows.Next() {
		var a Alert
		var recipientsJSON, createdDate string
		if err := rows.Scan(&a.ID, &a.CaseID, &a.SimilarCaseID, &a.SimilarityRate, &recipientsJSON, &createdDate); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(recipientsJSON), &a.Recipients)
		a.CreatedDate, _ = time.Parse(time.RFC3339Nano, createdDate)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) queryCases(query string, args ...any) ([]Case, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (*Case, error) {
	var c Case
	var inventors, attorneys, addresses, events, documents, keywords, embedding, refs, createdBy string
	var createdDate string
	if err := row.Scan(&c.ID, &c.Title, &c.Status, &c.StatusCode, &c.StatusDate,
		&c.Description, &c.FilingDate, &inventors, &attorneys, &addresses, &events, &documents,
		&keywords, &embedding, &refs, &c.Report, &c.Summary, &createdBy, &createdDate); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(inventors), &c.Inventors)
	_ = json.Unmarshal([]byte(attorneys), &c.Attorneys)
	_ = json.Unmarshal([]byte(addresses), &c.MailingAddresses)
	_ = json.Unmarshal([]byte(events), &c.Events)
	_ = json.Unmarshal([]byte(documents), &c.Documents)
	_ = json.Unmarshal([]byte(keywords), &c.Keywords)
	_ = json.Unmarshal([]byte(embedding), &c.Embedding)
	_ = json.Unmarshal([]byte(refs), &c.References)
	_ = json.Unmarshal([]byte(createdBy), &c.CreatedBy)
	c.CreatedDate, _ = time.Parse(time.RFC3339Nano, createdDate)
	return &c, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("case %s not found", id)
	}
	return nil
}
