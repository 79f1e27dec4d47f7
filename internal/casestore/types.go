// Package casestore persists patent cases, their analysis artifacts, and
// similarity alerts in SQLite.
package casestore

import "time"

// Document is one retrievable text source attached to a case. Source labels
// where the URL came from (pgpub, grant, upload) so readers can pick the
// right extraction path.
type Document struct {
	URL    string `json:"url"`
	Source string `json:"source,omitempty"`
}

// Contact is one way to reach an attorney of record.
type Contact struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// Attorney is an active practitioner on a case's customer number.
type Attorney struct {
	Name               string    `json:"name"`
	RegistrationNumber string    `json:"registrationNumber,omitempty"`
	Contacts           []Contact `json:"contacts,omitempty"`
}

// Address is a flattened mailing address line set.
type Address struct {
	Line string `json:"line"`
	City string `json:"city,omitempty"`
}

// Event is one prosecution history entry.
type Event struct {
	Code        string `json:"code,omitempty"`
	Description string `json:"description"`
	Date        string `json:"date,omitempty"`
}

// Reference links a case to a similar document found during analysis.
// SimilarityRate is the absolute cosine similarity, or -1 when the pair
// could not be scored.
type Reference struct {
	URL            string  `json:"url"`
	Title          string  `json:"title,omitempty"`
	GrantedDate    string  `json:"grantedDate,omitempty"`
	SimilarityRate float64 `json:"similarityRate"`
}

// Case is the unit of work: a patent filing (imported from the registry or
// created locally) plus everything analysis derives from it.
type Case struct {
	ID                string      `json:"id"`
	Title             string      `json:"title"`
	Status            string      `json:"status,omitempty"`
	StatusCode        int         `json:"statusCode,omitempty"`
	StatusDate        string      `json:"statusDate,omitempty"`
	Description       string      `json:"description,omitempty"`
	FilingDate        string      `json:"filingDate,omitempty"`
	Inventors         []string    `json:"inventors,omitempty"`
	Attorneys         []Attorney  `json:"attorneys,omitempty"`
	MailingAddresses  []Address   `json:"mailingAddresses,omitempty"`
	Events            []Event     `json:"events,omitempty"`
	Documents         []Document  `json:"documents,omitempty"`
	Keywords          []string    `json:"keywords,omitempty"`
	Embedding         []float64   `json:"embedding,omitempty"`
	References        []Reference `json:"references,omitempty"`
	Report            string      `json:"report,omitempty"`
	Summary           string      `json:"summary,omitempty"`
	CreatedBy         []string    `json:"createdBy,omitempty"`
	CreatedDate       time.Time   `json:"createdDate"`
}

// Alert records that a newly analyzed case crossed the similarity threshold
// against an existing one, naming who should hear about it.
type Alert struct {
	ID             string    `json:"id"`
	CaseID         string    `json:"caseId"`
	SimilarCaseID  string    `json:"similarCaseId"`
	SimilarityRate float64   `json:"similarityRate"`
	Recipients     []string  `json:"recipients,omitempty"`
	CreatedDate    time.Time `json:"createdDate"`
}
