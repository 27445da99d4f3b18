package model

import "time"

// ImportJob carries the state of one portal import through the pipeline.
// Each step reads what earlier steps produced and adds its own output.
//
// Design decision: the job holds the credential only until the session step has run.
// That step erases it, so later steps and any error report never see the secret.
type ImportJob struct {
	// Portal is the portal key, e.g. "thorne".
	Portal string

	// Credential is consumed and erased by the session step.
	Credential *Credential

	// RequestedDate is the local date label to import. Empty selects the latest report.
	RequestedDate string

	// StartedAt is when the job was created.
	StartedAt time.Time

	// Session is set once the login has been verified.
	Session *SessionToken

	// Reports is the fetched snapshot.
	Reports []RawReport

	// Selected is the report chosen for import.
	Selected *RawReport

	// SelectedDate is the local date label of Selected.
	SelectedDate string

	// Rows is the normalized output.
	Rows []NormalizedRow

	// Elements are read from the portal's results page by the scrape step.
	Elements []PageElement

	// Biomarkers are parsed from Elements.
	Biomarkers []Biomarker

	// PerformedSteps lists the steps that ran, in order.
	PerformedSteps []string

	// Err is the error that stopped the job, if any.
	Err error
}

// NewImportJob creates a job for the given portal and credential.
func NewImportJob(portal string, cred *Credential, requestedDate string) *ImportJob {
	return &ImportJob{
		Portal:        portal,
		Credential:    cred,
		RequestedDate: requestedDate,
		StartedAt:     time.Now(),
	}
}
