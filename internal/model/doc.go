// Package model defines the core data structures shared by biosnap's pipeline.
//
// This package contains the following main types:
//   - RawReport, Section, ResultItem: the portal's nested report as decoded from JSON
//   - NormalizedRow: one flattened row of a portal report
//   - LabResultRecord: one test result reconstructed from a lab PDF
//   - AvailableTest: a selectable report shown before import
//   - Credential, SessionToken: transient authentication material
//   - Table: ordered rows with a fixed column set, handed to writers
//   - AuthenticationError, AutomationError, NotFoundError, DocumentError: typed faults
//
// Models live in their own package so that browser, portal, normalize, labparse,
// redact and report can share them without import cycles.
package model
