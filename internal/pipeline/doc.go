// Package pipeline provides a framework for executing import steps in sequence
// and for processing many documents concurrently.
//
// A portal import runs as a Pipeline of Steps over a model.ImportJob: acquire a
// session, fetch the report snapshot, select a report by local date, and
// normalize it into rows. Each step reads what earlier steps stored on the job.
// BiomarkerPipeline swaps the first steps for a scrape of the portal's results
// page and parses the page into biomarker rows.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because it gives every stage the same logging, error recording and
// cancellation checks, and lets the listing command reuse the first two steps.
//
// Documents given to extract or redact are independent of each other, so they
// go through a BatchProcessor with concurrency control using errgroup instead.
package pipeline
