// Package database provides the SQLite-based run ledger for biosnap.
//
// The Ledger records one row per import, listing, extraction or redaction:
// when it ran, what it read, how many rows it wrote and the SHA3-256 digest of
// the output. Report contents and credentials are never stored; the digest is
// enough to tie an output file back to its run.
//
// Design decision: We use SQLite (via modernc.org/sqlite) because the ledger
// is a single local file and the CGO-free driver keeps cross-compilation easy.
package database
