package domain

import "time"

// ExportRecord is one line of the export ledger. It describes a finished
// download, not the edits that produced it.
type ExportRecord struct {
	ID            string
	FileName      string
	Format        string
	Quality       float64
	Width         int
	Height        int
	Bytes         int
	SourceBytes   int64
	ComputeTimeMS int64
	Location      string
	CreatedAt     time.Time
}
