// Package report exports scan results as CSV, JSON or PDF.
package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"time"

	"github.com/luinbytes/dupesort/dupes"
	"github.com/luinbytes/dupesort/scanner"
)

// Version is the JSON report format version.
const Version = "1"

// WriteCSV writes one (hash, path) row per file in set, after a header row.
func WriteCSV(w io.Writer, set *dupes.Set) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Hash", "File Path"}); err != nil {
		return err
	}
	for _, g := range set.Groups() {
		for _, p := range g.Paths {
			if err := cw.Write([]string{string(g.Fingerprint), p}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// Group is one duplicate group in a JSON report.
type Group struct {
	Hash  string   `json:"hash"`
	Size  int64    `json:"size,omitempty"`
	Files []string `json:"files"`
}

// Report is the JSON document written by WriteJSON.
type Report struct {
	Version        string    `json:"version"`
	GeneratedAt    time.Time `json:"generated_at"`
	Root           string    `json:"root"`
	Status         string    `json:"status"`
	FilesScanned   int       `json:"files_scanned"`
	FilesFailed    int       `json:"files_failed"`
	DuplicateCount int       `json:"duplicate_count"`
	Reclaimable    int64     `json:"reclaimable_bytes"`
	Groups         []Group   `json:"groups"`
}

// Build assembles a report for res. When st is non-nil each group's size is
// taken from the first of its files that still exists.
func Build(ctx context.Context, st dupes.Stater, res *scanner.Result, now time.Time) Report {
	r := Report{
		Version:        Version,
		GeneratedAt:    now,
		Root:           res.Root,
		Status:         res.Status.String(),
		FilesScanned:   res.Hashed,
		FilesFailed:    res.Failed,
		DuplicateCount: res.Set.Redundant(),
		Groups:         make([]Group, 0, res.Set.Len()),
	}

	for _, g := range res.Set.Groups() {
		rg := Group{Hash: string(g.Fingerprint), Files: g.Paths}
		if st != nil {
			for _, p := range g.Paths {
				if info, err := st.Stat(ctx, p); err == nil {
					rg.Size = info.Size
					break
				}
			}
		}
		r.Reclaimable += rg.Size * int64(len(g.Paths)-1)
		r.Groups = append(r.Groups, rg)
	}
	return r
}

// WriteJSON writes r as indented JSON.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
