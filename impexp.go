package coinfolio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// this file contains functions to handle the export and backup file formats.
// Both are single indented JSON documents, readable and editable by hand.

// ExportFile is the export format: the portfolio and its total live value.
type ExportFile struct {
	Portfolio  []Holding `json:"portfolio"`
	ExportDate time.Time `json:"exportDate"`
	TotalValue Money     `json:"totalValue"`
}

// BackupSettings are the settings saved in a backup.
//
// A nil DarkMode means the setting was absent from the file.
type BackupSettings struct {
	DarkMode *bool `json:"darkMode,omitempty"`
}

// BackupFile is the backup format: the full restorable state.
//
// When read by [Restore], a nil Portfolio, Alerts or Settings means the key
// was absent from the file, and the corresponding state must be left untouched.
type BackupFile struct {
	Portfolio  []Holding       `json:"portfolio"`
	Alerts     []PriceAlert    `json:"alerts"`
	Settings   *BackupSettings `json:"settings,omitempty"`
	BackupDate time.Time       `json:"backupDate"`
}

// ExportFilename returns the export file name for 'now', e.g. crypto-portfolio-2025-01-31.json.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("crypto-portfolio-%s.json", now.Format(time.DateOnly))
}

// BackupFilename returns the backup file name for 'now', e.g. crypto-backup-2025-01-31.json.
func BackupFilename(now time.Time) string {
	return fmt.Sprintf("crypto-backup-%s.json", now.Format(time.DateOnly))
}

// Export writes the portfolio to 'w' in the export format.
func Export(w io.Writer, p *Portfolio, totalValue Money, now time.Time) error {
	f := ExportFile{
		Portfolio:  nonNil(p.Holdings()),
		ExportDate: now.UTC(),
		TotalValue: totalValue,
	}
	return writeIndented(w, f)
}

// Backup writes the full state to 'w' in the backup format.
func Backup(w io.Writer, p *Portfolio, a *Alerts, darkMode bool, now time.Time) error {
	f := BackupFile{
		Portfolio:  nonNil(p.Holdings()),
		Alerts:     nonNil(a.List()),
		Settings:   &BackupSettings{DarkMode: &darkMode},
		BackupDate: now.UTC(),
	}
	return writeIndented(w, f)
}

// Restore reads a backup file from 'r'.
//
// The content is fully validated: holdings must have an id, a positive amount
// and a positive price; alert ids must be unique. Any failure is an [ErrFormat].
func Restore(r io.Reader) (BackupFile, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return BackupFile{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if b := bytes.TrimSpace(raw); len(b) == 0 || b[0] != '{' {
		return BackupFile{}, fmt.Errorf("%w: expected a JSON object", ErrFormat)
	}
	var f BackupFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return BackupFile{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if f.Portfolio != nil {
		p, err := NewPortfolio(f.Portfolio...)
		if err != nil {
			return BackupFile{}, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		f.Portfolio = nonNil(p.Holdings())
	}
	if f.Alerts != nil {
		if _, err := NewAlerts(f.Alerts...); err != nil {
			return BackupFile{}, fmt.Errorf("%w: %v", ErrFormat, err)
		}
	}
	return f, nil
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// nonNil makes sure empty lists are written as [] and not null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
