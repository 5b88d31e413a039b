// Package attendance keeps the in-memory attendance table and writes it out as CSV.
package attendance

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mitchellh/colorstring"

	"github.com/ayusman/facecam/internal/log"
)

// CSV layout.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05.000000"
)

// Header is the first row of every attendance file.
var Header = []string{"Name", "Date", "Time"}

// Record is one attendance row.
type Record struct {
	Name string    `json:"name"`
	At   time.Time `json:"-"`
	Date string    `json:"date"`
	Time string    `json:"time"`
}

// NewRecord builds a record for name at the given instant.
func NewRecord(name string, at time.Time) Record {
	return Record{
		Name: name,
		At:   at,
		Date: at.Format(DateLayout),
		Time: at.Format(TimeLayout),
	}
}

// Row returns the record as a CSV row.
func (r Record) Row() []string {
	return []string{r.Name, r.Date, r.Time}
}

// Ledger accumulates attendance records in marking order.
type Ledger struct {
	records []Record
	console io.Writer
	now     func() time.Time
	onMark  []func(Record)
	mu      sync.RWMutex
}

// NewLedger creates an empty ledger that echoes to console. A nil console
// silences the coloured output; log lines are still written.
func NewLedger(console io.Writer) *Ledger {
	return &Ledger{
		console: console,
		now:     time.Now,
	}
}

// SetClock replaces the time source.
func (l *Ledger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// OnMark registers a callback invoked after each record is appended.
func (l *Ledger) OnMark(fn func(Record)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onMark = append(l.onMark, fn)
}

// Mark appends a record for name stamped with the current date and time.
func (l *Ledger) Mark(name string) Record {
	l.mu.Lock()
	rec := NewRecord(name, l.now())
	l.records = append(l.records, rec)
	callbacks := append([]func(Record){}, l.onMark...)
	l.mu.Unlock()

	log.Info("Marked attendance", "name", rec.Name, "date", rec.Date, "time", rec.Time)
	l.printf("[bold][green]Marked attendance for %s at %s on %s\n", rec.Name, rec.Time, rec.Date)

	for _, fn := range callbacks {
		fn(rec)
	}
	return rec
}

// Records returns a copy of the records in marking order.
func (l *Ledger) Records() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Record(nil), l.records...)
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Save writes the ledger to filename as CSV, replacing any existing file.
func (l *Ledger) Save(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create %s: %w", filename, err)
	}

	if err := WriteCSV(f, l.Records()); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filename, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filename, err)
	}

	log.Info("Saved attendance", "file", filename, "records", l.Len())
	l.printf("[bold][blue]Saved attendance to %s\n", filename)
	return nil
}

// Show prints the attendance table to w.
func (l *Ledger) Show(w io.Writer) {
	PrintTable(w, l.Records())
	log.Info("Displayed attendance")
}

func (l *Ledger) printf(format string, args ...any) {
	if l.console == nil {
		return
	}
	colorstring.Fprintf(l.console, format, args...)
}

// WriteCSV writes the header followed by one row per record.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(r.Row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
