package attendance

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestLedger_Mark(t *testing.T) {
	var console bytes.Buffer
	l := NewLedger(&console)
	at := time.Date(2024, 3, 5, 9, 7, 3, 123456000, time.Local)
	l.SetClock(fixedClock(at))

	rec := l.Mark("alice")

	if rec.Name != "alice" {
		t.Errorf("Name = %q, want alice", rec.Name)
	}
	if rec.Date != "2024-03-05" {
		t.Errorf("Date = %q, want 2024-03-05", rec.Date)
	}
	if rec.Time != "09:07:03.123456" {
		t.Errorf("Time = %q, want 09:07:03.123456", rec.Time)
	}
	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}
	if !strings.Contains(console.String(), "Marked attendance for alice at 09:07:03.123456 on 2024-03-05") {
		t.Errorf("console output = %q", console.String())
	}
}

func TestLedger_MarkKeepsOrderAndDuplicates(t *testing.T) {
	l := NewLedger(nil)

	names := []string{"alice", "Unknown", "alice", "bob"}
	for _, n := range names {
		l.Mark(n)
	}

	records := l.Records()
	if len(records) != len(names) {
		t.Fatalf("got %d records, want %d", len(records), len(names))
	}
	for i, n := range names {
		if records[i].Name != n {
			t.Errorf("records[%d].Name = %q, want %q", i, records[i].Name, n)
		}
	}

	// Records returns a copy.
	records[0].Name = "mallory"
	if l.Records()[0].Name != "alice" {
		t.Error("Records() should return a copy")
	}
}

func TestLedger_OnMark(t *testing.T) {
	l := NewLedger(nil)

	var got []string
	l.OnMark(func(r Record) { got = append(got, r.Name) })

	l.Mark("alice")
	l.Mark("bob")

	if strings.Join(got, ",") != "alice,bob" {
		t.Errorf("callback names = %v, want [alice bob]", got)
	}
}

func TestLedger_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "attendance.csv")

	var console bytes.Buffer
	l := NewLedger(&console)
	at := time.Date(2024, 3, 5, 9, 7, 3, 0, time.Local)
	l.SetClock(fixedClock(at))
	l.Mark("alice")
	l.Mark("Smith, John")

	if err := l.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	want := "Name,Date,Time\n" +
		"alice,2024-03-05,09:07:03.000000\n" +
		"\"Smith, John\",2024-03-05,09:07:03.000000\n"
	if string(data) != want {
		t.Errorf("saved file =\n%s\nwant\n%s", data, want)
	}
	if !strings.Contains(console.String(), "Saved attendance to "+path) {
		t.Errorf("console output = %q", console.String())
	}

	records, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 2 || records[1].Name != "Smith, John" {
		t.Fatalf("Load() = %+v", records)
	}
	if !records[0].At.Equal(at) {
		t.Errorf("At = %v, want %v", records[0].At, at)
	}
}

func TestLedger_SaveEmptyWritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance.csv")

	if err := NewLedger(nil).Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if string(data) != "Name,Date,Time\n" {
		t.Errorf("saved file = %q, want header only", data)
	}
}

func TestLedger_SaveBadPath(t *testing.T) {
	err := NewLedger(nil).Save(filepath.Join(t.TempDir(), "missing", "attendance.csv"))
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestLedger_ConcurrentMark(t *testing.T) {
	l := NewLedger(nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Mark("alice")
			_ = l.Records()
		}()
	}
	wg.Wait()

	if l.Len() != 20 {
		t.Errorf("Len() = %d, want 20", l.Len())
	}
}

func TestReadCSV_BadHeader(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"wrong columns", "Who,When,Where\nalice,a,b\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			if !errors.Is(err, ErrBadHeader) {
				t.Errorf("expected ErrBadHeader, got %v", err)
			}
		})
	}
}

func TestReadCSV_ShortRow(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("Name,Date,Time\nalice,2024-01-01\n"))
	if err == nil {
		t.Fatal("expected error for short row")
	}
}

func TestShow(t *testing.T) {
	l := NewLedger(nil)
	l.SetClock(fixedClock(time.Date(2024, 3, 5, 9, 0, 0, 0, time.Local)))
	l.Mark("[admin]")

	var out bytes.Buffer
	l.Show(&out)

	s := out.String()
	for _, want := range []string{"Name", "Date", "Time", "[admin]", "2024-03-05"} {
		if !strings.Contains(s, want) {
			t.Errorf("table missing %q:\n%s", want, s)
		}
	}
}

func TestPrintTable_Empty(t *testing.T) {
	var out bytes.Buffer
	PrintTable(&out, nil)

	if !strings.Contains(out.String(), "no attendance recorded") {
		t.Errorf("empty table output = %q", out.String())
	}
}
