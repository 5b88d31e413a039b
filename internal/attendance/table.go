package attendance

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mitchellh/colorstring"
)

// ErrBadHeader is returned when a file does not start with Name,Date,Time.
var ErrBadHeader = errors.New("attendance file has an unexpected header")

// Load reads an attendance CSV written by Save.
func Load(filename string) ([]Record, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadCSV(f)
}

// ReadCSV parses attendance rows, validating the header.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrBadHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, col := range Header {
		if strings.TrimSpace(header[i]) != col {
			return nil, fmt.Errorf("%w: %v", ErrBadHeader, header)
		}
	}

	var records []Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		rec := Record{Name: row[0], Date: row[1], Time: row[2]}
		if at, err := time.ParseInLocation(DateLayout+" "+TimeLayout, row[1]+" "+row[2], time.Local); err == nil {
			rec.At = at
		}
		records = append(records, rec)
	}
	return records, nil
}

// PrintTable writes records as an aligned table in magenta.
func PrintTable(w io.Writer, records []Record) {
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "\t"+strings.Join(Header, "\t"))
	for i, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i, r.Name, r.Date, r.Time)
	}
	tw.Flush()

	if len(records) == 0 {
		sb.WriteString("(no attendance recorded)\n")
	}

	// Names come from file names, so they are kept out of colour markup.
	fmt.Fprint(w, tableColor.Color("[bold][magenta]")+sb.String()+colorstring.Color("[reset]"))
}

var tableColor = &colorstring.Colorize{Colors: colorstring.DefaultColors}
