// Package export renders list views as CSV or the tab-separated "Excel"
// variant.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	appErrors "vltd-dashboard/pkg/errors"
)

type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatExcel, "xls", "tsv":
		return FormatExcel, nil
	default:
		return "", appErrors.Validation(fmt.Sprintf("Unsupported export format %q", s))
	}
}

func (f Format) ContentType() string {
	if f == FormatExcel {
		return "application/vnd.ms-excel"
	}
	return "text/csv; charset=utf-8"
}

func (f Format) Extension() string {
	if f == FormatExcel {
		return "xls"
	}
	return "csv"
}

// Filename builds e.g. "devices_2024-05-01.csv".
func Filename(base string, f Format, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", base, now.Format("2006-01-02"), f.Extension())
}

// Table is a header row plus data rows of equal width.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Write renders t in format f.
func Write(w io.Writer, f Format, t Table) error {
	bw := bufio.NewWriter(w)
	var err error
	switch f {
	case FormatExcel:
		err = writeTSV(bw, t)
	default:
		err = writeCSV(bw, t)
	}
	if err != nil {
		return err
	}
	return bw.Flush()
}

// writeCSV quotes every field and doubles embedded quotes; lines end in CRLF.
func writeCSV(w *bufio.Writer, t Table) error {
	write := func(row []string) error {
		for i, field := range row {
			if i > 0 {
				if err := w.WriteByte(','); err != nil {
					return err
				}
			}
			if _, err := w.WriteString(`"` + strings.ReplaceAll(field, `"`, `""`) + `"`); err != nil {
				return err
			}
		}
		_, err := w.WriteString("\r\n")
		return err
	}

	if err := write(t.Headers); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := write(row); err != nil {
			return err
		}
	}
	return nil
}

var tsvCleaner = strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ", "\r", " ")

func writeTSV(w *bufio.Writer, t Table) error {
	write := func(row []string) error {
		cleaned := make([]string, len(row))
		for i, field := range row {
			cleaned[i] = tsvCleaner.Replace(field)
		}
		_, err := w.WriteString(strings.Join(cleaned, "\t") + "\n")
		return err
	}

	if err := write(t.Headers); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := write(row); err != nil {
			return err
		}
	}
	return nil
}
