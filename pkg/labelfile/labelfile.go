// Package labelfile reads and writes the flat, one-record-per-line label format:
//
//	<int class> <float cx> <float cy> <float w> <float h>
//
// Coordinates are center-based and normalized to the image width and height.
package labelfile

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/menta2k/image-labeler/pkg/types"
)

// DefaultExt is the extension of the label file sitting next to an image
const DefaultExt = ".txt"

const fieldCount = 5

// Parse reads records from r. Malformed lines of any length are skipped and
// reported in the returned error slice; they never abort the parse. A read
// failure from r is appended last.
func Parse(r io.Reader) ([]types.Record, []error) {
	var records []types.Record
	var errs []error

	br := bufio.NewReader(r)
	lineNo := 0
	for {
		raw, readErr := br.ReadString('\n')
		if raw != "" {
			lineNo++
			if line := strings.TrimSpace(raw); line != "" {
				rec, err := parseLine(line)
				if err != nil {
					errs = append(errs, &types.MalformedRecordError{Line: lineNo, Text: excerpt(line), Err: err})
				} else {
					records = append(records, rec)
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			errs = append(errs, fmt.Errorf("failed to read label data: %w", readErr))
			break
		}
	}
	return records, errs
}

const maxExcerpt = 80

// excerpt shortens a rejected line for error messages
func excerpt(line string) string {
	if len(line) <= maxExcerpt {
		return line
	}
	return line[:maxExcerpt] + "..."
}

// ParseString is Parse over in-memory file content
func ParseString(text string) ([]types.Record, []error) {
	return Parse(strings.NewReader(text))
}

func parseLine(line string) (types.Record, error) {
	parts := strings.Fields(line)
	if len(parts) != fieldCount {
		return types.Record{}, fmt.Errorf("expected %d fields, got %d", fieldCount, len(parts))
	}

	class, err := strconv.Atoi(parts[0])
	if err != nil {
		return types.Record{}, fmt.Errorf("invalid class %q", parts[0])
	}

	var vals [4]float64
	for i := range vals {
		v, err := strconv.ParseFloat(parts[i+1], 64)
		if err != nil {
			return types.Record{}, fmt.Errorf("invalid number %q", parts[i+1])
		}
		vals[i] = v
	}

	return types.Record{Class: class, CX: vals[0], CY: vals[1], W: vals[2], H: vals[3]}, nil
}

// Format writes records to w, one per line with six decimal digits
func Format(w io.Writer, records []types.Record) error {
	bw := bufio.NewWriter(w)
	for _, r := range records {
		if _, err := fmt.Fprintf(bw, "%d %.6f %.6f %.6f %.6f\n", r.Class, r.CX, r.CY, r.W, r.H); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// FormatString renders records as label file content
func FormatString(records []types.Record) string {
	var sb strings.Builder
	_ = Format(&sb, records)
	return sb.String()
}

// PathFor derives the label file path of an image: same path, extension replaced
func PathFor(imagePath, ext string) string {
	if ext == "" {
		ext = DefaultExt
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + ext
}
