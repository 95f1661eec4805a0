// Package export renders QSO streams into the ADIF interchange format and
// CSV. Encoders are lazy: they pull one record at a time from the source
// and never reorder it.
package export

import (
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/dmitrijs2005/qsolog/internal/common"
	"github.com/dmitrijs2005/qsolog/internal/server/models"
)

// Format names a supported export format.
type Format string

const (
	FormatADIF Format = "adif"
	FormatCSV  Format = "csv"
)

// ParseFormat converts a query value into a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatADIF:
		return FormatADIF, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unsupported export format %q: %w", s, common.ErrorValidation)
}

// Extension returns the file extension used for the format.
func (f Format) Extension() string {
	if f == FormatCSV {
		return "csv"
	}
	return "adi"
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}

// Codec renders the fixed header and individual records of one format.
type Codec interface {
	Header() string
	Record(q *models.Qso) string
}

// CodecFor returns the codec of f.
func CodecFor(f Format) Codec {
	if f == FormatCSV {
		return csvCodec{}
	}
	return adifCodec{}
}

// Encode yields the codec header followed by one chunk per source record.
// A source error is yielded once and ends the stream. Stopping iteration
// early stops the source as well.
func Encode(c Codec, src iter.Seq2[*models.Qso, error]) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if !yield(c.Header(), nil) {
			return
		}
		for q, err := range src {
			if err != nil {
				yield("", err)
				return
			}
			if !yield(c.Record(q), nil) {
				return
			}
		}
	}
}

// ADIF encodes src as an ADIF document.
func ADIF(src iter.Seq2[*models.Qso, error]) iter.Seq2[string, error] {
	return Encode(adifCodec{}, src)
}

// CSV encodes src as a CSV document with a header row.
func CSV(src iter.Seq2[*models.Qso, error]) iter.Seq2[string, error] {
	return Encode(csvCodec{}, src)
}

// WriteTo drains chunks into w and returns the number of bytes written.
func WriteTo(w io.Writer, chunks iter.Seq2[string, error]) (int64, error) {
	var total int64
	for chunk, err := range chunks {
		if err != nil {
			return total, err
		}
		n, err := io.WriteString(w, chunk)
		total += int64(n)
		if err != nil {
			return total, fmt.Errorf("write export chunk: %w", err)
		}
	}
	return total, nil
}
