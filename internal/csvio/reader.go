// Package csvio reads transaction records from CSV and writes the final
// account table back out as CSV.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/ledger-engine/internal/ledger"
)

// AmountPlaces is the number of fractional digits kept on input and printed on
// output. Extra input digits are truncated.
const AmountPlaces = 4

var (
	// ErrInvalidEncoding reports bytes that are not valid UTF-8.
	ErrInvalidEncoding = errors.New("input is not valid utf-8")

	// ErrMalformedRecord reports a row that cannot be turned into a record.
	ErrMalformedRecord = errors.New("malformed record")
)

var inputHeader = []string{"type", "client", "tx", "amount"}

// plainDecimal accepts an optional sign and digits with an optional fraction.
// Exponent notation is rejected.
var plainDecimal = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// ParseError is a fatal input error tied to a line of the source.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Reader yields records from CSV text with the header `type, client, tx, amount`.
// It reads lazily and cannot be rewound.
type Reader struct {
	csv        *csv.Reader
	headerRead bool
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	return &Reader{csv: cr}
}

// Next returns the next record, io.EOF at the end of input, or a *ParseError.
func (r *Reader) Next() (ledger.Record, error) {
	if !r.headerRead {
		if err := r.readHeader(); err != nil {
			return ledger.Record{}, err
		}
		r.headerRead = true
	}

	fields, err := r.csv.Read()
	if errors.Is(err, io.EOF) {
		return ledger.Record{}, io.EOF
	}
	if err != nil {
		return ledger.Record{}, readError(err)
	}

	line, _ := r.csv.FieldPos(0)
	rec, err := parseRecord(fields)
	if err != nil {
		return ledger.Record{}, &ParseError{Line: line, Err: err}
	}
	return rec, nil
}

func (r *Reader) readHeader() error {
	fields, err := r.csv.Read()
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	if err != nil {
		return readError(err)
	}
	if len(fields) != len(inputHeader) {
		return &ParseError{Line: 1, Err: fmt.Errorf("%w: header must be %q", ErrMalformedRecord, strings.Join(inputHeader, ", "))}
	}
	for i, name := range inputHeader {
		if !strings.EqualFold(strings.TrimSpace(fields[i]), name) {
			return &ParseError{Line: 1, Err: fmt.Errorf("%w: header column %d is %q, want %q", ErrMalformedRecord, i+1, fields[i], name)}
		}
	}
	return nil
}

func readError(err error) error {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return &ParseError{Line: csvErr.Line, Err: fmt.Errorf("%w: %v", ErrMalformedRecord, csvErr.Err)}
	}
	return err
}

func parseRecord(fields []string) (ledger.Record, error) {
	if len(fields) != len(inputHeader) {
		return ledger.Record{}, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedRecord, len(inputHeader), len(fields))
	}
	for i := range fields {
		if !utf8.ValidString(fields[i]) {
			return ledger.Record{}, ErrInvalidEncoding
		}
		fields[i] = strings.TrimSpace(fields[i])
	}

	kind, err := ledger.ParseKind(fields[0])
	if err != nil {
		return ledger.Record{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	client, err := strconv.ParseUint(fields[1], 10, 16)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("%w: client %q: %v", ErrMalformedRecord, fields[1], numError(err))
	}
	tx, err := strconv.ParseUint(fields[2], 10, 32)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("%w: tx %q: %v", ErrMalformedRecord, fields[2], numError(err))
	}

	rec := ledger.Record{Kind: kind, Client: ledger.ClientID(client), Tx: ledger.TxID(tx)}

	amount := fields[3]
	if amount == "" {
		if kind == ledger.Deposit || kind == ledger.Withdrawal {
			return ledger.Record{}, fmt.Errorf("%w: %s requires an amount", ErrMalformedRecord, kind)
		}
		return rec, nil
	}
	if !plainDecimal.MatchString(amount) {
		return ledger.Record{}, fmt.Errorf("%w: amount %q is not a plain decimal", ErrMalformedRecord, amount)
	}
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("%w: amount %q is not a decimal", ErrMalformedRecord, amount)
	}
	rec.Amount = value.Truncate(AmountPlaces)
	return rec, nil
}

func numError(err error) error {
	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return numErr.Err
	}
	return err
}
