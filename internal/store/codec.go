package store

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"referral-engine/internal/domain"
)

// EncodeJSON writes records as a JSON array indented with four spaces and no
// trailing newline. Non-ASCII text is written as UTF-8, not escaped.
func EncodeJSON(w io.Writer, recs []domain.Referral) error {
	if recs == nil {
		recs = []domain.Referral{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(recs); err != nil {
		return err
	}
	_, err := w.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	return err
}

// EncodeCSV writes a header row and one CRLF-terminated row per record.
func EncodeCSV(w io.Writer, recs []domain.Referral) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.Write(domain.CSVHeader); err != nil {
		return err
	}
	for _, r := range recs {
		if err := cw.Write(r.CSVRow()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func DecodeJSON(r io.Reader) ([]domain.Referral, error) {
	var recs []domain.Referral
	if err := json.NewDecoder(r).Decode(&recs); err != nil {
		return nil, fmt.Errorf("decode referrals: %w", err)
	}
	return recs, nil
}
