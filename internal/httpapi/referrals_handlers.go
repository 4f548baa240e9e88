package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"referral-engine/internal/extract"
	"referral-engine/internal/metrics"
	"referral-engine/internal/poll"
	"referral-engine/internal/store"
)

type ReferralsHandler struct {
	Ingestor *poll.Ingestor
	Files    *store.Files
	Metrics  *metrics.Metrics
	Limiter  *ClientLimiter
	MaxBytes int64
}

// Upload accepts a multipart "file", saves it to the input folder and returns
// the referrals found in it.
func (h ReferralsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if !h.Limiter.Allow(clientHost(r)) {
		WriteError(w, r, http.StatusTooManyRequests, codeRateLimited, "too many uploads, try again shortly")
		return
	}
	if h.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, r, http.StatusRequestEntityTooLarge, codeTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		WriteError(w, r, http.StatusUnprocessableEntity, codeMissingFile, `multipart field "file" is required`)
		return
	}
	defer file.Close()

	name, ok := uploadName(header.Filename)
	if !ok {
		WriteError(w, r, http.StatusBadRequest, codeInvalidFilename, fmt.Sprintf("invalid filename %q", header.Filename))
		return
	}

	b, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, codeIO, err.Error())
		return
	}

	recs, err := h.Ingestor.IngestOne(r.Context(), RequestIDFrom(r.Context()), name, b)
	if errors.Is(err, extract.ErrDecode) {
		WriteError(w, r, http.StatusUnprocessableEntity, codeDecode, err.Error())
		return
	}
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, codeIO, err.Error())
		return
	}

	if len(recs) == 0 {
		writeJSON(w, uploadResponse{Message: "No referrals found."})
		return
	}
	writeJSON(w, uploadResponse{
		Message: fmt.Sprintf("Extracted %d referrals.", len(recs)),
		Data:    recs,
	})
}

// Search matches ?query= against the message of every saved referral.
func (h ReferralsHandler) Search(w http.ResponseWriter, r *http.Request) {
	vals, ok := r.URL.Query()["query"]
	if !ok {
		WriteError(w, r, http.StatusUnprocessableEntity, codeMissingQuery, `query parameter "query" is required`)
		return
	}
	// a repeated parameter binds to its last value
	query := vals[len(vals)-1]

	results, err := h.Files.Search(r.Context(), query)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, codeIO, err.Error())
		return
	}
	h.Metrics.ObserveSearch()
	writeJSON(w, searchResponse{Query: query, Results: results})
}

// uploadName keeps only the last path element of a client-supplied filename.
func uploadName(raw string) (string, bool) {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(raw), `\`, "/"))
	switch name {
	case "", ".", "..", "/":
		return "", false
	}
	return name, true
}
