package events

import (
	"encoding/json"
	"time"
)

const (
	TypePing               = "ping"
	TypeReferralsExtracted = "referrals_extracted"
	TypeIngestFailed       = "ingest_failed"
)

type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// FileResult is the payload of referrals_extracted and ingest_failed.
type FileResult struct {
	File   string `json:"file"`
	Source string `json:"source"` // batch | upload
	Count  int    `json:"count"`
	Error  string `json:"error,omitempty"`
}

func MakeEvent(reqID, typ string, v int, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:      typ,
		Version:   v,
		At:        time.Now().UTC(),
		RequestID: reqID,
		Data:      raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}
