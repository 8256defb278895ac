// Package model holds the log record types and API payload shapes shared by
// the server, the store and the client SDK.
package model

import (
	"encoding/json"
	"time"
)

// Defaults applied to submitted log entries when the caller omits a field.
const (
	DefaultService = "Unknown"
	DefaultLevel   = "INFO"
	DefaultServer  = "Server-1"
)

// Timestamp is a log timestamp as transported over the API. Callers may send
// either an ISO-8601 string or an epoch-milliseconds number; both decode into
// the string form so records round-trip unchanged.
type Timestamp string

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Timestamp(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*t = Timestamp(n.String())
	return nil
}

// LogEntry is a single stored log record.
type LogEntry struct {
	Timestamp Timestamp `json:"timestamp"`
	Service   string    `json:"service"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Server    string    `json:"server"`
	TraceID   string    `json:"trace_id"`
}

// SubmitLogRequest is the POST /api/logs payload. The legacy alias fields
// service_name, log_level and server_id are accepted alongside the canonical
// names; canonical names win when both are present.
type SubmitLogRequest struct {
	Timestamp   Timestamp `json:"timestamp"`
	Service     string    `json:"service"`
	ServiceName string    `json:"service_name"`
	Level       string    `json:"level"`
	LogLevel    string    `json:"log_level"`
	Message     string    `json:"message"`
	Server      string    `json:"server"`
	ServerID    string    `json:"server_id"`
	TraceID     string    `json:"trace_id"`
}

// Entry normalizes the request into a LogEntry, resolving aliases and
// filling defaults. now stamps entries submitted without a timestamp.
func (r *SubmitLogRequest) Entry(now time.Time) LogEntry {
	e := LogEntry{
		Timestamp: r.Timestamp,
		Service:   firstNonEmpty(r.Service, r.ServiceName, DefaultService),
		Level:     firstNonEmpty(r.Level, r.LogLevel, DefaultLevel),
		Message:   r.Message,
		Server:    firstNonEmpty(r.Server, r.ServerID, DefaultServer),
		TraceID:   r.TraceID,
	}
	if e.Timestamp == "" {
		e.Timestamp = Timestamp(now.Format(time.RFC3339))
	}
	return e
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
