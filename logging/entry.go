package logging

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	lg "google.golang.org/api/logging/v2"
)

// Log entry severities, least to most severe.
const (
	Default   = "DEFAULT"
	Debug     = "DEBUG"
	Info      = "INFO"
	Notice    = "NOTICE"
	Warning   = "WARNING"
	Error     = "ERROR"
	Critical  = "CRITICAL"
	Alert     = "ALERT"
	Emergency = "EMERGENCY"
)

// Resource is the monitored resource an entry originated from: the
// compute environment (GAE, GKE, GCE, or "global") plus its identifying
// labels.
type Resource struct {
	Type   string            `json:"type"`
	Labels map[string]string `json:"labels,omitempty"`
}

// GlobalResource is the resource for entries not tied to a specific
// compute environment.
func GlobalResource(projectID string) *Resource {
	return &Resource{
		Type:   "global",
		Labels: map[string]string{"project_id": projectID},
	}
}

func (r *Resource) proto() *lg.MonitoredResource {
	if r == nil {
		return nil
	}
	return &lg.MonitoredResource{Type: r.Type, Labels: r.Labels}
}

func resourceFromProto(pr *lg.MonitoredResource) *Resource {
	if pr == nil {
		return nil
	}
	return &Resource{Type: pr.Type, Labels: pr.Labels}
}

// HTTPRequest carries the request context of an entry logged while
// serving HTTP.
type HTTPRequest struct {
	Method    string `json:"method,omitempty"`
	URL       string `json:"url,omitempty"`
	Status    int64  `json:"status,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	RemoteIP  string `json:"remote_ip,omitempty"`
}

// Operation groups entries that belong to one long-running operation.
type Operation struct {
	ID       string `json:"id,omitempty"`
	Producer string `json:"producer,omitempty"`
	First    bool   `json:"first,omitempty"`
	Last     bool   `json:"last,omitempty"`
}

// Entry is a single log entry. Payload is either a string (text payload)
// or any JSON-marshalable value (JSON payload). The zero Timestamp lets
// the service stamp the entry on receipt.
type Entry struct {
	// LogID is the short log name, e.g. "syslog" or "my_app_log". The
	// full projects/<p>/logs/<id> form is built on write and stripped
	// back on read.
	LogID     string
	Resource  *Resource
	Timestamp time.Time
	Severity  string
	InsertID  string
	Labels    map[string]string
	Payload   interface{}
	HTTP      *HTTPRequest
	Operation *Operation
	Trace     string
}

// LogName renders the fully-qualified log name for a project, URL-escaping
// the log id as the API requires.
func LogName(projectID, logID string) string {
	return fmt.Sprintf("projects/%s/logs/%s", projectID, url.PathEscape(logID))
}

func logIDFromName(name string) string {
	i := strings.Index(name, "/logs/")
	if i < 0 {
		return name
	}
	id, err := url.PathUnescape(name[i+len("/logs/"):])
	if err != nil {
		return name[i+len("/logs/"):]
	}
	return id
}

func (e *Entry) proto(projectID string) (*lg.LogEntry, error) {
	pe := &lg.LogEntry{
		Resource: e.Resource.proto(),
		Severity: e.Severity,
		InsertId: e.InsertID,
		Labels:   e.Labels,
		Trace:    e.Trace,
	}
	if e.LogID != "" {
		pe.LogName = LogName(projectID, e.LogID)
	}
	if !e.Timestamp.IsZero() {
		pe.Timestamp = e.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	switch p := e.Payload.(type) {
	case nil:
	case string:
		pe.TextPayload = p
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("logging: cannot marshal payload: %w", err)
		}
		pe.JsonPayload = googleapi.RawMessage(b)
	}
	if e.HTTP != nil {
		pe.HttpRequest = &lg.HttpRequest{
			RequestMethod: e.HTTP.Method,
			RequestUrl:    e.HTTP.URL,
			Status:        e.HTTP.Status,
			UserAgent:     e.HTTP.UserAgent,
			RemoteIp:      e.HTTP.RemoteIP,
		}
	}
	if e.Operation != nil {
		pe.Operation = &lg.LogEntryOperation{
			Id:       e.Operation.ID,
			Producer: e.Operation.Producer,
			First:    e.Operation.First,
			Last:     e.Operation.Last,
		}
	}
	return pe, nil
}

func entryFromProto(pe *lg.LogEntry) (*Entry, error) {
	e := &Entry{
		LogID:    logIDFromName(pe.LogName),
		Resource: resourceFromProto(pe.Resource),
		Severity: pe.Severity,
		InsertID: pe.InsertId,
		Labels:   pe.Labels,
		Trace:    pe.Trace,
	}
	if pe.Timestamp != "" {
		t, err := time.Parse(time.RFC3339Nano, pe.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("logging: bad timestamp %q: %w", pe.Timestamp, err)
		}
		e.Timestamp = t
	}
	switch {
	case pe.TextPayload != "":
		e.Payload = pe.TextPayload
	case len(pe.JsonPayload) > 0:
		var payload map[string]interface{}
		if err := json.Unmarshal(pe.JsonPayload, &payload); err != nil {
			return nil, fmt.Errorf("logging: bad json payload: %w", err)
		}
		e.Payload = payload
	}
	if pe.HttpRequest != nil {
		e.HTTP = &HTTPRequest{
			Method:    pe.HttpRequest.RequestMethod,
			URL:       pe.HttpRequest.RequestUrl,
			Status:    pe.HttpRequest.Status,
			UserAgent: pe.HttpRequest.UserAgent,
			RemoteIP:  pe.HttpRequest.RemoteIp,
		}
	}
	if pe.Operation != nil {
		e.Operation = &Operation{
			ID:       pe.Operation.Id,
			Producer: pe.Operation.Producer,
			First:    pe.Operation.First,
			Last:     pe.Operation.Last,
		}
	}
	return e, nil
}
