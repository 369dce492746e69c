package model

import "time"

// AccessRequest is a single authorization question: may this subject perform
// this action on this resource, given the request context.
type AccessRequest struct {
	Subject   Subject                `json:"subject"`
	Resource  string                 `json:"resource"` // hierarchical id, e.g. "document:sensitive:report.pdf"
	Action    string                 `json:"action"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Timestamp time.Time              `json:"timestamp,omitempty"`
}

// Subject is the authenticated caller as supplied by the external credential
// service. The engine never authenticates; it trusts these fields.
type Subject struct {
	ID            string                 `json:"id"`
	SessionID     string                 `json:"session_id,omitempty"`
	ApplicationID string                 `json:"application_id,omitempty"`
	Attributes    map[string]interface{} `json:"attributes,omitempty"`
}

// BatchRequest groups requests evaluated against one consistent snapshot.
type BatchRequest struct {
	Requests []AccessRequest `json:"requests"`
}
