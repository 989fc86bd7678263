// Package fhir holds the minimal FHIR R4 document types the pipeline
// consumes. These are deliberately permissive: every field is optional and
// unknown fields are ignored, since input bundles come from heterogeneous
// exporters and are never schema-validated here.
package fhir

import "encoding/json"

// Bundle represents a FHIR Bundle resource.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id,omitempty"`
	Type         string        `json:"type,omitempty"`
	Entry        []BundleEntry `json:"entry,omitempty"`
}

// BundleEntry wraps one contained resource. The resource body is kept raw
// so each consumer can decode only the fields it cares about.
type BundleEntry struct {
	FullURL  string          `json:"fullUrl,omitempty"`
	Resource json.RawMessage `json:"resource,omitempty"`
}

// Decode parses a bundle document. It does not validate the root
// resourceType; callers decide whether a non-Bundle root is an error.
func Decode(doc []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(doc, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Envelope carries the two fields every FHIR resource shares, used for
// dispatch before a full typed decode.
type Envelope struct {
	ResourceType string `json:"resourceType"`
	ID           string `json:"id"`
}
