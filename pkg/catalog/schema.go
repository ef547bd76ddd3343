// pkg/catalog/schema.go
package catalog

// FormCatalog is the JSON registry of legally required marriage documents.
type FormCatalog struct {
	Version      string            `json:"version"`
	LastUpdated  string            `json:"lastUpdated"`
	Requirements []FormRequirement `json:"requirements"`
}

// FormRequirement is one catalog entry: a document type with its statutory
// lead time and applicability rules. Immutable configuration, never persisted
// per couple.
type FormRequirement struct {
	DocumentType  string                 `json:"documentType"`
	DisplayName   string                 `json:"displayName"`
	Description   string                 `json:"description,omitempty"`
	LeadTimeDays  int                    `json:"leadTimeDays"`
	CeremonyTypes []string               `json:"ceremonyTypes,omitempty"` // empty means all ceremony types
	PayloadSchema map[string]interface{} `json:"payloadSchema,omitempty"` // JSON Schema for the upload payload
}

// AppliesTo reports whether this document is required for a ceremony type.
func (r FormRequirement) AppliesTo(ceremonyType string) bool {
	if len(r.CeremonyTypes) == 0 {
		return true
	}
	for _, ct := range r.CeremonyTypes {
		if ct == ceremonyType {
			return true
		}
	}
	return false
}
