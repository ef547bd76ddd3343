// pkg/catalog/catalog.go
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Catalog resolves document types to their requirements.
type Catalog struct {
	registry *FormCatalog
	byType   map[string]FormRequirement
}

// Load reads a catalog file, falling back to the built-in default when the
// path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return New(Default())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg FormCatalog
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return New(&reg)
}

// New validates a registry and indexes it by document type.
func New(reg *FormCatalog) (*Catalog, error) {
	byType := make(map[string]FormRequirement, len(reg.Requirements))
	for _, req := range reg.Requirements {
		if req.DocumentType == "" {
			return nil, fmt.Errorf("catalog entry without documentType")
		}
		if req.LeadTimeDays <= 0 {
			return nil, fmt.Errorf("catalog entry %q: leadTimeDays must be positive", req.DocumentType)
		}
		if _, dup := byType[req.DocumentType]; dup {
			return nil, fmt.Errorf("catalog entry %q duplicated", req.DocumentType)
		}
		byType[req.DocumentType] = req
	}
	return &Catalog{registry: reg, byType: byType}, nil
}

// Lookup returns the requirement for a document type.
func (c *Catalog) Lookup(documentType string) (FormRequirement, bool) {
	req, ok := c.byType[documentType]
	return req, ok
}

// ApplicableTo lists every document required for a ceremony type, in registry
// order.
func (c *Catalog) ApplicableTo(ceremonyType string) []FormRequirement {
	var out []FormRequirement
	for _, req := range c.registry.Requirements {
		if req.AppliesTo(ceremonyType) {
			out = append(out, req)
		}
	}
	return out
}

// DocumentTypes returns all registered document types.
func (c *Catalog) DocumentTypes() []string {
	out := make([]string, 0, len(c.registry.Requirements))
	for _, req := range c.registry.Requirements {
		out = append(out, req.DocumentType)
	}
	return out
}

// ValidatePayload checks an upload payload against the document type's JSON
// Schema. Types without a schema accept any payload.
func (c *Catalog) ValidatePayload(documentType string, payload map[string]interface{}) error {
	req, ok := c.byType[documentType]
	if !ok {
		return fmt.Errorf("unknown document type %q", documentType)
	}
	if req.PayloadSchema == nil {
		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(req.PayloadSchema),
		gojsonschema.NewGoLoader(payload),
	)
	if err != nil {
		return fmt.Errorf("schema validation for %q: %w", documentType, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("payload invalid for %q: %s", documentType, strings.Join(msgs, "; "))
	}
	return nil
}

// Default returns the statutory baseline catalog used when no registry file
// is configured.
func Default() *FormCatalog {
	return &FormCatalog{
		Version:     "1.0.0",
		LastUpdated: "2026-01-01",
		Requirements: []FormRequirement{
			{
				DocumentType: "notice",
				DisplayName:  "Notice of Intended Marriage",
				Description:  "Statutory notice lodged before the ceremony",
				LeadTimeDays: 31,
				PayloadSchema: map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"partyOneName", "partyTwoName"},
					"properties": map[string]interface{}{
						"partyOneName": map[string]interface{}{"type": "string", "minLength": 1},
						"partyTwoName": map[string]interface{}{"type": "string", "minLength": 1},
						"witnessName":  map[string]interface{}{"type": "string"},
					},
				},
			},
			{
				DocumentType: "declaration",
				DisplayName:  "Declaration of No Legal Impediment",
				LeadTimeDays: 14,
				PayloadSchema: map[string]interface{}{
					"type":     "object",
					"required": []interface{}{"declarantName"},
					"properties": map[string]interface{}{
						"declarantName": map[string]interface{}{"type": "string", "minLength": 1},
						"declaredAt":    map[string]interface{}{"type": "string"},
					},
				},
			},
			{
				DocumentType: "identity",
				DisplayName:  "Proof of Identity",
				LeadTimeDays: 14,
			},
			{
				DocumentType:  "banns_certificate",
				DisplayName:   "Certificate of Banns",
				LeadTimeDays:  21,
				CeremonyTypes: []string{"religious"},
			},
		},
	}
}
