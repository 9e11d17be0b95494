package model

import "time"

// SourceRef identifies one raw record inside one source extraction. RecordKey
// is a stable natural key derived from the record's normalized fields, so the
// same organization reported by the same source keeps the same ref across
// extraction runs even when the source file is regenerated.
type SourceRef struct {
	SourceID  string `json:"source_id"`
	RecordKey string `json:"record_key"`
}

// CanonicalRecord is the single merged directory entry for one real-world
// organization. CanonicalID never changes once assigned; re-runs look it up
// through lineage overlap against the previous directory.
type CanonicalRecord struct {
	CanonicalID   string         `json:"canonical_id"`
	OrgType       OrgType        `json:"organization_type"`
	Name          string         `json:"name"`
	LegalSuffix   string         `json:"legal_suffix,omitempty"`
	DBANames      []string       `json:"dba_names,omitempty"`
	Address       Address        `json:"address"`
	Coordinates   *Coordinates   `json:"coordinates,omitempty"`
	Phone         string         `json:"phone,omitempty"`
	Email         string         `json:"email,omitempty"`
	Website       string         `json:"website,omitempty"`
	Services      []string       `json:"services,omitempty"`
	Certification *Certification `json:"certification,omitempty"`
	Residence     *ResidenceInfo `json:"residence,omitempty"`
	Treatment     *TreatmentInfo `json:"treatment,omitempty"`

	// Disputed certifications are kept side by side when no authoritative
	// source settles the disagreement.
	CertDisputed   bool            `json:"cert_disputed,omitempty"`
	Certifications []Certification `json:"certifications,omitempty"`

	SourceLineage   []string          `json:"source_lineage"`
	SourceRecords   []SourceRef       `json:"source_records"`
	FieldProvenance map[string]string `json:"field_provenance,omitempty"`
	QualityScore    float64           `json:"quality_score"`
	MergeSuppressed bool              `json:"merge_suppressed,omitempty"`
}

// Directory is the output of one build run: the canonical records, the
// review report, and the next-available ID sequence per prefix. Sequences
// travel with the output so a later run can continue numbering without any
// process-level state.
type Directory struct {
	RunID     string            `json:"run_id"`
	BuiltAt   time.Time         `json:"built_at"`
	Records   []CanonicalRecord `json:"records"`
	Report    RunReport         `json:"report"`
	Sequences map[string]int    `json:"sequences"`
}
