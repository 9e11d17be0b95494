package model

// DropReason classifies why a raw record was excluded from the run.
type DropReason string

const (
	DropReasonNoIdentifiers  DropReason = "no_identifying_fields"
	DropReasonUnknownOrgType DropReason = "unknown_organization_type"
	DropReasonBadQualityHint DropReason = "quality_hint_out_of_range"
)

// DroppedRecord is a raw record excluded from the run, retained for the
// review report so nothing disappears without a trace.
type DroppedRecord struct {
	Record RawRecord  `json:"record"`
	Reason DropReason `json:"reason"`
}

// SuppressedCluster describes an oversize match cluster that was emitted as
// singletons instead of being merged.
type SuppressedCluster struct {
	Size         int         `json:"size"`
	CanonicalIDs []string    `json:"canonical_ids"`
	Members      []SourceRef `json:"members"`
}

// DisputedField records a field where sources disagreed and no authoritative
// source settled it.
type DisputedField struct {
	CanonicalID string   `json:"canonical_id"`
	Field       string   `json:"field"`
	Values      []string `json:"values"`
}

// RunReport is the side channel for the human-review workflow: dropped
// records, suppressed clusters, and disputed fields.
type RunReport struct {
	Dropped    []DroppedRecord     `json:"dropped,omitempty"`
	Suppressed []SuppressedCluster `json:"suppressed_clusters,omitempty"`
	Disputed   []DisputedField     `json:"disputed_fields,omitempty"`
}
