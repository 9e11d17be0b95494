package dedupe

import (
	"sort"
	"strings"

	"github.com/recovery-atlas/directory-cli/internal/model"
)

// Resolver merges a cluster of records judged to be the same organization
// into one canonical record. Merging is deterministic for a given input set:
// ties break on higher quality hint, then newer extraction date, then the
// lexicographically smallest source ID, then the record key.
type Resolver struct {
	rules Rules
}

// NewResolver builds a merge resolver with the given policy rules.
func NewResolver(rules Rules) *Resolver {
	return &Resolver{rules: rules}
}

// Merge produces the canonical record for a cluster. The cluster must be
// non-empty; members are reordered internally, never mutated.
func (m *Resolver) Merge(cluster []Normalized) model.CanonicalRecord {
	members := make([]Normalized, len(cluster))
	copy(members, cluster)
	sortByPriority(members)

	out := model.CanonicalRecord{
		OrgType:         members[0].Raw.OrgType,
		FieldProvenance: make(map[string]string),
	}

	for _, mem := range members {
		out.SourceRecords = append(out.SourceRecords, mem.Ref)
		if !containsString(out.SourceLineage, mem.Ref.SourceID) {
			out.SourceLineage = append(out.SourceLineage, mem.Ref.SourceID)
		}
	}

	m.mergeScalars(&out, members)
	m.mergeLists(&out, members)
	m.mergeCertification(&out, members)
	out.QualityScore = m.qualityScore(out)

	return out
}

// sortByPriority orders members by the field-winner tie rules.
func sortByPriority(members []Normalized) {
	sort.SliceStable(members, func(i, j int) bool {
		a, b := members[i].Raw, members[j].Raw
		if a.QualityHint != b.QualityHint {
			return a.QualityHint > b.QualityHint
		}
		if !a.ExtractionDate.Equal(b.ExtractionDate) {
			return a.ExtractionDate.After(b.ExtractionDate)
		}
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}
		return members[i].Ref.RecordKey < members[j].Ref.RecordKey
	})
}

// mergeScalars picks a single winner per scalar field: the first member in
// priority order with a non-empty value. The winner's source lands in
// FieldProvenance.
func (m *Resolver) mergeScalars(out *model.CanonicalRecord, members []Normalized) {
	for _, mem := range members {
		if out.Name == "" && mem.Raw.Name != "" {
			out.Name = strings.TrimSpace(mem.Raw.Name)
			out.LegalSuffix = mem.LegalSuffix
			out.FieldProvenance["name"] = mem.Ref.SourceID
		}
		if out.Address.Empty() && !mem.Raw.Address.Empty() {
			out.Address = model.Address{
				Street: strings.TrimSpace(mem.Raw.Address.Street),
				City:   strings.TrimSpace(mem.Raw.Address.City),
				State:  mem.State,
				Zip:    mem.Zip,
			}
			out.FieldProvenance["address"] = mem.Ref.SourceID
		}
		if out.Phone == "" && mem.Phone != "" {
			out.Phone = mem.Phone
			out.FieldProvenance["phone"] = mem.Ref.SourceID
		}
		if out.Email == "" && mem.Raw.Email != "" {
			out.Email = strings.TrimSpace(mem.Raw.Email)
			out.FieldProvenance["email"] = mem.Ref.SourceID
		}
		if out.Website == "" && mem.Raw.Website != "" {
			out.Website = strings.TrimSpace(mem.Raw.Website)
			out.FieldProvenance["website"] = mem.Ref.SourceID
		}
		if out.Coordinates == nil && mem.Coords != nil {
			c := *mem.Coords
			out.Coordinates = &c
			out.FieldProvenance["coordinates"] = mem.Ref.SourceID
		}
		if out.Residence == nil && mem.Raw.Residence != nil {
			r := *mem.Raw.Residence
			out.Residence = &r
			out.FieldProvenance["residence"] = mem.Ref.SourceID
		}
		if out.Treatment == nil && mem.Raw.Treatment != nil {
			t := *mem.Raw.Treatment
			out.Treatment = &t
			out.FieldProvenance["treatment"] = mem.Ref.SourceID
		}
	}
}

// mergeLists unions list-valued fields across sources, deduplicated
// case-insensitively, ordered first-seen in priority order.
func (m *Resolver) mergeLists(out *model.CanonicalRecord, members []Normalized) {
	seenDBA := make(map[string]bool)
	seenSvc := make(map[string]bool)
	for _, mem := range members {
		for _, dba := range mem.Raw.DBANames {
			dba = strings.TrimSpace(dba)
			lower := strings.ToLower(dba)
			if dba == "" || seenDBA[lower] {
				continue
			}
			seenDBA[lower] = true
			out.DBANames = append(out.DBANames, dba)
		}
		for _, svc := range mem.Raw.Services {
			svc = strings.TrimSpace(svc)
			lower := strings.ToLower(svc)
			if svc == "" || seenSvc[lower] {
				continue
			}
			seenSvc[lower] = true
			out.Services = append(out.Services, svc)
		}
	}
}

// mergeCertification prefers certifications from authoritative certifying
// bodies. When only non-authoritative sources disagree, the field is flagged
// disputed and every distinct value is kept rather than silently picking one.
func (m *Resolver) mergeCertification(out *model.CanonicalRecord, members []Normalized) {
	type certSource struct {
		cert   model.Certification
		source string
	}
	var certs []certSource
	for _, mem := range members {
		if mem.Raw.Certification != nil {
			certs = append(certs, certSource{*mem.Raw.Certification, mem.Ref.SourceID})
		}
	}
	if len(certs) == 0 {
		return
	}

	for _, cs := range certs {
		if m.rules.IsAuthoritative(cs.source) {
			c := cs.cert
			out.Certification = &c
			out.FieldProvenance["certification"] = cs.source
			return
		}
	}

	// No authoritative source. Agreement means a single distinct value.
	var distinct []model.Certification
	for _, cs := range certs {
		dup := false
		for _, d := range distinct {
			if d == cs.cert {
				dup = true
				break
			}
		}
		if !dup {
			distinct = append(distinct, cs.cert)
		}
	}

	if len(distinct) == 1 {
		c := distinct[0]
		out.Certification = &c
		out.FieldProvenance["certification"] = certs[0].source
		return
	}

	out.CertDisputed = true
	out.Certifications = distinct
}

// qualityScore is completeness over the configured core fields, scaled by a
// corroboration factor: full credit only when at least two independent
// sources contributed.
func (m *Resolver) qualityScore(rec model.CanonicalRecord) float64 {
	if len(m.rules.CoreFields) == 0 {
		return 0
	}

	values := map[string]string{
		"name":    rec.Name,
		"street":  rec.Address.Street,
		"city":    rec.Address.City,
		"state":   rec.Address.State,
		"zip":     rec.Address.Zip,
		"phone":   rec.Phone,
		"email":   rec.Email,
		"website": rec.Website,
	}

	present := 0
	for _, f := range m.rules.CoreFields {
		if values[f] != "" {
			present++
		}
	}
	completeness := float64(present) / float64(len(m.rules.CoreFields))

	corroboration := 0.8
	if len(rec.SourceLineage) > 1 {
		corroboration = 1.0
	}
	return completeness * corroboration
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
