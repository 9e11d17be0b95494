package dedupe

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/recovery-atlas/directory-cli/internal/config"
	"github.com/recovery-atlas/directory-cli/internal/model"
)

// Builder orchestrates one deduplication run: normalize, block by
// fingerprint, score candidate pairs, cluster with union-find, merge, and
// assign stable canonical IDs.
//
// A Builder is safe to reuse across runs; each Build call owns its own
// index and union-find structures.
type Builder struct {
	cfg      config.DedupeConfig
	scorer   *Scorer
	resolver *Resolver
}

// NewBuilder validates the configuration and constructs a builder. A bad
// configuration fails here, before any records are touched.
func NewBuilder(cfg config.DedupeConfig, rules Rules) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Builder{
		cfg:      cfg,
		scorer:   NewScorer(cfg),
		resolver: NewResolver(rules),
	}, nil
}

// pair is a candidate comparison between two record indices, a < b.
type pair struct {
	a, b int
}

// Build runs the full pipeline. previous, when supplied, is the prior run's
// directory: its canonical IDs are preserved for any cluster sharing lineage
// with it, and its sequences seed the allocator. Cancellation aborts the
// whole run with no partial output.
func (bl *Builder) Build(ctx context.Context, raws []model.RawRecord, previous *model.Directory) (*model.Directory, error) {
	report := model.RunReport{}

	// Validate at the boundary; malformed records are reported, never
	// silently discarded.
	kept := make([]model.RawRecord, 0, len(raws))
	for _, r := range raws {
		if reason, bad := validateRecord(r); bad {
			report.Dropped = append(report.Dropped, model.DroppedRecord{Record: r, Reason: reason})
			continue
		}
		kept = append(kept, r)
	}

	// Normalize and fix a canonical processing order so clustering and
	// provenance are invariant under permutation of the input.
	records := make([]Normalized, len(kept))
	for i := range kept {
		records[i] = Normalize(&kept[i])
	}
	sortCanonical(records)

	index := buildIndex(records)
	pairs := candidatePairs(index)

	zap.L().Info("dedupe: blocking complete",
		zap.Int("records", len(records)),
		zap.Int("dropped", len(report.Dropped)),
		zap.Int("buckets", len(index)),
		zap.Int("candidate_pairs", len(pairs)),
	)

	matched, err := bl.scorePairs(ctx, records, pairs)
	if err != nil {
		return nil, err
	}

	// Union on a single goroutine, in deterministic pair order.
	uf := newUnionFind(len(records))
	matches := 0
	for i, p := range pairs {
		if matched[i] {
			uf.union(p.a, p.b)
			matches++
		}
	}

	clusters := uf.clusters()
	zap.L().Info("dedupe: clustering complete",
		zap.Int("matched_pairs", matches),
		zap.Int("clusters", len(clusters)),
	)

	canonical, report2 := bl.mergeClusters(records, clusters)
	report.Suppressed = report2.Suppressed

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "dedupe: build cancelled")
	}

	bl.assignIDs(canonical, previous)

	sort.Slice(canonical, func(i, j int) bool {
		return canonical[i].CanonicalID < canonical[j].CanonicalID
	})

	// Suppressed cluster and dispute reporting needs final IDs.
	fillReportIDs(canonical, &report)

	return &model.Directory{
		RunID:     uuid.New().String(),
		BuiltAt:   time.Now().UTC(),
		Records:   canonical,
		Report:    report,
		Sequences: sequencesFrom(canonical, previous),
	}, nil
}

// validateRecord applies minimal shape validation at ingestion. A record
// missing both a name and every identifying field cannot be matched or
// merged meaningfully.
func validateRecord(r model.RawRecord) (model.DropReason, bool) {
	if !r.OrgType.Valid() {
		return model.DropReasonUnknownOrgType, true
	}
	if r.Name == "" && !r.HasIdentifyingField() {
		return model.DropReasonNoIdentifiers, true
	}
	if r.QualityHint < 0 || r.QualityHint > 1 {
		return model.DropReasonBadQualityHint, true
	}
	return "", false
}

// sortCanonical fixes a total order over records independent of input order.
func sortCanonical(records []Normalized) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Ref.SourceID != b.Ref.SourceID {
			return a.Ref.SourceID < b.Ref.SourceID
		}
		if a.Ref.RecordKey != b.Ref.RecordKey {
			return a.Ref.RecordKey < b.Ref.RecordKey
		}
		if a.Street != b.Street {
			return a.Street < b.Street
		}
		if !a.Raw.ExtractionDate.Equal(b.Raw.ExtractionDate) {
			return a.Raw.ExtractionDate.Before(b.Raw.ExtractionDate)
		}
		return a.Raw.Name < b.Raw.Name
	})
}

func buildIndex(records []Normalized) map[Fingerprint][]int {
	index := make(map[Fingerprint][]int)
	for i, rec := range records {
		for _, fp := range Fingerprints(rec) {
			index[fp] = append(index[fp], i)
		}
	}
	return index
}

// candidatePairs enumerates all pairs within each bucket of two or more
// members, deduplicated across buckets and sorted. Comparison cost is
// O(sum of bucket sizes squared), not O(n squared).
func candidatePairs(index map[Fingerprint][]int) []pair {
	seen := make(map[pair]bool)
	for _, bucket := range index {
		if len(bucket) < 2 {
			continue
		}
		for i := 0; i < len(bucket); i++ {
			for j := i + 1; j < len(bucket); j++ {
				p := pair{bucket[i], bucket[j]}
				if p.a > p.b {
					p.a, p.b = p.b, p.a
				}
				seen[p] = true
			}
		}
	}

	pairs := make([]pair, 0, len(seen))
	for p := range seen {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].a != pairs[j].a {
			return pairs[i].a < pairs[j].a
		}
		return pairs[i].b < pairs[j].b
	})
	return pairs
}

// scorePairs compares candidate pairs across worker goroutines. Workers
// write disjoint slices of the result; only records of differing org type
// are skipped outright since they can never refer to the same entry.
func (bl *Builder) scorePairs(ctx context.Context, records []Normalized, pairs []pair) ([]bool, error) {
	matched := make([]bool, len(pairs))
	if len(pairs) == 0 {
		return matched, nil
	}

	workers := bl.cfg.Workers
	if workers > len(pairs) {
		workers = len(pairs)
	}
	chunk := (len(pairs) + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > len(pairs) {
			end = len(pairs)
		}
		if start >= end {
			break
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return eris.Wrap(err, "dedupe: scoring cancelled")
				}
				p := pairs[i]
				a, b := records[p.a], records[p.b]
				if a.Raw.OrgType != b.Raw.OrgType {
					continue
				}
				matched[i] = bl.scorer.Score(a, b) >= bl.cfg.MatchThreshold
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return matched, nil
}

// mergeClusters runs the merge resolver per cluster, applying the
// cluster-size guard: an oversize cluster is assumed to be a blocking-induced
// false merge (a franchise name shared by unrelated organizations) and is
// emitted as flagged singletons for manual review.
func (bl *Builder) mergeClusters(records []Normalized, clusters [][]int) ([]model.CanonicalRecord, model.RunReport) {
	var out []model.CanonicalRecord
	var report model.RunReport

	for _, cluster := range clusters {
		members := make([]Normalized, len(cluster))
		for i, idx := range cluster {
			members[i] = records[idx]
		}

		if len(members) > bl.cfg.ClusterSizeGuard {
			zap.L().Warn("dedupe: cluster exceeds size guard, suppressing merge",
				zap.Int("size", len(members)),
				zap.Int("guard", bl.cfg.ClusterSizeGuard),
				zap.String("name", members[0].Raw.Name),
			)
			suppressed := model.SuppressedCluster{Size: len(members)}
			for _, mem := range members {
				rec := bl.resolver.Merge([]Normalized{mem})
				rec.MergeSuppressed = true
				out = append(out, rec)
				suppressed.Members = append(suppressed.Members, mem.Ref)
			}
			report.Suppressed = append(report.Suppressed, suppressed)
			continue
		}

		out = append(out, bl.resolver.Merge(members))
	}
	return out, report
}

// assignIDs gives every canonical record its stable ID. Records sharing at
// least one lineage source record with a previous canonical record inherit
// that record's ID; everything else draws the next sequence number for its
// organization type prefix. When a previous record's lineage is split across
// several new clusters, the first cluster in canonical order keeps the old
// ID and the rest are treated as new organizations.
func (bl *Builder) assignIDs(canonical []model.CanonicalRecord, previous *model.Directory) {
	seq := NewSequencer()
	prevByRef := make(map[model.SourceRef]string)
	if previous != nil {
		for prefix, next := range previous.Sequences {
			seq.Seed(prefix, next)
		}
		for _, rec := range previous.Records {
			seq.Observe(rec.CanonicalID)
			for _, ref := range rec.SourceRecords {
				if _, ok := prevByRef[ref]; !ok {
					prevByRef[ref] = rec.CanonicalID
				}
			}
		}
	}

	used := make(map[string]bool)
	for i := range canonical {
		id := ""
		for _, ref := range canonical[i].SourceRecords {
			if prev, ok := prevByRef[ref]; ok && !used[prev] {
				id = prev
				break
			}
		}
		if id == "" {
			id = seq.Next(canonical[i].OrgType.Prefix())
		}
		used[id] = true
		canonical[i].CanonicalID = id
	}
}

// fillReportIDs backfills canonical IDs into the review report and collects
// disputed fields, both of which need final IDs.
func fillReportIDs(canonical []model.CanonicalRecord, report *model.RunReport) {
	byRef := make(map[model.SourceRef]string)
	for _, rec := range canonical {
		for _, ref := range rec.SourceRecords {
			byRef[ref] = rec.CanonicalID
		}
	}

	for i := range report.Suppressed {
		ids := make([]string, 0, len(report.Suppressed[i].Members))
		for _, ref := range report.Suppressed[i].Members {
			ids = append(ids, byRef[ref])
		}
		sort.Strings(ids)
		report.Suppressed[i].CanonicalIDs = ids
	}

	for _, rec := range canonical {
		if !rec.CertDisputed {
			continue
		}
		values := make([]string, 0, len(rec.Certifications))
		for _, c := range rec.Certifications {
			values = append(values, formatCertification(c))
		}
		report.Disputed = append(report.Disputed, model.DisputedField{
			CanonicalID: rec.CanonicalID,
			Field:       "certification",
			Values:      values,
		})
	}
}

// sequencesFrom recomputes the next-available sequence per prefix from the
// final record set, carrying forward prefixes the previous run knew about
// even if this run emitted none of that type.
func sequencesFrom(canonical []model.CanonicalRecord, previous *model.Directory) map[string]int {
	seq := NewSequencer()
	if previous != nil {
		for prefix, next := range previous.Sequences {
			seq.Seed(prefix, next)
		}
	}
	for _, t := range model.OrgTypes() {
		seq.Seed(t.Prefix(), 1)
	}
	for _, rec := range canonical {
		seq.Observe(rec.CanonicalID)
	}
	return seq.Sequences()
}

func formatCertification(c model.Certification) string {
	s := c.Level
	if c.Status != "" {
		if s != "" {
			s += " / "
		}
		s += c.Status
	}
	if c.Authority != "" {
		s += fmt.Sprintf(" (%s)", c.Authority)
	}
	if c.Number != "" {
		s += " #" + c.Number
	}
	return s
}
