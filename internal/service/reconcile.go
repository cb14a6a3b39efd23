package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/party-booking/internal/model"
	"github.com/iliyamo/party-booking/internal/repository"
)

// DefaultPriority ranks backends from most to least authoritative.
var DefaultPriority = []string{repository.SourceDatabase, repository.SourceSheet, repository.SourceCache}

// SourceResult is the outcome of listing one backend.
type SourceResult struct {
	Source  string
	Records []model.Reservation
	Err     error
}

// SourceUnavailable reports a backend that contributed nothing.
type SourceUnavailable struct {
	Source  string `json:"source"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ConflictKind classifies a data-quality finding.
type ConflictKind string

const (
	// DoubleBooking: two distinct bookings share a date.
	DoubleBooking ConflictKind = "DoubleBooking"
	// DivergentDuplicate: copies of one booking disagree on a core field.
	DivergentDuplicate ConflictKind = "DivergentDuplicate"
	// DuplicateInSource: one backend holds the same booking twice.
	DuplicateInSource ConflictKind = "DuplicateInSource"
	// InvalidRecord: a stored copy has a negative amount or a deposit above
	// its total.  It never becomes the authoritative copy.
	InvalidRecord ConflictKind = "InvalidRecord"
)

// FieldDiff lists the value each source holds for one contested field.
type FieldDiff struct {
	Field  string            `json:"field"`
	Values map[string]string `json:"values"`
}

// Conflict is returned alongside the merged list; it is data, not an error.
type Conflict struct {
	Kind           ConflictKind `json:"kind"`
	Date           string       `json:"date"`
	ReservationIDs []string     `json:"reservationIds"`
	Sources        []string     `json:"sources"`
	Fields         []FieldDiff  `json:"fields,omitempty"`
	Message        string       `json:"message"`
}

// WriteBack is one entry of the propagation worklist: the authoritative
// record and the reachable sources that lack it or hold a stale copy.
type WriteBack struct {
	Record      model.Reservation `json:"record"`
	MissingFrom []string          `json:"missingFrom,omitempty"`
	StaleIn     []string          `json:"staleIn,omitempty"`
}

// Result is the authoritative view of all backends.
type Result struct {
	Reservations []model.Reservation `json:"items"`
	Conflicts    []Conflict          `json:"conflicts"`
	Unavailable  []SourceUnavailable `json:"unavailable"`
	Plan         []WriteBack         `json:"plan"`
}

// Reconciler queries every adapter and merges the answers.
type Reconciler struct {
	adapters []repository.Adapter
	priority []string
	timeout  time.Duration
	log      *zap.Logger
}

// NewReconciler returns a Reconciler.  An empty priority uses
// DefaultPriority; a non-positive timeout defaults to five seconds.
func NewReconciler(adapters []repository.Adapter, priority []string, timeout time.Duration, log *zap.Logger) *Reconciler {
	if len(priority) == 0 {
		priority = DefaultPriority
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{adapters: adapters, priority: priority, timeout: timeout, log: log}
}

// Adapters returns the configured backends.
func (rc *Reconciler) Adapters() []repository.Adapter { return rc.adapters }

// Timeout is the per-call bound applied to each adapter.
func (rc *Reconciler) Timeout() time.Duration { return rc.timeout }

// Reconcile fetches from every backend and merges.  It never fails.
func (rc *Reconciler) Reconcile(ctx context.Context) Result {
	return Merge(rc.Fetch(ctx), rc.priority)
}

// Fetch lists every adapter concurrently, each bounded by the timeout, and
// waits for all of them.  A failed, slow or cancelled adapter yields a
// result with Err set.
func (rc *Reconciler) Fetch(ctx context.Context) []SourceResult {
	results := make([]SourceResult, len(rc.adapters))
	var g errgroup.Group
	for i, a := range rc.adapters {
		g.Go(func() error {
			results[i] = rc.list(ctx, a)
			if err := results[i].Err; err != nil {
				rc.log.Warn("source unavailable",
					zap.String("source", a.Name()),
					zap.String("kind", repository.KindName(err)),
					zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (rc *Reconciler) list(ctx context.Context, a repository.Adapter) SourceResult {
	ctx, cancel := context.WithTimeout(ctx, rc.timeout)
	defer cancel()

	done := make(chan SourceResult, 1)
	go func() {
		recs, err := a.List(ctx)
		done <- SourceResult{Source: a.Name(), Records: recs, Err: err}
	}()
	select {
	case res := <-done:
		if res.Err != nil {
			res.Records = nil
		}
		return res
	case <-ctx.Done():
		// the adapter ignored its context; its late answer is dropped
		return SourceResult{Source: a.Name(), Err: &repository.Error{
			Source: a.Name(), Op: "list", Kind: repository.ErrUnavailable, Err: ctx.Err(),
		}}
	}
}

type member struct {
	source  string
	rec     model.Reservation
	invalid bool
}

type group struct {
	members []member
}

func (g *group) has(source string) bool {
	for _, m := range g.members {
		if m.source == source {
			return true
		}
	}
	return false
}

// Merge builds the authoritative view from per-source results.  It is pure
// and deterministic: the output does not depend on the order of results or
// of the records inside them.
func Merge(results []SourceResult, priority []string) Result {
	ordered := orderByPriority(results, priority)

	out := Result{
		Reservations: []model.Reservation{},
		Conflicts:    []Conflict{},
		Unavailable:  []SourceUnavailable{},
		Plan:         []WriteBack{},
	}

	var reachable []string
	for _, res := range ordered {
		if res.Err != nil {
			out.Unavailable = append(out.Unavailable, SourceUnavailable{
				Source:  res.Source,
				Kind:    repository.KindName(res.Err),
				Message: res.Err.Error(),
			})
			continue
		}
		reachable = append(reachable, res.Source)
	}

	var groups []*group
	byID := map[string]*group{}
	byKey := map[model.NaturalKey]*group{}
	dupes := map[*group]map[string][]string{}

	for _, res := range ordered {
		if res.Err != nil {
			continue
		}
		for _, rec := range sortedRecords(res.Records) {
			invalid := rec.CheckAmounts() != nil
			if invalid {
				out.Conflicts = append(out.Conflicts, invalidConflict(res.Source, rec))
			}
			key := rec.NaturalKey()
			g := byID[rec.ID]
			if g == nil {
				g = byKey[key]
			}
			if g == nil {
				g = &group{}
				groups = append(groups, g)
			} else if g.has(res.Source) {
				if dupes[g] == nil {
					dupes[g] = map[string][]string{}
				}
				dupes[g][res.Source] = append(dupes[g][res.Source], rec.ID)
			}
			g.members = append(g.members, member{source: res.Source, rec: rec, invalid: invalid})
			if rec.ID != "" {
				if _, ok := byID[rec.ID]; !ok {
					byID[rec.ID] = g
				}
			}
			if _, ok := byKey[key]; !ok {
				byKey[key] = g
			}
		}
	}

	type merged struct {
		rec   model.Reservation
		group *group
		stale []string
	}
	all := make([]merged, 0, len(groups))
	for _, g := range groups {
		rec, ok := mergeGroup(g)
		if !ok {
			// every copy is invalid: reported above, kept out of the view and the plan
			continue
		}
		diffs, stale := divergence(g, rec)
		if len(diffs) > 0 {
			out.Conflicts = append(out.Conflicts, Conflict{
				Kind:           DivergentDuplicate,
				Date:           rec.Date,
				ReservationIDs: memberIDs(g),
				Sources:        memberSources(g),
				Fields:         diffs,
				Message:        fmt.Sprintf("copies of reservation %s disagree on %s", rec.ID, diffFieldNames(diffs)),
			})
		}
		for source, extra := range dupes[g] {
			ids := []string{}
			for _, m := range g.members {
				if m.source == source {
					ids = append(ids, m.rec.ID)
				}
			}
			sort.Strings(ids)
			out.Conflicts = append(out.Conflicts, Conflict{
				Kind:           DuplicateInSource,
				Date:           rec.Date,
				ReservationIDs: ids,
				Sources:        []string{source},
				Message:        fmt.Sprintf("%s holds %d copies of reservation %s", source, len(extra)+1, rec.ID),
			})
		}
		all = append(all, merged{rec: rec, group: g, stale: stale})
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].rec.Date != all[j].rec.Date {
			return all[i].rec.Date < all[j].rec.Date
		}
		return all[i].rec.ID < all[j].rec.ID
	})

	for i := 0; i < len(all); {
		j := i + 1
		for j < len(all) && all[j].rec.Date == all[i].rec.Date {
			j++
		}
		if j-i > 1 {
			ids := make([]string, 0, j-i)
			srcSet := map[string]bool{}
			for _, m := range all[i:j] {
				ids = append(ids, m.rec.ID)
				for _, s := range memberSources(m.group) {
					srcSet[s] = true
				}
			}
			out.Conflicts = append(out.Conflicts, Conflict{
				Kind:           DoubleBooking,
				Date:           all[i].rec.Date,
				ReservationIDs: ids,
				Sources:        rankSources(srcSet, priority),
				Message:        fmt.Sprintf("%d reservations on %s", j-i, all[i].rec.Date),
			})
		}
		i = j
	}

	for _, m := range all {
		out.Reservations = append(out.Reservations, m.rec)
		var missing []string
		for _, s := range reachable {
			if !m.group.has(s) {
				missing = append(missing, s)
			}
		}
		if len(missing) > 0 || len(m.stale) > 0 {
			out.Plan = append(out.Plan, WriteBack{Record: m.rec, MissingFrom: missing, StaleIn: m.stale})
		}
	}

	sortConflicts(out.Conflicts)
	return out
}

// mergeGroup takes the highest-priority valid copy and fills its empty
// optional fields from the other copies.  It reports false when no copy is
// valid.
func mergeGroup(g *group) (model.Reservation, bool) {
	w := -1
	for i, m := range g.members {
		if !m.invalid {
			w = i
			break
		}
	}
	if w < 0 {
		return model.Reservation{}, false
	}
	rec := g.members[w].rec
	for i, m := range g.members {
		if i == w {
			continue
		}
		if rec.Notes == "" {
			rec.Notes = m.rec.Notes
		}
		if rec.Time == "" {
			rec.Time = m.rec.Time
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = m.rec.CreatedAt
		}
	}
	if rec.ID == "" {
		for _, m := range g.members {
			if m.rec.ID != "" {
				rec.ID = m.rec.ID
				break
			}
		}
	}
	if rec.ID == "" {
		rec.ID = rec.NaturalKey().SyntheticID()
	}
	rec.Recompute()
	return rec, true
}

func invalidConflict(source string, rec model.Reservation) Conflict {
	ids := []string{}
	if rec.ID != "" {
		ids = append(ids, rec.ID)
	}
	return Conflict{
		Kind:           InvalidRecord,
		Date:           rec.Date,
		ReservationIDs: ids,
		Sources:        []string{source},
		Fields: []FieldDiff{
			{Field: "totalAmount", Values: map[string]string{source: strconv.FormatInt(rec.TotalAmount, 10)}},
			{Field: "depositAmount", Values: map[string]string{source: strconv.FormatInt(rec.DepositAmount, 10)}},
		},
		Message: fmt.Sprintf("%s holds reservation %s with total %d and deposit %d", source, rec.ID, rec.TotalAmount, rec.DepositAmount),
	}
}

type coreField struct {
	name string
	get  func(model.Reservation) string
}

// coreFields are compared across copies.  Names and phones are compared in
// their normalized form, the same one used for matching.
var coreFields = []coreField{
	{"date", func(r model.Reservation) string { return r.Date }},
	{"customerName", func(r model.Reservation) string { return r.NaturalKey().CustomerName }},
	{"customerPhone", func(r model.Reservation) string { return r.NaturalKey().CustomerPhone }},
	{"childName", func(r model.Reservation) string { return strings.ToLower(strings.TrimSpace(r.ChildName)) }},
	{"packageTier", func(r model.Reservation) string { return string(r.Package) }},
	{"totalAmount", func(r model.Reservation) string { return strconv.FormatInt(r.TotalAmount, 10) }},
	{"depositAmount", func(r model.Reservation) string { return strconv.FormatInt(r.DepositAmount, 10) }},
}

// divergence compares the first copy from every source against the merged
// record.  It returns the contested fields and the sources holding a copy
// that differs, which may include the top source when its copy is invalid.
func divergence(g *group, winner model.Reservation) ([]FieldDiff, []string) {
	var firsts []member
	seen := map[string]bool{}
	for _, m := range g.members {
		if !seen[m.source] {
			seen[m.source] = true
			firsts = append(firsts, m)
		}
	}
	if len(firsts) < 2 {
		return nil, nil
	}

	var diffs []FieldDiff
	staleSet := map[string]bool{}
	for _, f := range coreFields {
		want := f.get(winner)
		differs := false
		for _, m := range firsts {
			if f.get(m.rec) != want {
				differs = true
				staleSet[m.source] = true
			}
		}
		if !differs {
			continue
		}
		values := make(map[string]string, len(firsts))
		for _, m := range firsts {
			values[m.source] = f.get(m.rec)
		}
		diffs = append(diffs, FieldDiff{Field: f.name, Values: values})
	}

	var stale []string
	for _, m := range firsts {
		if staleSet[m.source] {
			stale = append(stale, m.source)
		}
	}
	return diffs, stale
}

func orderByPriority(results []SourceResult, priority []string) []SourceResult {
	out := append([]SourceResult(nil), results...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := rank(out[i].Source, priority), rank(out[j].Source, priority)
		if ri != rj {
			return ri < rj
		}
		return out[i].Source < out[j].Source
	})
	return out
}

func rank(source string, priority []string) int {
	for i, p := range priority {
		if p == source {
			return i
		}
	}
	return len(priority)
}

func sortedRecords(recs []model.Reservation) []model.Reservation {
	out := append([]model.Reservation(nil), recs...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		return out[i].NaturalKey().String() < out[j].NaturalKey().String()
	})
	return out
}

func memberIDs(g *group) []string {
	set := map[string]bool{}
	for _, m := range g.members {
		if m.rec.ID != "" {
			set[m.rec.ID] = true
		}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func memberSources(g *group) []string {
	var out []string
	for _, m := range g.members {
		if len(out) == 0 || out[len(out)-1] != m.source {
			out = append(out, m.source)
		}
	}
	return out
}

func rankSources(set map[string]bool, priority []string) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := rank(out[i], priority), rank(out[j], priority)
		if ri != rj {
			return ri < rj
		}
		return out[i] < out[j]
	})
	return out
}

func diffFieldNames(diffs []FieldDiff) string {
	names := make([]string, len(diffs))
	for i, d := range diffs {
		names[i] = d.Field
	}
	return strings.Join(names, ", ")
}

func sortConflicts(cs []Conflict) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		ai, bi := strings.Join(a.ReservationIDs, ","), strings.Join(b.ReservationIDs, ",")
		if ai != bi {
			return ai < bi
		}
		return strings.Join(a.Sources, ",") < strings.Join(b.Sources, ",")
	})
}
