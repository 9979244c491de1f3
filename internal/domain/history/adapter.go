// Package history normalizes practice submissions into canonical records and
// persists them through versioned schema translators, falling back to a
// bounded in-process buffer whenever the durable backend cannot take them.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/renshu/internal/adapters/repository"
	"github.com/okian/renshu/internal/domain/dedupe"
	"github.com/okian/renshu/internal/domain/model"
	"github.com/okian/renshu/internal/domain/taxonomy"
	"github.com/okian/renshu/pkg/logger"
	"github.com/okian/renshu/pkg/metrics"
)

// Fallback reasons reported on Ack and in metrics.
const (
	ReasonEphemeral   = "ephemeral_identity"
	ReasonUnavailable = "backend_unavailable"
	ReasonRejected    = "write_rejected"
	ReasonError       = "backend_error"
)

// Read sources reported in metrics.
const (
	SourceDurable = "durable"
	SourceBuffer  = "buffer"
	SourceMerged  = "merged"
)

// Ack reports what happened to one write. Writes never fail.
type Ack struct {
	RecordID  string `json:"record_id,omitempty"`
	Durable   bool   `json:"durable"`
	FellBack  bool   `json:"fell_back"`
	Reason    string `json:"reason,omitempty"`
	Duplicate bool   `json:"duplicate"`
}

// Status is the diagnostic view of the adapter.
type Status struct {
	Available          bool             `json:"available"`
	Probed             bool             `json:"probed"`
	LastProbe          time.Time        `json:"last_probe,omitempty"`
	LastProbeError     string           `json:"last_probe_error,omitempty"`
	Generation         model.Generation `json:"schema_generation"`
	Buffered           int              `json:"buffered_records"`
	Fallbacks          int64            `json:"fallbacks"`
	LastFallbackReason string           `json:"last_fallback_reason,omitempty"`
	DedupeSize         int64            `json:"dedupe_size"`
}

// DeleteResult reports a best-effort delete. The two stores are not
// updated atomically.
type DeleteResult struct {
	Durable     int64 `json:"durable"`
	Buffered    int   `json:"buffered"`
	DurableErr  error `json:"-"`
	DurableSkip bool  `json:"durable_skipped"`
}

// Adapter is the history persistence entry point.
type Adapter struct {
	store       repository.Store
	taxonomy    *taxonomy.Taxonomy
	translators map[model.Generation]SchemaTranslator
	current     model.Generation
	buffer      *Buffer
	capacity    int
	totalCap    int
	dedupe      dedupe.Deduper
	timeout     time.Duration
	probeRetry  time.Duration
	maxLimit    int
	now         func() time.Time
	newID       func() string
	logger      logger.Logger

	mu           sync.Mutex
	probed       bool
	available    bool
	lastProbe    time.Time
	lastProbeErr error
	fallbacks    int64
	lastReason   string
}

// NewAdapter builds an Adapter. A nil store means no durable backend: every
// record goes to the buffer.
func NewAdapter(store repository.Store, tx *taxonomy.Taxonomy, opts ...Option) *Adapter {
	if tx == nil {
		tx = taxonomy.New()
	}
	a := &Adapter{
		store:    store,
		taxonomy: tx,
		current:  model.GenerationExercise,
		capacity: DefaultCapacity,
		totalCap: DefaultTotalCapacity,
		dedupe:   dedupe.New(),
		timeout:  DefaultTimeout,
		maxLimit: DefaultLimit,
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   logger.Nop(),
	}
	WithTranslators(DefaultTranslators(tx)...)(a)
	for _, opt := range opts {
		opt(a)
	}
	a.buffer = NewBuffer(a.capacity, a.totalCap)
	return a
}

// Write classifies, normalizes and stores one submission.
func (a *Adapter) Write(ctx context.Context, userID string, sub model.Submission) Ack {
	cls := a.taxonomy.Classify(ctx, sub.Type)
	rec := Normalize(a.taxonomy, userID, sub, cls, a.now())

	digest := dedupe.Digest(userID, rec.SourceLabel, rec.StartedAt, sub.Inputs, sub.Scores, sub.Feedback)
	if a.dedupe.SeenAndRecord(ctx, digest) {
		metrics.RecordDuplicateSubmission()
		metrics.RecordHistoryWrite("duplicate")
		a.logger.Info(ctx, "duplicate practice submission ignored", logger.String("practice_type", rec.PracticeTypeKey))
		return Ack{Duplicate: true}
	}
	stored := false
	defer func() {
		if !stored {
			a.dedupe.Unrecord(ctx, digest)
		}
	}()

	rec.SessionID = a.newID()
	ack := Ack{RecordID: rec.SessionID}

	if err := CheckIdentity(userID); err != nil {
		a.fallBack(ctx, rec, ReasonEphemeral, err)
		ack.FellBack, ack.Reason = true, ReasonEphemeral
		stored = true
		return ack
	}
	if !a.ensureAvailable(ctx) {
		a.fallBack(ctx, rec, ReasonUnavailable, a.probeError())
		ack.FellBack, ack.Reason = true, ReasonUnavailable
		stored = true
		return ack
	}

	if err := a.writeDurable(ctx, rec); err != nil {
		reason := ReasonError
		if errors.Is(err, repository.ErrInvalidRow) || errors.Is(err, repository.ErrUnknownTable) || errors.Is(err, ErrMalformedRow) {
			reason = ReasonRejected
		}
		a.fallBack(ctx, rec, reason, err)
		ack.FellBack, ack.Reason = true, reason
		stored = true
		return ack
	}

	metrics.RecordHistoryWrite("durable")
	ack.Durable = true
	stored = true
	return ack
}

func (a *Adapter) writeDurable(ctx context.Context, rec model.PracticeRecord) (err error) {
	t, ok := a.translators[a.current]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoTranslator, a.current)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: write panicked: %v", repository.ErrBackendUnavailable, r)
		}
	}()

	inserts, err := t.Encode(rec)
	if err != nil {
		return err
	}
	cctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	start := time.Now()
	err = a.store.Apply(cctx, inserts...)
	metrics.RecordBackendLatency("write", time.Since(start))
	return err
}

func (a *Adapter) fallBack(ctx context.Context, rec model.PracticeRecord, reason string, cause error) {
	evicted := a.buffer.Add(rec)

	a.mu.Lock()
	a.fallbacks++
	a.lastReason = reason
	a.mu.Unlock()

	metrics.RecordHistoryWrite("buffered")
	metrics.RecordHistoryFallback(reason)
	metrics.UpdateBufferRecords(a.buffer.Len())

	fields := []logger.Field{
		logger.String("reason", reason),
		logger.String("practice_type", rec.PracticeTypeKey),
		logger.Bool("evicted", evicted),
	}
	if cause != nil {
		fields = append(fields, logger.Error(cause))
	}
	if reason == ReasonEphemeral {
		a.logger.Debug(ctx, "practice record kept in the local buffer", fields...)
		return
	}
	a.logger.Warn(ctx, "durable write skipped; practice record kept in the local buffer", fields...)
}

// CheckIdentity reports whether userID can key durable rows.
func CheckIdentity(userID string) error {
	if _, err := uuid.Parse(userID); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidIdentityShape, userID)
	}
	return nil
}

// ensureAvailable probes the backend the first time it is needed. A failed
// probe is only repeated when a retry interval is configured.
func (a *Adapter) ensureAvailable(ctx context.Context) bool {
	if a.store == nil {
		a.mu.Lock()
		if !a.probed {
			a.probed, a.lastProbe = true, a.now()
			a.lastProbeErr = fmt.Errorf("%w: no backend configured", repository.ErrBackendUnavailable)
		}
		a.mu.Unlock()
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.probed && (a.available || a.probeRetry <= 0 || a.now().Sub(a.lastProbe) < a.probeRetry) {
		return a.available
	}

	pctx, cancel := context.WithTimeout(ctx, a.timeout)
	start := time.Now()
	err := a.store.Probe(pctx)
	cancel()
	metrics.RecordBackendLatency("probe", time.Since(start))

	a.probed = true
	a.lastProbe = a.now()
	a.lastProbeErr = err
	a.available = err == nil
	metrics.UpdateBackendAvailable(a.available)
	if err != nil {
		a.logger.Error(ctx, "backing store probe failed", logger.Error(err))
	} else {
		a.logger.Info(ctx, "backing store available", logger.Int("schema_generation", int(a.current)))
	}
	return a.available
}

func (a *Adapter) probeError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastProbeErr
}

// Read returns userID's history in the legacy shape, newest first.
func (a *Adapter) Read(ctx context.Context, userID string, f Filter) []model.LegacyRecord {
	recs := a.Records(ctx, userID, f)
	out := make([]model.LegacyRecord, len(recs))
	for i, r := range recs {
		out[i] = Denormalize(a.taxonomy, r)
	}
	return out
}

// Records returns userID's canonical records, newest first. Durable and
// buffered records are merged; on a (user, type, start) collision the
// durable one wins.
func (a *Adapter) Records(ctx context.Context, userID string, f Filter) []model.PracticeRecord {
	f.Limit = a.limit(f.Limit)

	var buffered []model.PracticeRecord
	for _, r := range a.buffer.List(userID) {
		if keep(r, f) {
			buffered = append(buffered, r)
		}
	}

	durable, ok := a.readDurable(ctx, userID, f)
	source := SourceBuffer
	switch {
	case ok && len(buffered) > 0:
		source = SourceMerged
	case ok:
		source = SourceDurable
	}
	metrics.RecordHistoryRead(source)

	merged := make([]model.PracticeRecord, 0, len(durable)+len(buffered))
	seen := make(map[string]struct{}, len(durable))
	for _, r := range durable {
		k := mergeKey(r)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		merged = append(merged, r)
	}
	for _, r := range buffered {
		if _, dup := seen[mergeKey(r)]; dup {
			continue
		}
		merged = append(merged, r)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].StartedAt.After(merged[j].StartedAt)
	})
	if len(merged) > f.Limit {
		merged = merged[:f.Limit]
	}
	return merged
}

func (a *Adapter) limit(n int) int {
	if n <= 0 || n > a.maxLimit {
		return a.maxLimit
	}
	return n
}

func mergeKey(r model.PracticeRecord) string {
	return r.UserID + "\x00" + r.PracticeTypeKey + "\x00" + fmt.Sprint(r.StartedAt.UnixMicro())
}

// readDurable queries every generation, newest first. Only a failure of the
// current generation makes the durable side unavailable for this read.
func (a *Adapter) readDurable(ctx context.Context, userID string, f Filter) ([]model.PracticeRecord, bool) {
	if CheckIdentity(userID) != nil || !a.ensureAvailable(ctx) {
		return nil, false
	}

	var out []model.PracticeRecord
	for _, g := range model.Generations {
		t, ok := a.translators[g]
		if !ok {
			continue
		}
		recs, err := a.readGeneration(ctx, t, userID, f)
		if err != nil {
			if g == a.current {
				a.logger.Warn(ctx, "durable read failed; serving buffered history",
					logger.Int("schema_generation", int(g)), logger.Error(err))
				return nil, false
			}
			a.logger.Warn(ctx, "skipping unreadable schema generation",
				logger.Int("schema_generation", int(g)), logger.Error(err))
			continue
		}
		out = append(out, recs...)
	}
	return out, true
}

func (a *Adapter) readGeneration(ctx context.Context, t SchemaTranslator, userID string, f Filter) (recs []model.PracticeRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: read panicked: %v", repository.ErrBackendUnavailable, r)
		}
	}()

	cctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	start := time.Now()
	raws, err := t.Fetch(cctx, a.store, userID, f)
	metrics.RecordBackendLatency("read", time.Since(start))
	if err != nil {
		return nil, err
	}
	for _, raw := range raws {
		rec, err := t.MigrateRead(raw)
		if err != nil {
			a.logger.Warn(ctx, "skipping unreadable history row",
				logger.Int("schema_generation", int(t.Generation())), logger.Error(err))
			continue
		}
		if keep(rec, f) {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

// MigrateRead decodes a raw record with the translator its generation tag
// selects.
func (a *Adapter) MigrateRead(raw RawRecord) (model.PracticeRecord, error) {
	g := raw.Generation
	if g == 0 {
		g = rowGeneration(raw.Head, model.GenerationLegacy)
	}
	t, ok := a.translators[g]
	if !ok {
		return model.PracticeRecord{}, fmt.Errorf("%w: %d", ErrNoTranslator, g)
	}
	raw.Generation = g
	return t.MigrateRead(raw)
}

// Delete removes userID's records of key (all when empty) from the current
// generation and from the buffer. Each side is attempted independently.
func (a *Adapter) Delete(ctx context.Context, userID, key string) DeleteResult {
	res := DeleteResult{Buffered: a.buffer.Remove(userID, key)}
	metrics.UpdateBufferRecords(a.buffer.Len())

	if CheckIdentity(userID) != nil || !a.ensureAvailable(ctx) {
		res.DurableSkip = true
		return res
	}
	t, ok := a.translators[a.current]
	if !ok {
		res.DurableErr = fmt.Errorf("%w: %d", ErrNoTranslator, a.current)
		return res
	}

	cctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	start := time.Now()
	n, err := t.Delete(cctx, a.store, userID, key)
	metrics.RecordBackendLatency("delete", time.Since(start))
	res.Durable, res.DurableErr = n, err
	if err != nil {
		a.logger.Warn(ctx, "durable history delete incomplete", logger.Error(err))
	}
	a.logger.Info(ctx, "history deleted",
		logger.String("practice_type", key),
		logger.Int("durable", int(n)),
		logger.Int("buffered", res.Buffered))
	return res
}

// Status reports availability and buffer state without probing.
func (a *Adapter) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := Status{
		Available:          a.available,
		Probed:             a.probed,
		LastProbe:          a.lastProbe,
		Generation:         a.current,
		Buffered:           a.buffer.Len(),
		Fallbacks:          a.fallbacks,
		LastFallbackReason: a.lastReason,
		DedupeSize:         a.dedupe.Size(),
	}
	if a.lastProbeErr != nil {
		st.LastProbeError = a.lastProbeErr.Error()
	}
	return st
}

// Probe forces an availability check now and reports the result.
func (a *Adapter) Probe(ctx context.Context) bool {
	a.mu.Lock()
	a.probed = false
	a.mu.Unlock()
	return a.ensureAvailable(ctx)
}

// Taxonomy exposes the classifier the adapter uses.
func (a *Adapter) Taxonomy() *taxonomy.Taxonomy { return a.taxonomy }
