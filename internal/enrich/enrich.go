// Package enrich runs the per-observable enrichment pipeline and merges the
// results into one batch.
package enrich

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"c1fapp/internal/apierr"
	"c1fapp/internal/ctim"
	"c1fapp/internal/mapping"
	"c1fapp/internal/metrics"
)

// Feed fetches raw records for an observable value.
type Feed interface {
	Name() string
	Lookup(ctx context.Context, apiKey, value string) ([]mapping.Record, error)
}

// Options tunes the orchestrator.
type Options struct {
	// Workers bounds how many observables are looked up at once.
	Workers int
	// DefaultLimit replaces a non-positive per-call limit.
	DefaultLimit int
	// MaxLimit caps any requested limit.
	MaxLimit int
}

// Orchestrator coordinates feed lookups and mapping for a batch of observables.
type Orchestrator struct {
	feed       Feed
	classifier *mapping.Classifier
	opts       Options
	logger     *slog.Logger
	tracer     trace.Tracer
}

// NewOrchestrator creates a new orchestrator.
func NewOrchestrator(feed Feed, classifier *mapping.Classifier, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.DefaultLimit < 1 {
		opts.DefaultLimit = 100
	}
	if opts.MaxLimit < opts.DefaultLimit {
		opts.MaxLimit = opts.DefaultLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		feed:       feed,
		classifier: classifier,
		opts:       opts,
		logger:     logger,
		tracer:     otel.Tracer("c1fapp/internal/enrich"),
	}
}

// Limit normalizes a requested per-observable record limit.
func (o *Orchestrator) Limit(limit int) int {
	if limit <= 0 {
		return o.opts.DefaultLimit
	}
	if limit > o.opts.MaxLimit {
		return o.opts.MaxLimit
	}
	return limit
}

// slot is the result of one observable. Each worker writes only its own slot.
type slot struct {
	out *mapping.Output
	err *apierr.Entry
}

// Enrich looks up every observable and merges the entities in input order.
// Failures of one observable become error entries; they never stop the
// others. If ctx is cancelled the whole batch is discarded.
func (o *Orchestrator) Enrich(ctx context.Context, apiKey string, observables []ctim.Observable, limit int) (*Result, error) {
	limit = o.Limit(limit)
	slots := make([]slot, len(observables))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Workers)
	for i, obs := range observables {
		if gctx.Err() != nil {
			break
		}
		i, obs := i, obs
		g.Go(func() error {
			slots[i] = o.enrichOne(gctx, apiKey, obs, limit)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{}
	for _, s := range slots {
		if s.err != nil {
			res.Errors = append(res.Errors, *s.err)
			continue
		}
		if s.out != nil {
			res.merge(s.out)
		}
	}
	metrics.EntitiesEmitted.WithLabelValues(ctim.TypeSighting).Add(float64(len(res.Sightings)))
	metrics.EntitiesEmitted.WithLabelValues(ctim.TypeIndicator).Add(float64(len(res.Indicators)))
	metrics.EntitiesEmitted.WithLabelValues(ctim.TypeRelationship).Add(float64(len(res.Relationships)))
	return res, nil
}

func (o *Orchestrator) enrichOne(ctx context.Context, apiKey string, obs ctim.Observable, limit int) slot {
	kind := string(obs.Type)
	mapper, ok := mapping.NewMapper(obs, o.classifier)
	if !ok {
		o.logger.Debug("skipping unsupported observable", "type", kind)
		metrics.ObservablesProcessed.WithLabelValues(kind, "skipped").Inc()
		return slot{}
	}
	metrics.ObserveValue(kind, obs.Value)

	ctx, span := o.tracer.Start(ctx, "enrich.observable", trace.WithAttributes(
		attribute.String("observable.type", kind),
		attribute.String("feed", o.feed.Name()),
	))
	defer span.End()

	records, err := o.feed.Lookup(ctx, apiKey, obs.Value)
	if err != nil {
		return o.fail(span, obs, "feed_error", err)
	}
	if len(records) > limit {
		records = records[:limit]
	}
	span.SetAttributes(attribute.Int("records", len(records)))

	out, err := mapper.Map(records)
	if err != nil {
		return o.fail(span, obs, "data_shape_error", err)
	}
	metrics.ObservablesProcessed.WithLabelValues(kind, "ok").Inc()
	return slot{out: out}
}

func (o *Orchestrator) fail(span trace.Span, obs ctim.Observable, outcome string, err error) slot {
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)
	o.logger.Error("enrichment failed", "type", obs.Type, "value", obs.Value, "feed", o.feed.Name(), "err", err)
	metrics.ObservablesProcessed.WithLabelValues(string(obs.Type), outcome).Inc()
	entry := apierr.From(err)
	return slot{err: &entry}
}
