package service

import (
	"context"
	"errors"
	"fmt"

	"candycost/internal/costing"
	"candycost/internal/model"
	"candycost/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("candycost/service")

// Persisted precision of derived values.
const (
	costPlaces  = 4
	ratioPlaces = 6
)

// RecalcReport summarizes a full recalculation.
type RecalcReport struct {
	Checked int
	Updated []uuid.UUID
	Failed  map[uuid.UUID]error
}

// CostEngine keeps persisted productionCost/productionCostRatio consistent
// with the catalog.
type CostEngine interface {
	// Recompute reprices the changed products and every transitive dependent
	// of the changed ids, inside the caller's write transaction. It returns
	// the ids whose persisted cost changed. A resolution error must abort
	// the caller's transaction.
	Recompute(ctx context.Context, r repository.Repos, reason string, trigger uuid.UUID, changed ...uuid.UUID) ([]uuid.UUID, error)
	// RecalculateAll reprices every product in its own transaction and
	// repairs drift. Products that fail to resolve are reported, not fatal.
	RecalculateAll(ctx context.Context) (*RecalcReport, error)
	// Breakdown prices one product from a consistent read snapshot.
	Breakdown(ctx context.Context, id uuid.UUID) (*model.Product, costing.Cost, error)
}

type costEngine struct {
	uow repository.UnitOfWork
}

func NewCostEngine(uow repository.UnitOfWork) CostEngine {
	return &costEngine{uow: uow}
}

func loadSnapshot(ctx context.Context, r repository.Repos) (*costing.Snapshot, error) {
	comps, err := r.Components.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load components: %w", err)
	}
	prods, err := r.Products.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	return costing.NewSnapshot(comps, prods), nil
}

func (e *costEngine) Recompute(ctx context.Context, r repository.Repos, reason string, trigger uuid.UUID, changed ...uuid.UUID) ([]uuid.UUID, error) {
	ctx, span := tracer.Start(ctx, "CostEngine.Recompute")
	defer span.End()
	span.SetAttributes(attribute.String("reason", reason), attribute.String("trigger", trigger.String()))

	snap, err := loadSnapshot(ctx, r)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// Products touched directly by the write keep the caller's reason; the
	// rest of the closure changed because something below them did.
	direct := make(map[uuid.UUID]bool)
	for _, id := range changed {
		if _, ok := snap.Product(id); ok {
			direct[id] = true
			continue
		}
		for _, dep := range snap.Dependents(id) {
			direct[dep] = true
		}
	}

	affected := snap.Affected(changed...)
	span.SetAttributes(attribute.Int("affected", len(affected)))

	resolver := costing.NewResolver(snap)
	var (
		updated []uuid.UUID
		history []model.CostHistory
	)
	for _, id := range affected {
		cost, err := resolver.Resolve(id)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "resolve failed")
			return nil, err
		}
		p, _ := snap.Product(id)
		entry, ok := costChange(p, cost, reason, trigger)
		if !ok {
			continue
		}
		if !direct[id] && reason != model.ReasonCascadeDelete && reason != model.ReasonRecalculation {
			entry.Reason = model.ReasonDependencyChange
		}
		if err := r.Products.UpdateCost(ctx, id, entry.CostAfter, entry.RatioAfter); err != nil {
			return nil, fmt.Errorf("update cost of %s: %w", id, err)
		}
		updated = append(updated, id)
		history = append(history, entry)
	}

	if err := r.History.Append(ctx, history); err != nil {
		return nil, fmt.Errorf("append cost history: %w", err)
	}
	return updated, nil
}

// costChange builds the history row for p, or reports false when the
// rounded cost did not move.
func costChange(p *model.Product, cost costing.Cost, reason string, trigger uuid.UUID) (model.CostHistory, bool) {
	newCost := cost.ProductionCost.Round(costPlaces)
	newRatio := cost.ProductionCostRatio.Round(ratioPlaces)
	if newCost.Equal(p.ProductionCost) && newRatio.Equal(p.ProductionCostRatio) {
		return model.CostHistory{}, false
	}
	entry := model.CostHistory{
		ID:          uuid.New(),
		ProductID:   p.ID,
		CostBefore:  p.ProductionCost,
		CostAfter:   newCost,
		RatioBefore: p.ProductionCostRatio,
		RatioAfter:  newRatio,
		Reason:      reason,
	}
	if trigger != uuid.Nil {
		t := trigger
		entry.TriggeredBy = &t
	}
	return entry, true
}

func (e *costEngine) RecalculateAll(ctx context.Context) (*RecalcReport, error) {
	ctx, span := tracer.Start(ctx, "CostEngine.RecalculateAll")
	defer span.End()

	report := &RecalcReport{Failed: make(map[uuid.UUID]error)}
	err := e.uow.Do(ctx, func(r repository.Repos) error {
		snap, err := loadSnapshot(ctx, r)
		if err != nil {
			return err
		}
		resolver := costing.NewResolver(snap)
		var history []model.CostHistory
		for _, id := range snap.ProductIDs() {
			report.Checked++
			cost, err := resolver.Resolve(id)
			if err != nil {
				report.Failed[id] = err
				log.Warn().Err(err).Str("product_id", id.String()).Msg("recalculation: product does not resolve")
				continue
			}
			p, _ := snap.Product(id)
			entry, ok := costChange(p, cost, model.ReasonRecalculation, uuid.Nil)
			if !ok {
				continue
			}
			log.Warn().
				Str("product_id", id.String()).
				Str("persisted", p.ProductionCost.String()).
				Str("computed", entry.CostAfter.String()).
				Msg("recalculation: cost drift repaired")
			if err := r.Products.UpdateCost(ctx, id, entry.CostAfter, entry.RatioAfter); err != nil {
				return fmt.Errorf("update cost of %s: %w", id, err)
			}
			report.Updated = append(report.Updated, id)
			history = append(history, entry)
		}
		return r.History.Append(ctx, history)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("checked", report.Checked),
		attribute.Int("updated", len(report.Updated)),
		attribute.Int("failed", len(report.Failed)),
	)
	return report, nil
}

func (e *costEngine) Breakdown(ctx context.Context, id uuid.UUID) (*model.Product, costing.Cost, error) {
	ctx, span := tracer.Start(ctx, "CostEngine.Breakdown",
		trace.WithAttributes(attribute.String("product_id", id.String())),
		trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	var (
		product *model.Product
		cost    costing.Cost
	)
	err := e.uow.Read(ctx, func(r repository.Repos) error {
		snap, err := loadReachable(ctx, r, id)
		if err != nil {
			return err
		}
		p, ok := snap.Product(id)
		if !ok {
			return &NotFoundError{Entity: "product", ID: id}
		}
		product = p
		cost, err = costing.NewResolver(snap).Resolve(id)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, costing.Cost{}, err
	}
	return product, cost, nil
}

// loadReachable reads only the part of the catalog reachable from root,
// level by level.
func loadReachable(ctx context.Context, r repository.Repos, root uuid.UUID) (*costing.Snapshot, error) {
	var (
		comps    []model.Component
		prods    []model.Product
		seen     = map[uuid.UUID]bool{root: true}
		frontier = []uuid.UUID{root}
	)
	for len(frontier) > 0 {
		found, err := r.Products.FindByIDs(ctx, frontier)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		isProduct := make(map[uuid.UUID]bool, len(found))
		var next []uuid.UUID
		for _, p := range found {
			isProduct[p.ID] = true
			prods = append(prods, p)
			for _, l := range p.Lines {
				if !seen[l.ComponentID] {
					seen[l.ComponentID] = true
					next = append(next, l.ComponentID)
				}
			}
		}
		var leafIDs []uuid.UUID
		for _, id := range frontier {
			if !isProduct[id] {
				leafIDs = append(leafIDs, id)
			}
		}
		leaves, err := r.Components.FindByIDs(ctx, leafIDs)
		if err != nil {
			return nil, err
		}
		comps = append(comps, leaves...)
		frontier = next
	}
	return costing.NewSnapshot(comps, prods), nil
}
