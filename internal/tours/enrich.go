package tours

import (
	"context"

	"fstours/internal/logging"
	"fstours/internal/metrics"
)

// Enricher merges airport coordinates and names and the aircraft model into
// leg projections. Lookup failures never surface as errors; the derived key
// is simply left out.
type Enricher struct {
	resolver Resolver
}

// NewEnricher creates an enricher backed by the given resolver.
func NewEnricher(r Resolver) *Enricher {
	return &Enricher{resolver: r}
}

// One enriches a single leg in place and returns it. A nil leg is returned
// unchanged.
func (e *Enricher) One(ctx context.Context, leg *EnrichedLeg) *EnrichedLeg {
	if leg == nil {
		return nil
	}

	// Derived keys are recomputed from scratch so repeated calls agree.
	leg.OriginCoords, leg.OriginName = nil, nil
	leg.DestinationCoords, leg.DestinationName = nil, nil
	leg.AircraftModel = nil

	if a := e.airport(ctx, leg.Origin); a != nil {
		leg.OriginCoords = coordsOf(a)
		leg.OriginName = nullable(a.Name)
	}
	if a := e.airport(ctx, leg.Destination); a != nil {
		leg.DestinationCoords = coordsOf(a)
		leg.DestinationName = nullable(a.Name)
	}
	if leg.Aircraft != nil {
		if t := e.aircraftType(ctx, *leg.Aircraft); t != nil && t.Model != nil {
			model := *t.Model
			leg.AircraftModel = &model
		}
	}

	return leg
}

// All enriches every leg of the slice independently, keeping order and
// length. nil and empty slices are returned as given.
func (e *Enricher) All(ctx context.Context, legs []EnrichedLeg) []EnrichedLeg {
	for i := range legs {
		e.One(ctx, &legs[i])
	}
	return legs
}

func (e *Enricher) airport(ctx context.Context, code string) *Airport {
	if code == "" {
		return nil
	}
	a, err := e.resolver.Airport(ctx, code)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("icao", code).Msg("airport lookup failed")
		metrics.RecordLookup("airport", "error")
		return nil
	}
	if a == nil {
		metrics.RecordLookup("airport", "miss")
		return nil
	}
	metrics.RecordLookup("airport", "hit")
	return a
}

func (e *Enricher) aircraftType(ctx context.Context, code string) *AircraftType {
	if code == "" {
		return nil
	}
	t, err := e.resolver.AircraftType(ctx, code)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("icao", code).Msg("aircraft lookup failed")
		metrics.RecordLookup("aircraft", "error")
		return nil
	}
	if t == nil {
		metrics.RecordLookup("aircraft", "miss")
		return nil
	}
	metrics.RecordLookup("aircraft", "hit")
	return t
}

func coordsOf(a *Airport) *Coords {
	if a.Latitude == nil || a.Longitude == nil {
		return nil
	}
	return &Coords{*a.Latitude, *a.Longitude}
}
