package tours

import (
	"context"
	"errors"
	"strconv"
	"time"

	"fstours/internal/events"
	"fstours/internal/logging"
)

// Store is the record store holding tours and legs. Get methods return
// nil, nil when the row does not exist.
type Store interface {
	ListTours(ctx context.Context) ([]Tour, error)
	GetTour(ctx context.Context, id string) (*Tour, error)
	InsertTour(ctx context.Context, t Tour) error
	UpdateTour(ctx context.Context, t Tour) error
	DeleteTour(ctx context.Context, id string) error
	TourHasLegs(ctx context.Context, id string) (bool, error)

	// ListLegs returns legs ordered by id, or when q.TourID is set the legs
	// of that tour ordered by flight date (undated last) then id.
	ListLegs(ctx context.Context, q LegQuery) ([]LegView, error)
	GetLeg(ctx context.Context, id int64) (*LegView, error)
	InsertLeg(ctx context.Context, l Leg) (int64, error)
	UpdateLeg(ctx context.Context, l Leg) error
	DeleteLeg(ctx context.Context, id int64) error
}

// LegQuery filters ListLegs.
type LegQuery struct {
	TourID string
}

// Service implements the tour and leg operations behind the HTTP API.
// Each operation runs its guards and then at most one mutating store call.
type Service struct {
	store       Store
	enricher    *Enricher
	publisher   events.Publisher
	requireTour bool
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the sink for change events.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithRequireTour makes leg create and update fail with NotFound when the
// referenced tour does not exist.
func WithRequireTour(require bool) Option {
	return func(s *Service) { s.requireTour = require }
}

// NewService creates a service over the given store and resolver.
func NewService(store Store, resolver Resolver, opts ...Option) *Service {
	s := &Service{
		store:     store,
		enricher:  NewEnricher(resolver),
		publisher: events.Nop{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListTours returns every tour.
func (s *Service) ListTours(ctx context.Context) ([]Tour, error) {
	tours, err := s.store.ListTours(ctx)
	if err != nil {
		return nil, err
	}
	if tours == nil {
		tours = []Tour{}
	}
	return tours, nil
}

// GetTour returns one tour.
func (s *Service) GetTour(ctx context.Context, id string) (*Tour, error) {
	t, err := s.store.GetTour(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, NotFound(MsgTourNotFound)
	}
	return t, nil
}

// CreateTour inserts a tour with a caller-supplied id.
func (s *Service) CreateTour(ctx context.Context, in TourInput) (*Tour, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	existing, err := s.store.GetTour(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, Conflict(MsgTourExists)
	}

	t := Tour{ID: in.ID, Description: in.Description}
	if err := s.store.InsertTour(ctx, t); err != nil {
		return nil, err
	}

	s.emit(ctx, events.EntityTour, events.ActionCreated, t.ID)
	return &t, nil
}

// UpdateTour replaces the description of an existing tour.
func (s *Service) UpdateTour(ctx context.Context, id string, in TourUpdate) error {
	if err := validateInput(in); err != nil {
		return err
	}
	if _, err := s.GetTour(ctx, id); err != nil {
		return err
	}

	if err := s.store.UpdateTour(ctx, Tour{ID: id, Description: in.Description}); err != nil {
		return err
	}

	s.emit(ctx, events.EntityTour, events.ActionUpdated, id)
	return nil
}

// DeleteTour removes a tour that no leg references.
func (s *Service) DeleteTour(ctx context.Context, id string) error {
	if _, err := s.GetTour(ctx, id); err != nil {
		return err
	}

	hasLegs, err := s.store.TourHasLegs(ctx, id)
	if err != nil {
		return err
	}
	if hasLegs {
		return Conflict(MsgTourHasLegs)
	}

	if err := s.store.DeleteTour(ctx, id); err != nil {
		return err
	}

	s.emit(ctx, events.EntityTour, events.ActionDeleted, id)
	return nil
}

// ListLegs returns all legs, enriched.
func (s *Service) ListLegs(ctx context.Context) ([]EnrichedLeg, error) {
	views, err := s.store.ListLegs(ctx, LegQuery{})
	if err != nil {
		return nil, err
	}
	return s.enricher.All(ctx, wrap(views)), nil
}

// GetLeg returns one enriched leg.
func (s *Service) GetLeg(ctx context.Context, id int64) (*EnrichedLeg, error) {
	v, err := s.store.GetLeg(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, NotFound(MsgLegNotFound)
	}
	return s.enricher.One(ctx, &EnrichedLeg{LegView: *v}), nil
}

// ListTourLegs returns the enriched legs of one tour, ordered by flight date
// then id and stamped with their sequence numbers.
func (s *Service) ListTourLegs(ctx context.Context, tourID string) ([]EnrichedLeg, error) {
	if _, err := s.GetTour(ctx, tourID); err != nil {
		return nil, err
	}

	views, err := s.store.ListLegs(ctx, LegQuery{TourID: tourID})
	if err != nil {
		return nil, err
	}
	return AssignSequence(s.enricher.All(ctx, wrap(views))), nil
}

// CreateLeg normalizes, validates and inserts a leg, returning its id.
func (s *Service) CreateLeg(ctx context.Context, in LegInput) (int64, error) {
	in.Normalize()
	if err := validateInput(in); err != nil {
		return 0, err
	}
	if err := s.checkTour(ctx, in.TourID); err != nil {
		return 0, err
	}

	id, err := s.store.InsertLeg(ctx, in.Leg(0))
	if err != nil {
		return 0, err
	}

	s.emit(ctx, events.EntityLeg, events.ActionCreated, strconv.FormatInt(id, 10))
	return id, nil
}

// UpdateLeg normalizes, validates and replaces an existing leg.
func (s *Service) UpdateLeg(ctx context.Context, id int64, in LegInput) error {
	in.Normalize()
	if err := validateInput(in); err != nil {
		return err
	}
	if err := s.legExists(ctx, id); err != nil {
		return err
	}
	if err := s.checkTour(ctx, in.TourID); err != nil {
		return err
	}

	if err := s.store.UpdateLeg(ctx, in.Leg(id)); err != nil {
		return err
	}

	s.emit(ctx, events.EntityLeg, events.ActionUpdated, strconv.FormatInt(id, 10))
	return nil
}

// DeleteLeg removes a leg.
func (s *Service) DeleteLeg(ctx context.Context, id int64) error {
	if err := s.legExists(ctx, id); err != nil {
		return err
	}

	if err := s.store.DeleteLeg(ctx, id); err != nil {
		return err
	}

	s.emit(ctx, events.EntityLeg, events.ActionDeleted, strconv.FormatInt(id, 10))
	return nil
}

func (s *Service) legExists(ctx context.Context, id int64) error {
	v, err := s.store.GetLeg(ctx, id)
	if err != nil {
		return err
	}
	if v == nil {
		return NotFound(MsgLegNotFound)
	}
	return nil
}

// checkTour guards leg writes against dangling tour ids when enabled.
func (s *Service) checkTour(ctx context.Context, tourID string) error {
	if !s.requireTour {
		return nil
	}
	_, err := s.GetTour(ctx, tourID)
	return err
}

// emit publishes a change event. The mutation is already committed, so a
// failed publish is logged and dropped.
func (s *Service) emit(ctx context.Context, entity, action, key string) {
	ev := events.Event{Entity: entity, Action: action, Key: key, At: s.now().UTC()}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("entity", entity).Str("action", action).Str("key", key).
			Msg("publish change event failed")
	}
}

func wrap(views []LegView) []EnrichedLeg {
	legs := make([]EnrichedLeg, len(views))
	for i := range views {
		legs[i] = EnrichedLeg{LegView: views[i]}
	}
	return legs
}

// IsKind reports whether err is a tours error of kind k.
func IsKind(err error, k Kind) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == k
}
