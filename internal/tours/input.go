package tours

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// TourInput is the body of a tour create request.
type TourInput struct {
	ID          string `json:"tour_id" validate:"required"`
	Description string `json:"tour_description" validate:"required"`
}

// TourUpdate is the body of a tour update request.
type TourUpdate struct {
	Description string `json:"tour_description" validate:"required"`
}

// LegInput is the body of a leg create or update request.
type LegInput struct {
	TourID      string  `json:"tour_id" validate:"required"`
	Origin      string  `json:"origin" validate:"required"`
	Destination string  `json:"destination" validate:"required"`
	Aircraft    *string `json:"aircraft,omitempty"`
	Route       *string `json:"route,omitempty"`
	Comments    *string `json:"comments,omitempty"`
	FlightDate  *string `json:"flight_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Link1       *string `json:"link1,omitempty"`
	Link2       *string `json:"link2,omitempty"`
	Link3       *string `json:"link3,omitempty"`
}

// Normalize uppercases airport and aircraft codes and turns blank optional
// fields into nil. It runs before validation, so "ksea" is accepted as KSEA.
func (in *LegInput) Normalize() {
	in.Origin = NormalizeCode(in.Origin)
	in.Destination = NormalizeCode(in.Destination)
	in.Aircraft = blankToNil(in.Aircraft)
	if in.Aircraft != nil {
		code := NormalizeCode(*in.Aircraft)
		in.Aircraft = &code
	}
	in.Route = blankToNil(in.Route)
	in.Comments = blankToNil(in.Comments)
	in.FlightDate = blankToNil(in.FlightDate)
	in.Link1 = blankToNil(in.Link1)
	in.Link2 = blankToNil(in.Link2)
	in.Link3 = blankToNil(in.Link3)
}

// Leg converts the input into a storable leg with the given id.
func (in LegInput) Leg(id int64) Leg {
	return Leg{
		ID:          id,
		TourID:      in.TourID,
		Origin:      in.Origin,
		Destination: in.Destination,
		Aircraft:    in.Aircraft,
		Route:       in.Route,
		Comments:    in.Comments,
		FlightDate:  in.FlightDate,
		Link1:       in.Link1,
		Link2:       in.Link2,
		Link3:       in.Link3,
	}
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

// validateInput runs struct validation and maps failures onto validation errors.
func validateInput(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return &Error{Kind: KindValidation, Message: MsgMissingFields}
		}
	}
	if verrs[0].Tag() == "datetime" {
		return &Error{Kind: KindValidation, Message: MsgInvalidFlightDate}
	}
	return Validationf("Invalid field %s", verrs[0].Field())
}
