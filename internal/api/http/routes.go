package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/short-term-forecast/internal/districts"
	"github.com/i474232898/short-term-forecast/internal/store"
	"github.com/i474232898/short-term-forecast/internal/weather"
)

var validate = validator.New()

// ErrorHandler renders every error as {"error": true, "message": ...}.
// Forecast failures map onto statuses by kind.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, districts.ErrNotFound), errors.Is(err, store.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, districts.ErrGeocodingDisabled):
		code = fiber.StatusBadRequest
	default:
		switch weather.FailureKindOf(err) {
		case weather.FailureEmptyData:
			code = fiber.StatusNotFound
		case weather.FailureAPIStatus:
			code = fiber.StatusBadGateway
		case weather.FailureTransport:
			code = fiber.StatusServiceUnavailable
		}
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, resolver *districts.Resolver) {
	v1 := app.Group("/api/v1")

	v1.Get("/forecast", func(c *fiber.Ctx) error {
		loc, err := resolveLocation(c, resolver)
		if err != nil {
			return err
		}

		snapshot, err := service.Forecast(c.UserContext(), loc, time.Now())
		if err != nil {
			return err
		}

		return c.JSON(newForecastResponse(snapshot))
	})

	v1.Get("/forecast/latest", func(c *fiber.Ctx) error {
		loc, err := resolveLocation(c, resolver)
		if err != nil {
			return err
		}

		snapshot, err := service.GetLatest(loc)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no forecast data for requested location")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch forecast data")
		}

		return c.JSON(newForecastResponse(snapshot))
	})

	v1.Get("/forecast/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc, err := resolveLocation(c, resolver)
		if err != nil {
			return err
		}

		snapshots, err := service.GetRange(loc, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no forecast history for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch forecast history")
		}

		return c.JSON(fiber.Map{
			"location":  loc,
			"from":      req.From,
			"to":        req.To,
			"snapshots": snapshots,
		})
	})

	v1.Get("/districts", func(c *fiber.Ctx) error {
		rows := resolver.Table().List(c.Query("prefix"))
		return c.JSON(fiber.Map{
			"count":     len(rows),
			"districts": rows,
		})
	})
}

type forecastResponse struct {
	ID        string           `json:"id"`
	Location  weather.Location `json:"location"`
	BaseDate  string           `json:"baseDate"`
	BaseTime  string           `json:"baseTime"`
	FetchedAt time.Time        `json:"fetchedAt"`
	Current   []weather.Record `json:"current"`
	Forecast  []weather.Record `json:"forecast"`
	Dropped   int              `json:"dropped"`
}

func newForecastResponse(s weather.Snapshot) forecastResponse {
	return forecastResponse{
		ID:        s.ID,
		Location:  s.Location,
		BaseDate:  s.Reference.Date,
		BaseTime:  s.Reference.Time,
		FetchedAt: s.FetchedAt,
		Current:   s.Views.Current,
		Forecast:  s.Views.Forecast,
		Dropped:   s.Views.Dropped,
	}
}

// locationQuery holds the locator parameters. Exactly one locator is allowed:
// district, address, lat+lon, or q.
type locationQuery struct {
	District string
	Address  string
	Lat      string `validate:"omitempty,latitude"`
	Lon      string `validate:"omitempty,longitude"`
	Q        string
}

func (l locationQuery) locators() int {
	n := 0
	for _, s := range []string{l.District, l.Address, l.Q} {
		if s != "" {
			n++
		}
	}
	if l.Lat != "" || l.Lon != "" {
		n++
	}
	return n
}

func parseLocationQuery(c *fiber.Ctx) (locationQuery, error) {
	var q locationQuery

	q.District = c.Query("district")
	q.Address = c.Query("address")
	q.Lat = c.Query("lat")
	q.Lon = c.Query("lon")
	q.Q = c.Query("q")

	if err := validate.Struct(q); err != nil {
		return q, err
	}
	if (q.Lat == "") != (q.Lon == "") {
		return q, errors.New("lat and lon must be given together")
	}
	if n := q.locators(); n != 1 {
		return q, errors.New("exactly one of district, address, lat/lon or q is required")
	}

	return q, nil
}

func resolveLocation(c *fiber.Ctx, resolver *districts.Resolver) (weather.Location, error) {
	q, err := parseLocationQuery(c)
	if err != nil {
		return weather.Location{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	switch {
	case q.District != "":
		return resolver.ResolveDistrict(q.District)
	case q.Address != "":
		return resolver.ResolveAddress(q.Address)
	case q.Lat != "":
		// Both already passed the latitude/longitude validators.
		lat, _ := strconv.ParseFloat(q.Lat, 64)
		lon, _ := strconv.ParseFloat(q.Lon, 64)
		return resolver.ResolveCoordinates(lat, lon)
	default:
		return resolver.ResolveQuery(q.Q)
	}
}

// historyQuery holds the time range of the history endpoint.
type historyQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
