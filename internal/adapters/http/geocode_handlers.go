package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gfreitas/placepin/internal/pkg/geospatial"
)

// SearchHandler returns combined country and place suggestions for a query.
// Upstream failures surface as an empty list, never as an error.
func SearchHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := c.Query("q")
		limit := c.QueryInt("limit", 10)
		if len(query) > 200 {
			return errBadRequest(c, "query too long (max 200 characters)")
		}

		results := deps.Geocode.SearchCombined(c.UserContext(), query, limit)
		return c.JSON(emptyNotNull(results))
	}
}

// PlacesHandler returns place suggestions only.
func PlacesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := c.Query("q")
		limit := c.QueryInt("limit", 10)
		if len(query) > 200 {
			return errBadRequest(c, "query too long (max 200 characters)")
		}

		results := deps.Geocode.SearchPlaces(c.UserContext(), query, limit)
		return c.JSON(emptyNotNull(results))
	}
}

// CountriesHandler returns country suggestions only.
func CountriesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		results := deps.Geocode.SearchCountries(c.UserContext(), c.Query("q"))
		return c.JSON(emptyNotNull(results))
	}
}

// ReverseHandler resolves coordinates to a best-guess place. A miss is 404,
// not an error: the caller falls back to manual entry.
func ReverseHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat := c.QueryFloat("lat", 91)
		lng := c.QueryFloat("lng", 181)
		if !geospatial.ValidLat(lat) || !geospatial.ValidLng(lng) {
			return errBadRequest(c, "lat and lng are required and must be valid coordinates")
		}

		result := deps.Geocode.ReverseGeocode(c.UserContext(), lat, lng)
		if result == nil {
			return errNotFound(c, "no place found at these coordinates")
		}
		return c.JSON(result)
	}
}

func emptyNotNull[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
