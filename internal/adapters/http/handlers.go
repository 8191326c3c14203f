package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gfreitas/placepin/internal/core/domain"
)

// persistWarning marks responses whose mutation committed in memory but
// failed to reach durable storage. The operation itself still succeeded.
func persistWarning(c *fiber.Ctx, deps *Dependencies) {
	if deps.Collection.LastPersistError() != nil {
		c.Set("X-Persist-Warning", "write-through failed; collection not yet durable")
	}
}

// ListLocationsHandler returns the collection, optionally filtered by a
// free-text term and paginated.
func ListLocationsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var locations []domain.Location
		if q := c.Query("q"); q != "" {
			locations = deps.Collection.Filter(q)
		} else {
			locations = deps.Collection.List()
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 100)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 500 {
			limit = 100
		}

		total := len(locations)
		if offset >= total {
			locations = nil
		} else {
			end := offset + limit
			if end > total {
				end = total
			}
			locations = locations[offset:end]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: locations, Pagination: pg})
	}
}

// GetLocationHandler returns a single location by id.
func GetLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "location id is required")
		}
		loc, ok := deps.Collection.GetByID(id)
		if !ok {
			return errNotFound(c, "location not found")
		}
		return c.JSON(loc)
	}
}

// CreateLocationHandler validates and appends a new location.
func CreateLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var draft domain.LocationDraft
		if err := c.BodyParser(&draft); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		loc, err := deps.Collection.Add(c.UserContext(), draft)
		if err != nil {
			return serviceError(c, err)
		}

		persistWarning(c, deps)
		return c.Status(fiber.StatusCreated).JSON(loc)
	}
}

// UpdateLocationHandler merges a partial update into an existing location.
func UpdateLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "location id is required")
		}

		var patch domain.LocationPatch
		if err := c.BodyParser(&patch); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		loc, err := deps.Collection.Update(c.UserContext(), id, patch)
		if err != nil {
			return serviceError(c, err)
		}

		persistWarning(c, deps)
		return c.JSON(loc)
	}
}

// DeleteLocationHandler removes a location by id.
func DeleteLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "" {
			return errBadRequest(c, "location id is required")
		}

		if err := deps.Collection.Remove(c.UserContext(), id); err != nil {
			return serviceError(c, err)
		}

		persistWarning(c, deps)
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// StatsHandler returns distinct city/state/country counts.
func StatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Collection.Stats())
	}
}

// ExportHandler streams the versioned collection snapshot as a download.
func ExportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		export := deps.Collection.Export()
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="placepin-export.json"`)
		return c.JSON(export)
	}
}

// ImportHandler accepts an export payload back, merging by default or
// replacing the collection when mode=replace.
func ImportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		mode := domain.ImportMode(c.Query("mode", string(domain.ImportMerge)))
		if mode != domain.ImportMerge && mode != domain.ImportReplace {
			return errBadRequest(c, "mode must be merge or replace")
		}

		report, err := deps.Collection.Import(c.UserContext(), c.Body(), mode)
		if err != nil {
			return serviceError(c, err)
		}

		persistWarning(c, deps)
		return c.JSON(report)
	}
}

// validateRequest is the strict form-flow validation input.
type validateRequest struct {
	domain.LocationDraft
	ExcludeID string `json:"excludeId"`
}

// ValidateLocationHandler runs the strict validation path without mutating
// the collection, returning every field error at once.
func ValidateLocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req validateRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		fieldErrs := deps.Collection.Validate(req.LocationDraft, req.ExcludeID)
		if fieldErrs == nil {
			fieldErrs = []domain.FieldError{}
		}
		return c.JSON(fiber.Map{
			"valid":  len(fieldErrs) == 0,
			"errors": fieldErrs,
		})
	}
}
