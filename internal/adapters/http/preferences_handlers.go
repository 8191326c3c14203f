package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gfreitas/placepin/internal/core/domain"
)

// GetPreferencesHandler returns the stored display preferences, defaulted
// when nothing was ever saved.
func GetPreferencesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Preferences.Get(c.UserContext()))
	}
}

// UpdatePreferencesHandler shallow-merges a partial preferences object into
// the stored one.
func UpdatePreferencesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var patch domain.PreferencesPatch
		if err := c.BodyParser(&patch); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		prefs, err := deps.Preferences.Update(c.UserContext(), patch)
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(prefs)
	}
}

// ResetPreferencesHandler reverts preferences to the defaults.
func ResetPreferencesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		prefs, err := deps.Preferences.Reset(c.UserContext())
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(prefs)
	}
}
