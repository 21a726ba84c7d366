// Warden - Behavioral Violation Detection and Escalation for Game Servers
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenmod/warden

package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ValidationError describes a single rejected configuration field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator returns the singleton validator instance. Thread-safe; the
// validator caches struct metadata across calls.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the configuration structurally. An empty result means the
// configuration is acceptable. Reload callers must keep the previous
// configuration active when the result is non-empty.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	errs = append(errs, c.validateTagged()...)
	errs = append(errs, c.validateProfiles()...)
	errs = append(errs, c.validateLadders()...)
	errs = append(errs, c.validateOfflineRestrictions()...)

	return errs
}

// validateTagged runs the validator v10 tag checks on the root struct.
func (c *Config) validateTagged() []ValidationError {
	err := getValidator().Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationError{{Field: "config", Message: err.Error()}}
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fe.Namespace(),
			Message: fmt.Sprintf("failed %q validation (value %v)", fe.Tag(), fe.Value()),
		})
	}
	return out
}

func (c *Config) validateProfiles() []ValidationError {
	var errs []ValidationError
	for category, profile := range c.Profiles {
		field := "profiles." + category
		if profile == nil {
			errs = append(errs, ValidationError{Field: field, Message: "profile must not be empty"})
			continue
		}
		if profile.Flag == nil && profile.Log == nil && profile.Notify == nil {
			errs = append(errs, ValidationError{Field: field, Message: "profile declares no flag, log, or notify rule"})
		}
		if profile.Log != nil && profile.Log.Template == "" {
			errs = append(errs, ValidationError{Field: field + ".log.template", Message: "log rule requires a template"})
		}
		if profile.Log != nil {
			switch profile.Log.Level {
			case "debug", "info", "warn", "error":
			default:
				errs = append(errs, ValidationError{
					Field:   field + ".log.level",
					Message: fmt.Sprintf("unknown log level %q", profile.Log.Level),
				})
			}
		}
		if profile.Notify != nil && profile.Notify.Template == "" {
			errs = append(errs, ValidationError{Field: field + ".notify.template", Message: "notify rule requires a template"})
		}
	}
	return errs
}

func (c *Config) validateLadders() []ValidationError {
	var errs []ValidationError
	for category, ladder := range c.Ladders {
		field := "ladders." + category
		if ladder == nil || len(ladder.Tiers) == 0 {
			errs = append(errs, ValidationError{Field: field, Message: "ladder must declare at least one tier"})
			continue
		}

		var prev uint32
		for i := range ladder.Tiers {
			tier := &ladder.Tiers[i]
			tierField := fmt.Sprintf("%s.tiers[%d]", field, i)

			if tier.FlagThreshold == 0 {
				errs = append(errs, ValidationError{Field: tierField + ".flag_threshold", Message: "threshold must be at least 1"})
			}
			if i > 0 && tier.FlagThreshold <= prev {
				errs = append(errs, ValidationError{
					Field:   tierField + ".flag_threshold",
					Message: fmt.Sprintf("thresholds must be strictly ascending (%d after %d)", tier.FlagThreshold, prev),
				})
			}
			prev = tier.FlagThreshold

			if !tier.Action.Valid() {
				errs = append(errs, ValidationError{
					Field:   tierField + ".action",
					Message: fmt.Sprintf("unknown action type %q", tier.Action),
				})
				continue
			}

			switch tier.Action {
			case ActionTimedRestrict, ActionMute:
				if tier.Duration == "" {
					errs = append(errs, ValidationError{
						Field:   tierField + ".duration",
						Message: fmt.Sprintf("action %q requires a duration", tier.Action),
					})
				}
			case ActionRemoveItem:
				if tier.ItemID == "" {
					errs = append(errs, ValidationError{
						Field:   tierField + ".item_id",
						Message: "removeItem requires an item id",
					})
				}
			}
		}
	}
	return errs
}

func (c *Config) validateOfflineRestrictions() []ValidationError {
	var errs []ValidationError
	for i, r := range c.OfflineRestrictions {
		if r.Name == "" && r.ID == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("offline_restrictions[%d]", i),
				Message: "restriction requires a name or an id",
			})
		}
	}
	return errs
}
