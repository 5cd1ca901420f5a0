// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

package config

import (
	"fmt"

	"github.com/tomtom215/otakumatch/internal/validation"
)

// Validate checks field rules and cross-field constraints.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	return c.validateRecommend()
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case "badger":
		if c.Storage.Path == "" {
			return fmt.Errorf("BADGER_PATH is required when STORAGE_BACKEND=badger")
		}
	case "redis":
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when STORAGE_BACKEND=redis")
		}
	}
	return nil
}

func (c *Config) validateRecommend() error {
	r := c.Recommend
	if r.DefaultLimit > r.MaxLimit {
		return fmt.Errorf("recommend.default_limit (%d) must not exceed recommend.max_limit (%d)", r.DefaultLimit, r.MaxLimit)
	}
	return nil
}
