package domain

import (
	"errors"
	"time"
)

// Tenant represents a factory site, the isolation boundary that partitions data ownership.
type Tenant struct {
	ID        string
	Code      string
	Name      string
	Active    bool
	CreatedAt time.Time
}

// Validate validates the tenant for persistence. Returns an error describing the first validation failure.
func (t *Tenant) Validate() error {
	if t.Code == "" {
		return errors.New("code is required")
	}
	if t.Name == "" {
		return errors.New("name is required")
	}
	return nil
}
