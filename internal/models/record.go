// Package models defines the tenant-scoped records served by the table
// backend, their create inputs and their partial patches.
package models

import (
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/omnidesk/internal/common"
)

// Meta is the record metadata assigned by the backend. Clients never set it;
// TenantID is immutable after creation.
type Meta struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validator is implemented by create inputs and patches.
type Validator interface {
	Validate() error
}

// Record is implemented by the stored entities. Clone returns a copy that
// shares no memory with the receiver.
type Record[E any] interface {
	Clone() E
}

// ClearKey is the patch member naming nullable fields to reset to null.
const ClearKey = "clear"

// Patch is a partial update. Cleared lists the nullable fields it resets.
type Patch interface {
	Validator
	Cleared() []string
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// clearable checks that every cleared field is nullable and is not also
// set by the same patch. nullable maps each nullable field to whether the
// patch sets it.
func clearable(clear []string, nullable map[string]bool) error {
	for i, f := range clear {
		set, ok := nullable[f]
		if !ok {
			return &common.ValidationError{Field: ClearKey, Reason: f + " cannot be cleared"}
		}
		if set {
			return &common.ValidationError{Field: ClearKey, Reason: f + " is both set and cleared"}
		}
		if slices.Contains(clear[:i], f) {
			return &common.ValidationError{Field: ClearKey, Reason: f + " is listed twice"}
		}
	}
	return nil
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &common.ValidationError{Field: field, Reason: "is required"}
	}
	return nil
}

func oneOf[T ~string](field string, value T, allowed ...T) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return &common.ValidationError{Field: field, Reason: "has unsupported value " + string(value)}
}
