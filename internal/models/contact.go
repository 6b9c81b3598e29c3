package models

import (
	"slices"
	"time"

	"github.com/dmitrijs2005/omnidesk/internal/common"
)

// Contact is a person in the tenant's address book.
type Contact struct {
	Meta
	ContactFields
}

// Clone returns a deep copy of c.
func (c Contact) Clone() Contact {
	c.Phone = clonePtr(c.Phone)
	c.Company = clonePtr(c.Company)
	c.Tags = slices.Clone(c.Tags)
	c.LastContactedAt = clonePtr(c.LastContactedAt)
	return c
}

// ContactFields are the client-writable contact attributes.
type ContactFields struct {
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Phone             *string    `json:"phone"`
	Company           *string    `json:"company"`
	Tags              []string   `json:"tags"`
	Subscribed        bool       `json:"subscribed"`
	ConversationCount int        `json:"conversation_count"`
	LastContactedAt   *time.Time `json:"last_contacted_at"`
}

func (f ContactFields) Validate() error {
	if err := required("name", f.Name); err != nil {
		return err
	}
	if f.ConversationCount < 0 {
		return &common.ValidationError{Field: "conversation_count", Reason: "must not be negative"}
	}
	return nil
}

// ContactPatch lists the attributes to change; nil fields are left untouched.
// Clear names nullable fields to reset to null.
type ContactPatch struct {
	Name              *string    `json:"name,omitempty"`
	Email             *string    `json:"email,omitempty"`
	Phone             *string    `json:"phone,omitempty"`
	Company           *string    `json:"company,omitempty"`
	Tags              *[]string  `json:"tags,omitempty"`
	Subscribed        *bool      `json:"subscribed,omitempty"`
	ConversationCount *int       `json:"conversation_count,omitempty"`
	LastContactedAt   *time.Time `json:"last_contacted_at,omitempty"`
	Clear             []string   `json:"clear,omitempty"`
}

func (p ContactPatch) Cleared() []string { return p.Clear }

func (p ContactPatch) Validate() error {
	if p.Name != nil {
		if err := required("name", *p.Name); err != nil {
			return err
		}
	}
	if p.ConversationCount != nil && *p.ConversationCount < 0 {
		return &common.ValidationError{Field: "conversation_count", Reason: "must not be negative"}
	}
	return clearable(p.Clear, map[string]bool{
		"phone":             p.Phone != nil,
		"company":           p.Company != nil,
		"last_contacted_at": p.LastContactedAt != nil,
	})
}
