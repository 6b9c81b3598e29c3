package models

import (
	"slices"

	"github.com/dmitrijs2005/omnidesk/internal/common"
)

// Channel is the delivery channel a message template is written for.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelChat     Channel = "chat"
)

var channels = []Channel{ChannelEmail, ChannelSMS, ChannelWhatsApp, ChannelChat}

// Template is a reusable message body with placeholders.
type Template struct {
	Meta
	TemplateFields
}

// Clone returns a deep copy of t.
func (t Template) Clone() Template {
	t.Subject = clonePtr(t.Subject)
	t.Category = clonePtr(t.Category)
	t.Variables = slices.Clone(t.Variables)
	return t
}

type TemplateFields struct {
	Name       string   `json:"name"`
	Channel    Channel  `json:"channel"`
	Subject    *string  `json:"subject"`
	Body       string   `json:"body"`
	Category   *string  `json:"category"`
	Variables  []string `json:"variables"`
	UsageCount int      `json:"usage_count"`
	Active     bool     `json:"active"`
}

func (f TemplateFields) Validate() error {
	if err := required("name", f.Name); err != nil {
		return err
	}
	if err := oneOf("channel", f.Channel, channels...); err != nil {
		return err
	}
	if f.UsageCount < 0 {
		return &common.ValidationError{Field: "usage_count", Reason: "must not be negative"}
	}
	return nil
}

type TemplatePatch struct {
	Name       *string   `json:"name,omitempty"`
	Channel    *Channel  `json:"channel,omitempty"`
	Subject    *string   `json:"subject,omitempty"`
	Body       *string   `json:"body,omitempty"`
	Category   *string   `json:"category,omitempty"`
	Variables  *[]string `json:"variables,omitempty"`
	UsageCount *int      `json:"usage_count,omitempty"`
	Active     *bool     `json:"active,omitempty"`
	Clear      []string  `json:"clear,omitempty"`
}

func (p TemplatePatch) Cleared() []string { return p.Clear }

func (p TemplatePatch) Validate() error {
	if p.Name != nil {
		if err := required("name", *p.Name); err != nil {
			return err
		}
	}
	if p.Channel != nil {
		if err := oneOf("channel", *p.Channel, channels...); err != nil {
			return err
		}
	}
	if p.UsageCount != nil && *p.UsageCount < 0 {
		return &common.ValidationError{Field: "usage_count", Reason: "must not be negative"}
	}
	return clearable(p.Clear, map[string]bool{
		"subject":  p.Subject != nil,
		"category": p.Category != nil,
	})
}
