package models

import (
	"slices"
	"time"

	"github.com/dmitrijs2005/omnidesk/internal/common"
)

// Stage is a column of the sales pipeline board.
type Stage string

const (
	StageLead      Stage = "lead"
	StageQualified Stage = "qualified"
	StageProposal  Stage = "proposal"
	StageWon       Stage = "won"
	StageLost      Stage = "lost"
)

var stages = []Stage{StageLead, StageQualified, StageProposal, StageWon, StageLost}

// Closed reports whether the stage ends the deal.
func (s Stage) Closed() bool {
	return s == StageWon || s == StageLost
}

// Deal is an opportunity on the pipeline board. Monetary values are kept in
// minor units.
type Deal struct {
	Meta
	DealFields
}

// Clone returns a deep copy of d.
func (d Deal) Clone() Deal {
	d.ContactID = clonePtr(d.ContactID)
	d.Labels = slices.Clone(d.Labels)
	d.ClosedAt = clonePtr(d.ClosedAt)
	return d
}

type DealFields struct {
	Title      string     `json:"title"`
	ContactID  *string    `json:"contact_id"`
	Stage      Stage      `json:"stage"`
	ValueCents int64      `json:"value_cents"`
	Currency   string     `json:"currency"`
	Labels     []string   `json:"labels"`
	ClosedAt   *time.Time `json:"closed_at"`
}

func (f DealFields) Validate() error {
	if err := required("title", f.Title); err != nil {
		return err
	}
	if err := oneOf("stage", f.Stage, stages...); err != nil {
		return err
	}
	if f.ValueCents < 0 {
		return &common.ValidationError{Field: "value_cents", Reason: "must not be negative"}
	}
	if len(f.Currency) != 3 {
		return &common.ValidationError{Field: "currency", Reason: "must be a 3-letter code"}
	}
	return nil
}

type DealPatch struct {
	Title      *string    `json:"title,omitempty"`
	ContactID  *string    `json:"contact_id,omitempty"`
	Stage      *Stage     `json:"stage,omitempty"`
	ValueCents *int64     `json:"value_cents,omitempty"`
	Currency   *string    `json:"currency,omitempty"`
	Labels     *[]string  `json:"labels,omitempty"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
	Clear      []string   `json:"clear,omitempty"`
}

func (p DealPatch) Cleared() []string { return p.Clear }

func (p DealPatch) Validate() error {
	if p.Title != nil {
		if err := required("title", *p.Title); err != nil {
			return err
		}
	}
	if p.Stage != nil {
		if err := oneOf("stage", *p.Stage, stages...); err != nil {
			return err
		}
	}
	if p.ValueCents != nil && *p.ValueCents < 0 {
		return &common.ValidationError{Field: "value_cents", Reason: "must not be negative"}
	}
	if p.Currency != nil && len(*p.Currency) != 3 {
		return &common.ValidationError{Field: "currency", Reason: "must be a 3-letter code"}
	}
	return clearable(p.Clear, map[string]bool{
		"contact_id": p.ContactID != nil,
		"closed_at":  p.ClosedAt != nil,
	})
}
