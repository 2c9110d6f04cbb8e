package workflow

import (
	"fmt"

	"github.com/fekuna/omnipos-catalog-gate/internal/model"
)

type ActionKind string

const (
	ActionSetStatus             ActionKind = "set_status"
	ActionPublishAll            ActionKind = "publish_all"
	ActionEnsureRegionalCatalog ActionKind = "ensure_regional_catalog"
	ActionConfirmMainItem       ActionKind = "confirm_main_item"
	ActionConfirmGroups         ActionKind = "confirm_groups"
	ActionRecomputeUnitPrice    ActionKind = "recompute_unit_price"
)

type Action struct {
	Kind   ActionKind
	Status model.ProductStatus // only for ActionSetStatus
}

// Input is everything the transition rule looks at.
type Input struct {
	Passed         bool
	Status         model.ProductStatus
	MainItemHolder bool
	MainConfirmed  bool
	UnitLinked     bool
	// Handshake enables the main-item confirmation round trip for tenants that require it.
	Handshake bool
}

// Plan is the decided next status and the ordered side effects to execute.
type Plan struct {
	From    model.ProductStatus
	Next    model.ProductStatus
	Actions []Action
}

// Decide applies the DRAFT/ACTIVE publish rule. Statuses other than DRAFT and ACTIVE are never touched.
func Decide(in Input) Plan {
	plan := Plan{From: in.Status, Next: in.Status}

	if !in.Passed {
		if in.Status == model.StatusActive {
			plan.setStatus(model.StatusDraft)
		}
		return plan
	}

	switch in.Status {
	case model.StatusDraft:
		plan.setStatus(model.StatusActive)
		plan.add(ActionPublishAll)
		plan.add(ActionEnsureRegionalCatalog)
		if in.Handshake && in.MainItemHolder && !in.MainConfirmed {
			plan.add(ActionConfirmMainItem)
		}
	case model.StatusActive:
		plan.add(ActionPublishAll)
		if !in.MainItemHolder {
			plan.add(ActionConfirmGroups)
			if in.UnitLinked {
				plan.add(ActionRecomputeUnitPrice)
			}
		}
	}
	return plan
}

func (p *Plan) setStatus(s model.ProductStatus) {
	p.Next = s
	p.Actions = append(p.Actions, Action{Kind: ActionSetStatus, Status: s})
}

func (p *Plan) add(kind ActionKind) {
	p.Actions = append(p.Actions, Action{Kind: kind})
}

// Has reports whether the plan contains an action of the given kind.
func (p Plan) Has(kind ActionKind) bool {
	for _, a := range p.Actions {
		if a.Kind == kind {
			return true
		}
	}
	return false
}

func (p Plan) StatusChanged() bool {
	return p.Next != p.From
}

// ReportLine describes the status transition, or returns "" when the status is unchanged.
func (p Plan) ReportLine() string {
	if !p.StatusChanged() {
		return ""
	}
	return fmt.Sprintf("Action: Product has been set to %s from %s.", p.Next, p.From)
}
