// Package capacity maps subscription tiers to quotas on countable resources
// and decides whether one more unit fits.
package capacity

import (
	"fmt"
	"strings"

	"teams-service/internal/apperrors"
)

type Tier string

const (
	TierFree    Tier = "free"
	TierMonthly Tier = "monthly"
	TierAnnual  Tier = "annual"
)

// ParseTier normalises a stored tier value. Unknown values are treated as free.
func ParseTier(raw string) Tier {
	switch Tier(strings.ToLower(strings.TrimSpace(raw))) {
	case TierMonthly:
		return TierMonthly
	case TierAnnual:
		return TierAnnual
	default:
		return TierFree
	}
}

func (t Tier) IsPaid() bool {
	return t == TierMonthly || t == TierAnnual
}

type Resource string

const (
	ResourceTeams       Resource = "teams"
	ResourceActiveTasks Resource = "active_tasks"
)

// Limits holds the cap for the free tier and for every paid tier.
type Limits struct {
	Free int
	Paid int
}

const (
	DefaultFreeTeams = 1
	DefaultPaidTeams = 100
	DefaultFreeTasks = 6
	DefaultPaidTasks = 999999
)

type Policy struct {
	limits map[Resource]Limits
}

func DefaultPolicy() Policy {
	return NewPolicy(
		Limits{Free: DefaultFreeTeams, Paid: DefaultPaidTeams},
		Limits{Free: DefaultFreeTasks, Paid: DefaultPaidTasks},
	)
}

func NewPolicy(teams, activeTasks Limits) Policy {
	return Policy{limits: map[Resource]Limits{
		ResourceTeams:       teams,
		ResourceActiveTasks: activeTasks,
	}}
}

// Limit returns the cap for resource at tier. Unknown resources are capped at zero.
func (p Policy) Limit(resource Resource, tier Tier) int {
	l, ok := p.limits[resource]
	if !ok {
		return 0
	}
	if tier.IsPaid() {
		return l.Paid
	}
	return l.Free
}

func (p Policy) Limits(resource Resource) Limits {
	return p.limits[resource]
}

// Decision is the outcome of Check.
type Decision struct {
	Allowed bool
	Current int
	Limit   int
}

// Check allows one more unit while current is strictly below limit.
func Check(current, limit int) Decision {
	return Decision{
		Allowed: current < limit,
		Current: current,
		Limit:   limit,
	}
}

// Action is the verb shown in the denial detail ("create", "join").
type Action string

const (
	ActionCreate Action = "create"
	ActionJoin   Action = "join"
)

// Enforce runs Check for the given resource and tier and returns a
// *LimitError on denial, nil otherwise.
func (p Policy) Enforce(resource Resource, tier Tier, action Action, current int) error {
	limit := p.Limit(resource, tier)
	d := Check(current, limit)
	if d.Allowed {
		return nil
	}
	return &LimitError{
		Resource:  resource,
		Tier:      tier,
		Action:    action,
		Current:   d.Current,
		Limit:     d.Limit,
		FreeLimit: p.limits[resource].Free,
		PaidLimit: p.limits[resource].Paid,
	}
}

// UpgradeAction is the call-to-action attached to a denial.
type UpgradeAction struct {
	Type        string `json:"type"`
	Label       string `json:"label"`
	Destination string `json:"destination"`
}

// LimitError is a deterministic business denial, never a transient failure.
type LimitError struct {
	Resource  Resource
	Tier      Tier
	Action    Action
	Current   int
	Limit     int
	FreeLimit int
	PaidLimit int
}

func (e *LimitError) Error() string {
	switch e.Resource {
	case ResourceActiveTasks:
		return fmt.Sprintf("You've reached your task limit (%d/%d active tasks)", e.Current, e.Limit)
	default:
		return fmt.Sprintf("You've reached your team limit (%d/%d teams)", e.Current, e.Limit)
	}
}

func (e *LimitError) Unwrap() error {
	return apperrors.ErrCapacityExceeded
}

func (e *LimitError) Detail() string {
	switch e.Resource {
	case ResourceActiveTasks:
		return fmt.Sprintf("Free users can have %d active tasks. Upgrade to Pro for unlimited tasks.", e.FreeLimit)
	default:
		action := e.Action
		if action == "" {
			action = "create/join"
		}
		return fmt.Sprintf("Free users can %s %d %s. Upgrade to Pro for up to %d teams.",
			action, e.FreeLimit, plural(e.FreeLimit, "team", "teams"), e.PaidLimit)
	}
}

func (e *LimitError) RequiredTier() string {
	return "pro"
}

func (e *LimitError) Upgrade() UpgradeAction {
	return UpgradeAction{
		Type:        "upgrade",
		Label:       "Upgrade to Pro",
		Destination: "/subscription/upgrade",
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
