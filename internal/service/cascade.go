package service

import (
	"context"
	"fmt"

	"pr-tracker/internal/models"
	"pr-tracker/internal/repository"
)

// ParentResolver finds the record a source record cascades into.
// ok is false when the source is not linked to anything.
type ParentResolver func(ctx context.Context, repo *repository.Repository, sourceID int64) (targetID int64, ok bool, err error)

// CascadeRule propagates a status change of Source into its linked Target.
// An empty TargetStatus mirrors the triggering status.
type CascadeRule struct {
	Source       models.RecordType
	Target       models.RecordType
	Triggers     []models.Status
	TargetStatus models.Status
	Resolve      ParentResolver
}

// CascadePlan is the write a cascade will perform.
type CascadePlan struct {
	Rule         CascadeRule
	TargetStatus models.Status
}

// CascadeTable holds at most one rule per source record type.
type CascadeTable struct {
	rules map[models.RecordType]CascadeRule
}

// DefaultCascadeRules are the tracker's propagation rules.
func DefaultCascadeRules() []CascadeRule {
	return []CascadeRule{
		{
			Source:       models.RecordTypePayment,
			Target:       models.RecordTypePR,
			Triggers:     []models.Status{models.StatusCompleted},
			TargetStatus: models.StatusCompleted,
			Resolve: func(ctx context.Context, repo *repository.Repository, id int64) (int64, bool, error) {
				return repo.PaymentParent(ctx, id)
			},
		},
		{
			Source:   models.RecordTypeLiquidation,
			Target:   models.RecordTypeOA,
			Triggers: []models.Status{models.StatusCompleted, models.StatusPaid},
			Resolve: func(ctx context.Context, repo *repository.Repository, id int64) (int64, bool, error) {
				return repo.LiquidationParent(ctx, id)
			},
		},
	}
}

// NewCascadeTable validates rules and indexes them by source type.
// Rule graphs containing a cycle are rejected.
func NewCascadeTable(rules ...CascadeRule) (*CascadeTable, error) {
	t := &CascadeTable{rules: make(map[models.RecordType]CascadeRule, len(rules))}

	for _, rule := range rules {
		if _, dup := t.rules[rule.Source]; dup {
			return nil, fmt.Errorf("duplicate cascade rule for %s", rule.Source)
		}
		if rule.Resolve == nil {
			return nil, fmt.Errorf("cascade rule %s -> %s has no resolver", rule.Source, rule.Target)
		}
		if len(rule.Triggers) == 0 {
			return nil, fmt.Errorf("cascade rule %s -> %s has no triggers", rule.Source, rule.Target)
		}
		for _, trigger := range rule.Triggers {
			if !rule.Source.Allows(trigger) {
				return nil, fmt.Errorf("cascade trigger %q is not a %s status", trigger, rule.Source)
			}
			target := rule.TargetStatus
			if target == "" {
				target = trigger
			}
			if !rule.Target.Allows(target) {
				return nil, fmt.Errorf("cascade target status %q is not a %s status", target, rule.Target)
			}
		}
		t.rules[rule.Source] = rule
	}

	for start := range t.rules {
		seen := map[models.RecordType]bool{start: true}
		for node := t.rules[start].Target; ; {
			if seen[node] {
				return nil, fmt.Errorf("cascade rules form a cycle through %s", node)
			}
			seen[node] = true
			next, ok := t.rules[node]
			if !ok {
				break
			}
			node = next.Target
		}
	}

	return t, nil
}

// Plan reports the cascade triggered by moving a record of type rt to status.
func (t *CascadeTable) Plan(rt models.RecordType, status models.Status) (CascadePlan, bool) {
	rule, ok := t.rules[rt]
	if !ok {
		return CascadePlan{}, false
	}
	for _, trigger := range rule.Triggers {
		if trigger == status {
			target := rule.TargetStatus
			if target == "" {
				target = status
			}
			return CascadePlan{Rule: rule, TargetStatus: target}, true
		}
	}
	return CascadePlan{}, false
}
