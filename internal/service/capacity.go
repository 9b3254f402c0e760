package service

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// PlanRule maps plan labels containing Match (case-insensitive) to a cap
// on simultaneously open sessions.
type PlanRule struct {
	Match     string `yaml:"match"`
	Limit     int    `yaml:"limit"`
	Unlimited bool   `yaml:"unlimited"`
}

// PlanTable is the capacity guard policy.  Rules are tried in order; a
// plan label matching none of them gets DefaultLimit.
type PlanTable struct {
	Rules        []PlanRule `yaml:"plans"`
	DefaultLimit int        `yaml:"default_limit"`
}

// DefaultPlanTable is the policy used when no plan file is configured.
// Unknown labels fall back to the basic tier's cap.
func DefaultPlanTable() PlanTable {
	return PlanTable{
		Rules: []PlanRule{
			{Match: "basic", Limit: 50},
			{Match: "profissional", Limit: 150},
			{Match: "professional", Limit: 150},
			{Match: "premium", Unlimited: true},
		},
		DefaultLimit: 50,
	}
}

// ParsePlanTable decodes a YAML plan table.  Missing default_limit keeps
// the built-in default so an unknown plan never resolves to zero.
func ParsePlanTable(data []byte) (PlanTable, error) {
	t := PlanTable{DefaultLimit: DefaultPlanTable().DefaultLimit}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return PlanTable{}, fmt.Errorf("parse plan table: %w", err)
	}
	if t.DefaultLimit <= 0 {
		return PlanTable{}, fmt.Errorf("parse plan table: default_limit must be positive, got %d", t.DefaultLimit)
	}
	for i, r := range t.Rules {
		if strings.TrimSpace(r.Match) == "" {
			return PlanTable{}, fmt.Errorf("parse plan table: rule %d has empty match", i+1)
		}
		if !r.Unlimited && r.Limit <= 0 {
			return PlanTable{}, fmt.Errorf("parse plan table: rule %q needs a positive limit or unlimited", r.Match)
		}
	}
	return t, nil
}

// LimitFor resolves a plan label to its cap.  unlimited is true for
// plans without a cap, in which case limit is meaningless.
func (t PlanTable) LimitFor(plan string) (limit int, unlimited bool) {
	p := strings.ToLower(plan)
	for _, r := range t.Rules {
		if strings.Contains(p, strings.ToLower(r.Match)) {
			return r.Limit, r.Unlimited
		}
	}
	return t.DefaultLimit, false
}

// CanOpen decides whether a tenant on plan with open sessions may open
// another one.
func (t PlanTable) CanOpen(plan string, open int) error {
	limit, unlimited := t.LimitFor(plan)
	if unlimited || open < limit {
		return nil
	}
	return &Error{
		Kind:    KindCapacityExceeded,
		Message: fmt.Sprintf("limit of %d active sessions reached for plan %q", limit, plan),
		Limit:   limit,
		Plan:    plan,
	}
}
