package workflow

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/mkoehler/docsort/internal/core/domain"
)

type ruleFile struct {
	Rules []seedRule `yaml:"rules"`
}

// seedRule mirrors domain.WorkflowRule but keeps Enabled as a pointer so an
// omitted key defaults to true rather than YAML's zero value.
type seedRule struct {
	ID         string             `yaml:"id"`
	Name       string             `yaml:"name"`
	Priority   int                `yaml:"priority"`
	Enabled    *bool              `yaml:"enabled"`
	Conditions []domain.Condition `yaml:"conditions"`
	Actions    []domain.Action    `yaml:"actions"`
}

// LoadRules reads a YAML seed file and validates every rule against the
// category set. Rules without an id get a generated one.
func LoadRules(path string, categories domain.CategorySet) ([]domain.WorkflowRule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load workflow rules", err)
	}
	return ParseRules(raw, categories)
}

func ParseRules(raw []byte, categories domain.CategorySet) ([]domain.WorkflowRule, error) {
	var file ruleFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidRule, "parse workflow rules", err)
	}
	now := time.Now().UTC()
	rules := make([]domain.WorkflowRule, 0, len(file.Rules))
	seen := make(map[string]struct{}, len(file.Rules))
	for i, sr := range file.Rules {
		rule := domain.WorkflowRule{
			ID:         sr.ID,
			Name:       sr.Name,
			Priority:   sr.Priority,
			Enabled:    true,
			Conditions: sr.Conditions,
			Actions:    sr.Actions,
			CreatedAt:  now,
		}
		if sr.Enabled != nil {
			rule.Enabled = *sr.Enabled
		}
		if rule.ID == "" {
			rule.ID = uuid.NewString()
		}
		if _, dup := seen[rule.ID]; dup {
			return nil, domain.WrapError(domain.ErrInvalidRule, "parse workflow rules", fmt.Errorf("rule %d: duplicate id %q", i, rule.ID))
		}
		seen[rule.ID] = struct{}{}
		if err := rule.Validate(categories); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
