package domain

import (
	"fmt"
	"time"
)

type ConditionField string

const (
	FieldDocumentType       ConditionField = "document_type"
	FieldTemplateConfidence ConditionField = "template_confidence"
	FieldCategory           ConditionField = "category"
	FieldSource             ConditionField = "source"
	FieldFilename           ConditionField = "filename"
	FieldTag                ConditionField = "tag"
)

type ConditionOp string

const (
	OpEq       ConditionOp = "eq"
	OpIn       ConditionOp = "in"
	OpGte      ConditionOp = "gte"
	OpContains ConditionOp = "contains"
)

// Condition is a tagged variant validated at load time. Exactly one of
// Value/Values/Threshold is meaningful depending on Op.
type Condition struct {
	Field     ConditionField `json:"field" yaml:"field"`
	Op        ConditionOp    `json:"op" yaml:"op"`
	Value     string         `json:"value,omitempty" yaml:"value,omitempty"`
	Values    []string       `json:"values,omitempty" yaml:"values,omitempty"`
	Threshold float64        `json:"threshold,omitempty" yaml:"threshold,omitempty"`
}

type ActionType string

const (
	// ActionForceCategory is exclusive: when several firing rules force a
	// category, the one applied last in evaluation order wins.
	ActionForceCategory ActionType = "force_category"
	ActionRename        ActionType = "rename"
	ActionTag           ActionType = "tag"
	ActionSkip          ActionType = "skip"
)

type Action struct {
	Type     ActionType `json:"type" yaml:"type"`
	Category string     `json:"category,omitempty" yaml:"category,omitempty"`
	Pattern  string     `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Tags     []string   `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// WorkflowRule is user-authored and immutable during evaluation. Rules are
// evaluated by ascending priority, then declaration order.
type WorkflowRule struct {
	ID         string      `json:"id" yaml:"id"`
	Name       string      `json:"name" yaml:"name"`
	Priority   int         `json:"priority" yaml:"priority"`
	Enabled    bool        `json:"enabled" yaml:"enabled"`
	Conditions []Condition `json:"conditions" yaml:"conditions"`
	Actions    []Action    `json:"actions" yaml:"actions"`
	CreatedAt  time.Time   `json:"created_at" yaml:"-"`
}

// Validate rejects unknown condition/action shapes as ErrInvalidRule and
// actions referencing categories outside the set as ErrInvalidCategory.
// Unknown shapes fail here, at creation time, not later during evaluation.
func (r WorkflowRule) Validate(categories CategorySet) error {
	if r.Name == "" {
		return WrapError(ErrInvalidRule, "validate rule", fmt.Errorf("rule name is required"))
	}
	if len(r.Actions) == 0 {
		return WrapError(ErrInvalidRule, "validate rule", fmt.Errorf("rule %q has no actions", r.Name))
	}
	for i, c := range r.Conditions {
		if err := c.validate(); err != nil {
			return WrapError(ErrInvalidRule, "validate rule", fmt.Errorf("rule %q condition %d: %w", r.Name, i, err))
		}
	}
	for i, a := range r.Actions {
		switch a.Type {
		case ActionForceCategory:
			if a.Category == "" {
				return WrapError(ErrInvalidRule, "validate rule", fmt.Errorf("rule %q action %d: force_category requires a category", r.Name, i))
			}
			if !categories.Contains(a.Category) {
				return WrapError(ErrInvalidCategory, "validate rule", fmt.Errorf("rule %q action %d: category %q is not configured", r.Name, i, a.Category))
			}
		case ActionRename:
			if a.Pattern == "" {
				return WrapError(ErrInvalidRule, "validate rule", fmt.Errorf("rule %q action %d: rename requires a pattern", r.Name, i))
			}
		case ActionTag:
			if len(a.Tags) == 0 {
				return WrapError(ErrInvalidRule, "validate rule", fmt.Errorf("rule %q action %d: tag requires at least one tag", r.Name, i))
			}
		case ActionSkip:
		default:
			return WrapError(ErrInvalidRule, "validate rule", fmt.Errorf("rule %q action %d: unknown action type %q", r.Name, i, a.Type))
		}
	}
	return nil
}

func (c Condition) validate() error {
	switch c.Field {
	case FieldDocumentType, FieldCategory, FieldSource, FieldFilename, FieldTag:
		switch c.Op {
		case OpEq, OpContains:
			if c.Value == "" {
				return fmt.Errorf("op %q on field %q requires a value", c.Op, c.Field)
			}
		case OpIn:
			if len(c.Values) == 0 {
				return fmt.Errorf("op %q on field %q requires values", c.Op, c.Field)
			}
		default:
			return fmt.Errorf("op %q is not valid for field %q", c.Op, c.Field)
		}
	case FieldTemplateConfidence:
		if c.Op != OpGte {
			return fmt.Errorf("field %q supports only op %q", c.Field, OpGte)
		}
		if c.Threshold < 0 || c.Threshold > 1 {
			return fmt.Errorf("threshold %v is outside [0,1]", c.Threshold)
		}
	default:
		return fmt.Errorf("unknown condition field %q", c.Field)
	}
	return nil
}
