package workflow

import (
	"sort"
	"strings"

	"github.com/mkoehler/docsort/internal/core/domain"
)

// Engine is a state-free evaluator over an immutable rule snapshot. The
// snapshot is taken when the engine is built; rule changes apply only to
// engines built afterwards.
type Engine struct {
	rules []domain.WorkflowRule
}

// NewEngine validates every rule against the category set and rejects the
// whole snapshot on the first invalid one.
func NewEngine(rules []domain.WorkflowRule, categories domain.CategorySet) (*Engine, error) {
	for _, r := range rules {
		if err := r.Validate(categories); err != nil {
			return nil, err
		}
	}
	ordered := make([]domain.WorkflowRule, len(rules))
	copy(ordered, rules)
	// Ascending priority, stable: the highest-priority firing rule is
	// applied last, so its exclusive actions win.
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})
	return &Engine{rules: ordered}, nil
}

func (e *Engine) Rules() []domain.WorkflowRule {
	return e.rules
}

// Evaluate returns the accumulated actions of every firing rule. A rule
// fires only when all of its conditions hold. Evaluation itself is a dry
// run: no action is performed here, callers apply the list. Exclusive action
// types keep only the value applied last in evaluation order.
func (e *Engine) Evaluate(doc domain.Document, cls domain.ClassificationResult, tm *domain.TemplateMatch) []domain.Action {
	var actions []domain.Action
	forcedIdx := -1

	for _, rule := range e.rules {
		if !rule.Enabled {
			continue
		}
		if !matches(rule, doc, cls, tm, collectTags(actions)) {
			continue
		}
		for _, action := range rule.Actions {
			if action.Type == domain.ActionForceCategory {
				if forcedIdx >= 0 {
					// Last-applied-wins for the exclusive type.
					actions[forcedIdx] = action
					continue
				}
				forcedIdx = len(actions)
			}
			actions = append(actions, action)
		}
	}
	return actions
}

func matches(rule domain.WorkflowRule, doc domain.Document, cls domain.ClassificationResult, tm *domain.TemplateMatch, tags []string) bool {
	for _, cond := range rule.Conditions {
		if !evalCondition(cond, doc, cls, tm, tags) {
			return false
		}
	}
	return true
}

func evalCondition(c domain.Condition, doc domain.Document, cls domain.ClassificationResult, tm *domain.TemplateMatch, tags []string) bool {
	switch c.Field {
	case domain.FieldTemplateConfidence:
		return tm != nil && tm.Confidence >= c.Threshold
	case domain.FieldDocumentType:
		if tm == nil {
			return false
		}
		return stringOp(c, tm.DocumentType)
	case domain.FieldCategory:
		return stringOp(c, cls.Category)
	case domain.FieldSource:
		return stringOp(c, string(cls.Source))
	case domain.FieldFilename:
		return stringOp(c, doc.Filename)
	case domain.FieldTag:
		for _, tag := range tags {
			if stringOp(c, tag) {
				return true
			}
		}
		return false
	default:
		// Unknown fields are rejected at load time; an engine never
		// sees one.
		return false
	}
}

func stringOp(c domain.Condition, value string) bool {
	lower := strings.ToLower(value)
	switch c.Op {
	case domain.OpEq:
		return strings.EqualFold(value, c.Value)
	case domain.OpContains:
		return strings.Contains(lower, strings.ToLower(c.Value))
	case domain.OpIn:
		for _, v := range c.Values {
			if strings.EqualFold(value, v) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func collectTags(actions []domain.Action) []string {
	var tags []string
	for _, a := range actions {
		if a.Type == domain.ActionTag {
			tags = append(tags, a.Tags...)
		}
	}
	return tags
}
