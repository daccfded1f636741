package workflow

import (
	"testing"

	"github.com/mkoehler/docsort/internal/core/domain"
)

func testCategories() domain.CategorySet {
	return domain.CategorySet{
		Categories: []domain.Category{
			{Name: "03 Finanzen"},
			{Name: "05 Versicherung"},
			{Name: "12 Schriftverkehr"},
		},
		Default: "12 Schriftverkehr",
	}
}

func enabledRule(id, name string, priority int, conds []domain.Condition, actions []domain.Action) domain.WorkflowRule {
	return domain.WorkflowRule{
		ID:         id,
		Name:       name,
		Priority:   priority,
		Enabled:    true,
		Conditions: conds,
		Actions:    actions,
	}
}

func TestEvaluateAccumulatesAllFiringRules(t *testing.T) {
	rules := []domain.WorkflowRule{
		enabledRule("r1", "tag invoices", 10,
			[]domain.Condition{{Field: domain.FieldDocumentType, Op: domain.OpEq, Value: "invoice"}},
			[]domain.Action{{Type: domain.ActionTag, Tags: []string{"rechnung"}}},
		),
		enabledRule("r2", "file invoices under finance", 20,
			[]domain.Condition{{Field: domain.FieldDocumentType, Op: domain.OpEq, Value: "invoice"}},
			[]domain.Action{{Type: domain.ActionForceCategory, Category: "03 Finanzen"}},
		),
	}
	eng, err := NewEngine(rules, testCategories())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	tm := &domain.TemplateMatch{TemplateID: "invoice_de_standard", DocumentType: "invoice", Confidence: 0.6}
	actions := eng.Evaluate(domain.Document{Filename: "scan.pdf"}, domain.ClassificationResult{Category: "12 Schriftverkehr"}, tm)

	if len(actions) != 2 {
		t.Fatalf("expected 2 actions, got %d: %+v", len(actions), actions)
	}
	if actions[0].Type != domain.ActionTag || actions[1].Type != domain.ActionForceCategory {
		t.Fatalf("unexpected action order: %+v", actions)
	}
}

func TestEvaluateForceCategoryLastApplianceWins(t *testing.T) {
	rules := []domain.WorkflowRule{
		// Declared out of order on purpose: the engine must sort by priority.
		enabledRule("high", "high priority override", 50,
			[]domain.Condition{{Field: domain.FieldCategory, Op: domain.OpEq, Value: "12 Schriftverkehr"}},
			[]domain.Action{{Type: domain.ActionForceCategory, Category: "05 Versicherung"}},
		),
		enabledRule("low", "low priority default", 10,
			[]domain.Condition{{Field: domain.FieldCategory, Op: domain.OpEq, Value: "12 Schriftverkehr"}},
			[]domain.Action{{Type: domain.ActionForceCategory, Category: "03 Finanzen"}},
		),
	}
	eng, err := NewEngine(rules, testCategories())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	actions := eng.Evaluate(domain.Document{}, domain.ClassificationResult{Category: "12 Schriftverkehr"}, nil)

	var forced []domain.Action
	for _, a := range actions {
		if a.Type == domain.ActionForceCategory {
			forced = append(forced, a)
		}
	}
	if len(forced) != 1 {
		t.Fatalf("expected exactly one force_category action, got %d", len(forced))
	}
	if forced[0].Category != "05 Versicherung" {
		t.Fatalf("expected higher-priority category to win, got %q", forced[0].Category)
	}
}

func TestEvaluateConditionsAreConjunctive(t *testing.T) {
	rules := []domain.WorkflowRule{
		enabledRule("r1", "confident invoices only", 10,
			[]domain.Condition{
				{Field: domain.FieldDocumentType, Op: domain.OpEq, Value: "invoice"},
				{Field: domain.FieldTemplateConfidence, Op: domain.OpGte, Threshold: 0.7},
			},
			[]domain.Action{{Type: domain.ActionForceCategory, Category: "03 Finanzen"}},
		),
	}
	eng, err := NewEngine(rules, testCategories())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	weak := &domain.TemplateMatch{DocumentType: "invoice", Confidence: 0.5}
	if got := eng.Evaluate(domain.Document{}, domain.ClassificationResult{}, weak); len(got) != 0 {
		t.Fatalf("rule fired despite failed confidence condition: %+v", got)
	}

	strong := &domain.TemplateMatch{DocumentType: "invoice", Confidence: 0.8}
	if got := eng.Evaluate(domain.Document{}, domain.ClassificationResult{}, strong); len(got) != 1 {
		t.Fatalf("expected rule to fire, got %+v", got)
	}
}

func TestEvaluateTemplateConditionsNeedMatch(t *testing.T) {
	rules := []domain.WorkflowRule{
		enabledRule("r1", "needs template", 10,
			[]domain.Condition{{Field: domain.FieldTemplateConfidence, Op: domain.OpGte, Threshold: 0.1}},
			[]domain.Action{{Type: domain.ActionSkip}},
		),
	}
	eng, err := NewEngine(rules, testCategories())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if got := eng.Evaluate(domain.Document{}, domain.ClassificationResult{}, nil); len(got) != 0 {
		t.Fatalf("template condition fired without a template match: %+v", got)
	}
}

func TestEvaluateDisabledRuleIsSkipped(t *testing.T) {
	rule := enabledRule("r1", "disabled", 10,
		nil,
		[]domain.Action{{Type: domain.ActionSkip}},
	)
	rule.Enabled = false
	eng, err := NewEngine([]domain.WorkflowRule{rule}, testCategories())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if got := eng.Evaluate(domain.Document{}, domain.ClassificationResult{}, nil); len(got) != 0 {
		t.Fatalf("disabled rule fired: %+v", got)
	}
}

func TestEvaluateTagConditionSeesEarlierTags(t *testing.T) {
	rules := []domain.WorkflowRule{
		enabledRule("r1", "tag insurance mail", 10,
			[]domain.Condition{{Field: domain.FieldFilename, Op: domain.OpContains, Value: "police"}},
			[]domain.Action{{Type: domain.ActionTag, Tags: []string{"versicherung"}}},
		),
		enabledRule("r2", "route tagged mail", 20,
			[]domain.Condition{{Field: domain.FieldTag, Op: domain.OpEq, Value: "versicherung"}},
			[]domain.Action{{Type: domain.ActionForceCategory, Category: "05 Versicherung"}},
		),
	}
	eng, err := NewEngine(rules, testCategories())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	actions := eng.Evaluate(domain.Document{Filename: "Police_2024.pdf"}, domain.ClassificationResult{}, nil)
	if len(actions) != 2 {
		t.Fatalf("expected tag rule to enable the routing rule, got %+v", actions)
	}
	if actions[1].Category != "05 Versicherung" {
		t.Fatalf("unexpected routing action: %+v", actions[1])
	}
}

func TestEvaluateInOperator(t *testing.T) {
	rules := []domain.WorkflowRule{
		enabledRule("r1", "money documents", 10,
			[]domain.Condition{{Field: domain.FieldDocumentType, Op: domain.OpIn, Values: []string{"invoice", "bank_statement"}}},
			[]domain.Action{{Type: domain.ActionTag, Tags: []string{"geld"}}},
		),
	}
	eng, err := NewEngine(rules, testCategories())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	statement := &domain.TemplateMatch{DocumentType: "bank_statement", Confidence: 0.6}
	if got := eng.Evaluate(domain.Document{}, domain.ClassificationResult{}, statement); len(got) != 1 {
		t.Fatalf("expected in-operator hit, got %+v", got)
	}
	letter := &domain.TemplateMatch{DocumentType: "letter", Confidence: 0.6}
	if got := eng.Evaluate(domain.Document{}, domain.ClassificationResult{}, letter); len(got) != 0 {
		t.Fatalf("expected in-operator miss, got %+v", got)
	}
}

func TestNewEngineRejectsInvalidRule(t *testing.T) {
	rules := []domain.WorkflowRule{
		enabledRule("r1", "bad category", 10,
			nil,
			[]domain.Action{{Type: domain.ActionForceCategory, Category: "99 Unbekannt"}},
		),
	}
	if _, err := NewEngine(rules, testCategories()); !domain.IsKind(err, domain.ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
}
