package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mkoehler/docsort/internal/core/domain"
)

type RuleRepository struct {
	db *sql.DB
}

func NewRuleRepository(db *sql.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

func (r *RuleRepository) Create(ctx context.Context, rule *domain.WorkflowRule) error {
	conditionsJSON, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("marshal conditions: %w", err)
	}
	actionsJSON, err := json.Marshal(rule.Actions)
	if err != nil {
		return fmt.Errorf("marshal actions: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO workflow_rules (id, name, priority, enabled, conditions, actions, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO NOTHING
`, rule.ID, rule.Name, rule.Priority, rule.Enabled, conditionsJSON, actionsJSON, rule.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert rule: %w", err)
	}
	return nil
}

// List returns rules in priority order; ties keep creation order so the
// evaluator sees a stable sequence.
func (r *RuleRepository) List(ctx context.Context) ([]domain.WorkflowRule, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, priority, enabled, conditions, actions, created_at
FROM workflow_rules
ORDER BY priority, created_at
`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	out := make([]domain.WorkflowRule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return out, nil
}

func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM workflow_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rule rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrRuleNotFound, "delete rule", fmt.Errorf("id=%s", id))
	}
	return nil
}

type ruleScanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(row ruleScanner) (domain.WorkflowRule, error) {
	var rule domain.WorkflowRule
	var conditionsRaw, actionsRaw []byte
	err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.Priority,
		&rule.Enabled,
		&conditionsRaw,
		&actionsRaw,
		&rule.CreatedAt,
	)
	if err != nil {
		return domain.WorkflowRule{}, err
	}
	if err := json.Unmarshal(conditionsRaw, &rule.Conditions); err != nil {
		return domain.WorkflowRule{}, fmt.Errorf("unmarshal conditions: %w", err)
	}
	if err := json.Unmarshal(actionsRaw, &rule.Actions); err != nil {
		return domain.WorkflowRule{}, fmt.Errorf("unmarshal actions: %w", err)
	}
	return rule, nil
}
