package classify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mkoehler/docsort/internal/core/domain"
	"github.com/mkoehler/docsort/internal/core/ports"
)

// Below this AI-reported confidence the answer is treated as an explicit
// low-confidence signal and the fallback scorer takes over.
const aiConfidenceFloor = 0.5

// Classifier orchestrates the AI call and the deterministic fallback. The AI
// attempt is bounded by a timeout and never retried: a single failed attempt
// degrades to fallback immediately to keep the pipeline responsive.
type Classifier struct {
	inference  ports.InferenceClient
	categories domain.CategorySet
	fallback   fallbackScorer
	timeout    time.Duration
	disabled   bool
	logger     *slog.Logger
}

type Option func(*Classifier)

// WithoutAI disables the inference call entirely; every classification goes
// through the deterministic fallback scorer.
func WithoutAI() Option {
	return func(c *Classifier) { c.disabled = true }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) { c.logger = logger }
}

func New(inference ports.InferenceClient, categories domain.CategorySet, timeout time.Duration, opts ...Option) *Classifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Classifier{
		inference:  inference,
		categories: categories,
		fallback:   fallbackScorer{categories: categories},
		timeout:    timeout,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Classifier) Categories() domain.CategorySet {
	return c.categories
}

// Classify runs AI-first classification with deterministic fallback. The
// returned Source tells callers whether the result is trusted (ai) or
// heuristic (fallback); fallback confidence is never high.
func (c *Classifier) Classify(ctx context.Context, doc domain.Document, tm *domain.TemplateMatch) domain.ClassificationResult {
	if c.disabled || c.inference == nil {
		return c.fallback.classify(doc.Text, doc.Filename, tm)
	}

	result, err := c.classifyAI(ctx, doc, tm)
	if err != nil {
		c.logger.Warn("classification_fallback",
			"path", doc.Path,
			"reason", err.Error(),
		)
		return c.fallback.classify(doc.Text, doc.Filename, tm)
	}
	return result
}

func (c *Classifier) classifyAI(ctx context.Context, doc domain.Document, tm *domain.TemplateMatch) (domain.ClassificationResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := ports.InferenceRequest{
		Text:       doc.Text,
		Filename:   doc.Filename,
		Categories: c.categories.Names(),
	}
	if tm != nil {
		req.TemplateHint = tm.DocumentType
	}

	resp, err := c.inference.ClassifyText(callCtx, req)
	if err != nil {
		return domain.ClassificationResult{}, domain.WrapError(domain.ErrInferenceUnavailable, "classify via inference", err)
	}

	category, ok := c.categories.Resolve(resp.Category)
	if !ok {
		return domain.ClassificationResult{}, domain.WrapError(domain.ErrInvalidCategory, "classify via inference",
			fmt.Errorf("inference returned unknown category %q", resp.Category))
	}
	if resp.Confidence < aiConfidenceFloor {
		return domain.ClassificationResult{}, fmt.Errorf("inference confidence %.2f below floor", resp.Confidence)
	}

	return domain.ClassificationResult{
		Category:    category.Name,
		Subcategory: resolveSubcategory(category, resp.Subcategory),
		Confidence:  confidenceBucket(resp.Confidence),
		Source:      domain.SourceAI,
		RawResponse: resp.Raw,
	}, nil
}

func resolveSubcategory(cat domain.Category, name string) string {
	for _, sub := range cat.Subcategories {
		if strings.EqualFold(sub, strings.TrimSpace(name)) {
			return sub
		}
	}
	return ""
}

func confidenceBucket(score float64) domain.Confidence {
	switch {
	case score >= 0.8:
		return domain.ConfidenceHigh
	case score >= aiConfidenceFloor:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}
