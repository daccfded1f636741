package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mkoehler/docsort/internal/core/classify"
	"github.com/mkoehler/docsort/internal/core/domain"
	"github.com/mkoehler/docsort/internal/core/extract"
	"github.com/mkoehler/docsort/internal/core/ports"
	"github.com/mkoehler/docsort/internal/core/template"
	"github.com/mkoehler/docsort/internal/core/workflow"
)

// DocumentPipeline wires extraction, template recognition, classification,
// filename generation and workflow evaluation into the engine surface the
// adapters consume. Interactive calls evaluate against the current rule set;
// batch runs pass a per-job engine snapshot into Process.
type DocumentPipeline struct {
	extractor  ports.TextExtractor
	recognizer *template.Recognizer
	classifier *classify.Classifier
	namer      *extract.FilenameGenerator
	rules      ports.RuleRepository
	files      ports.FileService
	destRoot   string
	logger     *slog.Logger
}

func NewDocumentPipeline(
	extractor ports.TextExtractor,
	recognizer *template.Recognizer,
	classifier *classify.Classifier,
	namer *extract.FilenameGenerator,
	rules ports.RuleRepository,
	files ports.FileService,
	destRoot string,
	logger *slog.Logger,
) *DocumentPipeline {
	return &DocumentPipeline{
		extractor:  extractor,
		recognizer: recognizer,
		classifier: classifier,
		namer:      namer,
		rules:      rules,
		files:      files,
		destRoot:   destRoot,
		logger:     logger,
	}
}

func (p *DocumentPipeline) Classify(ctx context.Context, path string) (domain.ClassificationResult, error) {
	doc, err := p.loadDocument(ctx, path)
	if err != nil {
		return domain.ClassificationResult{}, err
	}
	tm := p.recognizer.Recognize(doc.Text, doc.Filename)
	return p.classifier.Classify(ctx, doc, tm), nil
}

func (p *DocumentPipeline) MatchTemplate(ctx context.Context, path string) (*domain.TemplateMatch, error) {
	doc, err := p.loadDocument(ctx, path)
	if err != nil {
		return nil, err
	}
	return p.recognizer.Recognize(doc.Text, doc.Filename), nil
}

func (p *DocumentPipeline) SuggestFilename(ctx context.Context, path string) (domain.FilenameSuggestion, error) {
	doc, err := p.loadDocument(ctx, path)
	if err != nil {
		return domain.FilenameSuggestion{}, err
	}
	tm := p.recognizer.Recognize(doc.Text, doc.Filename)
	cls := p.classifier.Classify(ctx, doc, tm)
	return p.namer.Suggest(doc.Filename, doc.Text, cls.Category), nil
}

func (p *DocumentPipeline) EvaluateWorkflow(ctx context.Context, doc domain.Document, cls domain.ClassificationResult, tm *domain.TemplateMatch) ([]domain.Action, error) {
	eng, err := p.WorkflowEngine(ctx)
	if err != nil {
		return nil, err
	}
	return eng.Evaluate(doc, cls, tm), nil
}

// WorkflowEngine builds an evaluator over the rule set as stored right now.
// Batch runs call this once per job so mid-job rule edits do not apply.
func (p *DocumentPipeline) WorkflowEngine(ctx context.Context) (*workflow.Engine, error) {
	rules, err := p.rules.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workflow rules: %w", err)
	}
	return workflow.NewEngine(rules, p.classifier.Categories())
}

// Process runs one document end to end: recognize, classify, evaluate the
// workflow snapshot, generate a filename and move the file into the category
// tree. A skip action records the result without touching the file.
func (p *DocumentPipeline) Process(ctx context.Context, spec ports.TaskSpec, eng *workflow.Engine) (domain.TaskResult, error) {
	categories := p.classifier.Categories()
	if spec.TargetCategory != "" && !categories.Contains(spec.TargetCategory) {
		return domain.TaskResult{}, domain.WrapError(domain.ErrInvalidCategory, "process document",
			fmt.Errorf("target category %q is not configured", spec.TargetCategory))
	}

	doc, err := p.loadDocument(ctx, spec.Path)
	if err != nil {
		return domain.TaskResult{}, err
	}

	tm := p.recognizer.Recognize(doc.Text, doc.Filename)
	cls := p.classifier.Classify(ctx, doc, tm)
	actions := eng.Evaluate(doc, cls, tm)

	result := domain.TaskResult{
		Category: cls.Category,
		Source:   cls.Source,
	}
	if tm != nil {
		result.TemplateID = tm.TemplateID
	}

	var renamePattern string
	for _, action := range actions {
		switch action.Type {
		case domain.ActionForceCategory:
			result.Category = action.Category
		case domain.ActionRename:
			renamePattern = action.Pattern
		case domain.ActionTag:
			result.Tags = append(result.Tags, action.Tags...)
		case domain.ActionSkip:
			result.Skipped = true
		}
	}
	// An explicit per-task target outranks both classifier and rules.
	if spec.TargetCategory != "" {
		result.Category = spec.TargetCategory
	}

	suggestion := p.namer.Suggest(doc.Filename, doc.Text, result.Category)
	result.SuggestedFilename = suggestion.SuggestedFilename
	if renamePattern != "" {
		result.SuggestedFilename = expandRenamePattern(renamePattern, doc, suggestion, result.Category)
	}
	result.TargetPath = filepath.Join(p.destRoot, result.Category, result.SuggestedFilename)

	if result.Skipped {
		p.logger.Info("document_skipped", "path", spec.Path, "category", result.Category)
		return result, nil
	}

	if err := p.files.Move(ctx, spec.Path, result.TargetPath); err != nil {
		return domain.TaskResult{}, fmt.Errorf("move document: %w", err)
	}
	p.logger.Info("document_filed",
		"path", spec.Path,
		"target", result.TargetPath,
		"category", result.Category,
		"source", string(result.Source),
	)
	return result, nil
}

func (p *DocumentPipeline) loadDocument(ctx context.Context, path string) (domain.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.Document{}, domain.WrapError(domain.ErrExtraction, "stat document", err)
	}
	if info.IsDir() {
		return domain.Document{}, domain.WrapError(domain.ErrInvalidInput, "stat document", errors.New("path is a directory"))
	}
	text, err := p.extractor.ExtractText(ctx, path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("extract text: %w", err)
	}
	return domain.Document{
		Path:     path,
		Filename: filepath.Base(path),
		Text:     text,
		Size:     info.Size(),
		ModTime:  info.ModTime(),
	}, nil
}

// expandRenamePattern substitutes {date}, {title}, {category} and {original}
// in a rename action's pattern and normalizes the result to a .pdf name.
func expandRenamePattern(pattern string, doc domain.Document, s domain.FilenameSuggestion, category string) string {
	date := ""
	if !s.DateMissing {
		date = s.SelectedDate.Format("2006-01-02")
	}
	original := strings.TrimSuffix(doc.Filename, filepath.Ext(doc.Filename))
	name := strings.NewReplacer(
		"{date}", date,
		"{title}", s.Title,
		"{category}", category,
		"{original}", original,
	).Replace(pattern)
	name = strings.Trim(name, "_- ")
	if name == "" {
		return s.SuggestedFilename
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		name += ".pdf"
	}
	return name
}
