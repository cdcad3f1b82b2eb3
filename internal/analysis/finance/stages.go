package finance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"finlens/internal/analysis"
	"finlens/internal/logging"
	"finlens/internal/reasoning"
	"finlens/internal/textutil"
)

// Stage names, used in dependency declarations, reports, and tests.
const (
	StageVerification = "verification"
	StageFinancial    = "financial_analysis"
	StageInvestment   = "investment_recommendation"
	StageRisk         = "risk_assessment"
)

// promptDocumentLimit bounds how much document text is embedded in a prompt.
const promptDocumentLimit = 24000

// Keyword sets for local document heuristics surfaced as stage warnings.
var (
	sectionKeywords = []string{"revenue", "profit", "cash", "earnings", "debt", "assets"}
	riskKeywords    = []string{"debt", "loss", "decline", "risk", "uncertainty", "challenge", "competition"}
)

type baseStage struct {
	name     string
	requires []string
	engine   reasoning.Engine
	logger   *slog.Logger
}

func newBaseStage(name string, requires []string, engine reasoning.Engine, logger *slog.Logger) (baseStage, error) {
	if engine == nil {
		return baseStage{}, fmt.Errorf("stage %s: reasoning engine is required", name)
	}
	return baseStage{
		name:     name,
		requires: requires,
		engine:   engine,
		logger:   logging.NewComponentLogger(logger, name),
	}, nil
}

func (s baseStage) Name() string { return s.name }

func (s baseStage) Requires() []string {
	cp := make([]string, len(s.requires))
	copy(cp, s.requires)
	return cp
}

func (s baseStage) invoke(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.logger.DebugContext(ctx, "prompting reasoning engine",
		logging.Int("prompt_chars", len(userPrompt)))
	output, err := s.engine.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		// Upstream failures are worth a retry; the pipeline decides how many.
		return "", analysis.NewStageError(s.name, true, err)
	}
	output = strings.TrimSpace(output)
	if output == "" {
		return "", analysis.NewStageError(s.name, true, errors.New("reasoning engine returned no content"))
	}
	return output, nil
}

// VerificationStage checks document authenticity and completeness. It only
// consumes the raw document.
type VerificationStage struct {
	baseStage
}

// NewVerificationStage constructs the verification stage.
func NewVerificationStage(engine reasoning.Engine, logger *slog.Logger) (*VerificationStage, error) {
	base, err := newBaseStage(StageVerification, nil, engine, logger)
	if err != nil {
		return nil, err
	}
	return &VerificationStage{baseStage: base}, nil
}

// Execute implements analysis.Stage.
func (s *VerificationStage) Execute(ctx context.Context, pc analysis.Context) (analysis.StageResult, error) {
	var warnings []string

	text := pc.DocumentText()
	if strings.TrimSpace(text) == "" {
		warnings = append(warnings, "document produced no extractable text")
	}
	hits := textutil.KeywordHits(text, sectionKeywords)
	if missing := missingKeywords(sectionKeywords, hits); len(missing) > 0 {
		warnings = append(warnings, "expected financial sections not detected: "+strings.Join(missing, ", "))
	}

	prompt := fmt.Sprintf("Query: %s\n\nDocument:\n%s",
		pc.Query(), textutil.Truncate(text, promptDocumentLimit))
	output, err := s.invoke(ctx, verificationSystemPrompt, prompt)
	if err != nil {
		return analysis.StageResult{}, err
	}
	return analysis.StageResult{Stage: s.name, Output: output, Warnings: warnings}, nil
}

// FinancialAnalysisStage performs the core document analysis. It consumes the
// raw document and the verification result.
type FinancialAnalysisStage struct {
	baseStage
}

// NewFinancialAnalysisStage constructs the financial analysis stage.
func NewFinancialAnalysisStage(engine reasoning.Engine, logger *slog.Logger) (*FinancialAnalysisStage, error) {
	base, err := newBaseStage(StageFinancial, []string{StageVerification}, engine, logger)
	if err != nil {
		return nil, err
	}
	return &FinancialAnalysisStage{baseStage: base}, nil
}

// Execute implements analysis.Stage.
func (s *FinancialAnalysisStage) Execute(ctx context.Context, pc analysis.Context) (analysis.StageResult, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Query: %s\n", pc.Query())
	if verification, ok := pc.Output(StageVerification); ok {
		fmt.Fprintf(&sb, "\nVerification findings:\n%s\n", verification.Output)
	}
	fmt.Fprintf(&sb, "\nDocument:\n%s", textutil.Truncate(pc.DocumentText(), promptDocumentLimit))

	output, err := s.invoke(ctx, financialAnalysisSystemPrompt, sb.String())
	if err != nil {
		return analysis.StageResult{}, err
	}
	return analysis.StageResult{Stage: s.name, Output: output}, nil
}

// InvestmentStage derives recommendations from the financial analysis. It
// never touches the raw document directly.
type InvestmentStage struct {
	baseStage
}

// NewInvestmentStage constructs the investment recommendation stage.
func NewInvestmentStage(engine reasoning.Engine, logger *slog.Logger) (*InvestmentStage, error) {
	base, err := newBaseStage(StageInvestment, []string{StageFinancial}, engine, logger)
	if err != nil {
		return nil, err
	}
	return &InvestmentStage{baseStage: base}, nil
}

// Execute implements analysis.Stage.
func (s *InvestmentStage) Execute(ctx context.Context, pc analysis.Context) (analysis.StageResult, error) {
	financial, ok := pc.Output(StageFinancial)
	if !ok {
		return analysis.StageResult{}, analysis.NewStageError(s.name, false,
			errors.New("financial analysis output unavailable"))
	}

	prompt := fmt.Sprintf("Query: %s\n\nFinancial analysis:\n%s", pc.Query(), financial.Output)
	output, err := s.invoke(ctx, investmentSystemPrompt, prompt)
	if err != nil {
		return analysis.StageResult{}, err
	}
	return analysis.StageResult{Stage: s.name, Output: output}, nil
}

// RiskStage assesses risk based on the financial analysis plus local keyword
// scanning of the raw document.
type RiskStage struct {
	baseStage
}

// NewRiskStage constructs the risk assessment stage.
func NewRiskStage(engine reasoning.Engine, logger *slog.Logger) (*RiskStage, error) {
	base, err := newBaseStage(StageRisk, []string{StageFinancial}, engine, logger)
	if err != nil {
		return nil, err
	}
	return &RiskStage{baseStage: base}, nil
}

// Execute implements analysis.Stage.
func (s *RiskStage) Execute(ctx context.Context, pc analysis.Context) (analysis.StageResult, error) {
	financial, ok := pc.Output(StageFinancial)
	if !ok {
		return analysis.StageResult{}, analysis.NewStageError(s.name, false,
			errors.New("financial analysis output unavailable"))
	}

	var warnings []string
	hits := textutil.KeywordHits(pc.DocumentText(), riskKeywords)
	indicators := sortedKeys(hits)
	if len(indicators) > 0 {
		warnings = append(warnings, "risk indicators present in document: "+strings.Join(indicators, ", "))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Query: %s\n\nFinancial analysis:\n%s\n", pc.Query(), financial.Output)
	if len(indicators) > 0 {
		fmt.Fprintf(&sb, "\nRisk indicator terms found in the document: %s\n", strings.Join(indicators, ", "))
	}
	fmt.Fprintf(&sb, "\nDocument excerpt:\n%s", textutil.Truncate(pc.DocumentText(), promptDocumentLimit/4))

	output, err := s.invoke(ctx, riskSystemPrompt, sb.String())
	if err != nil {
		return analysis.StageResult{}, err
	}
	return analysis.StageResult{Stage: s.name, Output: output, Warnings: warnings}, nil
}

// BuildStages assembles the standard four-stage financial analysis pipeline
// in declaration order.
func BuildStages(engine reasoning.Engine, logger *slog.Logger) ([]analysis.Stage, error) {
	verification, err := NewVerificationStage(engine, logger)
	if err != nil {
		return nil, err
	}
	financial, err := NewFinancialAnalysisStage(engine, logger)
	if err != nil {
		return nil, err
	}
	investment, err := NewInvestmentStage(engine, logger)
	if err != nil {
		return nil, err
	}
	risk, err := NewRiskStage(engine, logger)
	if err != nil {
		return nil, err
	}
	return []analysis.Stage{verification, financial, investment, risk}, nil
}

func missingKeywords(keywords []string, hits map[string]int) []string {
	var missing []string
	for _, kw := range keywords {
		if hits[kw] == 0 {
			missing = append(missing, kw)
		}
	}
	return missing
}

func sortedKeys(m map[string]int) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
