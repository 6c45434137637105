// Package pipeline orchestrates one persona generation run: fetch →
// corpus → prompt → model → parse → ground → assemble. Stages run
// sequentially; each consumes the prior stage's complete output, and a
// cancelled context aborts at the next stage boundary.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"personaforge/internal/corpus"
	"personaforge/internal/ground"
	"personaforge/internal/llm"
	"personaforge/internal/model"
	"personaforge/internal/parse"
	"personaforge/internal/persona"
	"personaforge/internal/prompt"
	"personaforge/internal/reddit"
)

// sleepFunc is the sleep used between model retries (injectable for tests)
var sleepFunc = time.Sleep

// ContentProvider supplies a user's raw records
type ContentProvider interface {
	FetchUserContent(ctx context.Context, username string) ([]reddit.Record, error)
}

// Pipeline runs the persona generation stages for one username
type Pipeline struct {
	provider  ContentProvider
	generator llm.Provider
	builder   *corpus.Builder
	compiler  *prompt.Compiler
	parser    *parse.Parser
	validator *ground.Validator
	assembler *persona.Assembler
	cfg       *model.Config
	log       *zap.Logger
}

// New creates a pipeline. The provider and generator are injected so runs
// can be driven by fakes in tests.
func New(cfg *model.Config, provider ContentProvider, generator llm.Provider, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		provider:  provider,
		generator: generator,
		builder:   corpus.NewBuilder(),
		compiler:  prompt.NewCompiler(cfg.Prompt),
		parser:    parse.NewParser(),
		validator: ground.NewValidator(cfg.Grounding),
		assembler: persona.NewAssembler(),
		cfg:       cfg,
		log:       log,
	}
}

// Generate produces a persona for the username. Fatal errors come back as
// a single stage-tagged failure; per-attribute grounding rejections are
// absorbed into the persona's diagnostics instead.
func (p *Pipeline) Generate(ctx context.Context, username string) (*model.Persona, error) {
	runID := uuid.NewString()
	log := p.log.With(zap.String("run_id", runID), zap.String("username", username))

	records, err := p.provider.FetchUserContent(ctx, username)
	if err != nil {
		return nil, &model.StageError{Stage: "fetch", Err: err}
	}

	// The corpus must be non-empty before any model call is made.
	corp, err := p.builder.Build(username, records)
	if err != nil {
		return nil, &model.StageError{Stage: "corpus", Err: err}
	}
	log.Info("corpus built", zap.Int("items", corp.Len()))

	compiled := p.compiler.Compile(corp)
	log.Debug("prompt compiled",
		zap.Int("included_items", len(compiled.IncludedIDs)),
		zap.Int("prompt_chars", len(compiled.Prompt)))

	reply, err := p.complete(ctx, compiled.Prompt)
	if err != nil {
		return nil, &model.StageError{Stage: "model", Err: err}
	}

	parsed := p.parser.Parse(reply.Text)
	log.Info("reply parsed",
		zap.Int("candidates", len(parsed.Candidates)),
		zap.Bool("lenient_fallback", parsed.UsedFallback))

	// Ground against the compiled subset only: items dropped by the
	// prompt budget were never shown to the model and must not be citable.
	outcome, err := p.validator.Validate(corp.Subset(compiled.IncludedIDs), parsed.Candidates)
	if err != nil {
		return nil, &model.StageError{Stage: "ground", Err: err}
	}
	log.Info("candidates grounded",
		zap.Int("grounded", len(outcome.Attributes)),
		zap.Int("rejected", len(outcome.Rejected)))

	diag := model.Diagnostics{
		CorpusSize:     corp.Len(),
		CompiledItems:  len(compiled.IncludedIDs),
		Candidates:     len(parsed.Candidates),
		Rejected:       len(outcome.Rejected),
		ParserFallback: parsed.UsedFallback,
	}
	for _, rej := range outcome.Rejected {
		diag.RejectReasons = append(diag.RejectReasons,
			fmt.Sprintf("%s/%s: %s", rej.Candidate.Category, rej.Candidate.Key, rej.Reason))
	}

	return p.assembler.Assemble(username, outcome.Attributes, diag, runID,
		p.generator.Name(), reply.Model, time.Now().UTC()), nil
}

// complete calls the generator, retrying unavailable/timeout failures with
// exponential backoff up to the configured cap.
func (p *Pipeline) complete(ctx context.Context, compiledPrompt string) (*llm.CompletionResponse, error) {
	maxRetries := p.cfg.LLM.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			p.log.Warn("retrying model call",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))
			sleepFunc(backoff)
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		reply, err := p.generator.Complete(ctx, llm.CompletionRequest{
			Prompt:    compiledPrompt,
			Model:     p.cfg.LLM.Model,
			MaxTokens: p.cfg.LLM.MaxTokens,
		})
		if err == nil {
			return reply, nil
		}

		lastErr = err
		if !model.IsRetryable(err) {
			return nil, err
		}
	}

	return nil, lastErr
}
