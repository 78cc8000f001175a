// Package pipeline drives the question → answer → conversation generation run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/qnagen/internal/llm"
	"github.com/ziadkadry99/qnagen/internal/logging"
	"github.com/ziadkadry99/qnagen/internal/metrics"
	"github.com/ziadkadry99/qnagen/internal/telemetry"
	"github.com/ziadkadry99/qnagen/internal/textnorm"
	"github.com/ziadkadry99/qnagen/internal/usagelog"
)

// ErrEmptyOutput is returned when the provider answers with no usable text.
var ErrEmptyOutput = errors.New("provider returned empty output")

// Invoker calls the generative provider with tier fallback.
type Invoker interface {
	Invoke(ctx context.Context, prompt string, image *llm.Image, preferred llm.Tier) (*llm.Invocation, error)
}

// PromptBuilder renders the prompt of each generation step.
type PromptBuilder interface {
	QuestionPrompt(req Request, searchContext string) string
	AnswerPrompt(req Request, q Question, searchContext string) string
	TurnPrompt(req Request, role Role, history []Message) string
	InterludePrompt(req Request, role Role, history []Message) string
}

// ContextSearcher builds reference text from keyword searches. It reports
// how many search calls it issued; failures only shorten the text.
type ContextSearcher interface {
	BuildContext(ctx context.Context, product string, topics ...string) (string, int)
}

// UsageSink accepts usage entries without blocking the run.
type UsageSink interface {
	Submit(usagelog.Entry) bool
}

// Options holds the optional collaborators of an Orchestrator.
type Options struct {
	Search   ContextSearcher
	Sink     UsageSink
	Pricing  telemetry.Pricing
	Progress ProgressFunc
	// Provider is recorded on usage entries.
	Provider string
}

// Orchestrator runs the staged generation pipeline. It keeps no per-run
// state and may serve concurrent runs.
type Orchestrator struct {
	gateway  Invoker
	prompts  PromptBuilder
	search   ContextSearcher
	sink     UsageSink
	pricing  telemetry.Pricing
	progress ProgressFunc
	provider string
	newID    func() string
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(gateway Invoker, prompts PromptBuilder, opts Options) *Orchestrator {
	pricing := opts.Pricing
	if pricing.Currency == "" && pricing.Rates == nil {
		pricing = telemetry.DefaultPricing()
	}
	return &Orchestrator{
		gateway:  gateway,
		prompts:  prompts,
		search:   opts.Search,
		sink:     opts.Sink,
		pricing:  pricing,
		progress: opts.Progress,
		provider: opts.Provider,
		newID:    uuid.NewString,
	}
}

// SetProgressFunc sets the callback that receives progress events.
func (o *Orchestrator) SetProgressFunc(fn ProgressFunc) {
	o.progress = fn
}

// run is the mutable state of a single pipeline run.
type run struct {
	req          Request
	state        State
	ledger       telemetry.Ledger
	question     *Question
	answer       *Answer
	conversation []Message
	fallbacks    int

	searched  bool
	searchCtx string
}

// Run executes the stages selected by req.Step and returns the result.
// The usage entry of the run is submitted to the sink whether it succeeds
// or not.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	req = req.withDefaults()
	if err := req.Validate(); err != nil {
		metrics.PipelineRunTotal.WithLabelValues(string(req.Step), "invalid").Inc()
		return nil, err
	}

	runID := o.newID()
	ctx = logging.WithRunID(ctx, runID)
	log := logging.FromContext(ctx)
	log.Info("pipeline run started", "step", req.Step, "conversation_mode", req.ConversationMode,
		"conversation_length", req.ConversationLength)

	start := time.Now()
	r := &run{req: req}
	err := o.execute(ctx, r)
	elapsed := time.Since(start)

	usage := telemetry.Summarize(r.ledger, o.pricing)
	o.record(ctx, runID, r, usage, elapsed, err)

	if err != nil {
		log.Error("pipeline run failed", "state", r.state, "error", err)
		return nil, err
	}
	log.Info("pipeline run finished", "state", r.state, "total_tokens", usage.TotalTokens,
		"duration", elapsed)

	return &Result{
		RunID:        runID,
		State:        r.state,
		Question:     r.question,
		Answer:       r.answer,
		Conversation: r.conversation,
		Usage:        usage,
		Metadata:     metadataFor(req),
	}, nil
}

func (o *Orchestrator) execute(ctx context.Context, r *run) error {
	log := logging.FromContext(ctx)

	if r.req.Question.Complete() {
		q := *r.req.Question
		r.question = &q
		log.Debug("question supplied, skipping question stage")
	} else if err := o.questionStage(ctx, r); err != nil {
		return fmt.Errorf("question stage: %w", err)
	}
	r.state = StateQuestion
	if r.req.Step == StepQuestion {
		return nil
	}

	if r.req.Step == StepConversation && r.req.Answer.present() {
		a := *r.req.Answer
		r.answer = &a
		log.Debug("answer supplied, skipping answer stage")
	} else if err := o.answerStage(ctx, r); err != nil {
		return fmt.Errorf("answer stage: %w", err)
	}
	r.state = StateAnswer
	if r.req.Step == StepAnswer {
		return nil
	}

	if r.req.ConversationMode {
		if err := o.conversationStage(ctx, r); err != nil {
			return fmt.Errorf("conversation stage: %w", err)
		}
	}
	r.state = StateComplete
	return nil
}

func (o *Orchestrator) questionStage(ctx context.Context, r *run) error {
	o.report(Event{Stage: StateQuestion, Total: 1})

	prompt := o.prompts.QuestionPrompt(r.req, o.searchContext(ctx, r))
	text, err := o.invoke(ctx, r, prompt, r.req.image(), llm.TierLite)
	if err != nil {
		return err
	}

	q, method := ExtractQuestion(textnorm.Clean(text))
	if method == ExtractEmpty {
		return ErrEmptyOutput
	}
	q.Content = textnorm.ReflowOnly(q.Content)
	logging.FromContext(ctx).Debug("question extracted", "method", method, "title", q.Title)

	r.question = &q
	o.report(Event{Stage: StateQuestion, Done: 1, Total: 1, Role: RoleCustomer})
	return nil
}

func (o *Orchestrator) answerStage(ctx context.Context, r *run) error {
	if r.question == nil || strings.TrimSpace(r.question.Content) == "" {
		return invalid("question.content", "an answer needs a question")
	}
	o.report(Event{Stage: StateAnswer, Total: 1})

	prompt := o.prompts.AnswerPrompt(r.req, *r.question, o.searchContext(ctx, r))
	text, err := o.invoke(ctx, r, prompt, r.req.image(), llm.TierPremium)
	if err != nil {
		return err
	}

	content := textnorm.Normalize(text)
	if content == "" {
		return ErrEmptyOutput
	}
	r.answer = &Answer{Content: content}
	o.report(Event{Stage: StateAnswer, Done: 1, Total: 1, Role: RoleAgent})
	return nil
}

func (o *Orchestrator) conversationStage(ctx context.Context, r *run) error {
	if !r.answer.present() {
		return invalid("answer.content", "a conversation needs an answer")
	}

	asm := NewAssembler(o.gateway, o.prompts, o.progress)
	msgs, ledger, err := asm.Assemble(ctx, r.req, *r.question, *r.answer)
	r.ledger = r.ledger.Merge(ledger)
	if err != nil {
		return err
	}
	r.conversation = msgs
	return nil
}

func (o *Orchestrator) invoke(ctx context.Context, r *run, prompt string, image *llm.Image, tier llm.Tier) (string, error) {
	inv, err := o.gateway.Invoke(ctx, prompt, image, tier)
	if err != nil {
		return "", err
	}
	r.ledger = r.ledger.Add(inv.Record)
	r.fallbacks += inv.Fallbacks()
	return inv.Text, nil
}

// searchContext runs the search feed once per run, on first use.
func (o *Orchestrator) searchContext(ctx context.Context, r *run) string {
	if o.search == nil || r.searched {
		return r.searchCtx
	}
	r.searched = true

	text, calls := o.search.BuildContext(ctx, r.req.Product.Name, r.req.WorryPoint, r.req.SellingPoint)
	r.ledger = r.ledger.AddSearchCalls(calls)
	r.searchCtx = text
	logging.FromContext(ctx).Debug("search context built", "calls", calls, "chars", len(text))
	return text
}

func (o *Orchestrator) report(ev Event) {
	if o.progress != nil {
		o.progress(ev)
	}
}

// record emits metrics and submits the run's usage entry.
func (o *Orchestrator) record(ctx context.Context, runID string, r *run, usage telemetry.Summary, elapsed time.Duration, runErr error) {
	status := "ok"
	if runErr != nil {
		status = "error"
	}
	step := string(r.req.Step)
	metrics.PipelineRunTotal.WithLabelValues(step, status).Inc()
	metrics.PipelineRunDuration.WithLabelValues(step).Observe(elapsed.Seconds())

	if o.sink == nil {
		return
	}
	entry := usagelog.Entry{
		RunID:            runID,
		Step:             step,
		State:            string(r.state),
		Status:           status,
		Provider:         o.provider,
		Product:          r.req.Product.Name,
		Calls:            len(usage.Calls),
		Fallbacks:        r.fallbacks,
		SearchCalls:      usage.CostEstimate.SearchCalls,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
		Cost:             usage.CostEstimate.TotalCost,
		Currency:         usage.CostEstimate.Currency,
		DurationMS:       elapsed.Milliseconds(),
	}
	if runErr != nil {
		entry.Error = runErr.Error()
	}
	if !o.sink.Submit(entry) {
		logging.FromContext(ctx).Warn("usage entry dropped", "run_id", runID)
	}
}
