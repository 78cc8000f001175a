package pipeline

import (
	"context"
	"fmt"

	"github.com/ziadkadry99/qnagen/internal/logging"
	"github.com/ziadkadry99/qnagen/internal/telemetry"
	"github.com/ziadkadry99/qnagen/internal/textnorm"
)

// HistoryWindow is how many trailing messages a turn prompt sees.
const HistoryWindow = 6

// Reserved sequence numbers of the two interlude pairs.
const (
	midInterludeSeq   = 999
	finalInterludeSeq = 1001
)

// Assembler builds the alternating customer/agent dialogue.
type Assembler struct {
	gateway  Invoker
	prompts  PromptBuilder
	progress ProgressFunc
}

// NewAssembler creates an Assembler. progress may be nil.
func NewAssembler(gateway Invoker, prompts PromptBuilder, progress ProgressFunc) *Assembler {
	return &Assembler{gateway: gateway, prompts: prompts, progress: progress}
}

// RoleAt returns the speaker of regular turn i: even turns are the customer.
func RoleAt(i int) Role {
	if i%2 == 0 {
		return RoleCustomer
	}
	return RoleAgent
}

// MidAnchor returns the regular sequence the first interlude pair follows.
func MidAnchor(length int) int {
	return min(5, length/2)
}

// Assemble generates turns 2..length-1 after the given question and answer,
// then splices in the two interlude pairs. The returned ledger holds every
// call made, including those before a failure.
func (a *Assembler) Assemble(ctx context.Context, req Request, q Question, ans Answer) ([]Message, telemetry.Ledger, error) {
	var ledger telemetry.Ledger
	n := req.ConversationLength
	if n < 2 || n%2 != 0 {
		return nil, ledger, invalid("conversation_length", "must be a positive even number, got %d", n)
	}

	regular := make([]Message, 0, n)
	regular = append(regular,
		Message{Role: RoleCustomer, Content: q.Title + "\n\n" + q.Content, Sequence: 0},
		Message{Role: RoleAgent, Content: ans.Content, Sequence: 1},
	)

	total := n - 2 + 4
	done := 0
	log := logging.FromContext(ctx)

	for i := 2; i < n; i++ {
		role := RoleAt(i)
		prompt := a.prompts.TurnPrompt(req, role, window(regular, len(regular)))
		text, err := a.generate(ctx, &ledger, prompt, role)
		if err != nil {
			return nil, ledger, fmt.Errorf("turn %d: %w", i, err)
		}
		regular = append(regular, Message{Role: role, Content: text, Sequence: i})
		done++
		a.report(done, total, role)
	}

	mid := MidAnchor(n)
	final := n - 2 // the interlude goes right before turn n-1
	pairs := make(map[int][]Message, 2)
	for _, anchor := range []struct{ seq, base int }{{mid, midInterludeSeq}, {final, finalInterludeSeq}} {
		pair, err := a.interlude(ctx, &ledger, req, window(regular, anchor.seq+1), anchor.base)
		if err != nil {
			return nil, ledger, fmt.Errorf("interlude after turn %d: %w", anchor.seq, err)
		}
		pairs[anchor.seq] = pair
		done += len(pair)
		a.report(done-1, total, RoleCustomer)
		a.report(done, total, RoleAgent)
	}

	out := make([]Message, 0, n+4)
	for _, m := range regular {
		out = append(out, m)
		out = append(out, pairs[m.Sequence]...)
	}
	log.Debug("conversation assembled", "regular", n, "messages", len(out))
	return out, ledger, nil
}

// interlude generates a customer testimonial and the agent's reply to it.
func (a *Assembler) interlude(ctx context.Context, ledger *telemetry.Ledger, req Request, history []Message, base int) ([]Message, error) {
	testimonial, err := a.generate(ctx, ledger, a.prompts.InterludePrompt(req, RoleCustomer, history), RoleCustomer)
	if err != nil {
		return nil, err
	}
	first := Message{Role: RoleCustomer, Content: testimonial, Sequence: base, Interlude: true}

	extended := append(append([]Message{}, history...), first)
	withTestimonial := window(extended, len(extended))
	reply, err := a.generate(ctx, ledger, a.prompts.InterludePrompt(req, RoleAgent, withTestimonial), RoleAgent)
	if err != nil {
		return nil, err
	}
	second := Message{Role: RoleAgent, Content: reply, Sequence: base + 1, Interlude: true}
	return []Message{first, second}, nil
}

func (a *Assembler) generate(ctx context.Context, ledger *telemetry.Ledger, prompt string, role Role) (string, error) {
	inv, err := a.gateway.Invoke(ctx, prompt, nil, role.Tier())
	if err != nil {
		return "", err
	}
	*ledger = ledger.Add(inv.Record)
	return textnorm.Normalize(inv.Text), nil
}

func (a *Assembler) report(done, total int, role Role) {
	if a.progress != nil {
		a.progress(Event{Stage: StateConversation, Done: done, Total: total, Role: role})
	}
}

// window returns a copy of the last HistoryWindow messages of msgs[:end].
func window(msgs []Message, end int) []Message {
	end = min(end, len(msgs))
	start := max(end-HistoryWindow, 0)
	out := make([]Message, end-start)
	copy(out, msgs[start:end])
	return out
}
