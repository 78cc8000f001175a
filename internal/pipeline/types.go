package pipeline

import (
	"strings"

	"github.com/ziadkadry99/qnagen/internal/llm"
	"github.com/ziadkadry99/qnagen/internal/telemetry"
)

// Step selects how far a run goes.
type Step string

const (
	StepQuestion     Step = "question"
	StepAnswer       Step = "answer"
	StepConversation Step = "conversation"
	StepAll          Step = "all"
)

// State is a stage of the generation state machine. States only move forward.
type State string

const (
	StateQuestion     State = "question"
	StateAnswer       State = "answer"
	StateConversation State = "conversation"
	StateComplete     State = "complete"
)

// Role is the speaker of a conversation message.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAgent    Role = "agent"
)

// Tier returns the provider tier used to voice the role.
func (r Role) Tier() llm.Tier {
	if r == RoleCustomer {
		return llm.TierLite
	}
	return llm.TierPremium
}

// FeelingTone sets the emotional color of the generated question.
type FeelingTone string

const (
	FeelingWarm    FeelingTone = "warm"
	FeelingNeutral FeelingTone = "neutral"
	FeelingExcited FeelingTone = "excited"
	FeelingWorried FeelingTone = "worried"
	defaultFeeling             = FeelingWarm
)

// AnswerTone sets the voice of the advisor.
type AnswerTone string

const (
	AnswerExpert   AnswerTone = "expert"
	AnswerFriendly AnswerTone = "friendly"
	AnswerConcise  AnswerTone = "concise"
	defaultAnswer             = AnswerExpert
)

// CustomerStyle sets how the customer speaks in the dialogue.
type CustomerStyle string

const (
	CustomerCurious   CustomerStyle = "curious"
	CustomerSkeptical CustomerStyle = "skeptical"
	CustomerCasual    CustomerStyle = "casual"
	defaultCustomer                 = CustomerCurious
)

// AnswerLength bounds the size of the generated answer.
type AnswerLength string

const (
	LengthShort  AnswerLength = "short"
	LengthMedium AnswerLength = "medium"
	LengthLong   AnswerLength = "long"
)

// DefaultConversationLength is used when a request leaves the length unset.
const DefaultConversationLength = 6

// ConversationLengths lists the accepted regular-turn counts.
var ConversationLengths = []int{6, 8, 10, 12}

// Product describes the item the content is written about.
type Product struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Features string `json:"features"`
}

// Tones groups the tone selectors of a request.
type Tones struct {
	Feeling       FeelingTone   `json:"feeling"`
	Answer        AnswerTone    `json:"answer"`
	CustomerStyle CustomerStyle `json:"customer_style"`
}

// Question is the generated (or supplied) customer question.
type Question struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Complete reports whether both title and content are present.
func (q *Question) Complete() bool {
	return q != nil && strings.TrimSpace(q.Title) != "" && strings.TrimSpace(q.Content) != ""
}

// Answer is the generated (or supplied) advisor answer.
type Answer struct {
	Content string `json:"content"`
}

func (a *Answer) present() bool {
	return a != nil && strings.TrimSpace(a.Content) != ""
}

// ImageInput is an image attached to a request. Data is base64 in JSON.
type ImageInput struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// Request is one generation request. A run never modifies it.
type Request struct {
	Product            Product      `json:"product"`
	Persona            string       `json:"persona"`
	WorryPoint         string       `json:"worry_point"`
	SellingPoint       string       `json:"selling_point"`
	Tones              Tones        `json:"tones"`
	AnswerLength       AnswerLength `json:"answer_length"`
	ConversationMode   bool         `json:"conversation_mode"`
	ConversationLength int          `json:"conversation_length"`
	Step               Step         `json:"step"`
	Question           *Question    `json:"question,omitempty"`
	Answer             *Answer      `json:"answer,omitempty"`
	Image              *ImageInput  `json:"image,omitempty"`
}

// image returns the attachment in provider form, or nil.
func (r Request) image() *llm.Image {
	if r.Image == nil || len(r.Image.Data) == 0 {
		return nil
	}
	return &llm.Image{MIMEType: r.Image.MIMEType, Data: r.Image.Data}
}

// Message is one entry of the assembled dialogue. Interludes carry reserved
// sequence numbers and never count as regular turns.
type Message struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Sequence  int    `json:"sequence"`
	Interlude bool   `json:"interlude,omitempty"`
}

// Metadata echoes the request fields that shaped a result.
type Metadata struct {
	Product            Product      `json:"product"`
	Persona            string       `json:"persona"`
	WorryPoint         string       `json:"worry_point"`
	SellingPoint       string       `json:"selling_point"`
	Tones              Tones        `json:"tones"`
	AnswerLength       AnswerLength `json:"answer_length"`
	ConversationMode   bool         `json:"conversation_mode"`
	ConversationLength int          `json:"conversation_length"`
	Step               Step         `json:"step"`
	HasImage           bool         `json:"has_image"`
}

func metadataFor(r Request) Metadata {
	return Metadata{
		Product:            r.Product,
		Persona:            r.Persona,
		WorryPoint:         r.WorryPoint,
		SellingPoint:       r.SellingPoint,
		Tones:              r.Tones,
		AnswerLength:       r.AnswerLength,
		ConversationMode:   r.ConversationMode,
		ConversationLength: r.ConversationLength,
		Step:               r.Step,
		HasImage:           r.image() != nil,
	}
}

// Result is the output of one pipeline run.
type Result struct {
	RunID        string            `json:"run_id"`
	State        State             `json:"state"`
	Question     *Question         `json:"question,omitempty"`
	Answer       *Answer           `json:"answer,omitempty"`
	Conversation []Message         `json:"conversation,omitempty"`
	Usage        telemetry.Summary `json:"usage"`
	Metadata     Metadata          `json:"metadata"`
}

// RegularTurns returns the non-interlude messages of the dialogue.
func (r *Result) RegularTurns() []Message {
	var out []Message
	for _, m := range r.Conversation {
		if !m.Interlude {
			out = append(out, m)
		}
	}
	return out
}

// Event reports pipeline progress to an observer.
type Event struct {
	Stage State
	// Done and Total count generated messages within the stage.
	Done  int
	Total int
	Role  Role
}

// ProgressFunc receives progress events. It is called on the run's goroutine.
type ProgressFunc func(Event)
