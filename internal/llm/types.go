package llm

// Role represents the role of a message sender in a provider request.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Tier is a capacity/quality level of the generative provider.
type Tier string

const (
	// TierLite is the low-cost tier used for customer-voice turns and questions.
	TierLite Tier = "lite"
	// TierPremium is the high-quality tier used for advisor-voice turns and answers.
	TierPremium Tier = "premium"
)

// Tiers lists every known tier.
var Tiers = []Tier{TierLite, TierPremium}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t == TierLite || t == TierPremium
}

// Order returns the tier preference list for a preferred tier. A lite
// preference falls back to premium; anything else starts at premium.
func (t Tier) Order() []Tier {
	if t == TierLite {
		return []Tier{TierLite, TierPremium}
	}
	return []Tier{TierPremium, TierLite}
}

// Image is an optional attachment sent alongside a prompt.
type Image struct {
	MIMEType string
	Data     []byte
}

// Message represents a single message in a provider request.
type Message struct {
	Role    Role
	Content string
	Image   *Image
}

// CompletionRequest contains the parameters for an LLM completion request.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// CompletionResponse contains the result of an LLM completion request.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	Model        string
	FinishReason string
}

// CallRecord is the usage record of one successful provider call.
type CallRecord struct {
	Tier             Tier   `json:"tier"`
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
}

// Attempt describes one try against a tier during an invocation.
type Attempt struct {
	Tier  Tier
	Quota bool
	Err   error
}

// Invocation is the outcome of a successful gateway call.
type Invocation struct {
	Text     string
	Record   CallRecord
	Attempts []Attempt
}

// Fallbacks returns how many attempts failed before the successful one.
func (inv *Invocation) Fallbacks() int {
	if inv == nil || len(inv.Attempts) == 0 {
		return 0
	}
	return len(inv.Attempts) - 1
}
