package pipeline

import (
	"slices"
	"strings"
)

// withDefaults returns a copy of r with unset optional fields filled in.
func (r Request) withDefaults() Request {
	if r.Step == "" {
		r.Step = StepAll
	}
	if r.ConversationLength == 0 {
		r.ConversationLength = DefaultConversationLength
	}
	if r.AnswerLength == "" {
		r.AnswerLength = LengthMedium
	}
	if r.Tones.Feeling == "" {
		r.Tones.Feeling = defaultFeeling
	}
	if r.Tones.Answer == "" {
		r.Tones.Answer = defaultAnswer
	}
	if r.Tones.CustomerStyle == "" {
		r.Tones.CustomerStyle = defaultCustomer
	}
	r.Step = Step(strings.ToLower(strings.TrimSpace(string(r.Step))))
	return r
}

// Validate checks a request after defaults have been applied.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Product.Name) == "" {
		return invalid("product.name", "is required")
	}

	switch r.Step {
	case StepQuestion, StepAnswer, StepConversation, StepAll:
	default:
		return invalid("step", "unknown step %q", r.Step)
	}
	if r.Step == StepConversation && !r.ConversationMode {
		return invalid("conversation_mode", "must be true when step is %q", StepConversation)
	}

	if !slices.Contains(ConversationLengths, r.ConversationLength) {
		return invalid("conversation_length", "must be one of %v, got %d", ConversationLengths, r.ConversationLength)
	}

	switch r.Tones.Feeling {
	case FeelingWarm, FeelingNeutral, FeelingExcited, FeelingWorried:
	default:
		return invalid("tones.feeling", "unknown tone %q", r.Tones.Feeling)
	}
	switch r.Tones.Answer {
	case AnswerExpert, AnswerFriendly, AnswerConcise:
	default:
		return invalid("tones.answer", "unknown tone %q", r.Tones.Answer)
	}
	switch r.Tones.CustomerStyle {
	case CustomerCurious, CustomerSkeptical, CustomerCasual:
	default:
		return invalid("tones.customer_style", "unknown style %q", r.Tones.CustomerStyle)
	}
	switch r.AnswerLength {
	case LengthShort, LengthMedium, LengthLong:
	default:
		return invalid("answer_length", "unknown length %q", r.AnswerLength)
	}

	if r.Question != nil {
		hasTitle := strings.TrimSpace(r.Question.Title) != ""
		hasContent := strings.TrimSpace(r.Question.Content) != ""
		if hasTitle != hasContent {
			return invalid("question", "title and content must be supplied together")
		}
	}

	if img := r.Image; img != nil && len(img.Data) > 0 {
		if !strings.HasPrefix(img.MIMEType, "image/") {
			return invalid("image.mime_type", "must be an image type, got %q", img.MIMEType)
		}
	}
	return nil
}
