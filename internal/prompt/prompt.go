// Package prompt renders the generation prompts for each pipeline step.
package prompt

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/qnagen/internal/pipeline"
)

const questionTemplate = `당신은 온라인 커뮤니티에 상품 관련 질문을 올리는 실제 소비자입니다.
아래 정보를 바탕으로 자연스러운 질문 글을 작성하세요.

[상품]
%s

[작성자 페르소나]
%s

[고민]
%s

[말투]
%s

%s규칙:
- 광고처럼 보이지 않게, 실제 고민이 드러나도록 작성합니다.
- 상품명을 직접 홍보하지 않습니다.
- 본문은 3~5문단으로 나눕니다.

반드시 아래 형식으로만 답하세요.
제목: (40자 이내의 질문 제목)
본문: (질문 본문)`

const answerTemplate = `당신은 %s 분야의 전문 상담가입니다. 아래 소비자 질문에 답변을 작성하세요.

[질문 제목]
%s

[질문 본문]
%s

[상품]
%s

[강조할 장점]
%s

[답변 말투]
%s

[분량]
%s

%s규칙:
- 질문자의 고민에 먼저 공감한 뒤 해결책을 제시합니다.
- 상품은 해결책의 하나로 자연스럽게 소개합니다.
- 문단 사이에는 빈 줄을 넣습니다.
- 코드 블록이나 마크다운 제목을 쓰지 않습니다.`

const turnTemplate = `아래는 소비자와 상담가의 대화입니다. 다음 %s의 말을 한 번만 작성하세요.

[상품]
%s

[소비자 말투]
%s

[상담가 말투]
%s

[최근 대화]
%s

규칙:
- %s
- 앞의 대화를 반복하지 않습니다.
- 발화 내용만 작성하고 화자 이름은 붙이지 않습니다.`

const interludeTemplate = `아래는 소비자와 상담가의 대화입니다. %s

[상품]
%s

[최근 대화]
%s

규칙:
- 2~4문장으로 짧게 작성합니다.
- 발화 내용만 작성하고 화자 이름은 붙이지 않습니다.`

var feelingText = map[pipeline.FeelingTone]string{
	pipeline.FeelingWarm:    "따뜻하고 친근한 말투",
	pipeline.FeelingNeutral: "담백하고 차분한 말투",
	pipeline.FeelingExcited: "기대감이 느껴지는 밝은 말투",
	pipeline.FeelingWorried: "걱정이 많은 조심스러운 말투",
}

var answerToneText = map[pipeline.AnswerTone]string{
	pipeline.AnswerExpert:   "근거를 들어 설명하는 전문가 말투",
	pipeline.AnswerFriendly: "친구에게 조언하듯 편안한 말투",
	pipeline.AnswerConcise:  "핵심만 짚는 간결한 말투",
}

var customerStyleText = map[pipeline.CustomerStyle]string{
	pipeline.CustomerCurious:   "궁금한 점을 적극적으로 묻는 소비자",
	pipeline.CustomerSkeptical: "쉽게 믿지 않고 근거를 요구하는 소비자",
	pipeline.CustomerCasual:    "가볍게 대화하는 소비자",
}

var lengthText = map[pipeline.AnswerLength]string{
	pipeline.LengthShort:  "300자 내외",
	pipeline.LengthMedium: "600자 내외",
	pipeline.LengthLong:   "1000자 이상",
}

// Templates implements pipeline.PromptBuilder with fixed Korean templates.
type Templates struct{}

// New returns the default template set.
func New() Templates {
	return Templates{}
}

// QuestionPrompt renders the question-generation prompt.
func (Templates) QuestionPrompt(req pipeline.Request, searchContext string) string {
	return fmt.Sprintf(questionTemplate,
		productBlock(req),
		orDefault(req.Persona, "일반 소비자"),
		orDefault(req.WorryPoint, "상품 선택이 고민됨"),
		feelingText[req.Tones.Feeling],
		referenceBlock(searchContext),
	)
}

// AnswerPrompt renders the answer-generation prompt.
func (Templates) AnswerPrompt(req pipeline.Request, q pipeline.Question, searchContext string) string {
	return fmt.Sprintf(answerTemplate,
		orDefault(req.Product.Category, "상품"),
		q.Title,
		q.Content,
		productBlock(req),
		orDefault(req.SellingPoint, "상품의 주요 특징"),
		answerToneText[req.Tones.Answer],
		lengthText[req.AnswerLength],
		referenceBlock(searchContext),
	)
}

// TurnPrompt renders the prompt of one regular dialogue turn.
func (Templates) TurnPrompt(req pipeline.Request, role pipeline.Role, history []pipeline.Message) string {
	var speaker, guide string
	if role == pipeline.RoleCustomer {
		speaker = "소비자"
		guide = "소비자는 앞선 답변에 대해 궁금한 점이나 추가 고민을 이야기합니다."
	} else {
		speaker = "상담가"
		guide = "상담가는 소비자의 말에 공감하고 구체적으로 답합니다."
	}
	return fmt.Sprintf(turnTemplate,
		speaker,
		productBlock(req),
		customerStyleText[req.Tones.CustomerStyle],
		answerToneText[req.Tones.Answer],
		transcript(history),
		guide,
	)
}

// InterludePrompt renders a testimonial (customer) or its acknowledgement (agent).
func (Templates) InterludePrompt(req pipeline.Request, role pipeline.Role, history []pipeline.Message) string {
	instruction := "소비자가 상품을 직접 써 본 경험을 짧은 후기로 덧붙입니다. 소비자의 말을 작성하세요."
	if role == pipeline.RoleAgent {
		instruction = "상담가가 방금 소비자가 남긴 후기에 감사를 전하고 짧게 덧붙입니다. 상담가의 말을 작성하세요."
	}
	return fmt.Sprintf(interludeTemplate, instruction, productBlock(req), transcript(history))
}

func productBlock(req pipeline.Request) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "이름: %s", req.Product.Name)
	if req.Product.Category != "" {
		fmt.Fprintf(&sb, "\n분류: %s", req.Product.Category)
	}
	if req.Product.Features != "" {
		fmt.Fprintf(&sb, "\n특징: %s", req.Product.Features)
	}
	return sb.String()
}

func referenceBlock(searchContext string) string {
	if strings.TrimSpace(searchContext) == "" {
		return ""
	}
	return "[참고 자료]\n" + searchContext + "\n\n"
}

func transcript(history []pipeline.Message) string {
	var sb strings.Builder
	for _, m := range history {
		speaker := "상담가"
		if m.Role == pipeline.RoleCustomer {
			speaker = "소비자"
		}
		fmt.Fprintf(&sb, "%s: %s\n", speaker, m.Content)
	}
	return strings.TrimSpace(sb.String())
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
