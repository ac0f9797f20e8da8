package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const DefaultOpenRouterModel = "google/gemini-2.5-flash"

type OpenRouterOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// OpenRouter is the text and vision LLM used for prompt work. It speaks
// the OpenAI chat completions protocol.
type OpenRouter struct {
	client *openai.Client
	model  string
}

func NewOpenRouter(opts OpenRouterOptions) *OpenRouter {
	cfg := openai.DefaultConfig(strings.TrimSpace(opts.APIKey))
	cfg.BaseURL = trimOr(opts.BaseURL, "https://openrouter.ai/api/v1")
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultOpenRouterModel
	}

	return &OpenRouter{client: openai.NewClientWithConfig(cfg), model: model}
}

type Personality struct {
	Archetype         string   `json:"archetype"`
	VisualDescription string   `json:"visual_description"`
	PersonalityTraits []string `json:"personality_traits"`
	ToneOfVoice       string   `json:"tone_of_voice"`
	ContentStyle      string   `json:"content_style"`
	ContentThemes     []string `json:"content_themes"`
}

func (o *OpenRouter) GeneratePersonality(ctx context.Context, concept, audience string) (*Personality, error) {
	prompt := fmt.Sprintf(`Create a detailed personality profile for an AI influencer character.

Concept: %s
Target Audience: %s

Generate a JSON object with:
- archetype: brief character archetype (1 sentence)
- personality_traits: 5-7 personality traits (list)
- tone_of_voice: communication style (1-2 words)
- content_style: type of content they create (1 word)
- content_themes: 3-5 content topics they cover (list)
- visual_description: detailed physical appearance for image generation, written as a candid smartphone photo in an everyday setting with natural light

Return only valid JSON.`, concept, audience)

	content, err := o.chat(ctx, 0.8,
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: "You are a character design expert. Always return valid JSON."},
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt},
	)
	if err != nil {
		return nil, err
	}

	var personality Personality
	if err := extractJSON(content, &personality); err != nil {
		return nil, err
	}
	return &personality, nil
}

// DescribeImage returns a prompt-ready description of the image at imageURL.
func (o *OpenRouter) DescribeImage(ctx context.Context, imageURL string) (string, error) {
	content, err := o.chat(ctx, 0.5, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: imageURL}},
			{Type: openai.ChatMessagePartTypeText, Text: `Describe this image in detail for use as an image generation prompt. Cover composition and setting, pose and camera angle, lighting and palette, clothing and styling.
Return only the descriptive text. Keep it under 200 words.`},
		},
	})
	if err != nil {
		return "", err
	}

	description := strings.TrimSpace(content)
	if description == "" {
		return "", malformed("openrouter", "empty image description")
	}
	return description, nil
}

func (o *OpenRouter) GenerateShotPrompts(ctx context.Context, description string, n int) ([]string, error) {
	prompt := fmt.Sprintf(`Based on the following image description, generate %d different photo variation prompts.
Each variation keeps the same person, outfit, location and day, but changes the camera angle, pose, expression or framing, like shots from one photo session.

Original image description:
%s

Each prompt is a complete image generation prompt of 1-2 sentences.
Return ONLY a JSON array of %d strings.`, n, description, n)

	content, err := o.chat(ctx, 0.8,
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: "You generate image variation prompts. Always return a valid JSON array of strings."},
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt},
	)
	if err != nil {
		return nil, err
	}

	var prompts []string
	if err := extractJSON(content, &prompts); err != nil {
		return nil, err
	}

	cleaned := prompts[:0]
	for _, p := range prompts {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		return nil, malformed("openrouter", "no shot prompts returned")
	}
	if len(cleaned) > n {
		cleaned = cleaned[:n]
	}
	return cleaned, nil
}

// DetermineVideoDuration asks for a clip length in seconds, clamped to [5, maxSeconds].
func (o *OpenRouter) DetermineVideoDuration(ctx context.Context, videoPrompt string, maxSeconds int) (int, error) {
	prompt := fmt.Sprintf(`Analyze this video prompt and determine the optimal duration in seconds (5-%d).

Video prompt:
%s

Simple actions: 5s. Medium actions such as walking or talking: 8-10s. Multi-step sequences: 12-15s.
Return ONLY a single integer.`, maxSeconds, videoPrompt)

	content, err := o.chat(ctx, 0.3,
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: "Return only a single integer."},
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt},
	)
	if err != nil {
		return 0, err
	}

	duration, err := strconv.Atoi(firstInt.FindString(content))
	if err != nil {
		return 0, malformed("openrouter", fmt.Sprintf("duration is not an integer: %q", content))
	}
	return clamp(duration, 5, maxSeconds), nil
}

func (o *OpenRouter) GenerateVideoPrompt(ctx context.Context, characterName, concept string, spicy bool) (string, error) {
	style := ""
	if spicy {
		style = " Make it bold and cinematic, like a fashion film."
	}

	prompt := fmt.Sprintf(`Write a short video prompt based on this concept.

Character: %s
Concept: %s

Describe the scene and action in 1-3 sentences.%s No timestamps. Return only the prompt text.`, characterName, concept, style)

	content, err := o.chat(ctx, 0.7,
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: "You write concise video prompts. 1-3 sentences only."},
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt},
	)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// PlanSubject is the character a content plan is written for.
type PlanSubject struct {
	Name              string
	PersonalityTraits []string
	ToneOfVoice       string
	ContentStyle      string
}

// ContentPlan outlines one short-form video.
type ContentPlan struct {
	Title            string `json:"title"`
	Hook             string `json:"hook"`
	DurationSeconds  int    `json:"duration_seconds"`
	FirstFramePrompt string `json:"first_frame_prompt"`
	VideoPrompt      string `json:"video_prompt"`
	CallToAction     string `json:"call_to_action"`
}

func (o *OpenRouter) GenerateContentPlan(ctx context.Context, subject PlanSubject, theme string) (*ContentPlan, error) {
	prompt := fmt.Sprintf(`Create a SHORT-FORM VIDEO content plan for this character:

Character: %s
Personality: %s
Tone: %s
Style: %s

Theme: %s

This is for ONE single video of 5-10 seconds, not multiple scenes.

Generate a JSON object with EXACTLY these fields:
- title: catchy content title
- hook: opening hook, 1-2 sentences
- duration_seconds: total video duration in seconds (5-10)
- first_frame_prompt: detailed description of the starting image: pose, camera angle, setting, lighting, what the character is doing
- video_prompt: second-by-second description of the whole video, formatted "0-2s: [action], 2-5s: [action], ..."
- call_to_action: ending CTA, 1 sentence

Return only valid JSON.`, subject.Name, strings.Join(subject.PersonalityTraits, ", "), subject.ToneOfVoice, subject.ContentStyle, theme)

	content, err := o.chat(ctx, 0.7,
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: "You are a content strategist specializing in short-form video. Always return valid JSON."},
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt},
	)
	if err != nil {
		return nil, err
	}

	var plan ContentPlan
	if err := extractJSON(content, &plan); err != nil {
		return nil, err
	}
	if plan.Title == "" && plan.VideoPrompt == "" {
		return nil, malformed("openrouter", "content plan has no title or video prompt")
	}
	if plan.DurationSeconds > 0 {
		plan.DurationSeconds = clamp(plan.DurationSeconds, 5, 10)
	}
	return &plan, nil
}

func (o *OpenRouter) chat(ctx context.Context, temperature float32, messages ...openai.ChatCompletionMessage) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		return "", wrapOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", malformed("openrouter", "no choices in completion")
	}
	return resp.Choices[0].Message.Content, nil
}

func wrapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return newError("openrouter", apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return newError("openrouter", reqErr.HTTPStatusCode, reqErr.Error())
	}

	return fmt.Errorf("error calling openrouter: %w", err)
}

var (
	fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	firstInt   = regexp.MustCompile(`-?\d+`)
)

// extractJSON decodes content, tolerating a markdown code fence around it.
func extractJSON(content string, v any) error {
	if match := fencedJSON.FindStringSubmatch(content); match != nil {
		content = match[1]
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), v); err != nil {
		return malformed("openrouter", err.Error())
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
