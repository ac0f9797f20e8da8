package types

import "time"

type JobResponse struct {
	ID           string         `json:"id"`
	Kind         string         `json:"kind"`
	Status       string         `json:"status"`
	CharacterID  string         `json:"character_id"`
	Result       map[string]any `json:"result"`
	ErrorMessage string         `json:"error_message,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// ActiveJobResponse is a listing row for an in-flight job, denormalized with
// the fields the job tray displays.
type ActiveJobResponse struct {
	ID                 string    `json:"id"`
	Kind               string    `json:"kind"`
	Status             string    `json:"status"`
	CharacterID        string    `json:"character_id"`
	CharacterName      string    `json:"character_name"`
	CharacterImagePath string    `json:"character_image_path"`
	Prompt             string    `json:"prompt"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type SubmitResponse struct {
	JobID        string `json:"job_id"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type ShotsResponse struct {
	JobIDs  []string `json:"job_ids"`
	Prompts []string `json:"prompts"`
}

type JobEventResponse struct {
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
}

type MediaResponse struct {
	ID                 string    `json:"id"`
	CharacterID        string    `json:"character_id"`
	CharacterName      string    `json:"character_name,omitempty"`
	JobID              string    `json:"job_id,omitempty"`
	MediaType          string    `json:"media_type"`
	FilePath           string    `json:"file_path"`
	GenerationMode     string    `json:"generation_mode,omitempty"`
	Prompt             string    `json:"prompt,omitempty"`
	VideoPrompt        string    `json:"video_prompt,omitempty"`
	FirstFramePath     string    `json:"first_frame_path,omitempty"`
	ReferenceImagePath string    `json:"reference_image_path,omitempty"`
	IsPortfolio        bool      `json:"is_portfolio"`
	CreatedAt          time.Time `json:"created_at"`
}

type CharacterResponse struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	VisualDescription string    `json:"visual_description"`
	PersonalityTraits []string  `json:"personality_traits"`
	ToneOfVoice       string    `json:"tone_of_voice"`
	ContentStyle      string    `json:"content_style"`
	TargetAudience    string    `json:"target_audience"`
	ContentThemes     []string  `json:"content_themes"`
	ImagePath         string    `json:"image_path"`
	CreatedAt         time.Time `json:"created_at"`
}

type UploadResponse struct {
	URL string `json:"url"`
}

type SweepResponse struct {
	Stale          int `json:"stale"`
	NeverSubmitted int `json:"never_submitted"`
}

type ContentPlanResponse struct {
	ID          string         `json:"id"`
	CharacterID string         `json:"character_id"`
	Theme       string         `json:"theme"`
	PlanData    map[string]any `json:"plan_data"`
	CreatedAt   time.Time      `json:"created_at"`
}
