package orchestrator

import (
	"github.com/cozy-creator/influencer-studio/internal/db/models"
	"github.com/cozy-creator/influencer-studio/internal/services/fileuploader"
	"github.com/cozy-creator/influencer-studio/internal/types"
)

// SubmitRequest is the union of per-kind submission parameters. Which
// fields are required depends on Kind.
type SubmitRequest struct {
	Kind               models.JobKind `json:"kind"`
	CharacterID        string         `json:"character_id"`
	SubjectID          string         `json:"subject_id"`
	Prompt             string         `json:"prompt"`
	Concept            string         `json:"concept"`
	VideoPrompt        string         `json:"video_prompt"`
	FirstFramePath     string         `json:"first_frame_path"`
	Duration           int            `json:"duration"`
	DrivingVideoURL    string         `json:"driving_video_url"`
	ImagePath          string         `json:"image_path"`
	ReferenceImagePath string         `json:"reference_image_path"`
	Spicy              bool           `json:"spicy"`
}

func (r *SubmitRequest) characterID() string {
	if r.CharacterID != "" {
		return r.CharacterID
	}
	return r.SubjectID
}

type kindSpec struct {
	mediaType models.MediaType
	mode      string
	category  fileuploader.Category
	ext       string
	resultKey string
	validate  func(req *SubmitRequest) error
	mediaFrom func(job *models.Job, media *models.Media)
}

var kinds = map[models.JobKind]kindSpec{
	models.JobKindVideoFinal: {
		mediaType: models.MediaTypeVideo,
		mode:      "video",
		category:  fileuploader.CategoryVideos,
		ext:       "mp4",
		resultKey: "video_path",
		validate: func(req *SubmitRequest) error {
			if req.FirstFramePath == "" || req.VideoPrompt == "" {
				return types.InvalidInput("first_frame_path and video_prompt are required")
			}
			return nil
		},
		mediaFrom: func(job *models.Job, media *models.Media) {
			media.Prompt = job.InputString("concept")
			media.VideoPrompt = job.InputString("video_prompt")
			media.FirstFramePath = job.InputString("first_frame_path")
		},
	},
	models.JobKindVideoMotion: {
		mediaType: models.MediaTypeVideo,
		mode:      "motion_control",
		category:  fileuploader.CategoryVideos,
		ext:       "mp4",
		resultKey: "video_path",
		validate: func(req *SubmitRequest) error {
			if req.Prompt == "" || req.DrivingVideoURL == "" {
				return types.InvalidInput("prompt and driving_video_url are required")
			}
			return nil
		},
		mediaFrom: func(job *models.Job, media *models.Media) {
			media.Prompt = job.InputString("prompt")
			media.ReferenceImagePath = job.InputString("image_path")
		},
	},
	models.JobKindImage: {
		mediaType: models.MediaTypeImage,
		mode:      "image",
		category:  fileuploader.CategoryImages,
		ext:       "png",
		resultKey: "image_path",
		validate: func(req *SubmitRequest) error {
			if req.Prompt == "" {
				return types.InvalidInput("prompt is required")
			}
			return nil
		},
		mediaFrom: func(job *models.Job, media *models.Media) {
			media.Prompt = job.InputString("prompt")
			media.ReferenceImagePath = job.InputString("reference_image_path")
		},
	},
	models.JobKindShots: {
		mediaType: models.MediaTypeImage,
		mode:      "shots",
		category:  fileuploader.CategoryImages,
		ext:       "png",
		resultKey: "file_path",
		mediaFrom: func(job *models.Job, media *models.Media) {
			media.Prompt = job.InputString("prompt")
			media.ReferenceImagePath = job.InputString("source_image_path")
		},
	},
}

func specFor(kind models.JobKind) (kindSpec, error) {
	spec, ok := kinds[kind]
	if !ok {
		return kindSpec{}, types.InvalidInput("unknown job kind %q", kind)
	}
	return spec, nil
}

// DisplayPrompt is the prompt text shown for a job in listings.
func DisplayPrompt(job *models.Job) string {
	if job.Kind == models.JobKindVideoFinal {
		if p := job.InputString("video_prompt"); p != "" {
			return p
		}
	}
	return job.InputString("prompt")
}
