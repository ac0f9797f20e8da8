package characters

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozy-creator/influencer-studio/internal/db/models"
	"github.com/cozy-creator/influencer-studio/internal/services/providers"
	"github.com/cozy-creator/influencer-studio/internal/types"
)

func createCharacter(t *testing.T, svc *Service, owner string) *models.Character {
	t.Helper()
	character, err := svc.Create(context.Background(), owner, CreateRequest{Name: "Mika", Concept: "travel vlogger"})
	require.NoError(t, err)
	return character
}

func TestCreateContentPlan(t *testing.T) {
	ctx := context.Background()
	svc, _, writer, _ := newService(t)
	character := createCharacter(t, svc, "alice")
	other := createCharacter(t, svc, "alice")

	plan, err := svc.CreateContentPlan(ctx, "alice", character.ID, " travel ")
	require.NoError(t, err)
	assert.Equal(t, "travel", plan.Theme)
	assert.Equal(t, "A day of travel", plan.PlanData["title"])
	assert.Equal(t, "airport lounge at dawn", plan.PlanData["first_frame_prompt"])
	assert.Equal(t, "Mika", writer.subject.Name)
	assert.Equal(t, []string{"curious", "warm"}, writer.subject.PersonalityTraits)

	_, err = svc.CreateContentPlan(ctx, "alice", other.ID, "food")
	require.NoError(t, err)

	plans, err := svc.ListContentPlans(ctx, "alice", "")
	require.NoError(t, err)
	assert.Len(t, plans, 2)

	plans, err = svc.ListContentPlans(ctx, "alice", character.ID)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, plan.ID, plans[0].ID)

	plans, err = svc.ListContentPlans(ctx, "bob", "")
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestCreateContentPlanErrors(t *testing.T) {
	ctx := context.Background()
	svc, store, writer, _ := newService(t)
	character := createCharacter(t, svc, "alice")

	_, err := svc.CreateContentPlan(ctx, "alice", character.ID, " ")
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = svc.CreateContentPlan(ctx, "bob", character.ID, "travel")
	assert.ErrorIs(t, err, types.ErrNotFound)

	writer.planErr = &providers.Error{Provider: "openrouter", StatusCode: 500, Detail: "down"}
	_, err = svc.CreateContentPlan(ctx, "alice", character.ID, "travel")
	assert.ErrorIs(t, err, types.ErrProvider)

	plans, err := store.Plans.List(ctx, "alice", "")
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestPrepareVideo(t *testing.T) {
	ctx := context.Background()
	svc, _, _, images := newService(t)
	character := createCharacter(t, svc, "alice")
	images.requests = nil

	prepared, err := svc.PrepareVideo(ctx, "alice", PrepareVideoRequest{
		CharacterID:        character.ID,
		Concept:            "sunset on a rooftop",
		Option:             OptionRefImage,
		ReferenceImagePath: "https://storage.test/uploads/ref.png",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, prepared.PrepareID)
	assert.Equal(t, "https://storage.test/images/portrait.jpg", prepared.FirstFramePath)
	assert.Equal(t, "Mika walks through sunset on a rooftop", prepared.VideoPrompt)

	require.Len(t, images.requests, 1)
	assert.Equal(t, []string{character.ImagePath, "https://storage.test/uploads/ref.png"}, images.requests[0].ImageURLs)
	assert.Contains(t, images.requests[0].Prompt, "sunset on a rooftop")
	assert.Equal(t, "9:16", images.requests[0].AspectRatio)
}

func TestPrepareVideoErrors(t *testing.T) {
	ctx := context.Background()
	svc, store, _, images := newService(t)
	character := createCharacter(t, svc, "alice")

	_, err := svc.PrepareVideo(ctx, "alice", PrepareVideoRequest{CharacterID: character.ID})
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = svc.PrepareVideo(ctx, "bob", PrepareVideoRequest{CharacterID: character.ID, Concept: "c"})
	assert.ErrorIs(t, err, types.ErrNotFound)

	images.err = errors.New("gpu busy")
	_, err = svc.PrepareVideo(ctx, "alice", PrepareVideoRequest{CharacterID: character.ID, Concept: "c"})
	assert.EqualError(t, err, "gpu busy")

	bare := &models.Character{ID: "bare", OwnerID: "alice", Name: "Nia"}
	_, err = store.Characters.Create(ctx, bare)
	require.NoError(t, err)
	_, err = svc.PrepareVideo(ctx, "alice", PrepareVideoRequest{CharacterID: "bare", Concept: "c"})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}
