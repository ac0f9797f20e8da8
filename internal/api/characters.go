package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cozy-creator/influencer-studio/internal/services/characters"
	"github.com/cozy-creator/influencer-studio/internal/types"
)

func CreateCharacter(c *gin.Context) {
	var req characters.CreateRequest
	if !bindJSON(c, &req) {
		return
	}

	character, err := getApp(c).Characters.Create(c.Request.Context(), ownerID(c), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toCharacterResponse(character))
}

func ListCharacters(c *gin.Context) {
	list, err := getApp(c).Characters.List(c.Request.Context(), ownerID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := make([]types.CharacterResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toCharacterResponse(&list[i]))
	}

	c.JSON(http.StatusOK, gin.H{"characters": resp})
}

func GetCharacter(c *gin.Context) {
	character, err := getApp(c).Characters.Get(c.Request.Context(), ownerID(c), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toCharacterResponse(character))
}

type updateCharacterRequest struct {
	ImagePath string `json:"image_path"`
}

// UpdateCharacter changes the reference image, the only mutable field.
func UpdateCharacter(c *gin.Context) {
	var req updateCharacterRequest
	if !bindJSON(c, &req) {
		return
	}

	character, err := getApp(c).Characters.SetImagePath(c.Request.Context(), ownerID(c), c.Param("id"), req.ImagePath)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toCharacterResponse(character))
}

func DeleteCharacter(c *gin.Context) {
	if err := getApp(c).Characters.Delete(c.Request.Context(), ownerID(c), c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
