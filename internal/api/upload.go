package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/cozy-creator/influencer-studio/internal/services/fileuploader"
	"github.com/cozy-creator/influencer-studio/internal/types"
)

const maxUploadSize = 200 << 20

// UploadFile stores a user-supplied image or video. The content is sniffed;
// the client's filename and header are not trusted.
func UploadFile(c *gin.Context) {
	category := c.Param("category")
	if category != "image" && category != "video" {
		abortWithError(c, types.InvalidInput("upload category must be image or video"))
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		abortWithError(c, types.InvalidInput("failed to parse request body"))
		return
	}
	if file.Size > maxUploadSize {
		abortWithError(c, types.InvalidInput("file is larger than %d bytes", maxUploadSize))
		return
	}

	content, err := file.Open()
	if err != nil {
		abortWithError(c, types.InvalidInput("failed to open file"))
		return
	}
	defer content.Close()

	fileBytes, err := io.ReadAll(io.LimitReader(content, maxUploadSize))
	if err != nil {
		abortWithError(c, types.InvalidInput("failed to read file"))
		return
	}
	if len(fileBytes) == 0 {
		abortWithError(c, types.InvalidInput("file is empty"))
		return
	}

	mtype := mimetype.Detect(fileBytes)
	if !strings.HasPrefix(mtype.String(), category+"/") {
		abortWithError(c, types.InvalidInput("expected %s content, got %s", category, mtype.String()))
		return
	}

	url, err := getApp(c).Uploader().UploadBytes(c.Request.Context(), fileBytes, fileuploader.CategoryUploads, mtype.Extension())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.UploadResponse{URL: url})
}
