package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/simfield_backend/config"
	"bitbucket.org/mmdatafocus/simfield_backend/middlewares"
	"bitbucket.org/mmdatafocus/simfield_backend/utils"
	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxUploadSizeBytes int64 = 5 * 1024 * 1024

// Agents shoot customer ID photos on low-end Android phones; anything
// wider than this is wasted bandwidth for the review team.
const maxPhotoWidth = 1280

var imageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

type uploadPhotoResponse struct {
	PhotoURL  string `json:"photoUrl"`
	ObjectKey string `json:"objectKey"`
}

// uploadPhotoHandler accepts a multipart customer photo, re-encodes it as a
// bounded JPEG and stores it in GCS. The returned URL goes into the
// photo_url field of a start key request.
func uploadPhotoHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		claims := middlewares.CtxValue(c.Request.Context())
		if claims == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		fileHeader, err := c.FormFile("photo")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
			return
		}
		if fileHeader.Size > maxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 5MB limit"})
			return
		}

		mimeType := fileHeader.Header.Get("Content-Type")
		if !imageMimeTypes[mimeType] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image type"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read photo"})
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxUploadSizeBytes+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read photo"})
			return
		}
		if int64(len(data)) > maxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 5MB limit"})
			return
		}

		img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image"})
			return
		}
		if img.Bounds().Dx() > maxPhotoWidth {
			img = imaging.Resize(img, maxPhotoWidth, 0, imaging.Lanczos)
		}

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process photo"})
			return
		}

		objectKey := photoObjectKey(claims.AgentId)
		if err := utils.UploadBytesToGCS(c.Request.Context(), objectKey, buf.Bytes(), "image/jpeg"); err != nil {
			logger.WithFields(logrus.Fields{
				"error":      err.Error(),
				"object_key": objectKey,
				"agent_id":   claims.AgentId,
			}).Error("[upload.error]")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store photo"})
			return
		}

		logger.WithFields(logrus.Fields{
			"agent_id":   claims.AgentId,
			"object_key": objectKey,
			"size":       buf.Len(),
		}).Info("[upload.photo]")

		c.JSON(http.StatusOK, gin.H{"data": uploadPhotoResponse{
			PhotoURL:  utils.PublicGCSURL(objectKey),
			ObjectKey: objectKey,
		}})
	}
}

func photoObjectKey(agentId string) string {
	datePrefix := time.Now().UTC().Format("2006/01/02")
	return path.Join("startkey-photos", datePrefix, fmt.Sprintf("%s_%s.jpg", sanitizeSegment(strings.ToLower(agentId)), uuid.New().String()))
}

func sanitizeSegment(input string) string {
	var out strings.Builder
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			out.WriteRune(r)
		}
	}
	return out.String()
}
