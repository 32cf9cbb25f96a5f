// Package api exposes the REST surface over the conversation store.
package api

import (
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/yourorg/amity/internal/media"
	"github.com/yourorg/amity/internal/store"
	"github.com/yourorg/amity/pkg/apperr"
)

var errInvalidBody = apperr.InvalidArg("invalid request body")

type Handler struct {
	store *store.Store
	log   *zap.SugaredLogger
}

func NewHandler(st *store.Store, log *zap.SugaredLogger) *Handler {
	return &Handler{store: st, log: log}
}

// formFiles reads the uploaded files of a multipart request. A plain JSON
// request simply carries no files.
func formFiles(c *fiber.Ctx, field string) ([]media.File, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil
	}
	var files []media.File
	for _, fh := range form.File[field] {
		f, err := fh.Open()
		if err != nil {
			return nil, apperr.InvalidArg("unreadable upload: " + fh.Filename)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, apperr.InvalidArg("unreadable upload: " + fh.Filename)
		}
		files = append(files, media.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}

type messageBody struct {
	Content       string   `json:"content"`
	RemoveFileIDs []string `json:"removeFileIds"`
}

// messagePayload accepts either a multipart form (text plus files) or a
// plain JSON body for file-less sends and edits.
func messagePayload(c *fiber.Ctx) (messageBody, error) {
	if form, err := c.MultipartForm(); err == nil {
		body := messageBody{RemoveFileIDs: form.Value["removeFileIds"]}
		if v := form.Value["content"]; len(v) > 0 {
			body.Content = v[0]
		}
		return body, nil
	}
	var body messageBody
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return body, errInvalidBody
		}
	}
	return body, nil
}

func queryPage(c *fiber.Ctx) (int, int) {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "0"))
	return page, limit
}
