package rest

import (
	"fmt"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/AzielCF/az-mediahub/core/config"
	domainMedia "github.com/AzielCF/az-mediahub/domains/media"
	domainStorage "github.com/AzielCF/az-mediahub/domains/storage"
	pkgError "github.com/AzielCF/az-mediahub/pkg/error"
	"github.com/AzielCF/az-mediahub/pkg/utils"
	"github.com/AzielCF/az-mediahub/validations"
)

type Media struct {
	Service domainMedia.IMediaUsecase
	Store   domainStorage.ObjectStore
}

func InitRestMedia(app fiber.Router, service domainMedia.IMediaUsecase, store domainStorage.ObjectStore) Media {
	rest := Media{Service: service, Store: store}

	// Only the public proxy surface is registered here; the ingest and
	// records endpoints are mounted under the authenticated API group by
	// the caller.
	group := app.Group("/media")

	// Stored keys are prefixed incoming/{category}/, so both URL shapes
	// resolve to the same object.
	group.Head("/incoming/:category/:key", rest.HeadObject)
	group.Get("/incoming/:category/:key", rest.GetObject)
	group.Head("/:category/:key", rest.HeadObject)
	group.Get("/:category/:key", rest.GetObject)

	return rest
}

func (controller *Media) IngestMedia(c *fiber.Ctx) error {
	var request domainMedia.IngestRequest
	err := c.BodyParser(&request)
	if err != nil && err != fiber.ErrUnprocessableEntity {
		return c.Status(400).JSON(utils.ResponseData{Status: 400, Code: "VALIDATION_ERROR", Message: err.Error()})
	}
	if file, errFile := c.FormFile("file"); errFile == nil {
		request.File = file
	}

	utils.PanicIfNeeded(validations.ValidateIngestMedia(c.UserContext(), request))

	ref := domainMedia.Reference{
		MessageID:        request.MessageID,
		RemoteURL:        request.RemoteURL,
		Category:         domainMedia.Category(request.Category),
		DeclaredMimeType: request.MimeType,
		OriginalFileName: request.FileName,
		Decryption:       request.Decryption,
	}

	if request.File != nil {
		data, errRead := readMultipartFile(request.File)
		utils.PanicIfNeeded(errRead)
		ref.Data = data
		if ref.OriginalFileName == "" {
			ref.OriginalFileName = request.File.Filename
		}
	}

	if c.QueryBool("async") {
		if !controller.Service.IngestAsync(c.UserContext(), ref) {
			return c.Status(503).JSON(utils.ResponseData{
				Status:  503,
				Code:    "QUEUE_FULL",
				Message: "Ingestion queue is saturated, retry later",
			})
		}
		return c.Status(202).JSON(utils.ResponseData{
			Status:  202,
			Code:    "ACCEPTED",
			Message: "Media ingestion dispatched",
			Results: fiber.Map{"message_id": ref.MessageID},
		})
	}

	result := controller.Service.Ingest(c.UserContext(), ref)
	if !result.Ok() {
		return c.Status(422).JSON(utils.ResponseData{
			Status:  422,
			Code:    result.FailureCode,
			Message: result.Failure,
			Results: result,
		})
	}

	message := "Media ingested successfully"
	if result.Deduplicated {
		message = "Media already ingested"
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: message,
		Results: result,
	})
}

func (controller *Media) GetRecords(c *fiber.Ctx) error {
	messageID := c.Params("message_id")
	utils.PanicIfNeeded(validations.ValidateRecordsQuery(c.UserContext(), messageID))

	records, err := controller.Service.Records(c.UserContext(), messageID)
	if err != nil {
		status, code := 500, "INTERNAL_SERVER_ERROR"
		if generic, ok := err.(pkgError.GenericError); ok {
			status, code = generic.StatusCode(), generic.ErrCode()
		}
		return c.Status(status).JSON(utils.ResponseData{Status: status, Code: code, Message: err.Error()})
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: fmt.Sprintf("Found %d ingestion record(s)", len(records)),
		Results: records,
	})
}

// HeadObject probes a stored object. Any store failure is reported as 404:
// callers use HEAD to decide between the proxy URL and the original upstream
// reference, and a 5xx here would break that fallback.
func (controller *Media) HeadObject(c *fiber.Ctx) error {
	key := objectKey(c)
	info, err := controller.Store.Head(c.UserContext(), key)
	if err != nil {
		return c.SendStatus(404)
	}

	setObjectHeaders(c, key, info)
	c.Set(fiber.HeaderContentLength, fmt.Sprintf("%d", info.Size))
	return c.SendStatus(200)
}

func (controller *Media) GetObject(c *fiber.Ctx) error {
	key := objectKey(c)
	info, body, err := controller.Store.Get(c.UserContext(), key)
	if err != nil {
		if domainStorage.IsNotFound(err) {
			return c.SendStatus(404)
		}
		return c.Status(500).JSON(utils.ResponseData{
			Status:  500,
			Code:    "INTERNAL_SERVER_ERROR",
			Message: "Failed to read stored media",
		})
	}

	setObjectHeaders(c, key, info)
	return c.SendStream(body, int(info.Size))
}

// objectKey rebuilds the storage key from the route. Generated keys only
// contain slug-safe characters, so no unescaping is needed.
func objectKey(c *fiber.Ctx) string {
	return "incoming/" + c.Params("category") + "/" + c.Params("key")
}

// setObjectHeaders writes the immutable-object caching and CORS headers.
// Keys are unique per ingestion and objects are never rewritten, so a year
// of caching is safe.
func setObjectHeaders(c *fiber.Ctx, key string, info domainStorage.ObjectInfo) {
	c.Set(fiber.HeaderContentType, resolveObjectContentType(key, info))
	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000")
	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
	c.Set(fiber.HeaderAccessControlAllowMethods, "GET, HEAD, OPTIONS")
	c.Set(fiber.HeaderAccessControlAllowHeaders, "Range")
	c.Set(fiber.HeaderAcceptRanges, "bytes")
}

// resolveObjectContentType prefers the type recorded at upload time, then an
// extension guess, then the category default derived from the key prefix.
func resolveObjectContentType(key string, info domainStorage.ObjectInfo) string {
	if info.ContentType != "" {
		return info.ContentType
	}
	if byExt := mime.TypeByExtension(filepath.Ext(key)); byExt != "" {
		return byExt
	}

	parts := strings.Split(key, "/")
	if len(parts) >= 3 {
		return domainMedia.DefaultContentType(parts[1])
	}
	return "application/octet-stream"
}

// readMultipartFile spills the upload to the scratch directory and reads it
// back, so oversized bodies never pin the multipart buffers.
func readMultipartFile(file *multipart.FileHeader) ([]byte, error) {
	tempPath := filepath.Join(config.Global.Paths.TempItems, uuid.NewString()+"_"+filepath.Base(file.Filename))
	if err := fasthttp.SaveMultipartFile(file, tempPath); err != nil {
		return nil, pkgError.InternalServerError(fmt.Sprintf("failed to save uploaded file: %v", err))
	}
	defer utils.RemoveFile(0, tempPath)

	data, err := os.ReadFile(tempPath)
	if err != nil {
		return nil, pkgError.InternalServerError(fmt.Sprintf("failed to read uploaded file: %v", err))
	}
	return data, nil
}
