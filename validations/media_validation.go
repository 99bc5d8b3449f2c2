package validations

import (
	"context"

	domainMedia "github.com/AzielCF/az-mediahub/domains/media"
	pkgError "github.com/AzielCF/az-mediahub/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

func ValidateIngestMedia(ctx context.Context, request domainMedia.IngestRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.MessageID, validation.Required),
		validation.Field(&request.Category, validation.Required, validation.In(
			string(domainMedia.CategoryImage),
			string(domainMedia.CategoryVideo),
			string(domainMedia.CategoryAudio),
			string(domainMedia.CategorySticker),
			string(domainMedia.CategoryDocument),
		)),
		validation.Field(&request.RemoteURL,
			validation.Required.When(request.File == nil).Error("either remote_url or an uploaded file is required"),
			is.URL,
		),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidateRecordsQuery(ctx context.Context, messageID string) error {
	err := validation.Validate(messageID, validation.Required)

	if err != nil {
		return pkgError.ValidationError("message_id: " + err.Error())
	}

	return nil
}
