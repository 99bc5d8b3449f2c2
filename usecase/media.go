package usecase

import (
	"context"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	domainCache "github.com/AzielCF/az-mediahub/domains/cache"
	domainMedia "github.com/AzielCF/az-mediahub/domains/media"
	domainStorage "github.com/AzielCF/az-mediahub/domains/storage"
	"github.com/AzielCF/az-mediahub/infrastructure/fetch"
	pkgError "github.com/AzielCF/az-mediahub/pkg/error"
	"github.com/AzielCF/az-mediahub/pkg/imageops"
	"github.com/AzielCF/az-mediahub/pkg/ingestworker"
	"github.com/AzielCF/az-mediahub/pkg/sniff"
	"github.com/AzielCF/az-mediahub/pkg/storagekey"
)

// MediaOptions bounds the transform stage and the dedup cache.
type MediaOptions struct {
	MaxImageDimension int
	JpegQuality       int
	ConvertToJpeg     bool
	DedupTTL          time.Duration
}

type serviceMedia struct {
	fetcher *fetch.Fetcher
	store   domainStorage.ObjectStore
	records domainMedia.IRecordRepository
	dedup   domainCache.IDedupStore
	pool    *ingestworker.Pool
	opts    MediaOptions
}

// NewMediaUsecase wires the ingestion pipeline. records, dedup and pool are
// optional; passing nil disables the corresponding feature.
func NewMediaUsecase(
	fetcher *fetch.Fetcher,
	store domainStorage.ObjectStore,
	records domainMedia.IRecordRepository,
	dedup domainCache.IDedupStore,
	pool *ingestworker.Pool,
	opts MediaOptions,
) domainMedia.IMediaUsecase {
	if opts.DedupTTL == 0 {
		opts.DedupTTL = 5 * time.Minute
	}
	return &serviceMedia{
		fetcher: fetcher,
		store:   store,
		records: records,
		dedup:   dedup,
		pool:    pool,
		opts:    opts,
	}
}

// Ingest runs the full pipeline for one reference: fetch (and decrypt),
// sniff, authorize, decide transform, optimize or pass through, build the
// storage key and upload. Every failure is converted to a result with an
// empty PublicURL so the caller keeps pointing at the original upstream
// reference; nothing propagates past this boundary.
func (service *serviceMedia) Ingest(ctx context.Context, ref domainMedia.Reference) (result *domainMedia.IngestResult) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("[MEDIA] Panic during ingestion of message %s: %v", ref.MessageID, r)
			result = service.failed(ctx, ref, 0, pkgError.InternalServerError(fmt.Sprintf("panic: %v", r)))
		}
	}()

	if !ref.Category.Valid() {
		return service.failed(ctx, ref, 0, pkgError.ValidationError(
			fmt.Sprintf("unknown media category %q", ref.Category)))
	}

	if cached := service.checkDedup(ctx, ref); cached != nil {
		return cached
	}

	payload := ref.Data
	if payload == nil {
		var err error
		payload, err = service.fetcher.Fetch(ctx, ref)
		if err != nil {
			return service.failed(ctx, ref, 0, err)
		}
	}
	sourceSize := len(payload)

	detected := sniff.Detect(payload)
	if err := sniff.Authorize(detected, ref.DeclaredMimeType, string(ref.Category)); err != nil {
		return service.failed(ctx, ref, sourceSize, err)
	}

	decision := sniff.DecideTransform(detected)
	contentType := service.resolveContentType(ref, detected)

	isImageCategory := ref.Category == domainMedia.CategoryImage || ref.Category == domainMedia.CategorySticker
	if isImageCategory && decision.IsAnimated {
		// Multi-frame animated raster: the optimizer would keep only frame
		// one and silently destroy the animation, so the buffer is stored
		// bit-identical to what the fetcher produced.
		logrus.Infof("[MEDIA] Message %s: animated %s with %d frames, skipping optimizer",
			ref.MessageID, decision.SourceFormat, decision.FrameCount)
	} else if isImageCategory && shouldOptimize(detected) {
		optimized, err := imageops.Optimize(payload, detected.Mime, imageops.Options{
			MaxDimension:  service.opts.MaxImageDimension,
			JpegQuality:   service.opts.JpegQuality,
			ConvertToJpeg: service.opts.ConvertToJpeg,
		})
		if err != nil {
			return service.failed(ctx, ref, sourceSize, pkgError.CorruptImageError(err.Error()))
		}
		payload = optimized.Data
		contentType = optimized.ContentType

		reduction := 0.0
		if sourceSize > 0 {
			reduction = 100 * (1 - float64(len(payload))/float64(sourceSize))
		}
		logrus.WithFields(logrus.Fields{
			"message_id":     ref.MessageID,
			"original_size":  humanize.Bytes(uint64(sourceSize)),
			"optimized_size": humanize.Bytes(uint64(len(payload))),
			"reduction_pct":  fmt.Sprintf("%.1f", reduction),
			"resized":        optimized.Resized,
			"converted":      optimized.Converted,
			"dimensions":     fmt.Sprintf("%dx%d", optimized.Width, optimized.Height),
		}).Info("[MEDIA] Image optimized")
	}

	key := storagekey.Build(string(ref.Category), time.Now().UTC(), ref.OriginalFileName,
		extensionFor(contentType, detected))

	err := service.store.Put(ctx, domainStorage.PutInput{
		Key:         key,
		ContentType: contentType,
		Metadata: map[string]string{
			"message-id": ref.MessageID,
			"category":   string(ref.Category),
		},
		Body: payload,
	})
	if err != nil {
		return service.failed(ctx, ref, sourceSize, pkgError.UploadError(
			fmt.Sprintf("store rejected write for key %s: %v", key, err)))
	}

	stored := &domainMedia.StoredObject{
		StorageKey:  key,
		PublicURL:   service.store.PublicURL(key),
		ContentType: contentType,
		ByteSize:    len(payload),
	}

	service.saveRecord(ctx, &domainMedia.Record{
		MessageID:   ref.MessageID,
		Category:    string(ref.Category),
		StorageKey:  stored.StorageKey,
		PublicURL:   stored.PublicURL,
		ContentType: stored.ContentType,
		SourceBytes: sourceSize,
		StoredBytes: stored.ByteSize,
		Animated:    decision.IsAnimated,
		Status:      domainMedia.RecordStatusStored,
	})
	service.storeDedup(ctx, ref, stored)

	logrus.Infof("[MEDIA] Stored message %s media under %s (%s, %s)",
		ref.MessageID, key, contentType, humanize.Bytes(uint64(stored.ByteSize)))

	return &domainMedia.IngestResult{
		MessageID: ref.MessageID,
		PublicURL: stored.PublicURL,
		Stored:    stored,
	}
}

// IngestAsync hands the reference to the worker pool. The result is only
// observable through the record store and logs.
func (service *serviceMedia) IngestAsync(ctx context.Context, ref domainMedia.Reference) bool {
	if service.pool == nil {
		go service.Ingest(context.WithoutCancel(ctx), ref)
		return true
	}
	return service.pool.TryDispatch(ingestworker.Job{
		MessageID: ref.MessageID,
		Handler: func(workerCtx context.Context) {
			service.Ingest(workerCtx, ref)
		},
	})
}

func (service *serviceMedia) Records(ctx context.Context, messageID string) ([]domainMedia.Record, error) {
	if service.records == nil {
		return nil, pkgError.NotFoundError("ingestion records are not enabled")
	}
	return service.records.FindByMessageID(ctx, messageID)
}

// failed converts a pipeline error into the degrade-to-original result and
// emits the structured log entry. Type confusion additionally produces a
// security audit entry since it may indicate an adversarial sender.
func (service *serviceMedia) failed(ctx context.Context, ref domainMedia.Reference, sourceSize int, err error) *domainMedia.IngestResult {
	code := "INTERNAL_SERVER_ERROR"
	if generic, ok := err.(pkgError.GenericError); ok {
		code = generic.ErrCode()
	}

	fields := logrus.Fields{
		"message_id": ref.MessageID,
		"category":   ref.Category,
		"code":       code,
	}
	if _, confusion := err.(pkgError.TypeConfusionError); confusion {
		fields["security_event"] = true
		logrus.WithFields(fields).Warnf("[SECURITY] Rejected spoofed media payload: %v", err)
	} else {
		logrus.WithFields(fields).Warnf("[MEDIA] Ingestion failed, keeping original reference: %v", err)
	}

	service.saveRecord(ctx, &domainMedia.Record{
		MessageID:   ref.MessageID,
		Category:    string(ref.Category),
		SourceBytes: sourceSize,
		Status:      domainMedia.RecordStatusFailed,
		FailureCode: code,
	})

	return &domainMedia.IngestResult{
		MessageID:   ref.MessageID,
		FailureCode: code,
		Failure:     err.Error(),
	}
}

func (service *serviceMedia) checkDedup(ctx context.Context, ref domainMedia.Reference) *domainMedia.IngestResult {
	if service.dedup == nil || ref.MessageID == "" {
		return nil
	}
	entry, err := service.dedup.Get(ctx, ref.MessageID)
	if err != nil {
		logrus.Warnf("[MEDIA] Dedup lookup failed for message %s: %v", ref.MessageID, err)
		return nil
	}
	if entry == nil {
		return nil
	}

	logrus.Debugf("[MEDIA] Message %s already ingested, returning cached URL", ref.MessageID)
	return &domainMedia.IngestResult{
		MessageID:    ref.MessageID,
		PublicURL:    entry.PublicURL,
		Deduplicated: true,
		Stored: &domainMedia.StoredObject{
			StorageKey:  entry.StorageKey,
			PublicURL:   entry.PublicURL,
			ContentType: entry.ContentType,
		},
	}
}

func (service *serviceMedia) storeDedup(ctx context.Context, ref domainMedia.Reference, stored *domainMedia.StoredObject) {
	if service.dedup == nil || ref.MessageID == "" {
		return
	}
	err := service.dedup.Set(ctx, ref.MessageID, domainCache.Entry{
		PublicURL:   stored.PublicURL,
		StorageKey:  stored.StorageKey,
		ContentType: stored.ContentType,
	}, service.opts.DedupTTL)
	if err != nil {
		logrus.Warnf("[MEDIA] Failed to cache dedup entry for message %s: %v", ref.MessageID, err)
	}
}

func (service *serviceMedia) saveRecord(ctx context.Context, record *domainMedia.Record) {
	if service.records == nil {
		return
	}
	if err := service.records.Save(ctx, record); err != nil {
		logrus.Warnf("[MEDIA] Failed to persist ingestion record for message %s: %v", record.MessageID, err)
	}
}

// resolveContentType follows the detected type when the sniffer recognized
// the buffer, then the declared type, then the category default.
func (service *serviceMedia) resolveContentType(ref domainMedia.Reference, detected sniff.DetectedType) string {
	if detected.Recognized {
		return detected.Mime
	}
	if ref.DeclaredMimeType != "" {
		return ref.DeclaredMimeType
	}
	return domainMedia.DefaultContentType(string(ref.Category))
}

// shouldOptimize routes only plausible static raster payloads into the
// optimizer. A recognized non-image (say a PDF mislabeled into the image
// category but allowed through because nothing was declared) is stored
// untouched rather than force-fed to the decoder.
func shouldOptimize(detected sniff.DetectedType) bool {
	if !detected.Recognized {
		return true // let the decoder be the judge; failure means corrupt
	}
	return strings.HasPrefix(detected.Mime, "image/")
}

// extensionFor derives the stored file extension from the resolved content
// type; the original filename never decides it.
func extensionFor(contentType string, detected sniff.DetectedType) string {
	if detected.Recognized && detected.Mime == contentType && detected.Extension != "" {
		return detected.Extension
	}

	switch contentType {
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	}

	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return strings.TrimPrefix(exts[0], ".")
	}
	return ""
}
