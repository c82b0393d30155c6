package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// FinalizeOutcome says what the processor did with a finalized object.
type FinalizeOutcome string

const (
	OutcomeSkipped  FinalizeOutcome = "skipped"
	OutcomeApproved FinalizeOutcome = "approved"
	OutcomeRejected FinalizeOutcome = "rejected"
)

type photoURLStore interface {
	ReplacePhotoURL(ctx context.Context, oldURL, newURL string) (int64, error)
}

// UploadProcessor handles object-finalized notifications for profile photos
// uploaded through the pending/ prefix. Uploads already moderated inline by a
// profile update are left alone.
type UploadProcessor struct {
	bucket    ObjectBucket
	moderator *ImageModerator
	users     photoURLStore
	log       *zap.Logger
}

func NewUploadProcessor(bucket ObjectBucket, moderator *ImageModerator, users photoURLStore, log *zap.Logger) *UploadProcessor {
	return &UploadProcessor{bucket: bucket, moderator: moderator, users: users, log: log}
}

// Process moderates one object. metadata may be nil, in which case it is read
// from the bucket. A returned error means the event should be retried.
func (p *UploadProcessor) Process(ctx context.Context, bucket, object string, metadata map[string]string) (FinalizeOutcome, error) {
	log := p.log.With(zap.String("bucket", bucket), zap.String("object", object))

	if bucket != p.bucket.Name() {
		log.Info("skipping object from another bucket")
		return OutcomeSkipped, nil
	}
	if !strings.HasPrefix(object, pendingPrefix) {
		log.Debug("skipping non-pending object")
		return OutcomeSkipped, nil
	}

	if metadata[metaUserID] == "" && metadata[metaType] == "" {
		fetched, err := p.bucket.Metadata(ctx, object)
		if err != nil {
			if errors.Is(err, ErrImageNotFound) {
				log.Info("object gone before processing")
				return OutcomeSkipped, nil
			}
			return "", fmt.Errorf("fetch metadata: %w", err)
		}
		metadata = fetched
	}

	switch {
	case metadata[metaModeration] == moderationInline:
		log.Debug("skipping inline-moderated upload")
		return OutcomeSkipped, nil
	case metadata[metaType] != typeProfilePhoto:
		log.Warn("skipping upload of unknown type", zap.String("type", metadata[metaType]))
		return OutcomeSkipped, nil
	}

	userID := metadata[metaUserID]
	res, err := p.moderator.ModerateAndPromote(ctx, object, userID)
	if errors.Is(err, ErrImageRejected) {
		log.Warn("upload rejected", zap.String("user_id", userID))
		return OutcomeRejected, nil
	}
	if err != nil {
		return "", err
	}

	n, err := p.users.ReplacePhotoURL(ctx, object, res.ApprovedURL)
	if err != nil {
		return "", fmt.Errorf("replace photo url: %w", err)
	}
	log.Info("upload approved", zap.String("user_id", userID), zap.Int64("profiles_updated", n))
	return OutcomeApproved, nil
}
