package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	pendingPrefix = "pending/"

	metaModeration   = "moderation"
	moderationInline = "inline"
	metaUserID       = "userId"
	metaType         = "type"
	typeProfilePhoto = "profile_photo"
)

// ModerationResult holds the outcome of a successful moderation pass.
type ModerationResult struct {
	ObjectName  string
	ApprovedURL string
}

// ObjectBucket is the part of object storage the moderation flow touches.
type ObjectBucket interface {
	Name() string
	Metadata(ctx context.Context, object string) (map[string]string, error)
	// Promote copies from to the final name with moderation=approved and a
	// download token, then deletes the source.
	Promote(ctx context.Context, from, to, token string) error
	Delete(ctx context.Context, object string) error
}

type GCSBucket struct {
	client *gcs.Client
	name   string
}

func NewGCSBucket(client *gcs.Client, name string) *GCSBucket {
	return &GCSBucket{client: client, name: name}
}

func (b *GCSBucket) Name() string { return b.name }

func (b *GCSBucket) Metadata(ctx context.Context, object string) (map[string]string, error) {
	attrs, err := b.client.Bucket(b.name).Object(object).Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, ErrImageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("object attrs: %w", err)
	}
	return attrs.Metadata, nil
}

func (b *GCSBucket) Promote(ctx context.Context, from, to, token string) error {
	bkt := b.client.Bucket(b.name)
	src := bkt.Object(from)
	dst := bkt.Object(to)

	// Freshly finalized uploads can briefly report not-found.
	var attrs *gcs.ObjectAttrs
	op := func() error {
		a, err := src.Attrs(ctx)
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		attrs = a
		return nil
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, 3), ctx)); err != nil {
		return fmt.Errorf("source attrs: %w", err)
	}

	md := make(map[string]string, len(attrs.Metadata)+2)
	for k, v := range attrs.Metadata {
		md[k] = v
	}
	md[metaModeration] = "approved"
	md["firebaseStorageDownloadTokens"] = token

	if _, err := dst.CopierFrom(src).Run(ctx); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	if _, err := dst.Update(ctx, gcs.ObjectAttrsToUpdate{Metadata: md}); err != nil {
		return fmt.Errorf("update metadata: %w", err)
	}
	return src.Delete(ctx)
}

func (b *GCSBucket) Delete(ctx context.Context, object string) error {
	err := b.client.Bucket(b.name).Object(object).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return ErrImageNotFound
	}
	return err
}

// ImageModerator runs SafeSearch on objects under pending/ and promotes the
// safe ones to their final path. Unsafe objects are deleted and the uploader
// gets a strike.
type ImageModerator struct {
	bucket   ObjectBucket
	detector SafeSearchDetector
	actions  *ModerationActions
	log      *zap.Logger
}

func NewImageModerator(bucket ObjectBucket, detector SafeSearchDetector, actions *ModerationActions, log *zap.Logger) *ImageModerator {
	return &ImageModerator{bucket: bucket, detector: detector, actions: actions, log: log}
}

// ModerateAndPromote returns ErrImageRejected for unsafe images. Paths
// outside pending/ are treated as already approved and returned unchanged.
func (m *ImageModerator) ModerateAndPromote(ctx context.Context, pendingPath, userID string) (*ModerationResult, error) {
	if !strings.HasPrefix(pendingPath, pendingPrefix) {
		return &ModerationResult{ObjectName: pendingPath, ApprovedURL: pendingPath}, nil
	}

	gcsURI := fmt.Sprintf("gs://%s/%s", m.bucket.Name(), pendingPath)
	ss, err := m.detector.Detect(ctx, gcsURI)
	if err != nil {
		return nil, fmt.Errorf("moderation: safesearch: %w", err)
	}

	m.log.Info("safesearch result",
		zap.String("object", pendingPath),
		zap.String("adult", ss.Adult),
		zap.String("violence", ss.Violence),
		zap.String("racy", ss.Racy),
		zap.Bool("unsafe", ss.IsUnsafe()),
	)

	if ss.IsUnsafe() {
		if err := m.bucket.Delete(ctx, pendingPath); err != nil && !errors.Is(err, ErrImageNotFound) {
			m.log.Error("deleting unsafe object failed", zap.String("object", pendingPath), zap.Error(err))
		}
		if m.actions != nil && userID != "" {
			if err := m.actions.StrikeAndClearPhoto(ctx, userID, pendingPath); err != nil {
				m.log.Error("strike after unsafe image failed", zap.String("user_id", userID), zap.Error(err))
			}
		}
		return nil, ErrImageRejected
	}

	finalName := strings.TrimPrefix(pendingPath, pendingPrefix)
	token := uuid.New().String()
	if err := m.bucket.Promote(ctx, pendingPath, finalName, token); err != nil {
		return nil, fmt.Errorf("moderation: promote: %w", err)
	}
	m.log.Info("image promoted", zap.String("from", pendingPath), zap.String("to", finalName))

	return &ModerationResult{
		ObjectName:  finalName,
		ApprovedURL: firebaseDownloadURL(m.bucket.Name(), finalName, token),
	}, nil
}

func firebaseDownloadURL(bucket, objectName, token string) string {
	return fmt.Sprintf(
		"https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket,
		url.PathEscape(objectName),
		url.QueryEscape(token),
	)
}
