package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/cenkalti/backoff/v4"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/asktopedia/backend/internal/models"
	"github.com/asktopedia/backend/internal/storage"
)

// ImageStore keeps user uploads. Delete only removes images owned by userID.
type ImageStore interface {
	Upload(ctx context.Context, userID, filename, contentType string, r io.Reader) (*models.ImageUploadResponse, error)
	Delete(ctx context.Context, userID, imageID string) error
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// IsValidImageType reports whether uploads of contentType are accepted.
func IsValidImageType(contentType string) bool {
	_, ok := imageExtensions[contentType]
	return ok
}

// imageExt picks the stored extension from the sniffed content type. The
// client's filename is ignored so a file served from /uploads/ is never
// given a non-image type.
func imageExt(contentType string) string {
	if ext, ok := imageExtensions[contentType]; ok {
		return ext
	}
	return ".jpg"
}

// LocalImageStore writes uploads to a directory served at /uploads/. The
// owner of each file is kept in a JSON index next to the directory so it
// survives restarts.
type LocalImageStore struct {
	mu     sync.Mutex
	dir    string
	index  *storage.JSONFile[map[string]localImage]
	images map[string]localImage
}

type localImage struct {
	Filename  string    `json:"filename"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func NewLocalImageStore(dir string) (*LocalImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	index, err := storage.NewJSONFile[map[string]localImage](filepath.Clean(dir) + ".index.json")
	if err != nil {
		return nil, err
	}
	images, err := index.Load()
	if err != nil {
		return nil, fmt.Errorf("load image index: %w", err)
	}
	if images == nil {
		images = make(map[string]localImage)
	}
	return &LocalImageStore{dir: dir, index: index, images: images}, nil
}

func (s *LocalImageStore) Upload(ctx context.Context, userID, filename, contentType string, r io.Reader) (*models.ImageUploadResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	imageID := uuid.New().String()
	newFilename := imageID + imageExt(contentType)
	filePath := filepath.Join(s.dir, newFilename)

	dst, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to save file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	s.images[imageID] = localImage{Filename: newFilename, UserID: userID, CreatedAt: time.Now().UTC()}
	if err := s.index.Save(s.images); err != nil {
		delete(s.images, imageID)
		os.Remove(filePath)
		return nil, fmt.Errorf("save image index: %w", err)
	}

	return &models.ImageUploadResponse{
		ID:       imageID,
		URL:      "/uploads/" + newFilename,
		Filename: newFilename,
	}, nil
}

func (s *LocalImageStore) Delete(ctx context.Context, userID, imageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Another user's image is reported as missing, as the remote backends do.
	rec, ok := s.images[imageID]
	if !ok || rec.UserID != userID {
		return ErrImageNotFound
	}

	if err := os.Remove(filepath.Join(s.dir, rec.Filename)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	delete(s.images, imageID)
	return s.index.Save(s.images)
}

// CloudinaryImageStore uploads to Cloudinary under folder/{userID}/{imageID},
// so ownership is part of the public ID.
type CloudinaryImageStore struct {
	cld        *cloudinary.Cloudinary
	folder     string
	maxRetries uint64
	log        *zap.Logger
}

func NewCloudinaryImageStore(cloudinaryURL, folder string, log *zap.Logger) (*CloudinaryImageStore, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init: %w", err)
	}
	return &CloudinaryImageStore{cld: cld, folder: folder, maxRetries: 3, log: log}, nil
}

func (s *CloudinaryImageStore) publicID(userID, imageID string) string {
	return path.Join(s.folder, userID, imageID)
}

func (s *CloudinaryImageStore) Upload(ctx context.Context, userID, filename, contentType string, r io.Reader) (*models.ImageUploadResponse, error) {
	// Buffered so each retry starts from the first byte.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	imageID := uuid.New().String()
	params := uploader.UploadParams{
		PublicID:     s.publicID(userID, imageID),
		ResourceType: "image",
	}

	var result *uploader.UploadResult
	operation := func() error {
		res, err := s.cld.Upload.Upload(ctx, bytes.NewReader(data), params)
		if err != nil {
			return err
		}
		if res.Error.Message != "" {
			return backoff.Permanent(errors.New(res.Error.Message))
		}
		result = res
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.maxRetries), ctx)
	err = backoff.RetryNotify(operation, policy, func(err error, d time.Duration) {
		s.log.Warn("cloudinary upload attempt failed",
			zap.String("filename", filename),
			zap.Error(err),
			zap.Duration("backoff", d))
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}

	s.log.Info("image uploaded",
		zap.String("user_id", userID),
		zap.String("public_id", result.PublicID),
		zap.Int("bytes", result.Bytes))

	return &models.ImageUploadResponse{
		ID:       imageID,
		URL:      result.SecureURL,
		Filename: imageID + "." + result.Format,
	}, nil
}

func (s *CloudinaryImageStore) Delete(ctx context.Context, userID, imageID string) error {
	res, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     s.publicID(userID, imageID),
		ResourceType: "image",
	})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	switch res.Result {
	case "ok":
		return nil
	case "not found":
		return ErrImageNotFound
	}
	if res.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy: %s", res.Error.Message)
	}
	return fmt.Errorf("cloudinary destroy: unexpected result %q", res.Result)
}

// GCSImageStore uploads under pending/{userID}/. The returned URL is the
// pending object path; it becomes a download URL once moderation promotes it.
type GCSImageStore struct {
	client *gcs.Client
	bucket string
}

func NewGCSImageStore(client *gcs.Client, bucket string) *GCSImageStore {
	return &GCSImageStore{client: client, bucket: bucket}
}

func (s *GCSImageStore) Upload(ctx context.Context, userID, filename, contentType string, r io.Reader) (*models.ImageUploadResponse, error) {
	imageID := uuid.New().String()
	name := pendingPrefix + userID + "/" + imageID + imageExt(contentType)

	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	// Moderated when the path is submitted, not by the finalize worker.
	w.Metadata = map[string]string{
		metaUserID:     userID,
		metaType:       typeProfilePhoto,
		metaModeration: moderationInline,
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return nil, fmt.Errorf("gcs write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gcs close: %w", err)
	}

	return &models.ImageUploadResponse{
		ID:       imageID,
		URL:      name,
		Filename: path.Base(name),
	}, nil
}

// Delete removes the pending or promoted object for imageID.
func (s *GCSImageStore) Delete(ctx context.Context, userID, imageID string) error {
	bkt := s.client.Bucket(s.bucket)
	deleted := 0
	for _, prefix := range []string{pendingPrefix + userID + "/" + imageID, userID + "/" + imageID} {
		it := bkt.Objects(ctx, &gcs.Query{Prefix: prefix})
		for {
			attrs, err := it.Next()
			if errors.Is(err, iterator.Done) {
				break
			}
			if err != nil {
				return fmt.Errorf("gcs list: %w", err)
			}
			if err := bkt.Object(attrs.Name).Delete(ctx); err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
				return fmt.Errorf("gcs delete: %w", err)
			}
			deleted++
		}
	}
	if deleted == 0 {
		return ErrImageNotFound
	}
	return nil
}
