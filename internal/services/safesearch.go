package services

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

type SafeSearchResult struct {
	Adult    string
	Violence string
	Racy     string
	Spoof    string
	Medical  string
}

// SafeSearchDetector classifies an image stored at a gs:// URI.
type SafeSearchDetector interface {
	Detect(ctx context.Context, gcsURI string) (*SafeSearchResult, error)
}

// VisionSafeSearch runs Vision SAFE_SEARCH_DETECTION. The client uses
// Application Default Credentials.
type VisionSafeSearch struct {
	svc *vision.Service
}

func NewVisionSafeSearch(ctx context.Context, opts ...option.ClientOption) (*VisionSafeSearch, error) {
	opts = append([]option.ClientOption{option.WithScopes(vision.CloudPlatformScope)}, opts...)
	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &VisionSafeSearch{svc: svc}, nil
}

func (v *VisionSafeSearch) Detect(ctx context.Context, gcsURI string) (*SafeSearchResult, error) {
	req := &vision.AnnotateImageRequest{
		Image: &vision.Image{
			Source: &vision.ImageSource{GcsImageUri: gcsURI},
		},
		Features: []*vision.Feature{
			{Type: "SAFE_SEARCH_DETECTION"},
		},
	}

	call := v.svc.Images.Annotate(&vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{req},
	})
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if len(resp.Responses) == 0 {
		return &SafeSearchResult{}, nil
	}
	r := resp.Responses[0]
	if r.Error != nil {
		return nil, fmt.Errorf("vision: %s", r.Error.Message)
	}
	ss := r.SafeSearchAnnotation
	if ss == nil {
		return &SafeSearchResult{}, nil
	}

	return &SafeSearchResult{
		Adult:    ss.Adult,
		Violence: ss.Violence,
		Racy:     ss.Racy,
		Spoof:    ss.Spoof,
		Medical:  ss.Medical,
	}, nil
}

func likelyOrHigher(l string) bool {
	return l == "LIKELY" || l == "VERY_LIKELY"
}

// IsUnsafe flags adult, violent or racy content rated LIKELY or above.
func (r *SafeSearchResult) IsUnsafe() bool {
	return likelyOrHigher(r.Adult) || likelyOrHigher(r.Violence) || likelyOrHigher(r.Racy)
}
