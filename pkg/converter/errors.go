package converter

import (
	"fmt"

	terrors "github.com/matzehuels/textart/pkg/errors"
)

// ImageFetchError reports that the source could not be retrieved or
// decoded. It is never retried by the converter.
type ImageFetchError struct {
	Source string
	Cause  error
}

func (e *ImageFetchError) Error() string {
	return fmt.Sprintf("fetch image %s: %v", e.Source, e.Cause)
}

func (e *ImageFetchError) Unwrap() error { return e.Cause }

// Code returns IMAGE_FETCH.
func (e *ImageFetchError) Code() terrors.Code { return terrors.ErrCodeImageFetch }

// BadImageSizeError reports an image whose width/height ratio exceeds the
// configured maximum.
type BadImageSizeError struct {
	Ratio    float64
	MaxRatio float64
}

func (e *BadImageSizeError) Error() string {
	return fmt.Sprintf("image ratio %.4g exceeds maximum %.4g", e.Ratio, e.MaxRatio)
}

// Code returns BAD_IMAGE_SIZE.
func (e *BadImageSizeError) Code() terrors.Code { return terrors.ErrCodeBadImageSize }
