package server

import (
	stderrors "errors"
	"net/http"

	"github.com/matzehuels/textart/pkg/converter"
	"github.com/matzehuels/textart/pkg/errors"
)

// errorBody is the JSON error document.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      errors.Code `json:"code"`
	Message   string      `json:"message"`
	Ratio     float64     `json:"ratio,omitempty"`
	MaxRatio  float64     `json:"max_ratio,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// classify maps an error to an HTTP status and a public error detail.
func classify(err error) (int, errorDetail) {
	code := errors.GetCode(err)
	detail := errorDetail{Code: code, Message: errors.UserMessage(err)}

	var bad *converter.BadImageSizeError
	if stderrors.As(err, &bad) {
		detail.Code = errors.ErrCodeBadImageSize
		detail.Message = bad.Error()
		detail.Ratio = bad.Ratio
		detail.MaxRatio = bad.MaxRatio
		return http.StatusUnprocessableEntity, detail
	}

	var fe *converter.ImageFetchError
	if stderrors.As(err, &fe) {
		detail.Code = errors.ErrCodeImageFetch
		detail.Message = fe.Error()
		switch errors.GetCode(fe.Cause) {
		case errors.ErrCodeForbidden, errors.ErrCodeInvalidSource:
			return http.StatusBadRequest, detail
		case errors.ErrCodeTooLarge:
			return http.StatusRequestEntityTooLarge, detail
		case "":
			// Decode failure: the client sent bytes that are not an image.
			if fe.Source == uploadLabel {
				return http.StatusBadRequest, detail
			}
		}
		return http.StatusBadGateway, detail
	}

	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidSource,
		errors.ErrCodeInvalidPalette, errors.ErrCodeInvalidLimits:
		return http.StatusBadRequest, detail
	case errors.ErrCodeTooLarge:
		return http.StatusRequestEntityTooLarge, detail
	case errors.ErrCodeUnsupported:
		return http.StatusUnsupportedMediaType, detail
	}

	detail.Code = errors.ErrCodeInternal
	detail.Message = "internal error"
	return http.StatusInternalServerError, detail
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := classify(err)
	detail.RequestID = requestID(r)
	if status >= 500 {
		s.logger.Error("convert failed", "error", err, "request_id", detail.RequestID)
	} else {
		s.logger.Debug("convert rejected", "status", status, "error", err)
	}
	writeJSON(w, status, errorBody{Error: detail})
}
