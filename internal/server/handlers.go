package server

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/matzehuels/textart/pkg/errors"
	"github.com/matzehuels/textart/pkg/palette"
	"github.com/matzehuels/textart/pkg/pipeline"
)

// uploadLabel names uploaded images in logs and errors.
const uploadLabel = "upload"

// multipartOverhead is allowed on top of MaxUpload for form boundaries
// and headers.
const multipartOverhead = 1 << 20

// paletteInfo describes a built-in palette.
type paletteInfo struct {
	Name   string `json:"name"`
	Glyphs string `json:"glyphs"`
}

// convertResponse is the JSON form of a conversion.
type convertResponse struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	SourceWidth  int    `json:"source_width"`
	SourceHeight int    `json:"source_height"`
	Digest       string `json:"digest"`
	Cached       bool   `json:"cached"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "ok\n")
}

func (s *Server) handlePalettes(w http.ResponseWriter, r *http.Request) {
	names := palette.Names()
	out := make([]paletteInfo, 0, len(names))
	for _, name := range names {
		p, err := palette.Lookup(name)
		if err != nil {
			continue
		}
		out = append(out, paletteInfo{Name: name, Glyphs: p.Glyphs()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	opts, err := s.parseConvertRequest(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts.MaxPixels = s.cfg.MaxPixels

	res, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	id := uuid.NewString()
	w.Header().Set("X-Conversion-ID", id)

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, convertResponse{
			ID:           id,
			Text:         res.Art.Text,
			Width:        res.Art.Width,
			Height:       res.Art.Height,
			SourceWidth:  res.Art.SourceWidth,
			SourceHeight: res.Art.SourceHeight,
			Digest:       res.Digest,
			Cached:       res.CacheInfo.ArtHit,
		})
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, res.Art.Text)
}

// parseConvertRequest reads pipeline options from a JSON body or a
// multipart upload.
func (s *Server) parseConvertRequest(w http.ResponseWriter, r *http.Request) (pipeline.Options, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		return s.parseUpload(w, r)
	case "application/json", "":
		var opts pipeline.Options
		dec := json.NewDecoder(io.LimitReader(r.Body, multipartOverhead))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&opts); err != nil {
			return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid JSON body")
		}
		if err := errors.ValidateURL(opts.Source); err != nil {
			return opts, err
		}
		return opts, nil
	default:
		return pipeline.Options{}, errors.New(errors.ErrCodeUnsupported, "unsupported content type %q", mediaType)
	}
}

func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) (pipeline.Options, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUpload+multipartOverhead)
	if err := r.ParseMultipartForm(s.cfg.MaxUpload); err != nil {
		var mbe *http.MaxBytesError
		if stderrors.As(err, &mbe) {
			return pipeline.Options{}, errors.New(errors.ErrCodeTooLarge, "upload exceeds %d bytes", s.cfg.MaxUpload)
		}
		return pipeline.Options{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid multipart form")
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return pipeline.Options{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "missing form field %q", "image")
	}
	defer file.Close()

	if header.Size > s.cfg.MaxUpload {
		return pipeline.Options{}, errors.New(errors.ErrCodeTooLarge, "upload exceeds %d bytes", s.cfg.MaxUpload)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return pipeline.Options{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "read upload")
	}

	opts, err := parseQueryOptions(r.URL.Query())
	if err != nil {
		return opts, err
	}
	opts.Source = uploadLabel
	opts.Data = data
	return opts, nil
}

// parseQueryOptions reads conversion limits from query parameters.
func parseQueryOptions(q url.Values) (pipeline.Options, error) {
	var opts pipeline.Options
	var err error

	if opts.MaxWidth, err = queryInt(q, "max_width"); err != nil {
		return opts, err
	}
	if opts.MaxHeight, err = queryInt(q, "max_height"); err != nil {
		return opts, err
	}
	if v := q.Get("max_ratio"); v != "" {
		if opts.MaxRatio, err = strconv.ParseFloat(v, 64); err != nil {
			return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid max_ratio %q", v)
		}
	}
	if opts.Invert, err = queryBool(q, "invert"); err != nil {
		return opts, err
	}
	if opts.LegacyRatio, err = queryBool(q, "legacy_ratio"); err != nil {
		return opts, err
	}
	opts.Palette = q.Get("palette")
	opts.Glyphs = q.Get("glyphs")
	return opts, nil
}

func queryInt(q url.Values, key string) (int, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid %s %q", key, v)
	}
	return n, nil
}

func queryBool(q url.Values, key string) (bool, error) {
	v := q.Get(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid %s %q", key, v)
	}
	return b, nil
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
