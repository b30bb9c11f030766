package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gnemet/SlideLens/internal/ai"
	"github.com/gnemet/SlideLens/internal/convert"
	"github.com/gnemet/SlideLens/internal/i18n"
	"github.com/gnemet/SlideLens/internal/pipeline"
	"github.com/gnemet/SlideLens/internal/pptx"
	"github.com/gnemet/SlideLens/internal/raster"
)

type convertResponse struct {
	ID        string               `json:"id"`
	Format    pipeline.Format      `json:"format"`
	Width     int                  `json:"width"`
	Height    int                  `json:"height"`
	Pages     []pipeline.PageSize  `json:"pages"`
	Image     string               `json:"image"`
	Theme     *pptx.ThemeFonts     `json:"theme,omitempty"`
	Fonts     pptx.SlideFontReport `json:"fonts"`
	FontsText string               `json:"fonts_text"`
	ObjectURL string               `json:"object_url,omitempty"`
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	lang := i18n.GetLang(r)
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadMB<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, http.StatusRequestEntityTooLarge, i18n.Tf(lang, "error.upload_too_large", s.cfg.MaxUploadMB))
			return
		}
		s.writeError(w, r, http.StatusBadRequest, i18n.T(lang, "error.missing_file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	tag := r.FormValue("format")
	if tag == "" {
		tag = pipeline.DetectFormat(header.Filename)
	}

	res, err := s.conv.Convert(r.Context(), data, tag)
	if err != nil {
		status, msg := s.classify(lang, err)
		s.log.Warn("conversion rejected",
			zap.String("file", header.Filename),
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.Int("status", status),
			zap.Error(err),
		)
		s.writeError(w, r, status, msg)
		return
	}

	out := convertResponse{
		ID:        uuid.NewString(),
		Format:    res.Format,
		Width:     res.Width,
		Height:    res.Height,
		Pages:     res.Pages,
		Image:     res.Encoded.Base64(),
		Fonts:     res.Fonts,
		FontsText: res.Fonts.String(),
	}
	if res.Format == pipeline.FormatPPTX {
		out.Theme = &res.Theme
	}

	rec, err := s.history.Record(r.Context(), header.Filename, data, res)
	if err != nil {
		// The image is still returned; only publishing failed.
		s.log.Error("failed to record conversion", zap.String("file", header.Filename), zap.Error(err))
	} else {
		out.ID, out.ObjectURL = rec.ID, rec.ObjectURL
	}

	writeJSON(w, http.StatusOK, out)
}

// classify maps a pipeline error to a status code and a localized message.
func (s *Server) classify(lang string, err error) (int, string) {
	var unsupported *pipeline.UnsupportedFormatError
	var ioErr *convert.IOError
	switch {
	case errors.As(err, &unsupported):
		return http.StatusBadRequest, i18n.Tf(lang, "error.format_not_supported", unsupported.Tag)
	case errors.Is(err, pptx.ErrInvalidPackage):
		return http.StatusUnprocessableEntity, i18n.T(lang, "error.invalid_package")
	case errors.Is(err, raster.ErrEmptyDocument):
		return http.StatusUnprocessableEntity, i18n.T(lang, "error.empty_document")
	case errors.Is(err, convert.ErrConversionFailed):
		return http.StatusBadGateway, i18n.T(lang, "error.conversion_failed")
	case errors.As(err, &ioErr):
		return http.StatusInternalServerError, i18n.T(lang, "error.internal")
	default:
		// Rasterizer failures on a malformed PDF land here.
		return http.StatusUnprocessableEntity, i18n.T(lang, "error.conversion_failed")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    i18n.T(i18n.GetLang(r), "status.ok"),
		"name":      s.cfg.Name,
		"version":   s.cfg.Version,
		"database":  s.history.HasDatabase(),
		"languages": i18n.GetAvailableLangs(),
	})
}

func (s *Server) handleModels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ai.Models)
}

func (s *Server) handleListConversions(w http.ResponseWriter, r *http.Request) {
	if !s.history.HasDatabase() {
		s.writeError(w, r, http.StatusNotFound, i18n.T(i18n.GetLang(r), "error.history_disabled"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.log.Error("failed to list conversions", zap.Error(err))
		s.writeError(w, r, http.StatusInternalServerError, i18n.T(i18n.GetLang(r), "error.internal"))
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error":      msg,
		"request_id": requestIDFrom(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
