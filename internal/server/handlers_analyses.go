package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/jonathan/resume-optimizer/internal/ingestion"
	"github.com/jonathan/resume-optimizer/internal/metrics"
	"github.com/jonathan/resume-optimizer/internal/scoring"
	"github.com/jonathan/resume-optimizer/internal/server/middleware"
	"github.com/jonathan/resume-optimizer/internal/service"
	"github.com/jonathan/resume-optimizer/internal/types"
)

// multipartOverhead is allowed on top of the upload limit for the form
// boundaries and text fields.
const multipartOverhead = 1 << 20

// ---------------------------------------------------------------------
// Upload and scoring (public)
// ---------------------------------------------------------------------

type uploadData struct {
	Text     string             `json:"text"`
	Filename string             `json:"filename"`
	Size     int64              `json:"size"`
	SizeText string             `json:"size_formatted"`
	Type     ingestion.FileType `json:"type"`
	Quality  ingestion.Quality  `json:"quality"`
	Metadata ingestion.Metadata `json:"metadata"`
}

type uploadResponse struct {
	Success bool       `json:"success"`
	Data    uploadData `json:"data"`
}

// handleUpload extracts the text of a multipart "file" upload.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	parsed, _, err := s.parseUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	jsonResponse(w, http.StatusOK, uploadResponse{
		Success: true,
		Data: uploadData{
			Text:     parsed.Text,
			Filename: parsed.OriginalFilename,
			Size:     parsed.FileSize,
			SizeText: parsed.FileSizeFormatted,
			Type:     parsed.FileType,
			Quality:  parsed.Quality,
			Metadata: parsed.Metadata,
		},
	})
}

// parseUpload reads and parses the "file" part of a multipart request. It
// returns the raw bytes alongside the parse result.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) (*ingestion.ParsedFile, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.parser.MaxFileSize+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, &ingestion.FileValidationError{
				Message: fmt.Sprintf("file too large (max %d bytes)", s.parser.MaxFileSize),
			}
		}
		return nil, nil, &ErrValidation{Field: "file", Message: "a multipart file field named \"file\" is required"}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read upload: %w", err)
	}

	parsed, err := s.parser.ParseFile(r.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		return nil, nil, err
	}
	metrics.RecordUpload(string(parsed.FileType))
	return parsed, data, nil
}

// handleScore returns the deterministic score of a resume.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req types.ScoreRequest
	if !decodeAndValidate(w, r, &req, req.Validate) {
		return
	}
	jsonResponse(w, http.StatusOK, scoring.Heuristic(req.ResumeText, req.JobDescription))
}

// ---------------------------------------------------------------------
// Analyses (authenticated)
// ---------------------------------------------------------------------

// readSubmission accepts either a JSON AnalyzeRequest or a multipart form
// with a resume "file" plus optional job_description, job_url and async.
func (s *Server) readSubmission(w http.ResponseWriter, r *http.Request) (service.Submission, bool) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		parsed, data, err := s.parseUpload(w, r)
		if err != nil {
			writeError(w, r, err)
			return service.Submission{}, false
		}
		async, _ := strconv.ParseBool(r.FormValue("async"))
		return service.Submission{
			ResumeText:     parsed.Text,
			JobDescription: r.FormValue("job_description"),
			JobURL:         r.FormValue("job_url"),
			Filename:       parsed.OriginalFilename,
			File:           data,
			ContentType:    contentTypeFor(parsed.FileType),
			Async:          async,
		}, true
	}

	var req types.AnalyzeRequest
	if !decodeAndValidate(w, r, &req, req.Validate) {
		return service.Submission{}, false
	}
	return service.Submission{
		ResumeText:     req.ResumeText,
		JobDescription: req.JobDescription,
		JobURL:         req.JobURL,
		Filename:       req.Filename,
		Async:          req.Async,
	}, true
}

func contentTypeFor(ft ingestion.FileType) string {
	if ft == ingestion.FileTypeDOCX {
		return ingestion.MIMETypeDOCX
	}
	return ingestion.MIMETypePDF
}

// handleAnalyze charges the caller and runs an analysis. Async submissions
// answer 202 with the queued analysis id.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sub, ok := s.readSubmission(w, r)
	if !ok {
		return
	}

	analysis, err := s.analyses.Submit(r.Context(), userID, sub)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if analysis.Status == types.StatusProcessing {
		jsonResponse(w, http.StatusAccepted, map[string]any{
			"id":     analysis.ID,
			"status": analysis.Status,
		})
		return
	}
	jsonResponse(w, http.StatusCreated, analysis)
}

// handleAnalyzeStream runs a synchronous analysis and streams its progress
// as Server-Sent Events, ending with a result or error event.
func (s *Server) handleAnalyzeStream(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	sub, ok := s.readSubmission(w, r)
	if !ok {
		return
	}
	if sub.Async {
		writeError(w, r, &ErrValidation{Field: "async", Message: "not supported when streaming"})
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	sub.OnProgress = sse.WriteProgress
	analysis, err := s.analyses.Submit(r.Context(), userID, sub)
	if err != nil {
		status, message := errorStatus(err)
		if status >= http.StatusInternalServerError {
			logRequestError(r, err)
		}
		sse.WriteError(status, message)
		return
	}
	sse.WriteEvent(eventResult, analysis) //nolint:errcheck
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	limit, err := queryInt(r, "limit", service.DefaultListLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	page, err := s.analyses.List(r.Context(), userID, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, page)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	analysis, err := s.analyses.Get(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, analysis)
}

func (s *Server) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.analyses.Delete(r.Context(), userID, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleOriginalUpload downloads the archived file an analysis was made from.
func (s *Server) handleOriginalUpload(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	filename, body, err := s.analyses.Original(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", ingestion.ContentTypeFor(filename, body))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	w.Write(body) //nolint:errcheck
}

// handleExportAnalysis downloads the improved resume as a text attachment.
func (s *Server) handleExportAnalysis(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	filename, body, err := s.analyses.Export(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	w.Write(body) //nolint:errcheck
}
