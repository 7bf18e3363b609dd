package api

import (
	"context"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/novelforge/novelforge/pkg/library"
	"github.com/novelforge/novelforge/pkg/model"
	"github.com/novelforge/novelforge/pkg/progress"
	"github.com/novelforge/novelforge/pkg/session"
)

func requireSessionID(c *echo.Context) (string, error) {
	id := c.Param("id")
	if id == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "session id is required")
	}
	return id, nil
}

// submitFormHandler handles POST /api/v1/sessions (spec.md §4.5
// "Session: created on questions-generation-start"). It creates the
// Session and launches the Questions preparatory job in a detached
// goroutine, returning immediately.
func (s *Server) submitFormHandler(c *echo.Context) error {
	var req SubmitFormRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.LLMModel == "" || req.Plot == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "llm_model and plot are required")
	}

	form := model.FormData{
		LLMModel: req.LLMModel, Plot: req.Plot, Genre: req.Genre, Subgenre: req.Subgenre,
		Style: req.Style, Author: req.Author, UserName: req.UserName, Theme: req.Theme,
		Protagonist: req.Protagonist, POV: req.POV, NarrativeVoice: req.NarrativeVoice,
		Pace: req.Pace, Realism: req.Realism,
	}

	userID := extractUserID(c)
	sessionID := session.NewSessionID()
	sess, err := s.sessions.Create(c.Request().Context(), sessionID, form, nil, userID)
	if err != nil {
		return mapServiceError(err)
	}

	go s.orchestrator.RunQuestionsJob(context.Background(), sessionID, form)

	return c.JSON(http.StatusAccepted, newSessionResponse(sess))
}

// getSessionHandler handles GET /api/v1/sessions/:id.
func (s *Server) getSessionHandler(c *echo.Context) error {
	id, err := requireSessionID(c)
	if err != nil {
		return err
	}
	sess, err := s.sessions.Get(c.Request().Context(), id, extractUserID(c))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, newSessionResponse(sess))
}

// listSessionsHandler handles GET /api/v1/sessions, scoped to the
// caller's own sessions (or all, for an unauthenticated legacy caller).
func (s *Server) listSessionsHandler(c *echo.Context) error {
	userID := extractUserID(c)
	filters := session.ListFilters{
		LLMModel: c.QueryParam("llm_model"),
		Genre:    c.QueryParam("genre"),
	}
	if st := c.QueryParam("status"); st != "" {
		filters.Status = model.DerivedStatus(st)
	}

	sessions, err := s.sessions.List(c.Request().Context(), userID, filters, session.ProjectionFull)
	if err != nil {
		return mapServiceError(err)
	}

	out := make([]*SessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, newSessionResponse(sess))
	}
	return c.JSON(http.StatusOK, out)
}

// deleteSessionHandler handles DELETE /api/v1/sessions/:id.
func (s *Server) deleteSessionHandler(c *echo.Context) error {
	id, err := requireSessionID(c)
	if err != nil {
		return err
	}
	// Ownership is enforced by loading through Get first; Delete itself
	// operates by id only.
	if _, err := s.sessions.Get(c.Request().Context(), id, extractUserID(c)); err != nil {
		return mapServiceError(err)
	}
	deleted, err := s.sessions.Delete(c.Request().Context(), id)
	if err != nil {
		return mapServiceError(err)
	}
	if !deleted {
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// submitAnswersHandler handles POST /api/v1/sessions/:id/answers: it
// persists the user's answers (or a redraft's previous text/feedback)
// and launches the Draft preparatory job.
func (s *Server) submitAnswersHandler(c *echo.Context) error {
	id, err := requireSessionID(c)
	if err != nil {
		return err
	}
	var req SubmitAnswersRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	sess, err := s.sessions.Get(ctx, id, extractUserID(c))
	if err != nil {
		return mapServiceError(err)
	}

	answers := make([]model.QuestionAnswer, len(req.Answers))
	for i, a := range req.Answers {
		answers[i] = model.QuestionAnswer{QuestionID: a.QuestionID, Answer: a.Answer}
	}
	sess.QuestionAnswers = answers
	if _, err := s.sessions.Save(ctx, sess); err != nil {
		return mapServiceError(err)
	}

	go s.orchestrator.RunDraftJob(context.Background(), id, sess.FormData, answers, req.PreviousDraft, req.UserFeedback)

	return c.JSON(http.StatusAccepted, newSessionResponse(sess))
}

// validateDraftHandler handles POST /api/v1/sessions/:id/draft/validate
// (spec.md §8 "validated ⇒ current_draft ≠ ∅").
func (s *Server) validateDraftHandler(c *echo.Context) error {
	id, err := requireSessionID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := s.sessions.Get(ctx, id, extractUserID(c)); err != nil {
		return mapServiceError(err)
	}
	if err := s.sessions.ValidateDraft(ctx, id); err != nil {
		return mapServiceError(err)
	}
	sess, err := s.sessions.Get(ctx, id, extractUserID(c))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, newSessionResponse(sess))
}

// generateOutlineHandler handles POST /api/v1/sessions/:id/outline:
// launches the Outline preparatory job.
func (s *Server) generateOutlineHandler(c *echo.Context) error {
	id, err := requireSessionID(c)
	if err != nil {
		return err
	}
	if _, err := s.sessions.Get(c.Request().Context(), id, extractUserID(c)); err != nil {
		return mapServiceError(err)
	}
	go s.orchestrator.RunOutlineJob(context.Background(), id)
	return c.NoContent(http.StatusAccepted)
}

// updateOutlineHandler handles PUT /api/v1/sessions/:id/outline
// (spec.md §8 "Outline freeze").
func (s *Server) updateOutlineHandler(c *echo.Context) error {
	id, err := requireSessionID(c)
	if err != nil {
		return err
	}
	var req UpdateOutlineRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text must not be empty")
	}

	ctx := c.Request().Context()
	if _, err := s.sessions.Get(ctx, id, extractUserID(c)); err != nil {
		return mapServiceError(err)
	}
	if err := s.sessions.UpdateOutline(ctx, id, req.Text, req.AllowIfWriting); err != nil {
		return mapServiceError(err)
	}
	sess, err := s.sessions.Get(ctx, id, extractUserID(c))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, newSessionResponse(sess))
}

// startGenerationHandler handles POST
// /api/v1/sessions/:id/generation/start (spec.md §4.5 transition 1).
func (s *Server) startGenerationHandler(c *echo.Context) error {
	id, err := requireSessionID(c)
	if err != nil {
		return err
	}
	if err := s.orchestrator.StartGeneration(c.Request().Context(), id, extractUserID(c)); err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusAccepted, GenerationResponse{SessionID: id, Status: "started"})
}

// resumeGenerationHandler handles POST
// /api/v1/sessions/:id/generation/resume (spec.md §4.5 transition 3).
func (s *Server) resumeGenerationHandler(c *echo.Context) error {
	id, err := requireSessionID(c)
	if err != nil {
		return err
	}
	if err := s.orchestrator.ResumeGeneration(c.Request().Context(), id, extractUserID(c)); err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusAccepted, GenerationResponse{SessionID: id, Status: "resumed"})
}

// cancelGenerationHandler handles POST
// /api/v1/sessions/:id/generation/cancel (spec.md §5 "Cancellation").
func (s *Server) cancelGenerationHandler(c *echo.Context) error {
	id, err := requireSessionID(c)
	if err != nil {
		return err
	}
	if _, err := s.sessions.Get(c.Request().Context(), id, extractUserID(c)); err != nil {
		return mapServiceError(err)
	}
	cancelled := s.orchestrator.CancelSession(id)
	return c.JSON(http.StatusOK, CancelResponse{SessionID: id, Cancelled: cancelled})
}

// residualEstimateHandler handles GET /api/v1/sessions/:id/estimate
// (spec.md §4.6 "Residual-time estimate").
func (s *Server) residualEstimateHandler(c *echo.Context) error {
	id, err := requireSessionID(c)
	if err != nil {
		return err
	}
	sess, err := s.sessions.Get(c.Request().Context(), id, extractUserID(c))
	if err != nil {
		return mapServiceError(err)
	}
	minutes, confidence, ok := progress.ResidualEstimate(sess, s.libraryCfg.Progress)
	if !ok {
		return echo.NewHTTPError(http.StatusConflict, "session is not in-flight")
	}
	return c.JSON(http.StatusOK, ResidualEstimateResponse{Minutes: minutes, Confidence: string(confidence)})
}

// downloadPDFHandler handles GET /api/v1/sessions/:id/download
// (spec.md §6 "Filename format for rendered PDFs"). It renders on
// demand rather than relying on the cover/critique stage's stored
// cover path, so a complete session can always be downloaded even if
// it predates BlobStore persistence of the PDF itself.
func (s *Server) downloadPDFHandler(c *echo.Context) error {
	id, err := requireSessionID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	sess, err := s.sessions.Get(ctx, id, extractUserID(c))
	if err != nil {
		return mapServiceError(err)
	}
	if sess.DerivedStatus() != model.StatusComplete {
		return echo.NewHTTPError(http.StatusConflict, "session is not complete")
	}

	pdfBytes, err := s.renderPDF(ctx, sess)
	if err != nil {
		return mapServiceError(err)
	}

	filename := library.PDFFilename(sess.CreatedAt, sess.FormData.LLMModel, sess.Draft.CurrentTitle, sess.SessionID)
	c.Response().Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	return c.Blob(http.StatusOK, "application/pdf", pdfBytes)
}
