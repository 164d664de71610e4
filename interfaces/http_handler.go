package interfaces

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"scorecard-engine/application"
	"scorecard-engine/domain"
	"scorecard-engine/infrastructure"
	"scorecard-engine/scoring"
)

type HTTPHandler struct {
	Service *application.Service
	Log     *logrus.Entry
}

// NewHTTPHandler registers the assessment routes on router. The public test
// routes go through limiter when it is not nil.
func NewHTTPHandler(router *gin.Engine, svc *application.Service, limiter *IPRateLimiter, log *logrus.Entry) {
	h := &HTTPHandler{Service: svc, Log: log}
	useJSONFieldNames()

	router.GET("/health", h.Health)

	router.POST("/aggregate", h.Aggregate)
	router.POST("/compare", h.Compare)
	router.GET("/compare/export", h.ExportComparison)

	router.POST("/test-links", h.CreateTestLink)
	tests := router.Group("/tests")
	if limiter != nil {
		tests.Use(limiter.Middleware())
	}
	tests.POST("/submit", h.SubmitTest)
	tests.GET("/:token", h.GetTest)

	router.POST("/scorecards/:id/complete", h.CompleteScorecard)

	router.POST("/summaries", h.RequestSummary)
	router.GET("/summaries/:id", h.GetSummary)
}

func (h *HTTPHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type jobRequest struct {
	JobID     uint `json:"job_id" binding:"required"`
	Anonymize bool `json:"anonymize"`
}

// Aggregate returns every candidate of a job with completed scorecards.
func (h *HTTPHandler) Aggregate(c *gin.Context) {
	var req jobRequest
	if !h.bind(c, &req) {
		return
	}

	res, err := h.Service.Aggregate(c.Request.Context(), req.JobID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Compare ranks the candidates of a job, optionally anonymized.
func (h *HTTPHandler) Compare(c *gin.Context) {
	var req jobRequest
	if !h.bind(c, &req) {
		return
	}

	ranking, err := h.Service.Compare(c.Request.Context(), req.JobID, req.Anonymize)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ranking)
}

type exportQuery struct {
	JobID     uint `form:"job_id" binding:"required"`
	Anonymize bool `form:"anonymize"`
}

// ExportComparison streams the ranking of a job as an xlsx workbook.
func (h *HTTPHandler) ExportComparison(c *gin.Context) {
	var q exportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return
	}

	ctx := c.Request.Context()
	ranking, err := h.Service.Compare(ctx, q.JobID, q.Anonymize)
	if err != nil {
		h.fail(c, err)
		return
	}
	job, err := h.Service.Job(ctx, q.JobID)
	if err != nil {
		h.fail(c, err)
		return
	}

	filename := fmt.Sprintf("ranking-job-%d.xlsx", q.JobID)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Status(http.StatusOK)
	if err := infrastructure.WriteRankingWorkbook(c.Writer, *job, ranking, time.Now()); err != nil {
		h.Log.WithError(err).WithField("job_id", q.JobID).Error("failed to write workbook")
	}
}

type testLinkRequest struct {
	CandidateID    uint `json:"candidate_id" binding:"required"`
	JobID          uint `json:"job_id" binding:"required"`
	TemplateID     uint `json:"template_id" binding:"required"`
	ExpiresInHours int  `json:"expires_in_hours" binding:"omitempty,min=1,max=2160"`
}

// CreateTestLink creates a technical test for a candidate.
func (h *HTTPHandler) CreateTestLink(c *gin.Context) {
	var req testLinkRequest
	if !h.bind(c, &req) {
		return
	}

	link, err := h.Service.CreateTestLink(c.Request.Context(), application.TestLinkRequest{
		CandidateID: req.CandidateID,
		JobID:       req.JobID,
		TemplateID:  req.TemplateID,
		ExpiresIn:   time.Duration(req.ExpiresInHours) * time.Hour,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, link)
}

// GetTest shows an open test to its respondent.
func (h *HTTPHandler) GetTest(c *gin.Context) {
	view, err := h.Service.GetTest(c.Request.Context(), strings.TrimSpace(c.Param("token")))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type answerRequest struct {
	CriteriaID          uint     `json:"criteria_id" binding:"required"`
	Score               *float64 `json:"score" binding:"omitempty,min=1,max=5"`
	TextAnswer          string   `json:"text_answer"`
	SelectedOptionIndex *int     `json:"selected_option_index"`
	Notes               string   `json:"notes"`
}

type submitRequest struct {
	Token   string          `json:"token" binding:"required"`
	Answers []answerRequest `json:"answers" binding:"required,min=1,dive"`
}

// SubmitTest grades a technical-test submission.
func (h *HTTPHandler) SubmitTest(c *gin.Context) {
	var req submitRequest
	if !h.bind(c, &req) {
		return
	}

	answers := make([]scoring.Answer, len(req.Answers))
	for i, a := range req.Answers {
		answers[i] = scoring.Answer{
			CriterionID:         a.CriteriaID,
			Score:               a.Score,
			TextAnswer:          a.TextAnswer,
			SelectedOptionIndex: a.SelectedOptionIndex,
			Notes:               a.Notes,
		}
	}

	res, err := h.Service.SubmitTest(c.Request.Context(), req.Token, answers)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type evaluationRequest struct {
	CriteriaID uint     `json:"criteria_id" binding:"required"`
	Score      *float64 `json:"score" binding:"required"`
	Notes      string   `json:"notes"`
}

type completeRequest struct {
	Comments    *string             `json:"comments"`
	Evaluations []evaluationRequest `json:"evaluations" binding:"required,min=1,dive"`
}

// CompleteScorecard attaches an evaluator's ratings to an internal scorecard.
func (h *HTTPHandler) CompleteScorecard(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req completeRequest
	if !h.bind(c, &req) {
		return
	}

	in := application.CompletionRequest{
		Comments:    req.Comments,
		Evaluations: make([]application.EvaluationInput, len(req.Evaluations)),
	}
	for i, ev := range req.Evaluations {
		in.Evaluations[i] = application.EvaluationInput{CriteriaID: ev.CriteriaID, Score: ev.Score, Notes: ev.Notes}
	}

	res, err := h.Service.CompleteScorecard(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// RequestSummary queues a ranking summary and returns immediately.
func (h *HTTPHandler) RequestSummary(c *gin.Context) {
	var req jobRequest
	if !h.bind(c, &req) {
		return
	}

	summary, err := h.Service.RequestSummary(c.Request.Context(), req.JobID, req.Anonymize)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"id":     summary.ID,
		"status": summary.Status,
	})
}

// GetSummary returns a summary and, once completed, its result.
func (h *HTTPHandler) GetSummary(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	s, err := h.Service.Summary(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := gin.H{
		"id":         s.ID,
		"job_id":     s.JobID,
		"anonymized": s.Anonymized,
		"status":     s.Status,
		"created_at": s.CreatedAt,
		"updated_at": s.UpdatedAt,
	}
	switch s.Status {
	case domain.SummaryCompleted:
		result := gin.H{"summary": s.Summary}
		if s.RankingJSON != nil {
			var ranking scoring.Ranking
			if err := json.Unmarshal([]byte(*s.RankingJSON), &ranking); err == nil {
				result["ranking"] = ranking
			}
		}
		resp["result"] = result
	case domain.SummaryFailed:
		resp["error"] = s.Error
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func (h *HTTPHandler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return false
	}
	return true
}

// fail maps service errors to a status and a single reason string. Store
// failures are not described to the caller.
func (h *HTTPHandler) fail(c *gin.Context, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	case errors.Is(err, domain.ErrTestNotFound),
		errors.Is(err, domain.ErrNoScorecards),
		errors.Is(err, domain.ErrJobNotFound),
		errors.Is(err, domain.ErrCandidateNotFound),
		errors.Is(err, domain.ErrTemplateNotFound),
		errors.Is(err, domain.ErrScorecardNotFound),
		errors.Is(err, domain.ErrSummaryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrAlreadySubmitted),
		errors.Is(err, domain.ErrAlreadyCompleted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrLinkExpired):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	case errors.Is(err, application.ErrSummariesDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.Log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// bindingMessage turns binding errors into "field is required"-style
// messages using JSON field names.
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			return "invalid number: " + numErr.Num
		}
		return "invalid request body"
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fieldPath(fe.Namespace())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "min":
			if fe.Kind() == reflect.Slice && fe.Param() == "1" {
				msgs = append(msgs, field+" is required")
			} else if fe.Kind() == reflect.Slice {
				msgs = append(msgs, fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param()))
			} else {
				msgs = append(msgs, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
			}
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// fieldPath drops the struct name from a namespace such as
// "submitRequest.answers[0].criteria_id".
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// useJSONFieldNames makes validation errors report json/form tag names.
func useJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
}
