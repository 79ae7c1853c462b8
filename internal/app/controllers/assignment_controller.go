package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/formatrack/internal/app/models/dto"
	"github.com/yigit/formatrack/internal/app/services"
	"github.com/yigit/formatrack/internal/middleware"
)

// AssignmentController handles assignments, submissions and grading
type AssignmentController struct {
	assignmentService services.AssignmentService
}

// NewAssignmentController creates a new AssignmentController
func NewAssignmentController(assignmentService services.AssignmentService) *AssignmentController {
	return &AssignmentController{
		assignmentService: assignmentService,
	}
}

// CreateAssignment handles assignment creation
// @Summary Create an assignment
// @Tags assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateAssignmentRequest true "Assignment information"
// @Success 201 {object} dto.APIResponse{data=models.Assignment}
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Router /assignments [post]
func (c *AssignmentController) CreateAssignment(ctx *gin.Context) {
	var req dto.CreateAssignmentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	assignment, err := c.assignmentService.CreateAssignment(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondCreated(ctx, assignment)
}

// GetAssignment retrieves an assignment
// @Summary Get an assignment
// @Tags assignments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assignment ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=models.Assignment}
// @Failure 404 {object} dto.ErrorResponse "Assignment not found"
// @Router /assignments/{id} [get]
func (c *AssignmentController) GetAssignment(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id", "Assignment")
	if !ok {
		return
	}

	assignment, err := c.assignmentService.GetAssignment(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, assignment)
}

// ListAssignments lists the assignments of a formation
// @Summary List assignments of a formation
// @Tags assignments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Formation ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=[]models.Assignment}
// @Router /formations/{id}/assignments [get]
func (c *AssignmentController) ListAssignments(ctx *gin.Context) {
	formationID, ok := parseIDParam(ctx, "id", "Formation")
	if !ok {
		return
	}

	assignments, err := c.assignmentService.ListAssignments(ctx.Request.Context(), formationID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, assignments)
}

// UpdateAssignment updates an assignment
// @Summary Update an assignment
// @Tags assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assignment ID" Format(int64) minimum(1)
// @Param request body dto.UpdateAssignmentRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=models.Assignment}
// @Router /assignments/{id} [patch]
func (c *AssignmentController) UpdateAssignment(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id", "Assignment")
	if !ok {
		return
	}
	var req dto.UpdateAssignmentRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	assignment, err := c.assignmentService.UpdateAssignment(ctx.Request.Context(), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, assignment)
}

// DeleteAssignment deletes an assignment and its submissions
// @Summary Delete an assignment
// @Tags assignments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assignment ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Router /assignments/{id} [delete]
func (c *AssignmentController) DeleteAssignment(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id", "Assignment")
	if !ok {
		return
	}

	if err := c.assignmentService.DeleteAssignment(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondMessage(ctx, "Assignment deleted")
}

// Submit stores the caller's submission
// @Summary Submit work
// @Description Re-submitting before grading replaces the content. Submissions after the due date are flagged late.
// @Tags submissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assignment ID" Format(int64) minimum(1)
// @Param request body dto.SubmitRequest true "Submission"
// @Success 200 {object} dto.APIResponse{data=models.Submission}
// @Failure 403 {object} dto.ErrorResponse "Not enrolled as a student"
// @Failure 409 {object} dto.ErrorResponse "Submission already graded"
// @Router /assignments/{id}/submission [put]
func (c *AssignmentController) Submit(ctx *gin.Context) {
	assignmentID, ok := parseIDParam(ctx, "id", "Assignment")
	if !ok {
		return
	}
	var req dto.SubmitRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	submission, err := c.assignmentService.Submit(ctx.Request.Context(), assignmentID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, submission)
}

// UploadAttachment stores a file to reference from a submission
// @Summary Upload a submission attachment
// @Tags submissions
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assignment ID" Format(int64) minimum(1)
// @Param file formData file true "Attachment"
// @Success 201 {object} dto.APIResponse{data=dto.AttachmentResponse}
// @Failure 400 {object} dto.ErrorResponse "Missing, oversized or disallowed file"
// @Router /assignments/{id}/attachments [post]
func (c *AssignmentController) UploadAttachment(ctx *gin.Context) {
	assignmentID, ok := parseIDParam(ctx, "id", "Assignment")
	if !ok {
		return
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid or missing file")
		errorDetail = errorDetail.WithField("file").WithDetails(err.Error())
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	defer file.Close()

	attachment, err := c.assignmentService.UploadAttachment(ctx.Request.Context(), assignmentID, fileHeader.Filename, file)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondCreated(ctx, attachment)
}

// MySubmission returns the caller's submission
// @Summary Get my submission
// @Tags submissions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assignment ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=models.Submission}
// @Failure 404 {object} dto.ErrorResponse "No submission yet"
// @Router /assignments/{id}/submission [get]
func (c *AssignmentController) MySubmission(ctx *gin.Context) {
	assignmentID, ok := parseIDParam(ctx, "id", "Assignment")
	if !ok {
		return
	}

	submission, err := c.assignmentService.MySubmission(ctx.Request.Context(), assignmentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, submission)
}

// ListSubmissions lists every submission of an assignment
// @Summary List submissions
// @Tags submissions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Assignment ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=[]models.Submission}
// @Failure 403 {object} dto.ErrorResponse "Trainer or administrator role required"
// @Router /assignments/{id}/submissions [get]
func (c *AssignmentController) ListSubmissions(ctx *gin.Context) {
	assignmentID, ok := parseIDParam(ctx, "id", "Assignment")
	if !ok {
		return
	}

	submissions, err := c.assignmentService.ListSubmissions(ctx.Request.Context(), assignmentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, submissions)
}

// Grade scores a submission
// @Summary Grade a submission
// @Description The score must lie between 0 and the assignment's max score. The student is notified by email.
// @Tags submissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param submissionId path int true "Submission ID" Format(int64) minimum(1)
// @Param request body dto.GradeRequest true "Score and feedback"
// @Success 200 {object} dto.APIResponse{data=models.Submission}
// @Failure 400 {object} dto.ErrorResponse "Score out of range"
// @Router /submissions/{submissionId}/grade [post]
func (c *AssignmentController) Grade(ctx *gin.Context) {
	submissionID, ok := parseIDParam(ctx, "submissionId", "Submission")
	if !ok {
		return
	}
	var req dto.GradeRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	submission, err := c.assignmentService.Grade(ctx.Request.Context(), submissionID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respondOK(ctx, submission)
}
