package exports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"csv-exchange/common"
	"csv-exchange/config"
	"csv-exchange/dialect"
)

// CreateExportRequest represents the request for async export
type CreateExportRequest struct {
	IdempotencyKey string            `json:"idempotency_key" binding:"required"`
	ResourceType   string            `json:"resource_type" binding:"required,oneof=users articles comments"`
	Format         string            `json:"format" binding:"required,oneof=csv ndjson"`
	Fields         []string          `json:"fields,omitempty"`  // Optional field selection
	Filters        map[string]string `json:"filters,omitempty"` // Optional filters
	Dialect        *config.Profile   `json:"dialect,omitempty"`
}

// CreateExportResponse represents the response for async export creation
type CreateExportResponse struct {
	JobID     string    `json:"job_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// RegisterRoutes mounts the export endpoints on rg.
func RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", StreamExport)
	rg.POST("", CreateExport)
	rg.GET("/:job_id", GetExport)
	rg.GET("/:job_id/download", DownloadExport)
}

// contentType is the media type of a document in format f written with d.
func contentType(format string, d dialect.Dialect) string {
	switch {
	case format == common.FormatNDJSON:
		return "application/x-ndjson"
	case d.Separator == '\t':
		return "text/tab-separated-values; charset=utf-8"
	default:
		return "text/csv; charset=utf-8"
	}
}

// StreamExport godoc
// @Summary Stream export data (synchronous)
// @Description Writes users, articles or comments as a delimited document in
// @Description the dialect given by the query parameters, or as NDJSON.
// @Tags exports
// @Produce text/csv
// @Produce application/x-ndjson
// @Param resource query string true "Resource type (users, articles, or comments)"
// @Param format query string false "Export format (csv or ndjson, default csv)"
// @Param fields query string false "Comma-separated field selection"
// @Success 200 {file} file "Export data"
// @Failure 400 {object} map[string]string "Bad request"
// @Router /exports [get]
func StreamExport(c *gin.Context) {
	resource := c.Query("resource")
	format := c.DefaultQuery("format", common.FormatCSV)

	if !common.ValidResource(resource) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "resource parameter is required (users|articles|comments)"})
		return
	}
	if !common.ValidFormat(format) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid format, must be: csv or ndjson"})
		return
	}

	profile, d, err := common.ProfileFromRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := Request{
		Resource: resource,
		Format:   format,
		Profile:  profile,
		Filters:  filtersFromQuery(c),
	}
	if fields := c.Query("fields"); fields != "" {
		req.Fields = strings.Split(fields, ",")
	}
	if err := Validate(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	setHeaders := func() {
		timestamp := time.Now().Format("20060102_150405")
		c.Header("Content-Type", contentType(format, d))
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s_%s.%s", resource, timestamp, format))
	}

	var (
		n   int
		buf bytes.Buffer
	)
	if format == common.FormatCSV {
		// Buffered, so that a failure can still be reported as JSON.
		n, err = Write(c.Request.Context(), &buf, common.GetDB(), req)
	} else {
		setHeaders()
		n, err = Write(c.Request.Context(), c.Writer, common.GetDB(), req)
	}
	c.Set("rows_processed", n)

	if err != nil {
		common.RequestLogger(c).Error("export failed", "resource", resource, "error", err)
		c.Error(err)
		if !c.Writer.Written() {
			c.Writer.Header().Del("Content-Disposition")
			c.Writer.Header().Del("Content-Type")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Export failed"})
		}
		return
	}
	if format == common.FormatCSV {
		setHeaders()
		c.Status(http.StatusOK)
		buf.WriteTo(c.Writer)
	}
}

// filtersFromQuery collects the filter parameters every resource accepts.
func filtersFromQuery(c *gin.Context) map[string]string {
	filters := map[string]string{}
	for _, key := range []string{"role", "active", "status", "author_id", "article_id", "user_id"} {
		if v, ok := c.GetQuery(key); ok {
			filters[key] = v
		}
	}
	return filters
}

// CreateExport godoc
// @Summary Create async export job
// @Description Creates an export job that writes a file for later download
// @Tags exports
// @Accept json
// @Produce json
// @Param export body CreateExportRequest true "Export configuration"
// @Success 202 {object} CreateExportResponse "Export job created"
// @Success 200 {object} CreateExportResponse "Existing job returned (idempotency)"
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /exports [post]
func CreateExport(c *gin.Context) {
	db := common.GetDB()

	var body CreateExportRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Check idempotency
	var existingJob common.ExportJob
	if err := db.Where("idempotency_key = ?", body.IdempotencyKey).First(&existingJob).Error; err == nil {
		c.JSON(http.StatusOK, CreateExportResponse{
			JobID:     existingJob.ID,
			Status:    existingJob.Status,
			CreatedAt: existingJob.CreatedAt,
		})
		return
	}

	profile, _, err := common.ProfileFromRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if body.Dialect != nil {
		profile = profile.Merge(*body.Dialect)
	}

	req := Request{
		Resource: body.ResourceType,
		Format:   body.Format,
		Profile:  profile,
		Fields:   body.Fields,
		Filters:  body.Filters,
	}
	if err := Validate(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fieldsJSON, _ := json.Marshal(body.Fields)
	filtersJSON, _ := json.Marshal(body.Filters)

	job := common.ExportJob{
		ID:             uuid.New().String(),
		IdempotencyKey: body.IdempotencyKey,
		ResourceType:   body.ResourceType,
		Format:         body.Format,
		Dialect:        common.EncodeProfile(profile),
		Fields:         string(fieldsJSON),
		Filters:        string(filtersJSON),
		Status:         common.JobStatusPending,
		CreatedAt:      time.Now(),
	}

	if err := db.Create(&job).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create export job"})
		return
	}

	// Start async export processing
	go func(id string) {
		if err := ProcessExportJob(context.Background(), id); err != nil {
			slog.Warn("export job ended with error", "job_id", id, "error", err)
		}
	}(job.ID)

	c.JSON(http.StatusAccepted, CreateExportResponse{
		JobID:     job.ID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
	})
}

// GetExport godoc
// @Summary Get export job status
// @Description Retrieves the status and download URL of an export job
// @Tags exports
// @Produce json
// @Param job_id path string true "Export Job ID"
// @Success 200 {object} map[string]interface{} "Export job details with download URL"
// @Failure 404 {object} map[string]string "Job not found"
// @Router /exports/{job_id} [get]
func GetExport(c *gin.Context) {
	jobID := c.Param("job_id")

	var job common.ExportJob
	if err := common.GetDB().Where("id = ?", jobID).First(&job).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Export job not found"})
		return
	}

	// Set rows processed for metrics
	c.Set("rows_processed", job.TotalRecords)

	response := gin.H{
		"job_id":        job.ID,
		"resource_type": job.ResourceType,
		"format":        job.Format,
		"status":        job.Status,
		"total_records": job.TotalRecords,
		"created_at":    job.CreatedAt,
	}

	if job.CompletedAt != nil {
		response["completed_at"] = job.CompletedAt
	}
	if job.DownloadURL != "" {
		response["download_url"] = job.DownloadURL
	}
	if job.Error != "" {
		response["error"] = job.Error
	}

	c.JSON(http.StatusOK, response)
}

// DownloadExport godoc
// @Summary Download the file of a completed export job
// @Tags exports
// @Produce text/csv
// @Produce application/x-ndjson
// @Param job_id path string true "Export Job ID"
// @Success 200 {file} file "Export data"
// @Failure 404 {object} map[string]string "Job not found"
// @Failure 409 {object} map[string]string "Job not completed"
// @Router /exports/{job_id}/download [get]
func DownloadExport(c *gin.Context) {
	var job common.ExportJob
	if err := common.GetDB().Where("id = ?", c.Param("job_id")).First(&job).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Export job not found"})
		return
	}
	if job.Status != common.JobStatusCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "Export job is " + job.Status})
		return
	}
	if _, err := os.Stat(job.FilePath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Export file no longer exists"})
		return
	}

	c.Set("rows_processed", job.TotalRecords)
	c.FileAttachment(job.FilePath, filepath.Base(job.FilePath))
}

// ProcessExportJob writes the file of a pending export job and records the
// outcome on the job row.
func ProcessExportJob(ctx context.Context, jobID string) error {
	db := common.GetDB()
	logger := slog.Default().With("job_id", jobID)

	var job common.ExportJob
	if err := db.Where("id = ?", jobID).First(&job).Error; err != nil {
		return fmt.Errorf("load export job %s: %w", jobID, err)
	}

	job.Status = common.JobStatusProcessing
	db.Save(&job)

	exportErr := runExport(ctx, &job, logger)

	now := time.Now()
	job.CompletedAt = &now
	if exportErr != nil {
		job.Status = common.JobStatusFailed
		job.Error = exportErr.Error()
		logger.Error("export failed", "error", exportErr)
	} else {
		job.Status = common.JobStatusCompleted
		job.DownloadURL = fmt.Sprintf("/api/v1/exports/%s/download", job.ID)
		logger.Info("export completed", "records", job.TotalRecords, "file", job.FilePath)
	}

	if err := db.Save(&job).Error; err != nil {
		return fmt.Errorf("save export job %s: %w", jobID, err)
	}
	return exportErr
}

func runExport(ctx context.Context, job *common.ExportJob, logger *slog.Logger) error {
	db := common.GetDB()

	profile, err := common.DecodeProfile(job.Dialect)
	if err != nil {
		return fmt.Errorf("dialect profile: %w", err)
	}
	req := Request{
		Resource: job.ResourceType,
		Format:   job.Format,
		Profile:  profile,
	}
	if job.Fields != "" {
		if err := json.Unmarshal([]byte(job.Fields), &req.Fields); err != nil {
			return fmt.Errorf("fields: %w", err)
		}
	}
	if job.Filters != "" {
		if err := json.Unmarshal([]byte(job.Filters), &req.Filters); err != nil {
			return fmt.Errorf("filters: %w", err)
		}
	}
	req.Progress = func(n int) {
		if n-job.TotalRecords >= ProgressUpdateInterval {
			job.TotalRecords = n
			db.Model(job).Update("total_records", n)
		}
	}

	if err := os.MkdirAll(common.ExportsDir, 0750); err != nil {
		return err
	}
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("%s_%s_%s.%s", job.ResourceType, job.ID[:8], timestamp, job.Format)
	path := filepath.Join(common.ExportsDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return err
	}

	n, err := Write(ctx, file, db, req)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		if errors.Is(err, ErrUnknownField) {
			return fmt.Errorf("invalid field selection: %w", err)
		}
		return err
	}

	job.TotalRecords = n
	job.FilePath = path
	logger.Debug("export file written", "path", path)
	return nil
}
