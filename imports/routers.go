package imports

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"csv-exchange/common"
	"csv-exchange/config"
)

// CreateImportRequest represents the request body for imports of a remote file
type CreateImportRequest struct {
	ResourceType string          `json:"resource_type" binding:"required,oneof=users articles comments"`
	Format       string          `json:"format" binding:"required,oneof=csv ndjson"`
	FileURL      string          `json:"file_url" binding:"required,url"`
	Dialect      *config.Profile `json:"dialect,omitempty"`
}

// CreateImportResponse represents the response for import job creation
type CreateImportResponse struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// GetImportResponse represents the response for import job status
type GetImportResponse struct {
	JobID          string                          `json:"job_id"`
	ResourceType   string                          `json:"resource_type"`
	Format         string                          `json:"format"`
	Dialect        *config.Profile                 `json:"dialect,omitempty"`
	Status         string                          `json:"status"`
	TotalRecords   int                             `json:"total_records"`
	ProcessedCount int                             `json:"processed_count"`
	SuccessCount   int                             `json:"success_count"`
	FailCount      int                             `json:"fail_count"`
	Errors         []common.RecordValidationResult `json:"errors,omitempty"`
	CreatedAt      string                          `json:"created_at"`
	UpdatedAt      string                          `json:"updated_at"`
	CompletedAt    *string                         `json:"completed_at,omitempty"`
}

// RegisterRoutes mounts the import endpoints on rg.
func RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", CreateImport)
	rg.GET("/:job_id", GetImport)
}

// FormatFromFilename infers the import format from a file extension.
func FormatFromFilename(name string) (string, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".tsv", ".txt":
		return common.FormatCSV, true
	case ".ndjson", ".jsonl", ".json":
		return common.FormatNDJSON, true
	}
	return "", false
}

// CreateImport godoc
// @Summary Create a new import job
// @Description Imports users, articles or comments from a delimited or NDJSON file.
// @Description Delimited files are read in the dialect given by the query
// @Description parameters (separator, quoting, escape, header, row_numbers,
// @Description eof_sentinel, culture, ...) over the server default.
// @Tags imports
// @Accept multipart/form-data
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Key to prevent duplicate imports; defaults to a digest of the content and dialect"
// @Param file formData file false "File to import"
// @Param resource_type formData string false "users, articles or comments"
// @Param format formData string false "csv or ndjson; inferred from the file name when omitted"
// @Success 202 {object} CreateImportResponse "Import job created"
// @Success 200 {object} CreateImportResponse "Existing job returned (idempotency)"
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /imports [post]
func CreateImport(c *gin.Context) {
	db := common.GetDB()
	logger := common.RequestLogger(c)

	profile, _, err := common.ProfileFromRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := os.MkdirAll(common.UploadsDir, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to prepare uploads directory"})
		return
	}

	var resourceType, format, filePath, checksum string

	if strings.HasPrefix(c.GetHeader("Content-Type"), "multipart/form-data") {
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
			return
		}
		defer file.Close()

		resourceType = c.PostForm("resource_type")
		format = c.PostForm("format")
		if format == "" {
			var ok bool
			if format, ok = FormatFromFilename(header.Filename); !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "format is required for files that are not .csv or .ndjson"})
				return
			}
		}
		if !common.ValidResource(resourceType) || !common.ValidFormat(format) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "resource_type must be users, articles, or comments and format csv or ndjson"})
			return
		}

		filePath, checksum, err = saveUpload(file, format)
		if err != nil {
			logger.Error("failed to save upload", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file"})
			return
		}
	} else {
		var req CreateImportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		resourceType, format = req.ResourceType, req.Format
		if req.Dialect != nil {
			profile = profile.Merge(*req.Dialect)
			if _, err := profile.Dialect(); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		filePath, checksum, err = downloadFile(c.Request.Context(), req.FileURL, format)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Failed to download file: %v", err)})
			return
		}
	}

	if format == common.FormatNDJSON {
		profile = config.Profile{}
	}

	idempotencyKey := c.GetHeader("Idempotency-Key")
	if idempotencyKey == "" {
		idempotencyKey = common.ContentKey(checksum, resourceType, format, profile)
	}

	var existingJob common.ImportJob
	if err := db.Where("idempotency_key = ?", idempotencyKey).First(&existingJob).Error; err == nil {
		os.Remove(filePath)
		c.JSON(http.StatusOK, CreateImportResponse{
			JobID:     existingJob.ID,
			Status:    existingJob.Status,
			CreatedAt: existingJob.CreatedAt.Format(time.RFC3339),
		})
		return
	}

	now := time.Now()
	job := common.ImportJob{
		ID:             uuid.New().String(),
		IdempotencyKey: idempotencyKey,
		ResourceType:   resourceType,
		Format:         format,
		Dialect:        common.EncodeProfile(profile),
		Checksum:       checksum,
		Status:         common.JobStatusPending,
		FilePath:       filePath,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := db.Create(&job).Error; err != nil {
		logger.Error("failed to create import job", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create import job"})
		return
	}

	// Queue job for background processing
	go func(id string) {
		if err := ProcessImportJob(context.Background(), id); err != nil {
			slog.Warn("import job ended with error", "job_id", id, "error", err)
		}
	}(job.ID)

	c.JSON(http.StatusAccepted, CreateImportResponse{
		JobID:     job.ID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt.Format(time.RFC3339),
	})
}

// GetImport godoc
// @Summary Get import job status
// @Description Retrieves the status, progress and row errors of an import job
// @Tags imports
// @Produce json
// @Param job_id path string true "Import Job ID"
// @Success 200 {object} GetImportResponse "Import job details"
// @Failure 404 {object} map[string]string "Job not found"
// @Router /imports/{job_id} [get]
func GetImport(c *gin.Context) {
	db := common.GetDB()
	jobID := c.Param("job_id")

	var job common.ImportJob
	if err := db.Where("id = ?", jobID).First(&job).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Import job not found"})
		return
	}

	// Set rows processed for metrics
	c.Set("rows_processed", job.ProcessedCount)

	response := GetImportResponse{
		JobID:          job.ID,
		ResourceType:   job.ResourceType,
		Format:         job.Format,
		Status:         job.Status,
		TotalRecords:   job.TotalRecords,
		ProcessedCount: job.ProcessedCount,
		SuccessCount:   job.SuccessCount,
		FailCount:      job.FailCount,
		CreatedAt:      job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      job.UpdatedAt.Format(time.RFC3339),
	}

	if job.Format == common.FormatCSV && job.Dialect != "" {
		if p, err := common.DecodeProfile(job.Dialect); err == nil {
			response.Dialect = &p
		}
	}

	if job.CompletedAt != nil {
		completedStr := job.CompletedAt.Format(time.RFC3339)
		response.CompletedAt = &completedStr
	}

	if errs, err := common.DecodeResults(job.Errors); err == nil {
		response.Errors = errs
	}

	c.JSON(http.StatusOK, response)
}

// saveUpload copies r into a new file under UploadsDir and returns its path
// and checksum.
func saveUpload(r io.Reader, format string) (string, string, error) {
	fileName := fmt.Sprintf("%s_%s.%s", time.Now().Format("20060102_150405"), uuid.New().String()[:8], format)
	filePath := filepath.Join(common.UploadsDir, fileName)

	out, err := os.Create(filePath)
	if err != nil {
		return "", "", err
	}
	defer out.Close()

	checksum, err := common.Checksum(io.TeeReader(r, out))
	if err != nil {
		os.Remove(filePath)
		return "", "", err
	}
	return filePath, checksum, nil
}

var httpClient = &http.Client{Timeout: 5 * time.Minute}

// downloadFile fetches url into UploadsDir.
func downloadFile(ctx context.Context, url, format string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("bad status: %s", resp.Status)
	}
	return saveUpload(resp.Body, format)
}
