package imports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gorm.io/gorm"

	"csv-exchange/articles"
	"csv-exchange/codec"
	"csv-exchange/common"
	"csv-exchange/parsers"
	"csv-exchange/users"
)

const (
	// BatchSize is the number of records processed in a single database transaction
	BatchSize = 2000

	// ProgressUpdateFrequency controls how often we save job progress to database
	// (every N batches). Set to 1 to update after every batch write
	ProgressUpdateFrequency = 1
)

// importer binds the typed steps of one resource.
type importer[T any] struct {
	validate  func(rec *T, row int) *common.RecordValidationResult
	normalize func(rec *T)
	upsert    func(db *gorm.DB, recs []T) error
}

// ProcessImportJob runs a pending import job to completion and records the
// outcome on the job row. The returned error is also stored on the job.
func ProcessImportJob(ctx context.Context, jobID string) error {
	db := common.GetDB()
	logger := slog.Default().With("job_id", jobID)

	var job common.ImportJob
	if err := db.Where("id = ?", jobID).First(&job).Error; err != nil {
		return fmt.Errorf("load import job %s: %w", jobID, err)
	}

	job.Status = common.JobStatusProcessing
	job.UpdatedAt = time.Now()
	db.Save(&job)
	logger.Info("import started", "resource", job.ResourceType, "format", job.Format)

	failures, processErr := processFile(ctx, db, &job, logger)

	// Clean up orphaned records if processing succeeded
	if processErr == nil && (job.ResourceType == "articles" || job.ResourceType == "comments") {
		orphans, err := articles.DeleteOrphans(db, job.ResourceType)
		if err != nil {
			processErr = fmt.Errorf("orphan cleanup: %w", err)
		}
		if len(orphans) > 0 {
			logger.Warn("deleted orphaned records", "count", len(orphans))
			job.SuccessCount -= len(orphans)
			job.FailCount += len(orphans)
			failures = append(failures, orphans...)
		}
	}

	now := time.Now()
	job.CompletedAt = &now
	job.UpdatedAt = now
	job.Errors = common.EncodeResults(failures)

	if processErr != nil {
		job.Status = common.JobStatusFailed
		fatal := common.RecordValidationResult{}
		fatal.AddError("file", processErr.Error())
		job.Errors = common.EncodeResults(append(failures, fatal))
		logger.Error("import failed", "error", processErr)
	} else {
		job.Status = common.JobStatusCompleted
		logger.Info("import completed",
			"total", job.TotalRecords,
			"success", job.SuccessCount,
			"failed", job.FailCount,
		)
	}

	if err := db.Save(&job).Error; err != nil {
		return fmt.Errorf("save import job %s: %w", jobID, err)
	}
	return processErr
}

func processFile(ctx context.Context, db *gorm.DB, job *common.ImportJob, logger *slog.Logger) ([]common.RecordValidationResult, error) {
	file, err := os.Open(job.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	switch job.ResourceType {
	case "users":
		v := users.NewUserValidator(db)
		return runImport(ctx, db, job, file, logger, importer[users.UserModel]{
			validate:  v.Validate,
			normalize: users.Normalize,
			upsert:    users.Upsert,
		})
	case "articles":
		v := articles.NewArticleValidator(db)
		return runImport(ctx, db, job, file, logger, importer[articles.ArticleModel]{
			validate:  v.Validate,
			normalize: articles.NormalizeArticle,
			upsert:    articles.UpsertArticles,
		})
	case "comments":
		v := articles.NewCommentValidator(db)
		return runImport(ctx, db, job, file, logger, importer[articles.CommentModel]{
			validate:  v.Validate,
			normalize: articles.NormalizeComment,
			upsert:    articles.UpsertComments,
		})
	default:
		return nil, fmt.Errorf("unknown resource type: %s", job.ResourceType)
	}
}

// openStream starts the parser for the job's format and dialect.
func openStream[T any](ctx context.Context, job *common.ImportJob, r io.Reader, logger *slog.Logger) (<-chan parsers.Row[T], <-chan error, error) {
	if job.Format == common.FormatNDJSON {
		records, errs := parsers.ParseNDJSON[T](ctx, r)
		return records, errs, nil
	}

	profile, err := common.DecodeProfile(job.Dialect)
	if err != nil {
		return nil, nil, fmt.Errorf("dialect profile: %w", err)
	}
	d, err := profile.Dialect()
	if err != nil {
		return nil, nil, err
	}
	c, err := codec.New(d, codec.ContinueOnError(), codec.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	records, errs := parsers.ParseCSV[T](ctx, r, c)
	return records, errs, nil
}

func runImport[T any](ctx context.Context, db *gorm.DB, job *common.ImportJob, r io.Reader, logger *slog.Logger, imp importer[T]) ([]common.RecordValidationResult, error) {
	records, errs, err := openStream[T](ctx, job, r, logger)
	if err != nil {
		return nil, err
	}

	var (
		batch            []T
		failures         []common.RecordValidationResult
		batchesProcessed int
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			return imp.upsert(tx, batch)
		})
		if err != nil {
			return fmt.Errorf("write batch ending at record %d: %w", job.TotalRecords, err)
		}
		job.SuccessCount += len(batch)
		batch = batch[:0]

		// Update progress less frequently (every N batches)
		batchesProcessed++
		if batchesProcessed%ProgressUpdateFrequency == 0 {
			job.UpdatedAt = time.Now()
			db.Save(job)
		}
		return nil
	}

	var writeErr error
	for row := range records {
		job.TotalRecords++
		job.ProcessedCount++

		rec := row.Record
		if result := imp.validate(&rec, row.Number); !result.Valid {
			job.FailCount++
			failures = append(failures, *result)
			continue
		}
		if writeErr != nil {
			continue
		}
		imp.normalize(&rec)
		batch = append(batch, rec)

		if len(batch) >= BatchSize {
			writeErr = flush()
		}
	}
	if writeErr == nil {
		writeErr = flush()
	}

	var fatal error
	for err := range errs {
		var rowErr *codec.RowError
		var lineErr *parsers.LineError
		switch {
		case errors.As(err, &rowErr):
			failures = append(failures, common.FromRowError(rowErr))
		case errors.As(err, &lineErr):
			result := common.RecordValidationResult{RowNumber: lineErr.Line}
			result.AddError("line", lineErr.Err.Error())
			failures = append(failures, result)
		default:
			if fatal == nil {
				fatal = err
			}
			continue
		}
		job.TotalRecords++
		job.ProcessedCount++
		job.FailCount++
	}

	if writeErr != nil {
		return failures, writeErr
	}
	return failures, fatal
}
