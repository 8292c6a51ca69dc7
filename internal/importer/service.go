package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"workforce-import/internal/common/arcgis"
	"workforce-import/internal/common/errors"
	"workforce-import/internal/common/logger"
)

// AssignmentLayer is the write side of the assignment collection, plus the
// reads the pipeline needs from it.
type AssignmentLayer interface {
	FeatureQuerier
	SchemaReader
	AddFeatures(ctx context.Context, features []arcgis.Feature) ([]arcgis.AddResult, error)
	AddAttachment(ctx context.Context, objectID int64, path string) error
}

// ServiceDependencies collects the collaborators of a Service.
type ServiceDependencies struct {
	Logger      logger.Logger
	Assignments AssignmentLayer
	Dispatchers FeatureQuerier
	Workers     FeatureQuerier
}

// Service runs the whole import: parse, resolve, validate, submit, upload.
// Everything is sequential and blocking; any failure aborts the run with
// nothing retried.
type Service struct {
	parser   ParserConfig
	username string

	logger      logger.Logger
	assignments AssignmentLayer
	dispatchers FeatureQuerier
	workers     FeatureQuerier

	now func() time.Time
}

// NewService builds a Service for the acting user. username is the
// authenticated login whose dispatcher identity backs records that carry
// no dispatcherId of their own.
func NewService(deps ServiceDependencies, parser ParserConfig, username string) *Service {
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{
		parser:      parser,
		username:    username,
		logger:      log,
		assignments: deps.Assignments,
		dispatchers: deps.Dispatchers,
		workers:     deps.Workers,
		now:         time.Now,
	}
}

// Run executes the import sequence. Candidates are processed and submitted
// in CSV input order; the bulk-insert response is mapped back positionally.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	s.logger.Info("Reading CSV file", map[string]interface{}{
		"file": s.parser.CSVFile,
	})
	assignments, err := ParseCSV(s.parser)
	if err != nil {
		return nil, err
	}
	if len(assignments) == 0 {
		s.logger.Warn("CSV contained no data rows, nothing to submit", nil)
		return &Result{}, nil
	}

	s.logger.Info("Resolving dispatcher id", map[string]interface{}{
		"username": s.username,
	})
	dispatcherID, err := ResolveDispatcher(ctx, s.dispatchers, s.username)
	if err != nil {
		return nil, err
	}
	for _, a := range assignments {
		if a.DispatcherID == nil {
			id := dispatcherID
			a.DispatcherID = &id
		}
	}

	assigned, err := s.resolveWorkers(ctx, assignments)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Validating assignments", map[string]interface{}{
		"count": len(assignments),
	})
	refs, err := FetchReferenceSets(ctx, s.assignments, s.dispatchers, s.workers)
	if err != nil {
		return nil, err
	}
	if err := ValidateBatch(refs, assignments); err != nil {
		return nil, err
	}

	s.logger.Info("Adding assignments", map[string]interface{}{
		"count": len(assignments),
	})
	if err := s.submit(ctx, assignments); err != nil {
		return nil, err
	}

	uploaded, err := s.uploadAttachments(ctx, assignments)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Submitted:   len(assignments),
		Assigned:    assigned,
		Attachments: uploaded,
		ObjectIDs:   make([]int64, len(assignments)),
	}
	for i, a := range assignments {
		result.ObjectIDs[i] = *a.ObjectID
	}
	s.logger.Info("Completed", map[string]interface{}{
		"submitted":   result.Submitted,
		"assigned":    result.Assigned,
		"attachments": result.Attachments,
	})
	return result, nil
}

// resolveWorkers resolves every non-empty worker username, marking those
// candidates assigned and stamping the assignment time. A username that
// resolves nowhere aborts the whole run. Lookups are memoized per username;
// ordering and abort behavior are unchanged by the cache.
func (s *Service) resolveWorkers(ctx context.Context, assignments []*Assignment) (int, error) {
	cache := map[string]int64{}
	assigned := 0
	for _, a := range assignments {
		if a.WorkerUsername == "" {
			continue
		}
		id, ok := cache[a.WorkerUsername]
		if !ok {
			var err error
			id, err = ResolveWorker(ctx, s.workers, a.WorkerUsername)
			if err != nil {
				return 0, err
			}
			cache[a.WorkerUsername] = id
		}
		workerID := id
		stamp := s.now().UTC().Format(DateWireFormat)
		a.WorkerID = &workerID
		a.Status = StatusAssigned
		a.AssignedDate = &stamp
		assigned++
	}
	return assigned, nil
}

// submit runs the single bulk insert and writes returned object ids back
// onto the candidates, positionally.
func (s *Service) submit(ctx context.Context, assignments []*Assignment) error {
	features := make([]arcgis.Feature, len(assignments))
	for i, a := range assignments {
		features[i] = a.Feature()
	}

	results, err := s.assignments.AddFeatures(ctx, features)
	if err != nil {
		return errors.NewRemoteServiceError("addFeatures", err)
	}
	if len(results) != len(assignments) {
		return errors.NewSubmissionIncompleteError(
			fmt.Sprintf("submitted %d records but received %d results", len(assignments), len(results)))
	}
	for i, r := range results {
		if !r.Success {
			detail := "no error detail"
			if r.Error != nil {
				detail = r.Error.Message
			}
			return errors.NewSubmissionIncompleteError(
				fmt.Sprintf("record from row %d was rejected: %s", assignments[i].Row, detail))
		}
		id := r.ObjectID
		assignments[i].ObjectID = &id
	}
	return nil
}

// uploadAttachments uploads each candidate's attachment against its newly
// assigned object id, sequentially and in input order. A failed upload is
// fatal: the run has no partial-success mode, and the logged object id is
// what a manual cleanup needs.
func (s *Service) uploadAttachments(ctx context.Context, assignments []*Assignment) (int, error) {
	uploaded := 0
	for _, a := range assignments {
		if a.AttachmentFile == "" {
			continue
		}
		path, err := filepath.Abs(a.AttachmentFile)
		if err != nil {
			return uploaded, errors.NewAttachmentUploadFailedError(*a.ObjectID, a.AttachmentFile, err)
		}
		s.logger.Info("Uploading attachment", map[string]interface{}{
			"objectId": *a.ObjectID,
			"path":     path,
		})
		if err := s.assignments.AddAttachment(ctx, *a.ObjectID, path); err != nil {
			return uploaded, errors.NewAttachmentUploadFailedError(*a.ObjectID, path, err)
		}
		uploaded++
	}
	return uploaded, nil
}
