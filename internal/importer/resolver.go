package importer

import (
	"context"
	"fmt"
	"strings"

	"workforce-import/internal/common/arcgis"
	"workforce-import/internal/common/errors"
)

// FeatureQuerier is the read side of a remote feature collection.
type FeatureQuerier interface {
	Query(ctx context.Context, where string) ([]arcgis.Feature, error)
}

// SchemaReader exposes a layer's field metadata, including domains.
type SchemaReader interface {
	Fields(ctx context.Context) ([]arcgis.Field, error)
}

// IDSet is a set of valid object identifiers.
type IDSet map[int64]struct{}

func (s IDSet) Contains(id int64) bool {
	_, ok := s[id]
	return ok
}

// CodeSet is the valid-code set of one coded-value domain. A nil CodeSet
// means the field carries no domain and is not checked.
type CodeSet map[int]struct{}

func (s CodeSet) Contains(code int) bool {
	_, ok := s[code]
	return ok
}

// ReferenceSets is the read-once snapshot of reference data the validator
// checks candidates against. It is never refreshed during a run.
type ReferenceSets struct {
	Dispatchers     IDSet
	Workers         IDSet
	Statuses        CodeSet
	Priorities      CodeSet
	AssignmentTypes CodeSet
}

// FetchReferenceSets reads the dispatcher and worker identifier sets and
// the three domain-governed code sets from the assignment layer's schema.
func FetchReferenceSets(ctx context.Context, schema SchemaReader, dispatchers, workers FeatureQuerier) (*ReferenceSets, error) {
	refs := &ReferenceSets{
		Dispatchers: IDSet{},
		Workers:     IDSet{},
	}

	dispatcherFeatures, err := dispatchers.Query(ctx, "")
	if err != nil {
		return nil, errors.NewRemoteServiceError("dispatcher query", err)
	}
	if err := collectIDs(refs.Dispatchers, dispatcherFeatures); err != nil {
		return nil, errors.NewRemoteServiceError("dispatcher query", err)
	}

	workerFeatures, err := workers.Query(ctx, "")
	if err != nil {
		return nil, errors.NewRemoteServiceError("worker query", err)
	}
	if err := collectIDs(refs.Workers, workerFeatures); err != nil {
		return nil, errors.NewRemoteServiceError("worker query", err)
	}

	fields, err := schema.Fields(ctx)
	if err != nil {
		return nil, errors.NewRemoteServiceError("assignment schema", err)
	}
	for _, field := range fields {
		switch field.Name {
		case "status":
			refs.Statuses = codeSet(field.Domain)
		case "priority":
			refs.Priorities = codeSet(field.Domain)
		case "assignmentType":
			refs.AssignmentTypes = codeSet(field.Domain)
		}
	}
	return refs, nil
}

// ResolveDispatcher finds the dispatcher record whose userId matches the
// acting user. No match means the user cannot create assignments at all.
func ResolveDispatcher(ctx context.Context, dispatchers FeatureQuerier, username string) (int64, error) {
	id, found, err := resolveUserID(ctx, dispatchers, username)
	if err != nil {
		return 0, errors.NewRemoteServiceError("dispatcher lookup", err)
	}
	if !found {
		return 0, errors.NewDispatcherNotFoundError(username)
	}
	return id, nil
}

// ResolveWorker finds the worker record whose userId matches the given
// username. No match aborts the whole run; records are never silently
// dropped.
func ResolveWorker(ctx context.Context, workers FeatureQuerier, username string) (int64, error) {
	id, found, err := resolveUserID(ctx, workers, username)
	if err != nil {
		return 0, errors.NewRemoteServiceError("worker lookup", err)
	}
	if !found {
		return 0, errors.NewWorkerNotFoundError(username)
	}
	return id, nil
}

func resolveUserID(ctx context.Context, layer FeatureQuerier, username string) (int64, bool, error) {
	where := fmt.Sprintf("userId='%s'", strings.ReplaceAll(username, "'", "''"))
	features, err := layer.Query(ctx, where)
	if err != nil {
		return 0, false, err
	}
	if len(features) == 0 {
		return 0, false, nil
	}
	id, ok := features[0].ObjectID()
	if !ok {
		return 0, false, fmt.Errorf("record for %q has no OBJECTID", username)
	}
	return id, true, nil
}

func collectIDs(set IDSet, features []arcgis.Feature) error {
	for _, f := range features {
		id, ok := f.ObjectID()
		if !ok {
			return fmt.Errorf("record has no OBJECTID")
		}
		set[id] = struct{}{}
	}
	return nil
}

func codeSet(domain *arcgis.Domain) CodeSet {
	if domain == nil {
		return nil
	}
	set := make(CodeSet, len(domain.CodedValues))
	for _, cv := range domain.CodedValues {
		set[cv.Code] = struct{}{}
	}
	return set
}
