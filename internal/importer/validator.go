package importer

import (
	"fmt"
	"os"
	"path/filepath"

	"workforce-import/internal/common/errors"
)

// Validation rule names, reported on the first failing record.
const (
	RuleStatus         = "status"
	RulePriority       = "priority"
	RuleAssignmentType = "assignmentType"
	RuleDispatcher     = "dispatcherId"
	RuleWorker         = "workerId"
	RuleAttachment     = "attachmentFile"
)

// ValidateBatch checks every candidate against the reference snapshot, in
// input order, rule by rule. This is an all-or-nothing gate: the first
// violation aborts with a validation error naming the row and rule, and
// nothing is submitted.
func ValidateBatch(refs *ReferenceSets, assignments []*Assignment) error {
	for _, a := range assignments {
		if err := validateAssignment(refs, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssignment(refs *ReferenceSets, a *Assignment) error {
	if refs.Statuses != nil && !refs.Statuses.Contains(a.Status) {
		return errors.NewValidationError(a.Row, RuleStatus,
			fmt.Sprintf("status %d is not a valid status code", a.Status))
	}
	if a.Priority != nil && refs.Priorities != nil && !refs.Priorities.Contains(*a.Priority) {
		return errors.NewValidationError(a.Row, RulePriority,
			fmt.Sprintf("priority %d is not a valid priority code", *a.Priority))
	}
	if refs.AssignmentTypes != nil && !refs.AssignmentTypes.Contains(a.AssignmentType) {
		return errors.NewValidationError(a.Row, RuleAssignmentType,
			fmt.Sprintf("assignment type %d is not a valid type code", a.AssignmentType))
	}
	if a.DispatcherID == nil {
		return errors.NewValidationError(a.Row, RuleDispatcher, "dispatcherId is not set")
	}
	if !refs.Dispatchers.Contains(*a.DispatcherID) {
		return errors.NewValidationError(a.Row, RuleDispatcher,
			fmt.Sprintf("dispatcher %d is not a known dispatcher", *a.DispatcherID))
	}
	if a.WorkerUsername != "" {
		if a.WorkerID == nil {
			return errors.NewValidationError(a.Row, RuleWorker,
				fmt.Sprintf("worker %q was never resolved", a.WorkerUsername))
		}
		if !refs.Workers.Contains(*a.WorkerID) {
			return errors.NewValidationError(a.Row, RuleWorker,
				fmt.Sprintf("worker %d is not a known worker", *a.WorkerID))
		}
	}
	if a.AttachmentFile != "" {
		path, err := filepath.Abs(a.AttachmentFile)
		if err != nil {
			return errors.NewValidationError(a.Row, RuleAttachment, err.Error())
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return errors.NewValidationError(a.Row, RuleAttachment,
				fmt.Sprintf("attachment file not found: %s", path))
		}
	}
	return nil
}
