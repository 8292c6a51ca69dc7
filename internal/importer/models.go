package importer

import "workforce-import/internal/common/arcgis"

// Assignment status codes, as declared by the service's status domain.
const (
	StatusUnassigned = 0
	StatusAssigned   = 1
)

// DateWireFormat is the service's timestamp wire format (MM/DD/YYYY HH:MM:SS),
// used for dueDate and assignedDate values, always in UTC.
const DateWireFormat = "01/02/2006 15:04:05"

// Assignment is one candidate record built from a CSV row. Optional
// attributes are pointers: a nil pointer means the attribute is omitted
// from the submitted record entirely, which is distinct from a present
// null or zero value.
type Assignment struct {
	// Row is the 1-based CSV data row this candidate came from, kept for
	// error reporting. The header row does not count.
	Row int

	Geometry arcgis.Geometry

	AssignmentType int
	Location       string
	Status         int

	DispatcherID *int64
	Description  *string
	Priority     *int
	WorkOrderID  *string
	DueDate      *string
	WorkerID     *int64
	AssignedDate *string

	// ObjectID is assigned from the service's bulk-insert response and is
	// nil until submission succeeds.
	ObjectID *int64

	// WorkerUsername and AttachmentFile are transient routing data, never
	// part of the submitted record. Empty string means none.
	WorkerUsername string
	AttachmentFile string
}

// Feature converts the candidate into the service's wire representation.
// Only present attributes get keys; assignmentRead is always present and
// null for a new assignment.
func (a *Assignment) Feature() arcgis.Feature {
	attrs := map[string]interface{}{
		"assignmentType": a.AssignmentType,
		"location":       a.Location,
		"status":         a.Status,
		"assignmentRead": nil,
	}
	if a.DispatcherID != nil {
		attrs["dispatcherId"] = *a.DispatcherID
	}
	if a.Description != nil {
		attrs["description"] = *a.Description
	}
	if a.Priority != nil {
		attrs["priority"] = *a.Priority
	}
	if a.WorkOrderID != nil {
		attrs["workOrderId"] = *a.WorkOrderID
	}
	if a.DueDate != nil {
		attrs["dueDate"] = *a.DueDate
	}
	if a.WorkerID != nil {
		attrs["workerId"] = *a.WorkerID
	}
	if a.AssignedDate != nil {
		attrs["assignedDate"] = *a.AssignedDate
	}

	geom := a.Geometry
	return arcgis.Feature{
		Geometry:   &geom,
		Attributes: attrs,
	}
}

func arcgisPoint(x, y float64, wkid int) arcgis.Geometry {
	return arcgis.Geometry{
		X:                x,
		Y:                y,
		SpatialReference: arcgis.SpatialReference{WKID: wkid},
	}
}

// Result summarizes a completed run.
type Result struct {
	Submitted   int
	Assigned    int
	Attachments int
	ObjectIDs   []int64
}
