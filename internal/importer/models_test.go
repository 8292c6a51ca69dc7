package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignmentFeature_MinimalRecord(t *testing.T) {
	a := &Assignment{
		Row:            1,
		Geometry:       arcgisPoint(-118.15, 33.8, 4326),
		AssignmentType: 2,
		Location:       "100 Main St",
		Status:         StatusUnassigned,
	}

	feature := a.Feature()

	// A record with no optional fields carries exactly these attributes,
	// with assignmentRead present and null.
	require.Len(t, feature.Attributes, 4)
	assert.Equal(t, 2, feature.Attributes["assignmentType"])
	assert.Equal(t, "100 Main St", feature.Attributes["location"])
	assert.Equal(t, StatusUnassigned, feature.Attributes["status"])
	read, present := feature.Attributes["assignmentRead"]
	assert.True(t, present)
	assert.Nil(t, read)

	require.NotNil(t, feature.Geometry)
	assert.Equal(t, -118.15, feature.Geometry.X)
	assert.Equal(t, 33.8, feature.Geometry.Y)
	assert.Equal(t, 4326, feature.Geometry.SpatialReference.WKID)
}

func TestAssignmentFeature_AllOptionalFields(t *testing.T) {
	dispatcherID := int64(7)
	description := "Check the valve"
	priority := 3
	workOrderID := "WO-42"
	dueDate := "01/15/2024 23:59:59"
	workerID := int64(12)
	assignedDate := "01/10/2024 16:00:00"

	a := &Assignment{
		Row:            1,
		Geometry:       arcgisPoint(-118.15, 33.8, 4326),
		AssignmentType: 2,
		Location:       "100 Main St",
		Status:         StatusAssigned,
		DispatcherID:   &dispatcherID,
		Description:    &description,
		Priority:       &priority,
		WorkOrderID:    &workOrderID,
		DueDate:        &dueDate,
		WorkerID:       &workerID,
		AssignedDate:   &assignedDate,
		WorkerUsername: "jdoe",
		AttachmentFile: "/tmp/photo.png",
	}

	feature := a.Feature()

	require.Len(t, feature.Attributes, 11)
	assert.Equal(t, int64(7), feature.Attributes["dispatcherId"])
	assert.Equal(t, "Check the valve", feature.Attributes["description"])
	assert.Equal(t, 3, feature.Attributes["priority"])
	assert.Equal(t, "WO-42", feature.Attributes["workOrderId"])
	assert.Equal(t, "01/15/2024 23:59:59", feature.Attributes["dueDate"])
	assert.Equal(t, int64(12), feature.Attributes["workerId"])
	assert.Equal(t, "01/10/2024 16:00:00", feature.Attributes["assignedDate"])

	// Transient routing data never reaches the wire.
	assert.NotContains(t, feature.Attributes, "workerUsername")
	assert.NotContains(t, feature.Attributes, "attachmentFile")
}

func TestAssignmentFeature_GeometryIsCopied(t *testing.T) {
	a := &Assignment{
		Geometry:       arcgisPoint(-118.15, 33.8, 4326),
		AssignmentType: 1,
	}
	feature := a.Feature()
	feature.Geometry.X = 0

	assert.Equal(t, -118.15, a.Geometry.X)
}
