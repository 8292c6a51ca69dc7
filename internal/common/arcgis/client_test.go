package arcgis

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workforce-import/internal/common/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, 5*time.Second), server
}

// ==========================
// Authentication Tests
// ==========================

func TestAuthenticate(t *testing.T) {
	var gotForm map[string]string

	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/sharing/rest/generateToken", r.URL.Path)
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"username":   r.PostForm.Get("username"),
			"password":   r.PostForm.Get("password"),
			"referer":    r.PostForm.Get("referer"),
			"expiration": r.PostForm.Get("expiration"),
			"f":          r.PostForm.Get("f"),
		}
		w.Write([]byte(`{"token":"abc123","expires":1700000000000}`))
	})

	err := client.Authenticate(context.Background(), "alice", "hunter2")
	require.NoError(t, err)

	assert.Equal(t, "alice", gotForm["username"])
	assert.Equal(t, "hunter2", gotForm["password"])
	assert.Equal(t, server.URL, gotForm["referer"])
	assert.Equal(t, "60", gotForm["expiration"])
	assert.Equal(t, "json", gotForm["f"])
}

func TestAuthenticate_ServiceError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Rejections come back as an error document in a 200 response.
		w.Write([]byte(`{"error":{"code":400,"message":"Unable to generate token.","details":["Invalid username or password."]}}`))
	})

	err := client.Authenticate(context.Background(), "alice", "wrong")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeAuthenticationFailed))
	assert.Contains(t, errors.AsStandard(err).Details, "Unable to generate token")
}

func TestAuthenticate_EmptyToken(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	err := client.Authenticate(context.Background(), "alice", "hunter2")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeAuthenticationFailed))
}

func TestAuthenticatedRequestsCarryToken(t *testing.T) {
	var gotToken string

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sharing/rest/generateToken":
			w.Write([]byte(`{"token":"abc123"}`))
		default:
			gotToken = r.URL.Query().Get("token")
			w.Write([]byte(`{"assignments":{"url":"http://svc/0"},"dispatchers":{"url":"http://svc/1"},"workers":{"url":"http://svc/2"}}`))
		}
	})

	require.NoError(t, client.Authenticate(context.Background(), "alice", "hunter2"))
	_, err := client.ProjectData(context.Background(), "proj1")
	require.NoError(t, err)
	assert.Equal(t, "abc123", gotToken)
}

// ==========================
// Project Data Tests
// ==========================

func TestProjectData(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sharing/rest/content/items/proj1/data", r.URL.Path)
		require.Equal(t, "json", r.URL.Query().Get("f"))
		w.Write([]byte(`{
			"assignments": {"url": "http://svc/FeatureServer/0"},
			"dispatchers": {"url": "http://svc/FeatureServer/2"},
			"workers": {"url": "http://svc/FeatureServer/1"},
			"version": "1.2.0"
		}`))
	})

	data, err := client.ProjectData(context.Background(), "proj1")
	require.NoError(t, err)

	assert.Equal(t, "http://svc/FeatureServer/0", data.Assignments.URL)
	assert.Equal(t, "http://svc/FeatureServer/2", data.Dispatchers.URL)
	assert.Equal(t, "http://svc/FeatureServer/1", data.Workers.URL)
}

func TestProjectData_InvalidDocument(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "missing workers layer",
			body: `{"assignments":{"url":"http://svc/0"},"dispatchers":{"url":"http://svc/1"}}`,
		},
		{
			name: "empty layer url",
			body: `{"assignments":{"url":""},"dispatchers":{"url":"http://svc/1"},"workers":{"url":"http://svc/2"}}`,
		},
		{
			name: "layer reference without url",
			body: `{"assignments":{},"dispatchers":{"url":"http://svc/1"},"workers":{"url":"http://svc/2"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			_, err := client.ProjectData(context.Background(), "proj1")
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeProjectDataInvalid))
		})
	}
}

func TestProjectData_NotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"code":400,"message":"Item does not exist or is inaccessible."}}`))
	})

	_, err := client.ProjectData(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeRemoteServiceError))
}

// ==========================
// Feature Layer Tests
// ==========================

func TestLayerQuery(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/FeatureServer/2/query", r.URL.Path)
		assert.Equal(t, "userId='alice'", r.URL.Query().Get("where"))
		assert.Equal(t, "*", r.URL.Query().Get("outFields"))
		w.Write([]byte(`{"features":[{"attributes":{"OBJECTID":3,"userId":"alice"}}]}`))
	})

	features, err := client.Layer(client.orgURL+"/FeatureServer/2").Query(context.Background(), "userId='alice'")
	require.NoError(t, err)
	require.Len(t, features, 1)

	id, ok := features[0].ObjectID()
	require.True(t, ok)
	assert.Equal(t, int64(3), id)
	assert.Equal(t, "alice", features[0].StringAttr("userId"))
}

func TestLayerQuery_EmptyWhereSelectsAll(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1=1", r.URL.Query().Get("where"))
		w.Write([]byte(`{"features":[]}`))
	})

	features, err := client.Layer(client.orgURL+"/FeatureServer/2").Query(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, features)
}

func TestLayerFields(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/FeatureServer/0", r.URL.Path)
		w.Write([]byte(`{"fields":[
			{"name":"OBJECTID","type":"esriFieldTypeOID"},
			{"name":"status","type":"esriFieldTypeInteger","domain":{"type":"codedValue","name":"statusDomain","codedValues":[
				{"name":"Unassigned","code":0},
				{"name":"Assigned","code":1}
			]}},
			{"name":"location","type":"esriFieldTypeString"}
		]}`))
	})

	fields, err := client.Layer(client.orgURL + "/FeatureServer/0").Fields(context.Background())
	require.NoError(t, err)
	require.Len(t, fields, 3)

	assert.Nil(t, fields[0].Domain)
	require.NotNil(t, fields[1].Domain)
	assert.Equal(t, "codedValue", fields[1].Domain.Type)
	require.Len(t, fields[1].Domain.CodedValues, 2)
	assert.Equal(t, 1, fields[1].Domain.CodedValues[1].Code)
}

func TestLayerAddFeatures(t *testing.T) {
	var gotFeatures string

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/FeatureServer/0/addFeatures", r.URL.Path)
		require.NoError(t, r.ParseForm())
		gotFeatures = r.PostForm.Get("features")
		assert.Equal(t, "json", r.PostForm.Get("f"))
		w.Write([]byte(`{"addResults":[{"objectId":101,"success":true},{"objectId":102,"success":true}]}`))
	})

	features := []Feature{
		{
			Geometry: &Geometry{X: -118.15, Y: 33.8, SpatialReference: SpatialReference{WKID: 4326}},
			Attributes: map[string]interface{}{
				"assignmentType": 1,
				"location":       "100 Main St",
				"status":         0,
				"assignmentRead": nil,
			},
		},
		{
			Geometry:   &Geometry{X: -118.16, Y: 33.9, SpatialReference: SpatialReference{WKID: 4326}},
			Attributes: map[string]interface{}{"assignmentType": 2, "location": "200 Elm St", "status": 0},
		},
	}

	results, err := client.Layer(client.orgURL+"/FeatureServer/0").AddFeatures(context.Background(), features)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, int64(101), results[0].ObjectID)
	assert.Equal(t, int64(102), results[1].ObjectID)

	assert.Contains(t, gotFeatures, `"location":"100 Main St"`)
	assert.Contains(t, gotFeatures, `"assignmentRead":null`)
	assert.Contains(t, gotFeatures, `"wkid":4326`)
}

func TestLayerAddFeatures_ServiceError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"code":500,"message":"Unable to complete operation."}}`))
	})

	_, err := client.Layer(client.orgURL+"/FeatureServer/0").AddFeatures(context.Background(), []Feature{{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unable to complete operation")
}

func TestLayerAddAttachment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.png")
	require.NoError(t, os.WriteFile(path, []byte("png-bytes"), 0o644))

	var gotFilename, gotContent, gotToken string

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sharing/rest/generateToken":
			w.Write([]byte(`{"token":"abc123"}`))
		case "/FeatureServer/0/101/addAttachment":
			require.NoError(t, r.ParseMultipartForm(1 << 20))
			gotToken = r.PostFormValue("token")
			assert.Equal(t, "json", r.PostFormValue("f"))

			file, header, err := r.FormFile("attachment")
			require.NoError(t, err)
			defer file.Close()
			gotFilename = header.Filename
			content, err := io.ReadAll(file)
			require.NoError(t, err)
			gotContent = string(content)

			w.Write([]byte(`{"addAttachmentResult":{"objectId":1,"success":true}}`))
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
		}
	})

	require.NoError(t, client.Authenticate(context.Background(), "alice", "hunter2"))
	err := client.Layer(client.orgURL+"/FeatureServer/0").AddAttachment(context.Background(), 101, path)
	require.NoError(t, err)

	assert.Equal(t, "photo.png", gotFilename)
	assert.Equal(t, "png-bytes", gotContent)
	assert.Equal(t, "abc123", gotToken)
}

func TestLayerAddAttachment_Rejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o644))

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"addAttachmentResult":{"success":false,"error":{"code":400,"message":"Attachment size exceeds limit"}}}`))
	})

	err := client.Layer(client.orgURL+"/FeatureServer/0").AddAttachment(context.Background(), 101, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Attachment size exceeds limit")
}

func TestLayerAddAttachment_MissingFile(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected when the file cannot be opened")
	})

	err := client.Layer(client.orgURL+"/FeatureServer/0").AddAttachment(
		context.Background(), 101, filepath.Join(t.TempDir(), "nope.png"))
	require.Error(t, err)
}

func TestClient_HTTPErrorStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	})

	_, err := client.Layer(client.orgURL+"/FeatureServer/0").Query(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
