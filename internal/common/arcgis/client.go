// Package arcgis binds the subset of the ArcGIS-style REST API the importer
// needs: token authentication, project item resolution, layer queries, bulk
// feature inserts and attachment uploads.
//
// The service reports most failures inside HTTP 200 bodies as an "error"
// document, so every response is checked for one before decoding.
package arcgis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"workforce-import/internal/common/errors"
	"workforce-import/internal/common/httpclient"
)

const tokenLifetimeMinutes = 60

// Client is an authenticated session against one org portal.
type Client struct {
	orgURL     string
	httpClient *httpclient.Client
	token      string
}

// NewClient builds an unauthenticated client for the given org URL.
func NewClient(orgURL string, timeout time.Duration) *Client {
	return &Client{
		orgURL:     strings.TrimRight(orgURL, "/"),
		httpClient: httpclient.New(timeout),
	}
}

// Authenticate requests a session token for the given credentials. All
// subsequent calls carry the token.
func (c *Client) Authenticate(ctx context.Context, username, password string) error {
	form := url.Values{
		"username":   {username},
		"password":   {password},
		"referer":    {c.orgURL},
		"expiration": {fmt.Sprintf("%d", tokenLifetimeMinutes)},
		"f":          {"json"},
	}

	var tokenResp struct {
		Token   string `json:"token"`
		Expires int64  `json:"expires"`
	}
	if err := c.postForm(ctx, c.orgURL+"/sharing/rest/generateToken", form, &tokenResp); err != nil {
		return errors.NewAuthenticationError(err.Error())
	}
	if tokenResp.Token == "" {
		return errors.NewAuthenticationError("token response contained no token")
	}

	c.token = tokenResp.Token
	return nil
}

// projectDataSchema is the shape a workforce project item's data document
// must have before layer handles are constructed from it.
var projectDataSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"assignments", "dispatchers", "workers"},
	"properties": map[string]interface{}{
		"assignments": layerRefSchema,
		"dispatchers": layerRefSchema,
		"workers":     layerRefSchema,
	},
}

var layerRefSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"url"},
	"properties": map[string]interface{}{
		"url": map[string]interface{}{"type": "string", "minLength": 1},
	},
}

// ProjectData fetches and validates the data document of a project item,
// yielding the assignment, dispatcher and worker layer URLs.
func (c *Client) ProjectData(ctx context.Context, projectID string) (*ProjectData, error) {
	endpoint := fmt.Sprintf("%s/sharing/rest/content/items/%s/data", c.orgURL, projectID)

	var doc map[string]interface{}
	if err := c.get(ctx, endpoint, url.Values{}, &doc); err != nil {
		return nil, errors.NewRemoteServiceError("item data", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(projectDataSchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return nil, errors.NewProjectDataInvalidError(projectID, err.Error())
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, errors.NewProjectDataInvalidError(projectID, strings.Join(msgs, "; "))
	}

	raw, _ := json.Marshal(doc)
	var data ProjectData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, errors.NewProjectDataInvalidError(projectID, err.Error())
	}
	return &data, nil
}

// Layer returns a handle on one feature layer of the service.
func (c *Client) Layer(layerURL string) *FeatureLayer {
	return &FeatureLayer{
		url:    strings.TrimRight(layerURL, "/"),
		client: c,
	}
}

// get issues a GET with f=json and the session token, decoding into out.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	params.Set("f", "json")
	if c.token != "" {
		params.Set("token", c.token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

// postForm issues a form-encoded POST, decoding into out.
func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values, out interface{}) error {
	if c.token != "" {
		form.Set("token", c.token)
	}
	form.Set("f", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	// Service-level failures ride in 200 responses.
	var errEnvelope struct {
		Error *ServiceError `json:"error"`
	}
	if err := json.Unmarshal(body, &errEnvelope); err == nil && errEnvelope.Error != nil {
		return fmt.Errorf("service error %d: %s", errEnvelope.Error.Code, errEnvelope.Error.Message)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
