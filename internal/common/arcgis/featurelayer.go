package arcgis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
)

// FeatureLayer is a handle on one queryable collection of the service.
type FeatureLayer struct {
	url    string
	client *Client
}

// URL returns the layer endpoint this handle points at.
func (l *FeatureLayer) URL() string {
	return l.url
}

// Query returns the layer's features matching the where clause, in service
// order. An empty where selects everything.
func (l *FeatureLayer) Query(ctx context.Context, where string) ([]Feature, error) {
	if where == "" {
		where = "1=1"
	}
	params := url.Values{
		"where":     {where},
		"outFields": {"*"},
	}

	var queryResp struct {
		Features []Feature `json:"features"`
	}
	if err := l.client.get(ctx, l.url+"/query", params, &queryResp); err != nil {
		return nil, err
	}
	return queryResp.Features, nil
}

// Fields returns the layer's field metadata, including coded-value domains.
func (l *FeatureLayer) Fields(ctx context.Context) ([]Field, error) {
	var meta struct {
		Fields []Field `json:"fields"`
	}
	if err := l.client.get(ctx, l.url, url.Values{}, &meta); err != nil {
		return nil, err
	}
	return meta.Fields, nil
}

// AddFeatures inserts the given features in one bulk call. The service
// returns one result per feature, in submission order.
func (l *FeatureLayer) AddFeatures(ctx context.Context, features []Feature) ([]AddResult, error) {
	payload, err := json.Marshal(features)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal features: %w", err)
	}

	form := url.Values{
		"features": {string(payload)},
	}

	var addResp struct {
		AddResults []AddResult `json:"addResults"`
	}
	if err := l.client.postForm(ctx, l.url+"/addFeatures", form, &addResp); err != nil {
		return nil, err
	}
	return addResp.AddResults, nil
}

// AddAttachment uploads the file at path against an existing feature.
func (l *FeatureLayer) AddAttachment(ctx context.Context, objectID int64, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open attachment: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("attachment", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to read attachment: %w", err)
	}
	_ = writer.WriteField("f", "json")
	if l.client.token != "" {
		_ = writer.WriteField("token", l.client.token)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%d/addAttachment", l.url, objectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var attachResp struct {
		AddAttachmentResult *AddResult `json:"addAttachmentResult"`
	}
	if err := l.client.do(req, &attachResp); err != nil {
		return err
	}
	if attachResp.AddAttachmentResult == nil {
		return fmt.Errorf("attachment response missing result")
	}
	if !attachResp.AddAttachmentResult.Success {
		if attachResp.AddAttachmentResult.Error != nil {
			return attachResp.AddAttachmentResult.Error
		}
		return fmt.Errorf("attachment upload rejected")
	}
	return nil
}
