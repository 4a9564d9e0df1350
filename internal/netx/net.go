// Package netx holds the client half of the icon upload flow: ask the API
// for a presigned URL, then PUT the bytes straight to object storage.
package netx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// IconTarget is the API's answer to an icon upload request.
type IconTarget struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// RequestIconUpload calls POST <apiBase>/api/servicios/icons. token may be empty
// when the API runs without authentication.
func RequestIconUpload(ctx context.Context, client *http.Client, apiBase, token string) (*IconTarget, error) {
	endpoint := strings.TrimRight(apiBase, "/") + "/api/servicios/icons"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("icon upload request failed: %s; body: %s", resp.Status, string(b))
	}

	var target IconTarget
	if err := json.NewDecoder(resp.Body).Decode(&target); err != nil {
		return nil, fmt.Errorf("decode icon upload target: %w", err)
	}
	return &target, nil
}

// UploadToPresignedURL PUTs file to a presigned object storage URL.
func UploadToPresignedURL(ctx context.Context, client *http.Client, url, contentType string, file []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(file))
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}
	return nil
}
