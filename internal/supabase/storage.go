package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// StorageClient uploads and serves files from the backend storage buckets.
// Requests carry the caller's session bearer like every other request, so
// bucket policies apply to the signed-in user.
type StorageClient struct {
	client *Client
}

// Upload stores data under objectPath in the bucket. The object path may
// contain slashes; each segment is escaped individually.
func (s *StorageClient) Upload(ctx context.Context, bucket, objectPath string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	headers := map[string]string{
		"Content-Type": contentType,
	}

	urlStr := fmt.Sprintf("%s/object/%s/%s", s.client.storageURL, url.PathEscape(bucket), escapeObjectPath(objectPath))
	respBody, statusCode, _, err := s.client.request(ctx, "POST", urlStr, data, headers)
	if err != nil {
		return err
	}
	if statusCode >= 400 {
		return parseError(respBody, statusCode)
	}
	return nil
}

// Download fetches an object's raw bytes.
func (s *StorageClient) Download(ctx context.Context, bucket, objectPath string) ([]byte, error) {
	urlStr := fmt.Sprintf("%s/object/%s/%s", s.client.storageURL, url.PathEscape(bucket), escapeObjectPath(objectPath))
	respBody, statusCode, _, err := s.client.request(ctx, "GET", urlStr, nil, nil)
	if err != nil {
		return nil, err
	}
	if statusCode >= 400 {
		return nil, parseError(respBody, statusCode)
	}
	return respBody, nil
}

// Delete removes objects from the bucket.
func (s *StorageClient) Delete(ctx context.Context, bucket string, objectPaths []string) error {
	body, err := json.Marshal(map[string]interface{}{"prefixes": objectPaths})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	urlStr := s.client.storageURL + "/object/" + url.PathEscape(bucket)
	respBody, statusCode, _, err := s.client.request(ctx, "DELETE", urlStr, body, nil)
	if err != nil {
		return err
	}
	if statusCode >= 400 {
		return parseError(respBody, statusCode)
	}
	return nil
}

// PublicURL returns the unauthenticated URL of an object in a public bucket.
func (s *StorageClient) PublicURL(bucket, objectPath string) string {
	return fmt.Sprintf("%s/object/public/%s/%s", s.client.storageURL, url.PathEscape(bucket), escapeObjectPath(objectPath))
}

// escapeObjectPath escapes an object path segment by segment so that slashes
// keep their meaning.
func escapeObjectPath(p string) string {
	segments := strings.Split(p, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
