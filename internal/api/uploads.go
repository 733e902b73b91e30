package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// UploadedFile describes a stored attachment.
type UploadedFile struct {
	FileName     string `json:"file_name"`
	OriginalName string `json:"original_name"`
	Path         string `json:"path"`
	URL          string `json:"url"`
	Size         int64  `json:"size"`
	ContentType  string `json:"content_type"`
}

// UploadFile posts one file to the upload endpoint as multipart form data.
func (c *Client) UploadFile(ctx context.Context, name, contentType string, r io.Reader) (UploadedFile, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return UploadedFile{}, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return UploadedFile{}, err
	}
	if err := writer.Close(); err != nil {
		return UploadedFile{}, err
	}

	endpoint, err := c.buildURL("/files/upload", nil)
	if err != nil {
		return UploadedFile{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return UploadedFile{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return UploadedFile{}, err
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return UploadedFile{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload apiErrorPayload
		if err := json.Unmarshal(respData, &payload); err == nil {
			apiErr.Code = payload.Error
			apiErr.Message = payload.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(respData))
		}
		return UploadedFile{}, apiErr
	}

	var uploaded UploadedFile
	if err := json.Unmarshal(respData, &uploaded); err != nil {
		return UploadedFile{}, err
	}
	return uploaded, nil
}
