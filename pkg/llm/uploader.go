package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/andrew/mindful-chat/pkg/models"
)

// ErrUpload marks a missing or unreadable image file, or a failed
// upload to the hosting endpoint.
var ErrUpload = errors.New("upload")

// HTTPUploader posts image files to a hosting endpoint and returns the
// hosted URL as an attachment.
type HTTPUploader struct {
	endpoint   string
	bearer     string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewHTTPUploader creates an uploader for the given endpoint.
func NewHTTPUploader(endpoint, bearer string, log zerolog.Logger) *HTTPUploader {
	return &HTTPUploader{
		endpoint: endpoint,
		bearer:   bearer,
		httpClient: &http.Client{
			Timeout: time.Minute,
		},
		log: log,
	}
}

// Upload reads the file at path, posts it as multipart form data, and
// returns an attachment referencing the hosted copy.
func (u *HTTPUploader) Upload(ctx context.Context, path string) (models.Attachment, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("%w: %s: %v", ErrUpload, path, err)
	}
	defer f.Close()

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	part, err := mw.CreateFormFile("files", "file.jpg")
	if err != nil {
		return models.Attachment{}, fmt.Errorf("%w: building form: %v", ErrUpload, err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return models.Attachment{}, fmt.Errorf("%w: reading %s: %v", ErrUpload, path, err)
	}
	if err := mw.Close(); err != nil {
		return models.Attachment{}, fmt.Errorf("%w: building form: %v", ErrUpload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, &form)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("%w: creating request: %v", ErrUpload, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if u.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+u.bearer)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("%w: %s: %v", ErrUpload, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return models.Attachment{}, fmt.Errorf("%w: %s: status %d: %s", ErrUpload, path, resp.StatusCode, bytes.TrimSpace(body))
	}

	var result map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return models.Attachment{}, fmt.Errorf("%w: %s: decoding response: %v", ErrUpload, path, err)
	}
	url := result["file.jpg"]
	if url == "" {
		return models.Attachment{}, fmt.Errorf("%w: %s: response carried no hosted url", ErrUpload, path)
	}

	u.log.Debug().Str("path", path).Str("url", url).Msg("uploaded image")

	return models.Attachment{
		Kind:       models.AttachmentKindImage,
		URL:        url,
		SourcePath: path,
	}, nil
}
