package restapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/foxseedlab/mojistream/internal/transcript"
	"github.com/foxseedlab/mojistream/internal/upload"
)

const (
	transcribePath = "/transcribe"
	requestTimeout = 120 * time.Second
)

type Uploader struct {
	endpoint string
	client   *http.Client
}

var _ upload.Transcriber = (*Uploader)(nil)

func NewUploader(baseURL string) *Uploader {
	return &Uploader{
		endpoint: strings.TrimRight(baseURL, "/") + transcribePath,
		client:   &http.Client{Timeout: requestTimeout},
	}
}

func (u *Uploader) Transcribe(ctx context.Context, wav []byte) ([]transcript.Line, error) {
	body, contentType, err := multipartBody(wav)
	if err != nil {
		return nil, fmt.Errorf("build upload body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("transcribe returned status %d", resp.StatusCode)
	}
	return upload.DecodeResponse(respBody)
}

func multipartBody(wav []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, upload.FieldName, upload.FileName))
	h.Set("Content-Type", upload.ContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(wav); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
