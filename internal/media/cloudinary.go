// Package media proxies product image uploads to Cloudinary using its
// signed upload HTTP API.
package media

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/FilipeAphrody/cartify/internal/config"
	"github.com/FilipeAphrody/cartify/internal/domain"
)

const defaultBaseURL = "https://api.cloudinary.com/v1_1"

// CloudinaryStore implements domain.MediaStore against the Cloudinary REST
// API: multipart upload with a SHA-1 request signature.
type CloudinaryStore struct {
	cfg     config.CloudinaryConfig
	client  *http.Client
	baseURL string
	logger  *zap.Logger
	now     func() time.Time
}

// NewCloudinaryStore creates the media client. A nil httpClient falls back
// to a client with a request timeout.
func NewCloudinaryStore(cfg config.CloudinaryConfig, httpClient *http.Client, logger *zap.Logger) *CloudinaryStore {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &CloudinaryStore{
		cfg:     cfg,
		client:  httpClient,
		baseURL: defaultBaseURL,
		logger:  logger,
		now:     time.Now,
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload sends the image bytes to the signed upload endpoint and returns
// the hosted asset reference.
func (s *CloudinaryStore) Upload(ctx context.Context, data []byte, filename string) (*domain.ProductImage, error) {
	timestamp := strconv.FormatInt(s.now().Unix(), 10)
	params := map[string]string{
		"folder":    s.cfg.Folder,
		"timestamp": timestamp,
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range params {
		if err := writer.WriteField(key, value); err != nil {
			return nil, err
		}
	}
	if err := writer.WriteField("api_key", s.cfg.APIKey); err != nil {
		return nil, err
	}
	if err := writer.WriteField("signature", signParams(params, s.cfg.APISecret)); err != nil {
		return nil, err
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s/image/upload", s.baseURL, s.cfg.CloudName)
	resp, err := s.post(ctx, endpoint, writer.FormDataContentType(), &body)
	if err != nil {
		return nil, err
	}
	if resp.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload: %s", resp.Error.Message)
	}

	s.logger.Debug("image uploaded", zap.String("public_id", resp.PublicID))
	return &domain.ProductImage{URL: resp.SecureURL, PublicID: resp.PublicID}, nil
}

// Destroy deletes a hosted asset by its public id.
func (s *CloudinaryStore) Destroy(ctx context.Context, publicID string) error {
	timestamp := strconv.FormatInt(s.now().Unix(), 10)
	params := map[string]string{
		"public_id": publicID,
		"timestamp": timestamp,
	}

	form := url.Values{}
	for key, value := range params {
		form.Set(key, value)
	}
	form.Set("api_key", s.cfg.APIKey)
	form.Set("signature", signParams(params, s.cfg.APISecret))

	endpoint := fmt.Sprintf("%s/%s/image/destroy", s.baseURL, s.cfg.CloudName)
	resp, err := s.post(ctx, endpoint, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	if resp.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy: %s", resp.Error.Message)
	}
	return nil
}

func (s *CloudinaryStore) post(ctx context.Context, endpoint, contentType string, body io.Reader) (*uploadResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	httpResp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cloudinary request: %w", err)
	}
	defer httpResp.Body.Close()

	var resp uploadResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("cloudinary response: %w", err)
	}
	if httpResp.StatusCode >= 400 && resp.Error.Message == "" {
		return nil, fmt.Errorf("cloudinary status %d", httpResp.StatusCode)
	}
	return &resp, nil
}

// signParams produces the Cloudinary request signature: the SHA-1 of the
// sorted key=value pairs joined by '&', with the API secret appended.
func signParams(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+params[key])
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}
