package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultImgBBEndpoint = "https://api.imgbb.com/1/upload"

	uploadConcurrency = 3
)

var ErrUploadFailed = errors.New("image upload failed")

var imageUploads = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "armline_image_uploads_total",
	Help: "Evidence image uploads by outcome.",
}, []string{"status"})

// Image is one evidence file in memory.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// ImageHost stores an image somewhere publicly reachable and returns its URL.
type ImageHost interface {
	Upload(ctx context.Context, img Image) (string, error)
}

// ImgBBHost uploads to an ImgBB-compatible API.
type ImgBBHost struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewImgBBHost(endpoint, apiKey string, client *http.Client) *ImgBBHost {
	if endpoint == "" {
		endpoint = DefaultImgBBEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &ImgBBHost{endpoint: endpoint, apiKey: apiKey, client: client}
}

type imgbbResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (h *ImgBBHost) Upload(ctx context.Context, img Image) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("key", h.apiKey); err != nil {
		return "", err
	}
	part, err := w.CreateFormFile("image", img.Name)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(img.Data); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	var result imgbbResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: unreadable response (HTTP %d)", ErrUploadFailed, resp.StatusCode)
	}
	if !result.Success || result.Data.URL == "" {
		msg := result.Error.Message
		if msg == "" {
			msg = "unknown error"
		}
		return "", fmt.Errorf("%w: %s", ErrUploadFailed, msg)
	}
	return result.Data.URL, nil
}

// S3Config selects an S3-compatible bucket.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// PublicBaseURL, when set, replaces the uploader's object location in returned URLs.
	PublicBaseURL string
}

// S3Host uploads evidence to an S3-compatible bucket.
type S3Host struct {
	uploader      *manager.Uploader
	bucket        string
	publicBaseURL string
}

func NewS3Host(ctx context.Context, c S3Config) (*S3Host, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(c.Region)}
	if c.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Host{
		uploader:      manager.NewUploader(client),
		bucket:        c.Bucket,
		publicBaseURL: strings.TrimRight(c.PublicBaseURL, "/"),
	}, nil
}

func (h *S3Host) Upload(ctx context.Context, img Image) (string, error) {
	key := objectKey(img)
	out, err := h.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(h.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(img.Data),
		ContentType: aws.String(img.ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if h.publicBaseURL != "" {
		return h.publicBaseURL + "/" + key, nil
	}
	return out.Location, nil
}

func objectKey(img Image) string {
	ext := strings.ToLower(path.Ext(img.Name))
	if ext == "" {
		switch img.ContentType {
		case "image/png":
			ext = ".png"
		default:
			ext = ".jpg"
		}
	}
	return "evidence/" + time.Now().UTC().Format("2006/01/") + uuid.NewString() + ext
}

// EvidenceService uploads the images of one submission.
type EvidenceService struct {
	host   ImageHost
	logger *zap.Logger
}

func NewEvidenceService(host ImageHost, logger *zap.Logger) *EvidenceService {
	return &EvidenceService{host: host, logger: logger.Named("evidence")}
}

// UploadAll uploads images concurrently and returns their URLs in the order
// given. The first failure cancels the remaining uploads.
func (s *EvidenceService) UploadAll(ctx context.Context, images []Image) ([]string, error) {
	urls := make([]string, len(images))
	if len(images) == 0 {
		return urls, nil
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(uploadConcurrency)
	for i, img := range images {
		i, img := i, img
		eg.Go(func() error {
			url, err := s.host.Upload(ctx, img)
			if err != nil {
				imageUploads.WithLabelValues("error").Inc()
				s.logger.Warn("image upload failed", zap.String("file", img.Name), zap.Error(err))
				return err
			}
			imageUploads.WithLabelValues("ok").Inc()
			urls[i] = url
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}
