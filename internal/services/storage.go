package services

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/freightflow/freightflow-backend/pkg/logger"
	"github.com/google/uuid"
)

var (
	s3Session *session.Session
	s3Client  *s3.S3
	useS3     bool
	baseURL   string
	uploadDir string
)

// uploadURLExpiry is how long a presigned document upload URL stays valid.
const uploadURLExpiry = 15 * time.Minute

// InitStorage initializes either S3 or local storage based on configuration
func InitStorage() error {
	awsRegion := os.Getenv("AWS_REGION")
	awsAccessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	awsSecretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")

	if awsRegion != "" && awsAccessKey != "" && awsSecretKey != "" {
		sess, err := session.NewSession(&aws.Config{
			Region: aws.String(awsRegion),
			Credentials: credentials.NewStaticCredentials(
				awsAccessKey,
				awsSecretKey,
				"", // Token (optional)
			),
		})
		if err != nil {
			return fmt.Errorf("failed to create AWS session: %v", err)
		}

		s3Session = sess
		s3Client = s3.New(sess)
		useS3 = true

		logger.L.Info("AWS S3 storage initialized")
		return nil
	}

	// Fallback to local storage
	useS3 = false
	uploadDir = os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "/app/uploads"
	}
	baseURL = os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	if err := os.MkdirAll(filepath.Join(uploadDir, "documents"), 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %v", err)
	}

	logger.L.Warn("AWS S3 not configured, using local file storage")
	return nil
}

// UploadTarget is the endpoint a client should PUT a document to, plus
// the URL the stored file will be reachable at afterwards.
type UploadTarget struct {
	UploadURL string `json:"uploadUrl"`
	FileURL   string `json:"fileUrl"`
	ExpiresIn int64  `json:"expiresIn"` // seconds
}

// NewDocumentUploadTarget returns a presigned S3 PUT URL for a document
// upload, or a local upload endpoint when S3 is not configured. The
// object key embeds the load so bucket listings group by shipment.
func NewDocumentUploadTarget(loadID uint, fileName, mimeType string) (*UploadTarget, error) {
	key := fmt.Sprintf("documents/load-%d/%s%s", loadID, uuid.NewString(), filepath.Ext(fileName))

	if useS3 {
		bucketName := os.Getenv("AWS_S3_BUCKET")
		if bucketName == "" {
			return nil, fmt.Errorf("S3 bucket name not configured")
		}

		req, _ := s3Client.PutObjectRequest(&s3.PutObjectInput{
			Bucket:      aws.String(bucketName),
			Key:         aws.String(key),
			ContentType: aws.String(mimeType),
		})
		uploadURL, err := req.Presign(uploadURLExpiry)
		if err != nil {
			return nil, fmt.Errorf("failed to presign upload: %v", err)
		}

		region := os.Getenv("AWS_REGION")
		return &UploadTarget{
			UploadURL: uploadURL,
			FileURL:   fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucketName, region, key),
			ExpiresIn: int64(uploadURLExpiry.Seconds()),
		}, nil
	}

	return &UploadTarget{
		UploadURL: fmt.Sprintf("%s/uploads/%s", baseURL, key),
		FileURL:   fmt.Sprintf("%s/uploads/%s", baseURL, key),
		ExpiresIn: int64(uploadURLExpiry.Seconds()),
	}, nil
}
