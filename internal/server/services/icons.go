package services

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sc "github.com/dmitrijs2005/servicios/internal/server/config"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

const iconUploadExpiry = 15 * time.Minute

// IconUpload is a presigned PUT target for a servicio icon. Key goes into
// Servicio.IconKey once the upload is done.
type IconUpload struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// IconService hands out presigned S3 upload URLs for servicio icons.
type IconService struct {
	config *sc.Config
}

func NewIconService(config *sc.Config) *IconService {
	return &IconService{config: config}
}

// NewIconKey returns a fresh object key of the form servicios/icons/YYYY/MM/DD/<uuid>.
func NewIconKey(now time.Time) string {
	return fmt.Sprintf("servicios/icons/%04d/%02d/%02d/%v", now.Year(), int(now.Month()), now.Day(), uuid.New())
}

func (s *IconService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// PresignUpload issues a presigned PUT URL for a new icon object.
func (s *IconService) PresignUpload(ctx context.Context) (*IconUpload, error) {
	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return nil, err
	}

	bucket := s.config.S3Bucket
	key := NewIconKey(time.Now())

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(iconUploadExpiry))
	if err != nil {
		return nil, err
	}

	return &IconUpload{Key: key, URL: req.URL}, nil
}
