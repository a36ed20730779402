package remote

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/manav03panchal/personalvault/internal/errors"
)

// folderMarker is the zero-byte object that makes a key prefix a folder.
const folderMarker = ".folder"

// S3Config describes an S3 compatible bucket.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// S3 stores domain files in an S3 compatible bucket. Folder ids are key
// prefixes ending in a slash; file ids are full keys.
type S3 struct {
	client *s3.Client
	bucket string
}

var _ Backend = (*S3)(nil)

// NewS3 loads the default AWS configuration, overrides it from cfg and
// creates an S3 backend.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewS3FromClient(client, cfg.Bucket), nil
}

// NewS3FromClient wraps an existing client.
func NewS3FromClient(client *s3.Client, bucket string) *S3 {
	return &S3{client: client, bucket: bucket}
}

// Name implements Backend.
func (b *S3) Name() string { return "s3" }

// FindFolder implements Backend.
func (b *S3) FindFolder(ctx context.Context, name string) (string, bool, error) {
	prefix := folderPrefix(name)
	found, err := b.exists(ctx, "find folder", prefix+folderMarker)
	if err != nil || !found {
		return "", false, err
	}
	return prefix, true, nil
}

// CreateFolder implements Backend.
func (b *S3) CreateFolder(ctx context.Context, name string) (string, error) {
	prefix := folderPrefix(name)
	if err := b.put(ctx, "create folder", prefix+folderMarker, nil); err != nil {
		return "", err
	}
	return prefix, nil
}

// FindFile implements Backend.
func (b *S3) FindFile(ctx context.Context, name, parentID string) (string, bool, error) {
	key := parentID + name
	found, err := b.exists(ctx, "find file", key)
	if err != nil || !found {
		return "", false, err
	}
	return key, true, nil
}

// CreateFile implements Backend.
func (b *S3) CreateFile(ctx context.Context, parentID, name string, content []byte) (string, error) {
	found, err := b.exists(ctx, "create file", parentID+folderMarker)
	if err != nil {
		return "", err
	}
	if !found {
		return "", NotFound("create file", os.ErrNotExist)
	}

	key := parentID + name
	if err := b.put(ctx, "create file", key, content); err != nil {
		return "", err
	}
	return key, nil
}

// UpdateFile implements Backend. A put would recreate a deleted object, so
// the object must still exist.
func (b *S3) UpdateFile(ctx context.Context, fileID string, content []byte) error {
	found, err := b.exists(ctx, "update file", fileID)
	if err != nil {
		return err
	}
	if !found {
		return NotFound("update file", os.ErrNotExist)
	}
	return b.put(ctx, "update file", fileID, content)
}

// ReadFile implements Backend.
func (b *S3) ReadFile(ctx context.Context, fileID string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(fileID),
	})
	if err != nil {
		return nil, classifyS3("read file", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, classifyTransport("read file", err)
	}
	return data, nil
}

func (b *S3) exists(ctx context.Context, op, key string) (bool, error) {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	err = classifyS3(op, err)
	if errors.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

func (b *S3) put(ctx context.Context, op, key string, content []byte) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(ContentType),
	})
	if err != nil {
		return classifyS3(op, err)
	}
	return nil
}

func folderPrefix(name string) string {
	return strings.Trim(name, "/") + "/"
}

func classifyS3(op string, err error) error {
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return NotFound(op, err)
		case "AccessDenied", "ExpiredToken", "InvalidAccessKeyId", "InvalidToken", "SignatureDoesNotMatch":
			return AuthExpired(op, err)
		}
	}

	var respErr *awshttp.ResponseError
	if stderrors.As(err, &respErr) {
		return classifyStatus(op, respErr.HTTPStatusCode(), err)
	}
	return classifyTransport(op, err)
}
