package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/genostore/genostore/backend"
	"github.com/genostore/genostore/errclass"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/xxxsen/common/utils"
)

var defaultHTTPClient = &http.Client{
	Timeout: 5 * time.Minute,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	},
}

type Config struct {
	Endpoint        string `json:"endpoint"`
	Region          string `json:"region"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	PathStyle       bool   `json:"path_style"`
	// DataBucket holds object bytes, StateBucket the metadata documents.
	DataBucket  string `json:"data_bucket"`
	StateBucket string `json:"state_bucket"`
}

type s3Backend struct {
	c       *Config
	cli     *awss3.Client
	presign *awss3.PresignClient
}

func New(c *Config) (backend.IObjectBackend, error) {
	if len(c.DataBucket) == 0 || len(c.StateBucket) == 0 {
		return nil, fmt.Errorf("both data bucket and state bucket are required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(c.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, ""),
		),
		awsconfig.WithHTTPClient(defaultHTTPClient),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config failed, err:%w", err)
	}
	opts := []func(*awss3.Options){
		func(o *awss3.Options) {
			o.UsePathStyle = c.PathStyle
		},
	}
	if len(c.Endpoint) != 0 {
		opts = append(opts, func(o *awss3.Options) {
			o.BaseEndpoint = aws.String(c.Endpoint)
		})
	}
	cli := awss3.NewFromConfig(awsCfg, opts...)
	return &s3Backend{
		c:       c,
		cli:     cli,
		presign: awss3.NewPresignClient(cli),
	}, nil
}

func (s *s3Backend) Name() string {
	return "s3"
}

// classify maps an sdk error into the transfer failure taxonomy before it
// leaves the backend.
func classify(op string, err error) error {
	status := 0
	code := ""
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		status = re.HTTPStatusCode()
	}
	var ae smithy.APIError
	if errors.As(err, &ae) {
		code = ae.ErrorCode()
	}
	return errclass.ClassifyStoreResponse(status, code, fmt.Errorf("%s failed, err:%w", op, err))
}

func (s *s3Backend) InitiateMultipartUpload(ctx context.Context, objectKey string) (string, error) {
	out, err := s.cli.CreateMultipartUpload(ctx, &awss3.CreateMultipartUploadInput{
		Bucket: aws.String(s.c.DataBucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return "", classify("create multipart upload", err)
	}
	return aws.ToString(out.UploadId), nil
}

func (s *s3Backend) UploadPartURL(ctx context.Context, objectKey string, uploadId string, partNumber int, expires time.Duration) (string, error) {
	req, err := s.presign.PresignUploadPart(ctx, &awss3.UploadPartInput{
		Bucket:     aws.String(s.c.DataBucket),
		Key:        aws.String(objectKey),
		UploadId:   aws.String(uploadId),
		PartNumber: aws.Int32(int32(partNumber)),
	}, awss3.WithPresignExpires(expires))
	if err != nil {
		return "", classify("presign upload part", err)
	}
	return req.URL, nil
}

func (s *s3Backend) DownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.c.DataBucket),
		Key:    aws.String(objectKey),
	}, awss3.WithPresignExpires(expires))
	if err != nil {
		return "", classify("presign get object", err)
	}
	return req.URL, nil
}

func (s *s3Backend) DownloadPartURL(ctx context.Context, objectKey string, offset int64, length int64, expires time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.c.DataBucket),
		Key:    aws.String(objectKey),
		Range:  aws.String(rangeHeader(offset, length)),
	}, awss3.WithPresignExpires(expires))
	if err != nil {
		return "", classify("presign get object range", err)
	}
	return req.URL, nil
}

func rangeHeader(offset int64, length int64) string {
	return fmt.Sprintf("bytes=%d-%d", offset, offset+length-1)
}

func (s *s3Backend) ListParts(ctx context.Context, objectKey string, uploadId string, partNumberMarker int, maxParts int) ([]*backend.AcceptedPart, error) {
	in := &awss3.ListPartsInput{
		Bucket:   aws.String(s.c.DataBucket),
		Key:      aws.String(objectKey),
		UploadId: aws.String(uploadId),
		MaxParts: aws.Int32(int32(maxParts)),
	}
	if partNumberMarker > 0 {
		in.PartNumberMarker = aws.String(fmt.Sprintf("%d", partNumberMarker))
	}
	out, err := s.cli.ListParts(ctx, in)
	if err != nil {
		return nil, classify("list parts", err)
	}
	rs := make([]*backend.AcceptedPart, 0, len(out.Parts))
	for _, p := range out.Parts {
		rs = append(rs, &backend.AcceptedPart{
			PartNumber: int(aws.ToInt32(p.PartNumber)),
			Etag:       normalizeEtag(aws.ToString(p.ETag)),
			Size:       aws.ToInt64(p.Size),
		})
	}
	return rs, nil
}

func (s *s3Backend) CompleteMultipartUpload(ctx context.Context, objectKey string, uploadId string, parts []*backend.AcceptedPart) error {
	completed := make([]types.CompletedPart, 0, len(parts))
	for _, p := range parts {
		completed = append(completed, types.CompletedPart{
			ETag:       aws.String(p.Etag),
			PartNumber: aws.Int32(int32(p.PartNumber)),
		})
	}
	if _, err := s.cli.CompleteMultipartUpload(ctx, &awss3.CompleteMultipartUploadInput{
		Bucket:   aws.String(s.c.DataBucket),
		Key:      aws.String(objectKey),
		UploadId: aws.String(uploadId),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completed,
		},
	}); err != nil {
		return classify("complete multipart upload", err)
	}
	return nil
}

func (s *s3Backend) AbortMultipartUpload(ctx context.Context, objectKey string, uploadId string) error {
	if _, err := s.cli.AbortMultipartUpload(ctx, &awss3.AbortMultipartUploadInput{
		Bucket:   aws.String(s.c.DataBucket),
		Key:      aws.String(objectKey),
		UploadId: aws.String(uploadId),
	}); err != nil {
		return classify("abort multipart upload", err)
	}
	return nil
}

func (s *s3Backend) GetDocument(ctx context.Context, key string) ([]byte, error) {
	out, err := s.cli.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.c.StateBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, backend.ErrDocumentNotFound
		}
		return nil, classify("get document", err)
	}
	defer out.Body.Close()
	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errclass.Retryable(fmt.Errorf("read document body failed, err:%w", err))
	}
	return raw, nil
}

func (s *s3Backend) PutDocument(ctx context.Context, key string, raw []byte) error {
	if _, err := s.cli.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(s.c.StateBucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(raw),
		ContentLength: aws.Int64(int64(len(raw))),
	}); err != nil {
		return classify("put document", err)
	}
	return nil
}

func (s *s3Backend) StatDocument(ctx context.Context, key string) (bool, error) {
	if _, err := s.cli.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(s.c.StateBucket),
		Key:    aws.String(key),
	}); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, classify("stat document", err)
	}
	return true, nil
}

func (s *s3Backend) DeleteDocument(ctx context.Context, key string) error {
	if _, err := s.cli.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.c.StateBucket),
		Key:    aws.String(key),
	}); err != nil {
		return classify("delete document", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}

func normalizeEtag(etag string) string {
	return strings.Trim(etag, "\"")
}

func create(args interface{}) (backend.IObjectBackend, error) {
	c := &Config{}
	if err := utils.ConvStructJson(args, c); err != nil {
		return nil, err
	}
	return New(c)
}

func init() {
	backend.Register("s3", create)
}
