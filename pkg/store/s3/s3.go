package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gridironlabs/scoutgraph/internal/util"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const contentType = "application/json"

// ErrBucketUnset is returned when the graph bucket name is not configured.
// There is no default or fallback store.
var ErrBucketUnset = errors.New("GRAPH_BUCKET is not set")

// Store persists graph documents as {graph_id}.json objects in a single
// S3 (or S3-compatible) bucket.
type Store struct {
	client *awss3.Client
	bucket string
}

// New builds a Store from the AWS_* environment, matching the deployment
// convention of the rest of the service: static credentials, optional custom
// endpoint, path-style addressing for MinIO compatibility.
func New(ctx context.Context) (*Store, error) {
	bucket := util.GetEnv("GRAPH_BUCKET")
	if bucket == "" {
		return nil, ErrBucketUnset
	}

	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(util.GetEnv("AWS_REGION")),
		config.WithBaseEndpoint(util.GetEnv("AWS_ENDPOINT")),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			util.GetEnv("AWS_ACCESS_KEY"),
			util.GetEnv("AWS_SECRET_KEY"),
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		o.UsePathStyle = true
	})
	return &Store{client: client, bucket: bucket}, nil
}

// NewWithClient wraps an existing S3 client, mainly for tests against
// localstack/MinIO.
func NewWithClient(client *awss3.Client, bucket string) (*Store, error) {
	if bucket == "" {
		return nil, ErrBucketUnset
	}
	return &Store{client: client, bucket: bucket}, nil
}

func (s *Store) Get(ctx context.Context, graphID string) ([]byte, bool, error) {
	result, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(graphID)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get graph %s: %w", graphID, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read graph %s: %w", graphID, err)
	}
	return data, true, nil
}

// Put writes the whole graph document. A transient failure here costs an
// entire curation run, so the write is retried a few times before the job
// is handed back to the queue.
func (s *Store) Put(ctx context.Context, graphID string, data []byte) error {
	err := util.RetryErrWithContext(ctx, 3, func(ctx context.Context) error {
		_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(objectKey(graphID)),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to put graph %s: %w", graphID, err)
	}
	return nil
}

// List returns every graph id in the bucket, following pagination.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var ids []string
	input := &awss3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	}

	for {
		output, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to list graphs: %w", err)
		}

		for _, obj := range output.Contents {
			if obj.Key == nil {
				continue
			}
			id, ok := strings.CutSuffix(*obj.Key, ".json")
			if !ok {
				continue
			}
			ids = append(ids, id)
		}

		if output.IsTruncated != nil && *output.IsTruncated {
			input.ContinuationToken = output.NextContinuationToken
		} else {
			break
		}
	}

	return ids, nil
}

func objectKey(graphID string) string {
	return graphID + ".json"
}
