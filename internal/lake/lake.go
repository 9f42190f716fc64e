// Package lake inspects the object store holding the conversation parquet
// files. The query engine reads the lake directly; this client exists for
// health and status reporting only.
package lake

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// tablePrefix is where the conversation_entry parquet files live inside the
// bucket.
const tablePrefix = "tables/conversation_entry/"

// Config carries the object store connection settings.
type Config struct {
	Endpoint  string // scheme included, e.g. http://localhost:9000
	AccessKey string
	SecretKey string
	Bucket    string
}

// Client wraps an S3 client bound to the lake bucket.
type Client struct {
	s3     *s3.Client
	bucket string
}

// New builds a Client for an S3-compatible endpoint with static credentials
// and path-style addressing (required by MinIO).
func New(ctx context.Context, cfg Config) (*Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion("us-east-1"))
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		opts = append(opts, awsconfig.WithCredentialsProvider(creds))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	return &Client{s3: client, bucket: cfg.Bucket}, nil
}

// CheckBucket probes the bucket for existence/reachability.
func (c *Client) CheckBucket(ctx context.Context) error {
	_, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err != nil {
		return fmt.Errorf("bucket %q not reachable: %w", c.bucket, err)
	}
	return nil
}

// Inventory summarizes the parquet objects backing the conversation table.
type Inventory struct {
	Objects    int
	TotalBytes int64
}

// TableInventory lists the conversation table's objects and returns their
// count and total size.
func (c *Client) TableInventory(ctx context.Context) (Inventory, error) {
	var inv Inventory

	paginator := s3.NewListObjectsV2Paginator(c.s3, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(tablePrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return Inventory{}, fmt.Errorf("listing objects under %s: %w", tablePrefix, err)
		}
		for _, obj := range page.Contents {
			inv.Objects++
			if obj.Size != nil {
				inv.TotalBytes += *obj.Size
			}
		}
	}

	return inv, nil
}
