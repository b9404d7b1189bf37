package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Snapshots exports a group's full inventory state as JSON to S3-compatible
// object storage, so a party has a restore point before big sessions.
type Snapshots struct {
	client   *s3.Client
	bucket   string
	root     string
	overview *Overview
}

func NewSnapshots(key, secret, region, bucket, root string, overview *Overview) (*Snapshots, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.digitaloceanspaces.com", region),
		}, nil
	})

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load spaces config: %w", err)
	}

	return &Snapshots{
		client:   s3.NewFromConfig(cfg),
		bucket:   bucket,
		root:     root,
		overview: overview,
	}, nil
}

type snapshotEnvelope struct {
	TakenAt  time.Time      `json:"taken_at"`
	Overview *GroupOverview `json:"overview"`
}

// Export uploads the current state of one group and returns the object key.
func (s *Snapshots) Export(ctx context.Context, groupID string) (string, error) {
	overview, err := s.overview.Build(ctx, groupID)
	if err != nil {
		return "", fmt.Errorf("failed to build overview for snapshot: %w", err)
	}

	takenAt := time.Now().UTC()
	payload, err := json.MarshalIndent(snapshotEnvelope{TakenAt: takenAt, Overview: overview}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	key := fmt.Sprintf("%s/%s/%s.json", s.root, groupID, takenAt.Format("20060102-150405"))
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload snapshot: %w", err)
	}

	slog.Info("Group snapshot exported",
		slog.String("group_id", groupID),
		slog.String("key", key),
		slog.Int("bytes", len(payload)))
	return key, nil
}
