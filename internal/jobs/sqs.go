package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"lasdesk/internal/files"
)

// SQSSender is the subset of the SQS client used to enqueue jobs.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSQueue hands processing jobs to cmd/worker through AWS SQS.
type SQSQueue struct {
	client   SQSSender
	queueURL string
	now      func() time.Time
}

// NewSQSQueue constructs an SQS-backed queue.
func NewSQSQueue(ctx context.Context, region, queueURL string) (*SQSQueue, error) {
	queueURL = strings.TrimSpace(queueURL)
	if queueURL == "" {
		return nil, fmt.Errorf("JOBS_SQS_QUEUE_URL is required")
	}
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSQSQueueWithClient(sqs.NewFromConfig(cfg), queueURL), nil
}

// NewSQSQueueWithClient wraps an existing client.
func NewSQSQueueWithClient(client SQSSender, queueURL string) *SQSQueue {
	return &SQSQueue{client: client, queueURL: queueURL, now: func() time.Time { return time.Now().UTC() }}
}

// Enqueue sends a processing message for fileID.
func (q *SQSQueue) Enqueue(ctx context.Context, fileID int64, requestID string) error {
	payload, err := EncodeMessage(Message{
		FileID:     fileID,
		RequestID:  requestID,
		EnqueuedAt: q.now().Format(time.RFC3339),
		Version:    MessageVersion,
	})
	if err != nil {
		return fmt.Errorf("encode sqs message: %w", err)
	}
	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(payload)),
	})
	if err != nil {
		return fmt.Errorf("sqs send message: %w", err)
	}
	return nil
}

var _ files.Processor = (*SQSQueue)(nil)
