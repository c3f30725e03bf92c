// Command bulk-transition is the Lambda binary that drains a service's bulk queue under
// its DynamoDB-tracked capacity and forwards each decoded message to a target queue.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/theory-cloud/tabletheory"
	"github.com/theory-cloud/tabletheory/pkg/session"

	"github.com/theory-cloud/bulktransition"
	"github.com/theory-cloud/bulktransition/pkg/capacity"
	"github.com/theory-cloud/bulktransition/pkg/config"
	"github.com/theory-cloud/bulktransition/pkg/logger"
	"github.com/theory-cloud/bulktransition/pkg/observability"
	obszap "github.com/theory-cloud/bulktransition/pkg/observability/zap"
	"github.com/theory-cloud/bulktransition/pkg/queue"
)

func main() {
	ctx := context.Background()

	handler, err := build(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bulk-transition: FAIL: %v\n", err)
		os.Exit(1)
	}

	lambda.Start(handler.HandleLambda)
}

func build(ctx context.Context) (*bulktransition.Handler, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.TargetQueueURL == "" {
		return nil, errors.New("BULKQ_TARGET_QUEUE_URL is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	log, err := obszap.NewZapLogger(observability.LoggerConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	}, obszap.WithEnvironmentAlerts(awsCfg))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger.SetLogger(log)

	sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		o.Retryer = retry.AddWithMaxAttempts(o.Retryer, cfg.SQSMaxAttempts)
	})

	qc, err := queue.New(sqsClient,
		queue.WithVisibilityTimeout(int32(cfg.Fetch.VisibilityTimeoutSeconds)), //nolint:gosec // validated by config.
		queue.WithWaitTime(int32(cfg.Fetch.WaitTimeSeconds)),                   //nolint:gosec // validated by config.
		queue.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	gate, err := newCapacityGate(cfg)
	if err != nil {
		return nil, err
	}

	bulkURL := cfg.BulkQueueURL()
	consumer, err := bulktransition.New(cfg.Service, bulkURL, gate, qc, bulktransition.WithLogger(log))
	if err != nil {
		return nil, err
	}

	log.Info("bulk transition configured", map[string]any{
		"service":          cfg.Service,
		"queue_url":        bulkURL,
		"target_queue_url": cfg.TargetQueueURL,
		"capacity_table":   cfg.CapacityTableName(),
	})

	return bulktransition.NewHandler(consumer, queue.Forward(qc, cfg.TargetQueueURL), bulktransition.WithBulkAck(qc))
}

func newCapacityGate(cfg *config.Config) (*capacity.DynamoGate, error) {
	// UsageEntry resolves its table from the environment.
	if err := os.Setenv("BULKQ_CAPACITY_TABLE_NAME", cfg.CapacityTableName()); err != nil {
		return nil, err
	}

	sessionCfg := session.Config{
		Region:   cfg.Region,
		Endpoint: cfg.Capacity.DynamoEndpoint,
	}
	if cfg.Capacity.DynamoEndpoint != "" {
		// DynamoDB Local requires credentials even though they are not used.
		sessionCfg.AWSConfigOptions = []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("dummy", "dummy", "")),
		}
	}

	db, err := tabletheory.NewBasic(sessionCfg)
	if err != nil {
		return nil, fmt.Errorf("init TableTheory: %w", err)
	}

	return capacity.NewDynamoGate(db, cfg.CapacityGateConfig()), nil
}
