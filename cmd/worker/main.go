package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"cvbuilder/internal/bootstrap"
	"cvbuilder/internal/queue"
	"cvbuilder/internal/shared/config"
	"cvbuilder/internal/shared/metrics"
	"cvbuilder/internal/shared/telemetry"
	"cvbuilder/internal/workerproc"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		app.Close(closeCtx)
	}()

	switch cfg.QueueProvider {
	case "sqs":
		err = runSQS(ctx, cfg, app.Analyses)
	case "amqp":
		err = runAMQP(ctx, cfg, app.Analyses)
	default:
		log.Fatalf("worker requires QUEUE_PROVIDER=sqs or amqp, got %q", cfg.QueueProvider)
	}
	if err != nil {
		log.Printf("worker stopped: %v", err)
	}
}

func runAMQP(ctx context.Context, cfg config.Config, processor workerproc.Processor) error {
	consumer, err := queue.NewAMQPConsumer(cfg.AMQPURL, cfg.AMQPQueue, cfg.WorkerConcurrency)
	if err != nil {
		return err
	}
	defer consumer.Close()

	log.Printf("worker started provider=amqp queue=%s concurrency=%d", cfg.AMQPQueue, cfg.WorkerConcurrency)
	return consumer.Run(ctx, func(ctx context.Context, msg queue.Message) error {
		telemetry.Info("worker.analysis.received", map[string]any{
			"analysis_id": msg.AnalysisID,
			"request_id":  msg.RequestID,
			"source":      "amqp",
		})
		if err := workerproc.Process(ctx, processor, msg); err != nil {
			metrics.IncWorkerJob("amqp", "failed")
			return err
		}
		metrics.IncWorkerJob("amqp", "completed")
		return nil
	})
}

func runSQS(ctx context.Context, cfg config.Config, processor workerproc.Processor) error {
	queueURL := strings.TrimSpace(cfg.SQSQueueURL)
	if queueURL == "" {
		return errors.New("SQS_QUEUE_URL is required")
	}
	awsCfg, err := queue.LoadAWSConfig(ctx, cfg.AWSRegion)
	if err != nil {
		return err
	}
	var sqsClient sqsAPI = sqs.NewFromConfig(awsCfg)

	concurrency := max(1, cfg.WorkerConcurrency)
	visibilitySeconds := int32(cfg.SQSVisibilityTimeout.Seconds())
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	log.Printf("worker started provider=sqs queue=%s concurrency=%d visibility=%ds", queueURL, concurrency, visibilitySeconds)

pollLoop:
	for {
		select {
		case <-ctx.Done():
			break pollLoop
		default:
		}

		resp, err := sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:                    aws.String(queueURL),
			MaxNumberOfMessages:         10,
			WaitTimeSeconds:             20,
			VisibilityTimeout:           visibilitySeconds,
			MessageSystemAttributeNames: []sqstypes.MessageSystemAttributeName{sqstypes.MessageSystemAttributeNameApproximateReceiveCount},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break pollLoop
			}
			log.Printf("receive message: %v", err)
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range resp.Messages {
			select {
			case <-ctx.Done():
				break pollLoop
			case sem <- struct{}{}:
			}
			wg.Add(1)
			go func(m sqstypes.Message) {
				defer wg.Done()
				defer func() { <-sem }()
				handleMessage(context.WithoutCancel(ctx), sqsClient, queueURL, processor, m)
			}(msg)
		}
	}

	log.Printf("shutdown requested, waiting up to %s for in-flight jobs", cfg.ShutdownTimeout)
	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(cfg.ShutdownTimeout):
		log.Printf("shutdown timeout reached; exiting with in-flight jobs")
	}
	return nil
}

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// handleMessage deletes the message when it is processed or can never be
// processed. Other failures leave it for redelivery after the visibility timeout.
func handleMessage(ctx context.Context, client sqsAPI, queueURL string, processor workerproc.Processor, msg sqstypes.Message) {
	body := aws.ToString(msg.Body)
	decoded, meta, err := workerproc.ParseMessage(body)
	if err != nil {
		fields := baseFields(msg, "", "")
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		fields["error"] = err.Error()
		var missing workerproc.ErrMissingAnalysisID
		if errors.As(err, &missing) && missing.RequestID != "" {
			fields["request_id"] = missing.RequestID
		}
		telemetry.Error("worker.analysis.dropped", fields)
		if deleteMessage(ctx, client, queueURL, msg, "", "") {
			metrics.IncWorkerJob("sqs", "dropped")
		}
		return
	}

	telemetry.Info("worker.analysis.received", baseFields(msg, decoded.AnalysisID, decoded.RequestID))

	if err := workerproc.Process(ctx, processor, decoded); err != nil {
		fields := baseFields(msg, decoded.AnalysisID, decoded.RequestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.analysis.failed", fields)
		metrics.IncWorkerJob("sqs", "failed")
		return
	}

	if deleteMessage(ctx, client, queueURL, msg, decoded.AnalysisID, decoded.RequestID) {
		telemetry.Info("worker.analysis.completed", baseFields(msg, decoded.AnalysisID, decoded.RequestID))
		metrics.IncWorkerJob("sqs", "completed")
	}
}

func deleteMessage(ctx context.Context, client sqsAPI, queueURL string, msg sqstypes.Message, analysisID, requestID string) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields := baseFields(msg, analysisID, requestID)
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.analysis.delete_failed", fields)
		return false
	}
	if _, err := client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields := baseFields(msg, analysisID, requestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.analysis.delete_failed", fields)
		return false
	}
	return true
}

func baseFields(msg sqstypes.Message, analysisID, requestID string) map[string]any {
	fields := map[string]any{
		"analysis_id":    analysisID,
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if strings.TrimSpace(requestID) != "" {
		fields["request_id"] = requestID
	}
	return fields
}

func receiveCount(msg sqstypes.Message) int {
	if msg.Attributes == nil {
		return 0
	}
	raw := msg.Attributes[string(sqstypes.MessageSystemAttributeNameApproximateReceiveCount)]
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}
