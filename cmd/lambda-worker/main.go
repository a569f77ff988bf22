package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"log"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"cvbuilder/internal/bootstrap"
	"cvbuilder/internal/shared/config"
	"cvbuilder/internal/shared/metrics"
	"cvbuilder/internal/shared/telemetry"
	"cvbuilder/internal/workerproc"
)

var (
	initOnce  sync.Once
	initErr   error
	processor workerproc.Processor
)

func initApp() {
	cfg := config.Load()
	built, err := bootstrap.Build(context.Background(), cfg)
	if err != nil {
		initErr = err
		return
	}
	processor = built.Analyses
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		log.Printf("bootstrap error: %v", initErr)
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}
	return handleBatch(ctx, processor, event), nil
}

// handleBatch reports only retryable failures so unparseable records are not
// redelivered.
func handleBatch(ctx context.Context, p workerproc.Processor, event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		err := workerproc.HandleMessage(ctx, p, record.Body)
		switch {
		case err == nil:
			metrics.IncWorkerJob("lambda", "completed")
		case workerproc.IsUnrecoverable(err):
			meta := workerproc.ComputeMeta(record.Body)
			telemetry.Error("worker.analysis.dropped", map[string]any{
				"sqs_message_id": record.MessageId,
				"body_len":       meta.BodyLen,
				"body_sha256":    meta.BodySHA,
				"error":          err.Error(),
			})
			metrics.IncWorkerJob("lambda", "dropped")
		default:
			telemetry.Error("worker.analysis.failed", map[string]any{
				"sqs_message_id": record.MessageId,
				"error":          err.Error(),
			})
			metrics.IncWorkerJob("lambda", "failed")
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}
