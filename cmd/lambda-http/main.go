package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"cvbuilder/internal/bootstrap"
	"cvbuilder/internal/shared/config"
	"cvbuilder/internal/shared/server/respond"
	"cvbuilder/internal/shared/telemetry"
)

// routerFactory builds the gin engine once per cold start.
type routerFactory func(ctx context.Context) (*gin.Engine, error)

func buildRouter(ctx context.Context) (*gin.Engine, error) {
	app, err := bootstrap.Build(ctx, config.Load())
	if err != nil {
		return nil, err
	}
	return app.Router, nil
}

type proxy struct {
	build routerFactory

	once    sync.Once
	err     error
	adapter *ginadapter.GinLambdaV2
}

func newProxy(build routerFactory) *proxy {
	return &proxy{build: build}
}

func (p *proxy) init(ctx context.Context) {
	router, err := p.build(ctx)
	if err != nil {
		p.err = err
		telemetry.Error("lambda.bootstrap_failed", map[string]any{"error": err.Error()})
		return
	}
	p.adapter = ginadapter.NewV2(router)
	telemetry.Info("lambda.cold_start", nil)
}

// Handle answers API Gateway HTTP API (payload v2) events. Bootstrap
// failures are reported as a 503 envelope so the gateway does not mask them.
func (p *proxy) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	p.once.Do(func() { p.init(context.WithoutCancel(ctx)) })
	if p.err != nil || p.adapter == nil {
		return unavailable(), nil
	}
	return p.adapter.ProxyWithContext(ctx, req)
}

func unavailable() events.APIGatewayV2HTTPResponse {
	body, _ := json.Marshal(respond.ErrorResponse{Error: respond.ErrorBody{
		Code:    "service_unavailable",
		Message: "service is starting or misconfigured",
	}})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

func main() {
	lambda.Start(newProxy(buildRouter).Handle)
}
