package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvbuilder/internal/shared/server/respond"
)

func v2Request(method, path string) events.APIGatewayV2HTTPRequest {
	req := events.APIGatewayV2HTTPRequest{
		Version: "2.0",
		RawPath: path,
		Headers: map[string]string{"Content-Type": "application/json"},
	}
	req.RequestContext.HTTP.Method = method
	req.RequestContext.HTTP.Path = path
	return req
}

func TestHandleProxiesToRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	builds := 0
	p := newProxy(func(context.Context) (*gin.Engine, error) {
		builds++
		r := gin.New()
		r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
		return r, nil
	})

	for i := 0; i < 2; i++ {
		resp, err := p.Handle(context.Background(), v2Request(http.MethodGet, "/healthz"))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"ok":true}`, resp.Body)
	}
	assert.Equal(t, 1, builds)
}

func TestHandleReportsBootstrapFailure(t *testing.T) {
	p := newProxy(func(context.Context) (*gin.Engine, error) {
		return nil, errors.New("DATABASE_URL is required")
	})

	resp, err := p.Handle(context.Background(), v2Request(http.MethodGet, "/healthz"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body respond.ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	assert.Equal(t, "service_unavailable", body.Error.Code)
}
