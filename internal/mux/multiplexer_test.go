package mux

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"fitcheck-ingest/internal/config"
	"fitcheck-ingest/internal/grpc/server"
	"fitcheck-ingest/pkg/models"
)

type nopExtractor struct{}

func (nopExtractor) Extract(ctx context.Context, req models.ExtractionRequest) (*models.ExtractedText, error) {
	return &models.ExtractedText{}, nil
}

type nopIngestor struct{}

func (nopIngestor) Ingest(ctx context.Context, req models.JobFetchRequest) (*models.JobPosting, error) {
	return &models.JobPosting{}, nil
}

func TestMultiplexer_ServesHTTPAndGRPCOnOnePort(t *testing.T) {
	cfg := config.Default()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("http ok"))
	})

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	m := NewMultiplexer(cfg, server.NewServer(cfg, nopExtractor{}, nopIngestor{}), handler)
	require.NoError(t, m.Serve(lis))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.Stop(ctx)
	}()

	resp, err := http.Get("http://" + m.GetAddress() + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "http ok", string(body))

	conn, err := grpc.NewClient(m.GetAddress(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	check, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: server.ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check.Status)
}
