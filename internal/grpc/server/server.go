package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"fitcheck-ingest/internal/api/handlers"
	"fitcheck-ingest/internal/config"
	"fitcheck-ingest/internal/grpc/interceptors"
	"fitcheck-ingest/internal/logging"
	"fitcheck-ingest/internal/logging/types"
	"fitcheck-ingest/internal/validation"
	"fitcheck-ingest/pkg/models"
)

// ErrorDetailsKey is the trailer key carrying the diagnostic cause of a failed extraction
const ErrorDetailsKey = "error-details"

const (
	defaultMaxRecvMsgSize = 15_000_000
	maxSendMsgSize        = 32 * 1024 * 1024
)

// Server mirrors the HTTP ingestion endpoints over gRPC
type Server struct {
	cfg       *config.Config
	extractor handlers.ResumeExtractor
	ingestor  handlers.JobIngestor
	metrics   *interceptors.MetricsCollector
	health    *health.Server
	grpc      *grpc.Server
	logger    types.Logger
}

// NewServer builds the gRPC server with the ingest, health and reflection services registered
func NewServer(cfg *config.Config, extractor handlers.ResumeExtractor, ingestor handlers.JobIngestor) *Server {
	s := &Server{
		cfg:       cfg,
		extractor: extractor,
		ingestor:  ingestor,
		metrics:   interceptors.NewMetricsCollector(),
		health:    health.NewServer(),
		logger:    logging.GetGlobalLogger().WithField("component", "grpc"),
	}

	// same input ceiling as the HTTP body limit
	maxRecv := int(cfg.MaxBodyBytes())
	if maxRecv <= 0 {
		maxRecv = defaultMaxRecvMsgSize
	}

	s.grpc = grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 5 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.MaxRecvMsgSize(maxRecv),
		grpc.MaxSendMsgSize(maxSendMsgSize),
		grpc.ChainUnaryInterceptor(
			interceptors.RecoveryInterceptor(),
			interceptors.LoggingInterceptor(),
			interceptors.MetricsInterceptor(s.metrics),
			interceptors.TimeoutInterceptor(cfg.Server.RequestTimeout),
		),
		grpc.ChainStreamInterceptor(
			interceptors.StreamRecoveryInterceptor(),
		),
	)

	RegisterIngestServiceServer(s.grpc, s)
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	// Enable reflection for debugging
	reflection.Register(s.grpc)

	return s
}

// Start serves on lis until Stop is called
func (s *Server) Start(lis net.Listener) error {
	s.logger.Info("Starting gRPC server", map[string]interface{}{"address": lis.Addr().String()})
	return s.grpc.Serve(lis)
}

// Stop marks the services not serving and drains in-flight calls until ctx ends
func (s *Server) Stop(ctx context.Context) {
	s.logger.Info("Shutting down gRPC server...")
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("gRPC graceful stop timed out, forcing")
		s.grpc.Stop()
	}
}

// SetServing updates the reported health of the ingest service
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, st)
}

// Metrics returns per-method call metrics
func (s *Server) Metrics() map[string]interceptors.MetricsData {
	return s.metrics.Snapshot()
}

// ExtractResume implements IngestService.ExtractResume
func (s *Server) ExtractResume(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req models.ExtractionRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, validation.MsgInvalidBody)
	}

	result, err := s.extractor.Extract(ctx, req)
	if err != nil {
		code, body := handlers.ResumeError(err)
		if body.Details != "" {
			_ = grpc.SetTrailer(ctx, metadata.Pairs(ErrorDetailsKey, body.Details))
		}
		return nil, status.Error(grpcCode(code), body.Error)
	}

	return encodeStruct(result)
}

// FetchJob implements IngestService.FetchJob
func (s *Server) FetchJob(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req models.JobFetchRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, validation.MsgInvalidBody)
	}

	job, err := s.ingestor.Ingest(ctx, req)
	if err != nil {
		code, body := handlers.JobError(err)
		return nil, status.Error(grpcCode(code), body.Error)
	}

	return encodeStruct(job)
}

// decodeStruct maps a Struct onto a request model through its JSON tags
func decodeStruct(in *structpb.Struct, out interface{}) error {
	raw, err := json.Marshal(in.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func encodeStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to encode response: %v", err))
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to encode response: %v", err))
	}

	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to encode response: %v", err))
	}
	return out, nil
}

func grpcCode(httpStatus int) codes.Code {
	if httpStatus >= 400 && httpStatus < 500 {
		return codes.InvalidArgument
	}
	return codes.Internal
}
