package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "fitcheck.ingest.v1.IngestService"

const (
	ExtractResumeMethod = "/" + ServiceName + "/ExtractResume"
	FetchJobMethod      = "/" + ServiceName + "/FetchJob"
)

// IngestServiceServer is the server API for IngestService.
// Requests and responses are Structs carrying the same JSON keys as the HTTP endpoints.
type IngestServiceServer interface {
	ExtractResume(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FetchJob(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterIngestServiceServer registers srv on s
func RegisterIngestServiceServer(s grpc.ServiceRegistrar, srv IngestServiceServer) {
	s.RegisterService(&IngestServiceDesc, srv)
}

func extractResumeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IngestServiceServer).ExtractResume(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ExtractResumeMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(IngestServiceServer).ExtractResume(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func fetchJobHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(IngestServiceServer).FetchJob(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FetchJobMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(IngestServiceServer).FetchJob(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// IngestServiceDesc is the grpc.ServiceDesc for IngestService
var IngestServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IngestServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ExtractResume", Handler: extractResumeHandler},
		{MethodName: "FetchJob", Handler: fetchJobHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fitcheck/ingest/v1/ingest.proto",
}

// IngestServiceClient is the client API for IngestService
type IngestServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewIngestServiceClient creates a client over cc
func NewIngestServiceClient(cc grpc.ClientConnInterface) *IngestServiceClient {
	return &IngestServiceClient{cc: cc}
}

// ExtractResume calls IngestService.ExtractResume
func (c *IngestServiceClient) ExtractResume(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ExtractResumeMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchJob calls IngestService.FetchJob
func (c *IngestServiceClient) FetchJob(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FetchJobMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
