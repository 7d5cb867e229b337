package server

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"c1fapp/internal/apierr"
	"c1fapp/internal/metrics"
)

// ObserveMethod is the full gRPC method name of Enrichment.Observe.
const ObserveMethod = "/c1fapp.v1.Enrichment/Observe"

// EnrichmentServer is the gRPC surface of the relay. Requests and responses
// are google.protobuf.Struct values holding the same JSON as the HTTP API.
type EnrichmentServer interface {
	Observe(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// RegisterEnrichmentServer registers srv on s.
func RegisterEnrichmentServer(s grpc.ServiceRegistrar, srv EnrichmentServer) {
	s.RegisterService(&enrichmentServiceDesc, srv)
}

var enrichmentServiceDesc = grpc.ServiceDesc{
	ServiceName: "c1fapp.v1.Enrichment",
	HandlerType: (*EnrichmentServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Observe", Handler: observeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "c1fapp/v1/enrichment.proto",
}

func observeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EnrichmentServer).Observe(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ObserveMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EnrichmentServer).Observe(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// gRPC service implementation
type enrichmentService struct {
	srv *Server
}

func (e *enrichmentService) Observe(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	metrics.EnrichRequests.WithLabelValues("grpc").Inc()

	var authorization string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("authorization"); len(vals) > 0 {
			authorization = vals[0]
		}
	}

	body := []byte("null")
	if v, ok := req.GetFields()["observables"]; ok {
		raw, err := v.MarshalJSON()
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "observables: %v", err)
		}
		body = raw
	}

	return envelopeStruct(e.srv.observe(ctx, authorization, body))
}

func envelopeStruct(env apierr.Envelope) (*structpb.Struct, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}
