// Package incidentsv1 declares the incidents.v1.LiveService gRPC service.
//
// Messages are google.protobuf.Struct values carrying the same JSON
// documents the HTTP gateway serves, so one set of Go types describes both
// transports. The service descriptor is declared by hand in the shape
// protoc-gen-go-grpc emits.
package incidentsv1

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "incidents.v1.LiveService"

	LiveService_Bootstrap_FullMethodName = "/incidents.v1.LiveService/Bootstrap"
	LiveService_Tail_FullMethodName      = "/incidents.v1.LiveService/Tail"
)

// BootstrapRequest asks for the newest cursor of a category.
type BootstrapRequest struct {
	Category string `json:"category"`
}

// TailRequest asks for records after After. Limit 0 takes the server default.
type TailRequest struct {
	Category string `json:"category"`
	After    string `json:"after,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Filter   string `json:"filter,omitempty"`
}

// EncodeStruct converts any JSON-marshalable value into a Struct.
func EncodeStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("incidentsv1: encode: %w", err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("incidentsv1: encode: %w", err)
	}
	return s, nil
}

// DecodeStruct fills v from s through its JSON form.
func DecodeStruct(s *structpb.Struct, v any) error {
	if s == nil {
		s = &structpb.Struct{}
	}
	b, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("incidentsv1: decode: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("incidentsv1: decode: %w", err)
	}
	return nil
}

// LiveServiceClient is the client API for LiveService.
type LiveServiceClient interface {
	Bootstrap(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Tail(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type liveServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewLiveServiceClient(cc grpc.ClientConnInterface) LiveServiceClient {
	return &liveServiceClient{cc}
}

func (c *liveServiceClient) Bootstrap(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, LiveService_Bootstrap_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *liveServiceClient) Tail(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, LiveService_Tail_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// LiveServiceServer is the server API for LiveService.
type LiveServiceServer interface {
	Bootstrap(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Tail(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterLiveServiceServer registers srv on s.
func RegisterLiveServiceServer(s grpc.ServiceRegistrar, srv LiveServiceServer) {
	s.RegisterService(&LiveService_ServiceDesc, srv)
}

func _LiveService_Bootstrap_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LiveServiceServer).Bootstrap(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: LiveService_Bootstrap_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LiveServiceServer).Bootstrap(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _LiveService_Tail_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LiveServiceServer).Tail(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: LiveService_Tail_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LiveServiceServer).Tail(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// LiveService_ServiceDesc is the grpc.ServiceDesc for LiveService.
var LiveService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LiveServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Bootstrap", Handler: _LiveService_Bootstrap_Handler},
		{MethodName: "Tail", Handler: _LiveService_Tail_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "incidents/v1/live.proto",
}
