package grpcserver

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	incidentsv1 "github.com/corbtastik/incident-visualizer/api/incidents/v1"
	livesvc "github.com/corbtastik/incident-visualizer/internal/services/live"
	logpkg "github.com/corbtastik/incident-visualizer/pkg/log"
)

type liveSvc struct {
	svc    *livesvc.Service
	logger logpkg.Logger
}

func (s *liveSvc) Bootstrap(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req incidentsv1.BootstrapRequest
	if err := incidentsv1.DecodeStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	res, err := s.svc.Bootstrap(ctx, req.Category)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return encode(res)
}

func (s *liveSvc) Tail(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req incidentsv1.TailRequest
	if err := incidentsv1.DecodeStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	res, err := s.svc.Tail(ctx, livesvc.TailRequest{
		Category: req.Category,
		Cursor:   req.After,
		Limit:    req.Limit,
		Filter:   req.Filter,
	})
	if err != nil {
		return nil, s.toStatus(err)
	}
	return encode(res)
}

func encode(v any) (*structpb.Struct, error) {
	out, err := incidentsv1.EncodeStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// toStatus maps service errors onto gRPC codes. Context errors keep their
// own codes so callers see Canceled/DeadlineExceeded.
func (s *liveSvc) toStatus(err error) error {
	if st, ok := status.FromError(err); ok {
		return st.Err()
	}
	if c := status.FromContextError(err).Code(); c == codes.Canceled || c == codes.DeadlineExceeded {
		return status.Error(c, err.Error())
	}
	switch livesvc.Code(err) {
	case livesvc.CodeUnsupportedCategory:
		return status.Error(codes.NotFound, err.Error())
	case livesvc.CodeInvalidCursor, livesvc.CodeInvalidFilter:
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		s.logger.Error("request failed", logpkg.Err(err))
		return status.Error(codes.Internal, "internal error")
	}
}
