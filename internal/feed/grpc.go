package feed

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	incidentsv1 "github.com/corbtastik/incident-visualizer/api/incidents/v1"
	"github.com/corbtastik/incident-visualizer/internal/cursor"
)

// GRPCTransport talks to incidents.v1.LiveService.
type GRPCTransport struct {
	conn   *grpc.ClientConn
	client incidentsv1.LiveServiceClient
	owned  bool
}

// NewGRPCTransport dials target with insecure credentials (local/dev).
func NewGRPCTransport(target string, opts ...grpc.DialOption) (*GRPCTransport, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("feed: grpc %s: %w", target, err)
	}
	return &GRPCTransport{conn: conn, client: incidentsv1.NewLiveServiceClient(conn), owned: true}, nil
}

// NewGRPCTransportConn wraps an existing connection; Close leaves it open.
func NewGRPCTransportConn(conn *grpc.ClientConn) *GRPCTransport {
	return &GRPCTransport{conn: conn, client: incidentsv1.NewLiveServiceClient(conn)}
}

// Bootstrap implements Transport.
func (t *GRPCTransport) Bootstrap(ctx context.Context, category string) (BootstrapResult, error) {
	in, err := incidentsv1.EncodeStruct(incidentsv1.BootstrapRequest{Category: category})
	if err != nil {
		return BootstrapResult{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	out, err := t.client.Bootstrap(ctx, in)
	if err != nil {
		return BootstrapResult{}, rpcError(ctx, err)
	}
	if len(out.GetFields()) == 0 {
		return BootstrapResult{Empty: true}, nil
	}
	var res BootstrapResult
	if err := incidentsv1.DecodeStruct(out, &res); err != nil {
		return BootstrapResult{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return res, nil
}

// Tail implements Transport.
func (t *GRPCTransport) Tail(ctx context.Context, req TailRequest) (Page, error) {
	in, err := incidentsv1.EncodeStruct(incidentsv1.TailRequest{
		Category: req.Category,
		After:    cursor.Encode(req.Cursor),
		Limit:    req.Limit,
		Filter:   req.Filter,
	})
	if err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	out, err := t.client.Tail(ctx, in)
	if err != nil {
		return Page{}, rpcError(ctx, err)
	}
	if len(out.GetFields()) == 0 {
		return emptyPage(req.Cursor), nil
	}
	var page Page
	if err := incidentsv1.DecodeStruct(out, &page); err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return page, nil
}

// Close implements Transport.
func (t *GRPCTransport) Close() error {
	if !t.owned {
		return nil
	}
	return t.conn.Close()
}

func rpcError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	st := status.Convert(err)
	switch st.Code() {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", ErrUnsupportedCategory, st.Message())
	}
	return fmt.Errorf("%w: %s: %s", ErrTransport, st.Code(), st.Message())
}
