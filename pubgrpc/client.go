package pubgrpc

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/zcyzhu/node-guardtime/pubfile"
)

// Querier is the read surface shared by a local *pubfile.File and a remote
// Client.
type Querier interface {
	PublicationByTime(t int64) (string, error)
	PublicationAtOrBefore(t int64) (string, error)
	PublicationByIndex(i int) (string, error)
	KeyHashText(i int) (string, error)
	SigningCertificate() ([]byte, error)
	Verify() (*pubfile.VerificationInfo, error)
}

var (
	_ Querier = (*pubfile.File)(nil)
	_ Querier = (*Client)(nil)
)

// Client queries a Publications gRPC service.
type Client struct {
	cc     *grpc.ClientConn
	client PublicationsClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return NewClient(cc), nil
}

// NewClient wraps an existing connection. Close closes it.
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc, client: NewPublicationsClient(cc)}
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) PublicationByTime(t int64) (string, error) {
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.PublicationByTime(ctx, wrapperspb.Int64(t))
	if err != nil {
		return "", mapRPC(err)
	}
	return reply.GetValue(), nil
}

func (c *Client) PublicationAtOrBefore(t int64) (string, error) {
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.PublicationAtOrBefore(ctx, wrapperspb.Int64(t))
	if err != nil {
		return "", mapRPC(err)
	}
	return reply.GetValue(), nil
}

func (c *Client) PublicationByIndex(i int) (string, error) {
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.PublicationByIndex(ctx, wrapperspb.Int64(int64(i)))
	if err != nil {
		return "", mapRPC(err)
	}
	return reply.GetValue(), nil
}

func (c *Client) KeyHashText(i int) (string, error) {
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.KeyHash(ctx, wrapperspb.Int64(int64(i)))
	if err != nil {
		return "", mapRPC(err)
	}
	return reply.GetValue(), nil
}

func (c *Client) SigningCertificate() ([]byte, error) {
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.SigningCertificate(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, mapRPC(err)
	}
	return reply.GetValue(), nil
}

func (c *Client) Verify() (*pubfile.VerificationInfo, error) {
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Verify(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, mapRPC(err)
	}
	return structToInfo(reply)
}

func structToInfo(s *structpb.Struct) (*pubfile.VerificationInfo, error) {
	fields := s.GetFields()
	first, err := strconv.ParseInt(fields[fieldFirstPublicationTime].GetStringValue(), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("pubgrpc: bad %s: %w", fieldFirstPublicationTime, err)
	}
	last, err := strconv.ParseInt(fields[fieldLastPublicationTime].GetStringValue(), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("pubgrpc: bad %s: %w", fieldLastPublicationTime, err)
	}
	return &pubfile.VerificationInfo{
		PublicationsCount:    int(fields[fieldPublicationsCount].GetNumberValue()),
		KeyHashCount:         int(fields[fieldKeyHashCount].GetNumberValue()),
		FirstPublicationTime: first,
		LastPublicationTime:  last,
		Certificate:          fields[fieldCertificate].GetStringValue(),
	}, nil
}

func (c *Client) ctx() (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), c.Timeout)
}
