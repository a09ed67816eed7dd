package pubgrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const serviceName = "guardtime.publications.v1.Publications"

// PublicationsServer is the server API for the Publications gRPC service.
//
// Messages are protobuf well-known types so no protoc/codegen step is
// needed. Proto definition: publications.proto.
type PublicationsServer interface {
	PublicationByTime(context.Context, *wrapperspb.Int64Value) (*wrapperspb.StringValue, error)
	PublicationAtOrBefore(context.Context, *wrapperspb.Int64Value) (*wrapperspb.StringValue, error)
	PublicationByIndex(context.Context, *wrapperspb.Int64Value) (*wrapperspb.StringValue, error)
	KeyHash(context.Context, *wrapperspb.Int64Value) (*wrapperspb.StringValue, error)
	SigningCertificate(context.Context, *emptypb.Empty) (*wrapperspb.BytesValue, error)
	Verify(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// UnimplementedPublicationsServer can be embedded to have forward compatible implementations.
type UnimplementedPublicationsServer struct{}

func (UnimplementedPublicationsServer) PublicationByTime(context.Context, *wrapperspb.Int64Value) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method PublicationByTime not implemented")
}
func (UnimplementedPublicationsServer) PublicationAtOrBefore(context.Context, *wrapperspb.Int64Value) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method PublicationAtOrBefore not implemented")
}
func (UnimplementedPublicationsServer) PublicationByIndex(context.Context, *wrapperspb.Int64Value) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method PublicationByIndex not implemented")
}
func (UnimplementedPublicationsServer) KeyHash(context.Context, *wrapperspb.Int64Value) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method KeyHash not implemented")
}
func (UnimplementedPublicationsServer) SigningCertificate(context.Context, *emptypb.Empty) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method SigningCertificate not implemented")
}
func (UnimplementedPublicationsServer) Verify(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Verify not implemented")
}

// RegisterPublicationsServer registers the Publications service on a gRPC server.
func RegisterPublicationsServer(s grpc.ServiceRegistrar, srv PublicationsServer) {
	s.RegisterService(&Publications_ServiceDesc, srv)
}

// PublicationsClient is the client API for the Publications gRPC service.
type PublicationsClient interface {
	PublicationByTime(ctx context.Context, in *wrapperspb.Int64Value, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	PublicationAtOrBefore(ctx context.Context, in *wrapperspb.Int64Value, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	PublicationByIndex(ctx context.Context, in *wrapperspb.Int64Value, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	KeyHash(ctx context.Context, in *wrapperspb.Int64Value, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	SigningCertificate(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Verify(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type publicationsClient struct{ cc grpc.ClientConnInterface }

func NewPublicationsClient(cc grpc.ClientConnInterface) PublicationsClient {
	return &publicationsClient{cc: cc}
}

func invoke[Out any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts ...grpc.CallOption) (*Out, error) {
	out := new(Out)
	if err := cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *publicationsClient) PublicationByTime(ctx context.Context, in *wrapperspb.Int64Value, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	return invoke[wrapperspb.StringValue](ctx, c.cc, "PublicationByTime", in, opts...)
}

func (c *publicationsClient) PublicationAtOrBefore(ctx context.Context, in *wrapperspb.Int64Value, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	return invoke[wrapperspb.StringValue](ctx, c.cc, "PublicationAtOrBefore", in, opts...)
}

func (c *publicationsClient) PublicationByIndex(ctx context.Context, in *wrapperspb.Int64Value, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	return invoke[wrapperspb.StringValue](ctx, c.cc, "PublicationByIndex", in, opts...)
}

func (c *publicationsClient) KeyHash(ctx context.Context, in *wrapperspb.Int64Value, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	return invoke[wrapperspb.StringValue](ctx, c.cc, "KeyHash", in, opts...)
}

func (c *publicationsClient) SigningCertificate(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	return invoke[wrapperspb.BytesValue](ctx, c.cc, "SigningCertificate", in, opts...)
}

func (c *publicationsClient) Verify(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, "Verify", in, opts...)
}

type methodHandler = func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error)

// unaryHandler adapts a typed server method to grpc.MethodDesc.Handler.
func unaryHandler[In any](method string, call func(PublicationsServer, context.Context, *In) (any, error)) methodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(In)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(PublicationsServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + method}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(PublicationsServer), ctx, req.(*In))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Publications_ServiceDesc is the grpc.ServiceDesc for the Publications service.
var Publications_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*PublicationsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PublicationByTime", Handler: unaryHandler("PublicationByTime",
			func(s PublicationsServer, ctx context.Context, in *wrapperspb.Int64Value) (any, error) {
				return s.PublicationByTime(ctx, in)
			})},
		{MethodName: "PublicationAtOrBefore", Handler: unaryHandler("PublicationAtOrBefore",
			func(s PublicationsServer, ctx context.Context, in *wrapperspb.Int64Value) (any, error) {
				return s.PublicationAtOrBefore(ctx, in)
			})},
		{MethodName: "PublicationByIndex", Handler: unaryHandler("PublicationByIndex",
			func(s PublicationsServer, ctx context.Context, in *wrapperspb.Int64Value) (any, error) {
				return s.PublicationByIndex(ctx, in)
			})},
		{MethodName: "KeyHash", Handler: unaryHandler("KeyHash",
			func(s PublicationsServer, ctx context.Context, in *wrapperspb.Int64Value) (any, error) {
				return s.KeyHash(ctx, in)
			})},
		{MethodName: "SigningCertificate", Handler: unaryHandler("SigningCertificate",
			func(s PublicationsServer, ctx context.Context, in *emptypb.Empty) (any, error) {
				return s.SigningCertificate(ctx, in)
			})},
		{MethodName: "Verify", Handler: unaryHandler("Verify",
			func(s PublicationsServer, ctx context.Context, in *emptypb.Empty) (any, error) {
				return s.Verify(ctx, in)
			})},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "publications.proto",
}
