package pubgrpc

import (
	"context"
	"math"
	"strconv"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/zcyzhu/node-guardtime/pubfile"
)

// Server exposes a decoded publications file over the Publications gRPC
// service.
type Server struct {
	UnimplementedPublicationsServer
	File   *pubfile.File
	Logger *zap.Logger
}

func (s *Server) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Server) ready() error {
	if s == nil || s.File == nil {
		return status.Error(codes.FailedPrecondition, "no publications file loaded")
	}
	return nil
}

func index(v int64) (int, error) {
	if v < 0 || v > math.MaxInt32 {
		return 0, mapErr(&pubfile.Error{Kind: pubfile.KindInvalidArgument, RuleID: "PUBGRPC-ARG-001", Message: "index out of range"})
	}
	return int(v), nil
}

func (s *Server) PublicationByTime(ctx context.Context, in *wrapperspb.Int64Value) (*wrapperspb.StringValue, error) {
	_ = ctx
	if err := s.ready(); err != nil {
		return nil, err
	}
	pub, err := s.File.PublicationByTime(in.GetValue())
	if err != nil {
		if !pubfile.IsTrustPointNotFound(err) {
			s.log().Warn("publication lookup failed", zap.Int64("time", in.GetValue()), zap.Error(err))
		}
		return nil, mapErr(err)
	}
	return wrapperspb.String(pub), nil
}

func (s *Server) PublicationAtOrBefore(ctx context.Context, in *wrapperspb.Int64Value) (*wrapperspb.StringValue, error) {
	_ = ctx
	if err := s.ready(); err != nil {
		return nil, err
	}
	pub, err := s.File.PublicationAtOrBefore(in.GetValue())
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.String(pub), nil
}

func (s *Server) PublicationByIndex(ctx context.Context, in *wrapperspb.Int64Value) (*wrapperspb.StringValue, error) {
	_ = ctx
	if err := s.ready(); err != nil {
		return nil, err
	}
	i, err := index(in.GetValue())
	if err != nil {
		return nil, err
	}
	pub, err := s.File.PublicationByIndex(i)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.String(pub), nil
}

func (s *Server) KeyHash(ctx context.Context, in *wrapperspb.Int64Value) (*wrapperspb.StringValue, error) {
	_ = ctx
	if err := s.ready(); err != nil {
		return nil, err
	}
	i, err := index(in.GetValue())
	if err != nil {
		return nil, err
	}
	text, err := s.File.KeyHashText(i)
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.String(text), nil
}

func (s *Server) SigningCertificate(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.BytesValue, error) {
	_ = ctx
	if err := s.ready(); err != nil {
		return nil, err
	}
	der, err := s.File.SigningCertificate()
	if err != nil {
		return nil, mapErr(err)
	}
	return wrapperspb.Bytes(der), nil
}

func (s *Server) Verify(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	_ = ctx
	if err := s.ready(); err != nil {
		return nil, err
	}
	info, err := s.File.Verify()
	if err != nil {
		s.log().Warn("verification failed", zap.Error(err))
		return nil, mapErr(err)
	}
	out, err := infoToStruct(info)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// Struct field names used by Verify.
const (
	fieldPublicationsCount    = "publications_count"
	fieldKeyHashCount         = "key_hash_count"
	fieldFirstPublicationTime = "first_publication_time"
	fieldLastPublicationTime  = "last_publication_time"
	fieldCertificate          = "certificate"
)

// Times are sent as decimal strings; structpb numbers are float64 and
// would round identifiers past 2^53.
func infoToStruct(info *pubfile.VerificationInfo) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		fieldPublicationsCount:    info.PublicationsCount,
		fieldKeyHashCount:         info.KeyHashCount,
		fieldFirstPublicationTime: strconv.FormatInt(info.FirstPublicationTime, 10),
		fieldLastPublicationTime:  strconv.FormatInt(info.LastPublicationTime, 10),
		fieldCertificate:          info.Certificate,
	})
}
