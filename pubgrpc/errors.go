package pubgrpc

import (
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/zcyzhu/node-guardtime/pubfile"
)

const (
	errorDomain   = "publications.guardtime.com"
	remoteMessage = "pubgrpc: remote call failed"
)

func codeFor(kind pubfile.Kind) codes.Code {
	switch kind {
	case pubfile.KindTrustPointNotFound:
		return codes.NotFound
	case pubfile.KindInvalidArgument:
		return codes.InvalidArgument
	case pubfile.KindInvalidSignature:
		return codes.FailedPrecondition
	case pubfile.KindInvalidFormat, pubfile.KindUnsupportedFormat, pubfile.KindUntrustedHashAlgorithm:
		return codes.DataLoss
	case pubfile.KindOutOfMemory:
		return codes.ResourceExhausted
	default:
		return codes.Internal
	}
}

// mapErr converts a pubfile error to a status carrying its Kind and RuleID
// as ErrorInfo so the client can rebuild the structured error.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	kind := pubfile.KindOf(err)
	st := status.New(codeFor(kind), err.Error())
	withInfo, derr := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   string(kind),
		Domain:   errorDomain,
		Metadata: map[string]string{"rule_id": pubfile.RuleID(err)},
	})
	if derr != nil {
		return st.Err()
	}
	return withInfo.Err()
}

// mapRPC restores a *pubfile.Error from a status produced by mapErr. Bare
// status codes are mapped by code alone so TrustPointNotFound survives
// servers that send no details.
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != errorDomain {
			continue
		}
		return &pubfile.Error{
			Kind:    pubfile.Kind(info.GetReason()),
			RuleID:  info.GetMetadata()["rule_id"],
			Message: remoteMessage,
			Cause:   err,
		}
	}
	switch st.Code() {
	case codes.NotFound:
		return &pubfile.Error{Kind: pubfile.KindTrustPointNotFound, Message: remoteMessage, Cause: err}
	case codes.InvalidArgument:
		return &pubfile.Error{Kind: pubfile.KindInvalidArgument, Message: remoteMessage, Cause: err}
	default:
		return err
	}
}
