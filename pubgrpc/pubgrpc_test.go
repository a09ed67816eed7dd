package pubgrpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/zcyzhu/node-guardtime/hashalg"
	"github.com/zcyzhu/node-guardtime/pubfile"
	"github.com/zcyzhu/node-guardtime/pubfile/pubfiletest"
)

const firstPublication = 1262304000

func serve(t *testing.T, f *pubfile.File) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterPublicationsServer(srv, &Server{File: f})

	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.DialContext(
		context.Background(),
		"bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close() })

	c := NewClient(cc)
	c.Timeout = 2 * time.Second
	return c
}

func sampleFile(t *testing.T) *pubfile.File {
	t.Helper()
	pki, err := pubfiletest.DefaultPKI()
	require.NoError(t, err)
	im, err := hashalg.Compute(hashalg.SHA256, []byte("key"))
	require.NoError(t, err)
	b := &pubfiletest.Builder{
		Publications: pubfiletest.Daily(firstPublication, 10, hashalg.SHA256),
		KeyHashes:    []pubfiletest.Entry{{Time: firstPublication, Imprint: im}},
		PKI:          pki,
	}
	data, err := b.Build()
	require.NoError(t, err)
	f, err := pubfile.DecodeWithOptions(data, pubfile.Options{
		Anchor: &pubfile.TrustAnchor{RootCertificate: pki.RootDER(), SignerEmail: pubfiletest.DefaultEmail},
	})
	require.NoError(t, err)
	return f
}

func TestClientMatchesLocalFile(t *testing.T) {
	f := sampleFile(t)
	c := serve(t, f)

	for _, q := range []int64{firstPublication, firstPublication + 3*86400, firstPublication + 9*86400} {
		want, err := f.PublicationByTime(q)
		require.NoError(t, err)
		got, err := c.PublicationByTime(q)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	wantFloor, err := f.PublicationAtOrBefore(firstPublication + 4*86400 + 7200)
	require.NoError(t, err)
	gotFloor, err := c.PublicationAtOrBefore(firstPublication + 4*86400 + 7200)
	require.NoError(t, err)
	require.Equal(t, wantFloor, gotFloor)
	_, err = c.PublicationAtOrBefore(firstPublication - 1)
	require.True(t, pubfile.IsTrustPointNotFound(err), "got %v", err)

	want, err := f.PublicationByIndex(4)
	require.NoError(t, err)
	got, err := c.PublicationByIndex(4)
	require.NoError(t, err)
	require.Equal(t, want, got)

	wantKH, err := f.KeyHashText(0)
	require.NoError(t, err)
	gotKH, err := c.KeyHashText(0)
	require.NoError(t, err)
	require.Equal(t, wantKH, gotKH)

	wantCert, err := f.SigningCertificate()
	require.NoError(t, err)
	gotCert, err := c.SigningCertificate()
	require.NoError(t, err)
	require.Equal(t, wantCert, gotCert)

	wantInfo, err := f.Verify()
	require.NoError(t, err)
	gotInfo, err := c.Verify()
	require.NoError(t, err)
	require.Equal(t, wantInfo, gotInfo)
}

func TestTrustPointNotFoundSurvivesWire(t *testing.T) {
	c := serve(t, sampleFile(t))

	_, err := c.PublicationByTime(firstPublication + 30*86400)
	require.True(t, pubfile.IsTrustPointNotFound(err), "got %v", err)

	st, ok := status.FromError(errors.Unwrap(err))
	require.True(t, ok)
	require.Equal(t, codes.NotFound, st.Code())
}

func TestErrorKindAndRuleRestored(t *testing.T) {
	f := sampleFile(t)
	c := serve(t, f)

	_, localErr := f.PublicationByIndex(10)
	_, err := c.PublicationByIndex(10)
	require.Equal(t, pubfile.KindOf(localErr), pubfile.KindOf(err))
	require.Equal(t, pubfile.RuleID(localErr), pubfile.RuleID(err))

	_, err = c.KeyHashText(-1)
	require.True(t, pubfile.IsKind(err, pubfile.KindInvalidArgument), "got %v", err)
}

func TestServerWithoutFile(t *testing.T) {
	c := serve(t, nil)
	_, err := c.PublicationByIndex(0)
	st, ok := status.FromError(err)
	require.True(t, ok)
	require.Equal(t, codes.FailedPrecondition, st.Code())
}

func TestMapRPCCodeFallback(t *testing.T) {
	err := mapRPC(status.Error(codes.NotFound, "nothing"))
	require.True(t, pubfile.IsTrustPointNotFound(err))

	err = mapRPC(status.Error(codes.Unavailable, "down"))
	require.False(t, pubfile.IsTrustPointNotFound(err))
	require.Nil(t, mapRPC(nil))
}
