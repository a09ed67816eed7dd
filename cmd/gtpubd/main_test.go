package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zcyzhu/node-guardtime/compliance"
	"github.com/zcyzhu/node-guardtime/hashalg"
	"github.com/zcyzhu/node-guardtime/pubfile"
	"github.com/zcyzhu/node-guardtime/pubfile/pubfiletest"
	"github.com/zcyzhu/node-guardtime/pubgrpc"
)

const firstPublication = 1262304000

// writeFixture writes a signed file and its anchor PEM, returning both paths.
func writeFixture(t *testing.T) (string, string) {
	t.Helper()
	pki, err := pubfiletest.DefaultPKI()
	require.NoError(t, err)
	data, err := (&pubfiletest.Builder{
		Publications: pubfiletest.Daily(firstPublication, 4, hashalg.SHA256),
		PKI:          pki,
	}).Build()
	require.NoError(t, err)

	dir := t.TempDir()
	pubs, anchor := filepath.Join(dir, "pubs.bin"), filepath.Join(dir, "root.pem")
	require.NoError(t, os.WriteFile(pubs, data, 0o600))
	require.NoError(t, os.WriteFile(anchor, pki.RootPEM(), 0o600))
	return pubs, anchor
}

func TestSetupFlagsOverrideConfig(t *testing.T) {
	pubs, anchor := writeFixture(t)
	cfgPath := filepath.Join(t.TempDir(), "gtpubd.toml")
	body := fmt.Sprintf("listen = \"127.0.0.1:1\"\npublications_file = %q\nanchor_cert_file = %q\nmode = \"permissive\"\n", pubs, anchor)
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o600))

	var errOut bytes.Buffer
	d, err := setup([]string{"-config", cfgPath, "-mode", "strict", "-listen", "127.0.0.1:0"}, &errOut)
	require.NoError(t, err, errOut.String())
	require.Equal(t, "strict", d.cfg.Mode)
	require.Equal(t, "127.0.0.1:0", d.cfg.ListenAddr())
	require.Equal(t, 4, d.file.PublicationCount())

	mode, err := compliance.ParseMode(d.cfg.Mode)
	require.NoError(t, err)
	require.Equal(t, compliance.Strict, mode)
}

func TestSetupRejectsUntrustedFile(t *testing.T) {
	pubs, _ := writeFixture(t)
	var errOut bytes.Buffer

	_, err := setup([]string{"-publications", pubs}, &errOut)
	require.True(t, pubfile.IsKind(err, pubfile.KindInvalidSignature), "got %v", err)

	d, err := setup([]string{"-publications", pubs, "-skip-verify"}, &errOut)
	require.NoError(t, err)
	require.Equal(t, 4, d.file.PublicationCount())

	_, err = setup(nil, &errOut)
	require.Error(t, err)
}

func TestServeAndShutdown(t *testing.T) {
	pubs, anchor := writeFixture(t)
	var errOut bytes.Buffer
	d, err := setup([]string{"-publications", pubs, "-anchor-cert", anchor, "-log-level", "debug"}, &errOut)
	require.NoError(t, err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.serve(ctx, lis) }()

	c, err := pubgrpc.Dial(lis.Addr().String(), pubgrpc.DialOptions{Timeout: 2 * time.Second})
	require.NoError(t, err)
	defer c.Close()
	c.Timeout = 2 * time.Second

	want, err := d.file.PublicationByTime(firstPublication + 86400)
	require.NoError(t, err)
	got, err := c.PublicationByTime(firstPublication + 86400)
	require.NoError(t, err)
	require.Equal(t, want, got)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestRunUsageErrors(t *testing.T) {
	var errOut bytes.Buffer
	require.Equal(t, 2, run(context.Background(), []string{"-bogus"}, &errOut))
	require.Equal(t, 0, run(context.Background(), []string{"-h"}, &errOut))
}
