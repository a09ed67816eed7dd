package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/zcyzhu/node-guardtime/internal/config"
	"github.com/zcyzhu/node-guardtime/internal/logging"
	"github.com/zcyzhu/node-guardtime/pubfile"
	"github.com/zcyzhu/node-guardtime/pubgrpc"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stderr))
}

type daemon struct {
	cfg  config.Config
	log  *zap.Logger
	file *pubfile.File
}

// setup reads flags and config, then loads and verifies the publications
// file. Flags given on the command line override the config file.
func setup(args []string, errOut io.Writer) (*daemon, error) {
	fs := flag.NewFlagSet("gtpubd", flag.ContinueOnError)
	fs.SetOutput(errOut)
	configPath := fs.String("config", "", "JSON or TOML config file")
	listen := fs.String("listen", config.DefaultListen, "listen address")
	pubPath := fs.String("publications", "", "publications file to serve")
	mode := fs.String("mode", "", "compliance mode: permissive|strict")
	lazy := fs.Bool("lazy", false, "decode publication cells on demand")
	anchorCert := fs.String("anchor-cert", "", "PEM root certificate")
	anchorEmail := fs.String("anchor-email", "", "expected signer email address")
	logLevel := fs.String("log-level", "", "production|development or a zap level")
	skipVerify := fs.Bool("skip-verify", false, "serve without checking the signature at startup")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var cfg config.Config
	if *configPath != "" {
		var err error
		if cfg, err = config.ReadFile(*configPath); err != nil {
			return nil, err
		}
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.Listen = *listen
		case "publications":
			cfg.PublicationsFile, cfg.PublicationsCID = *pubPath, ""
		case "mode":
			cfg.Mode = *mode
		case "lazy":
			cfg.Lazy = *lazy
		case "anchor-cert":
			cfg.AnchorCertFile = *anchorCert
		case "anchor-email":
			cfg.AnchorEmail = *anchorEmail
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.LogLevel, errOut)
	if err != nil {
		return nil, err
	}
	f, err := cfg.LoadPublications(log)
	if err != nil {
		return nil, err
	}
	if !*skipVerify {
		if _, err := f.Verify(); err != nil {
			return nil, err
		}
	}
	return &daemon{cfg: cfg, log: log, file: f}, nil
}

func (d *daemon) serve(ctx context.Context, lis net.Listener) error {
	var opts []grpc.ServerOption
	if n := d.cfg.MaxMsgBytes; n > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(n), grpc.MaxSendMsgSize(n))
	}
	s := grpc.NewServer(opts...)
	pubgrpc.RegisterPublicationsServer(s, &pubgrpc.Server{File: d.file, Logger: d.log})

	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()

	d.log.Info("gtpubd listening",
		zap.String("addr", lis.Addr().String()),
		zap.Int("publications", d.file.PublicationCount()),
		zap.Int("key_hashes", d.file.KeyHashCount()),
	)
	if err := s.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

func run(ctx context.Context, args []string, errOut io.Writer) int {
	d, err := setup(args, errOut)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	defer func() { _ = d.log.Sync() }()

	lis, err := net.Listen("tcp", d.cfg.ListenAddr())
	if err != nil {
		d.log.Error("listen failed", zap.Error(err))
		return 1
	}
	defer lis.Close()

	if err := d.serve(ctx, lis); err != nil {
		d.log.Error("serve failed", zap.Error(err))
		return 1
	}
	return 0
}
