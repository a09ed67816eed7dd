// Package config loads the gtpubd daemon configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ipfs/go-cid"
	"go.uber.org/zap"

	"github.com/zcyzhu/node-guardtime/cidutil"
	"github.com/zcyzhu/node-guardtime/compliance"
	"github.com/zcyzhu/node-guardtime/internal/logging"
	"github.com/zcyzhu/node-guardtime/pubfile"
	"github.com/zcyzhu/node-guardtime/storage"
	"github.com/zcyzhu/node-guardtime/storage/localfs"
)

const DefaultListen = "127.0.0.1:7878"

// Config describes which publications file gtpubd serves and how it is
// decoded. Files ending in .toml are read as TOML, anything else as JSON.
//
// The file comes either from PublicationsFile on disk or, by content ID,
// from the archive directories:
//
//	{
//	  "listen": "127.0.0.1:7878",
//	  "publications_cid": "bafkrei...",
//	  "archive_dirs": ["/var/lib/gtpub", "/mnt/shared/gtpub"],
//	  "mode": "strict"
//	}
//
// WritePolicy values:
// - "first" (default): archive writes go to the first directory only
// - "all": archive writes go to every directory
type Config struct {
	Listen           string   `json:"listen,omitempty" toml:"listen"`
	PublicationsFile string   `json:"publications_file,omitempty" toml:"publications_file"`
	PublicationsCID  string   `json:"publications_cid,omitempty" toml:"publications_cid"`
	ArchiveDirs      []string `json:"archive_dirs,omitempty" toml:"archive_dirs"`
	WritePolicy      string   `json:"write_policy,omitempty" toml:"write_policy"`

	Mode string `json:"mode,omitempty" toml:"mode"`
	Lazy bool   `json:"lazy,omitempty" toml:"lazy"`

	// AnchorCertFile is a PEM root certificate replacing the built-in one.
	AnchorCertFile string `json:"anchor_cert_file,omitempty" toml:"anchor_cert_file"`
	AnchorEmail    string `json:"anchor_email,omitempty" toml:"anchor_email"`

	LogLevel    string `json:"log_level,omitempty" toml:"log_level"`
	MaxMsgBytes int    `json:"max_msg_bytes,omitempty" toml:"max_msg_bytes"`
}

// LoadFile reads and validates a config file.
func LoadFile(path string) (Config, error) {
	cfg, err := ReadFile(path)
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// ReadFile reads a config file without validating it, for callers that
// merge command-line overrides first.
func ReadFile(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, errors.New("config: empty config path")
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("config: %s: %w", path, err)
		}
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.PublicationsFile == "" && c.PublicationsCID == "":
		return errors.New("config: publications_file or publications_cid is required")
	case c.PublicationsFile != "" && c.PublicationsCID != "":
		return errors.New("config: publications_file and publications_cid are exclusive")
	case c.PublicationsCID != "" && len(c.ArchiveDirs) == 0:
		return errors.New("config: publications_cid needs archive_dirs")
	}
	if c.PublicationsCID != "" {
		if _, err := cidutil.Parse(c.PublicationsCID); err != nil {
			return fmt.Errorf("config: publications_cid: %w", err)
		}
	}
	if _, err := compliance.ParseMode(c.Mode); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: log_level: %w", err)
	}
	if c.MaxMsgBytes < 0 {
		return fmt.Errorf("config: negative max_msg_bytes %d", c.MaxMsgBytes)
	}
	switch c.WritePolicy {
	case "", "first", "all":
		return nil
	default:
		return fmt.Errorf("config: invalid write_policy %q", c.WritePolicy)
	}
}

// ListenAddr returns Listen or DefaultListen.
func (c Config) ListenAddr() string {
	if c.Listen == "" {
		return DefaultListen
	}
	return c.Listen
}

// OpenArchive opens the archive directories per WritePolicy.
func (c Config) OpenArchive() (storage.CAS, error) {
	if c.WritePolicy == "all" {
		m, err := localfs.OpenMirror(c.ArchiveDirs)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	return localfs.OpenMulti(c.ArchiveDirs)
}

// Anchor returns the configured trust anchor, nil meaning the built-in one.
func (c Config) Anchor() (*pubfile.TrustAnchor, error) {
	if c.AnchorCertFile == "" {
		if c.AnchorEmail == "" {
			return nil, nil
		}
		a := pubfile.DefaultTrustAnchor
		a.SignerEmail = c.AnchorEmail
		return &a, nil
	}
	b, err := os.ReadFile(c.AnchorCertFile)
	if err != nil {
		return nil, err
	}
	a, err := pubfile.ParseTrustAnchorPEM(b, c.AnchorEmail)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// DecodeOptions turns the config into pubfile options using log.
func (c Config) DecodeOptions(log *zap.Logger) (pubfile.Options, error) {
	mode, err := compliance.ParseMode(c.Mode)
	if err != nil {
		return pubfile.Options{}, err
	}
	anchor, err := c.Anchor()
	if err != nil {
		return pubfile.Options{}, err
	}
	return pubfile.Options{Mode: mode, LazyPublications: c.Lazy, Anchor: anchor, Logger: log}, nil
}

// LoadPublications reads and decodes the configured publications file.
func (c Config) LoadPublications(log *zap.Logger) (*pubfile.File, error) {
	opts, err := c.DecodeOptions(log)
	if err != nil {
		return nil, err
	}
	if c.PublicationsFile != "" {
		data, err := os.ReadFile(c.PublicationsFile)
		if err != nil {
			return nil, err
		}
		return pubfile.DecodeWithOptions(data, opts)
	}
	var id cid.Cid
	if id, err = cidutil.Parse(c.PublicationsCID); err != nil {
		return nil, err
	}
	cas, err := c.OpenArchive()
	if err != nil {
		return nil, err
	}
	return storage.LoadPublicationsFile(cas, id, opts)
}
