// Package bundle moves publications files between archives as a single
// deterministic TAR stream, for hosts that cannot reach a shared archive.
package bundle

import (
	"archive/tar"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"github.com/zcyzhu/node-guardtime/cidutil"
	"github.com/zcyzhu/node-guardtime/pubfile"
	"github.com/zcyzhu/node-guardtime/storage"
)

// FormatVersion is the current index.json schema version.
const FormatVersion = 1

const (
	indexName    = "index.json"
	filesDir     = "publications/"
	fileSuffix   = ".bin"
	maxFileBytes = 64 << 20
)

var epoch = time.Unix(0, 0).UTC()

// ExportOptions controls bundle export.
type ExportOptions struct {
	// Labels name files for humans, e.g. "gt-controlpublications.bin".
	// They are not authoritative; the CID is.
	Labels map[string]cid.Cid
	// IncludeIndex adds index.json describing each file.
	IncludeIndex bool
}

// Export writes the publications files ids to w. Entries are sorted by CID
// and headers carry no host metadata, so equal inputs give equal bytes.
// Every file is checked against its CID and must decode.
func Export(w io.Writer, cas storage.CAS, ids []cid.Cid, opts ExportOptions) (err error) {
	if cas == nil {
		return errors.New("bundle: nil archive")
	}
	uniq := make(map[string]cid.Cid, len(ids))
	for _, id := range ids {
		if !id.Defined() {
			return storage.ErrInvalidCID
		}
		uniq[id.String()] = id
	}
	names := make([]string, 0, len(uniq))
	for s := range uniq {
		names = append(names, s)
	}
	sort.Strings(names)

	tw := tar.NewWriter(w)
	defer func() {
		if cerr := tw.Close(); err == nil {
			err = cerr
		}
	}()

	entries := make([]indexFile, 0, len(names))
	for _, s := range names {
		id := uniq[s]
		data, err := cas.Get(id)
		if err != nil {
			return fmt.Errorf("bundle: %s: %w", s, err)
		}
		if !cidutil.Matches(id, data) {
			return storage.ErrCIDMismatch
		}
		f, err := pubfile.Decode(data)
		if err != nil {
			return fmt.Errorf("bundle: %s: %w", s, err)
		}
		if err := writeEntry(tw, filesDir+s+fileSuffix, data); err != nil {
			return err
		}
		entries = append(entries, describe(s, len(data), f))
	}

	if !opts.IncludeIndex {
		return nil
	}
	idx := index{Version: FormatVersion, CIDCodec: "raw", Multihash: "sha2-256", Files: entries}
	labels := make([]string, 0, len(opts.Labels))
	for k := range opts.Labels {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	for _, k := range labels {
		v := opts.Labels[k]
		if k == "" {
			return errors.New("bundle: empty label")
		}
		if !v.Defined() {
			return storage.ErrInvalidCID
		}
		idx.Labels = append(idx.Labels, indexLabel{Name: k, CID: v.String()})
	}
	b, err := json.Marshal(idx)
	if err != nil {
		return err
	}
	return writeEntry(tw, indexName, append(b, '\n'))
}

// ImportOptions controls bundle import.
type ImportOptions struct {
	// IgnoreUnknown skips entries outside publications/ instead of failing.
	IgnoreUnknown bool
}

// Import stores every publications file in r into cas and returns their
// CIDs in bundle order. Unknown entries are an error.
func Import(r io.Reader, cas storage.CAS) ([]cid.Cid, error) {
	return ImportWithOptions(r, cas, ImportOptions{})
}

// ImportWithOptions checks each file against the CID in its entry name
// and refuses files that do not decode.
func ImportWithOptions(r io.Reader, cas storage.CAS, opts ImportOptions) ([]cid.Cid, error) {
	if cas == nil {
		return nil, errors.New("bundle: nil archive")
	}

	tr := tar.NewReader(r)
	seen := map[string]struct{}{}
	var out []cid.Cid
	for {
		h, err := tr.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		name := cleanTarPath(h.Name)
		if name == "" {
			return out, fmt.Errorf("bundle: invalid entry path %q", h.Name)
		}
		if name == indexName {
			continue
		}
		if h.Typeflag != tar.TypeReg || !strings.HasPrefix(name, filesDir) || !strings.HasSuffix(name, fileSuffix) {
			if opts.IgnoreUnknown {
				continue
			}
			return out, fmt.Errorf("bundle: unexpected entry %s", name)
		}
		if h.Size > maxFileBytes {
			return out, fmt.Errorf("bundle: %s is %d bytes", name, h.Size)
		}

		id, err := cidutil.Parse(strings.TrimSuffix(strings.TrimPrefix(name, filesDir), fileSuffix))
		if err != nil {
			return out, storage.ErrInvalidCID
		}
		if _, dup := seen[id.KeyString()]; dup {
			return out, fmt.Errorf("bundle: duplicate entry %s", id)
		}
		seen[id.KeyString()] = struct{}{}

		data, err := io.ReadAll(io.LimitReader(tr, maxFileBytes))
		if err != nil {
			return out, err
		}
		if !cidutil.Matches(id, data) {
			return out, storage.ErrCIDMismatch
		}
		got, err := storage.PutPublicationsFile(cas, data)
		if err != nil {
			return out, err
		}
		if !got.Equals(id) {
			return out, storage.ErrCIDMismatch
		}
		out = append(out, id)
	}
}

type index struct {
	Version   int          `json:"version"`
	CIDCodec  string       `json:"cidCodec"`
	Multihash string       `json:"multihash"`
	Files     []indexFile  `json:"files"`
	Labels    []indexLabel `json:"labels,omitempty"`
}

type indexFile struct {
	CID              string `json:"cid"`
	Size             int    `json:"size"`
	Publications     int    `json:"publications"`
	KeyHashes        int    `json:"keyHashes"`
	FirstPublication int64  `json:"firstPublication"`
}

type indexLabel struct {
	Name string `json:"name"`
	CID  string `json:"cid"`
}

func describe(id string, size int, f *pubfile.File) indexFile {
	return indexFile{
		CID:              id,
		Size:             size,
		Publications:     f.PublicationCount(),
		KeyHashes:        f.KeyHashCount(),
		FirstPublication: f.Header().FirstPublicationIdent,
	}
}

func writeEntry(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch,
		Typeflag: tar.TypeReg,
		Format:   tar.FormatUSTAR,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := tw.Write(content)
	return err
}

// cleanTarPath normalizes separators and rejects empty, "." and ".."
// components.
func cleanTarPath(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	name = strings.TrimPrefix(strings.TrimPrefix(name, "./"), "/")
	if name == "" {
		return ""
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return name
}
