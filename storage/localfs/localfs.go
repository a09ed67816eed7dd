package localfs

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"

	"github.com/zcyzhu/node-guardtime/cidutil"
	"github.com/zcyzhu/node-guardtime/storage"
)

// CAS is a directory of publications files keyed by CID.
//
// Objects are stored read-only under root/<first two CID chars>/<CID> and
// are re-hashed on every read.
type CAS struct {
	root string
}

// New opens (creating if needed) an archive rooted at root.
func New(root string) (*CAS, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &CAS{root: root}, nil
}

func (c *CAS) Put(bytes []byte) (cid.Cid, error) {
	id, err := cidutil.CIDv1RawSHA256CID(bytes)
	if err != nil {
		return cid.Undef, err
	}
	if !id.Defined() {
		return cid.Undef, storage.ErrInvalidCID
	}

	path := c.pathFor(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cid.Undef, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		if os.IsExist(err) {
			// An unreadable or corrupted existing object is never repaired.
			existing, rerr := c.Get(id)
			if rerr != nil || string(existing) != string(bytes) {
				return cid.Undef, storage.ErrImmutable
			}
			return id, nil
		}
		return cid.Undef, err
	}
	defer f.Close()

	if _, err := f.Write(bytes); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return cid.Undef, err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return cid.Undef, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return cid.Undef, err
	}

	return id, nil
}

func (c *CAS) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	path := c.pathFor(id)
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	if !cidutil.Matches(id, b) {
		return nil, storage.ErrCIDMismatch
	}
	return b, nil
}

func (c *CAS) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	_, err := os.Stat(c.pathFor(id))
	return err == nil
}

func (c *CAS) pathFor(id cid.Cid) string {
	s := id.String()
	if len(s) < 2 {
		return filepath.Join(c.root, s)
	}
	return filepath.Join(c.root, s[:2], s)
}

// OpenMulti opens one archive per directory and chains them in order, the
// first being the one Put writes to.
func OpenMulti(dirs []string) (storage.CAS, error) {
	if len(dirs) == 0 {
		return nil, storage.ErrNoAdapters
	}
	if len(dirs) == 1 {
		return New(dirs[0])
	}
	m := storage.MultiCAS{Adapters: make([]storage.CAS, 0, len(dirs))}
	for _, d := range dirs {
		c, err := New(d)
		if err != nil {
			return nil, err
		}
		m.Adapters = append(m.Adapters, c)
	}
	return m, nil
}

// OpenMirror opens one archive per directory and writes every Put to all
// of them. Backends are named by directory.
func OpenMirror(dirs []string) (storage.ReplicatingCAS, error) {
	r := storage.ReplicatingCAS{Backends: make([]storage.NamedCAS, 0, len(dirs))}
	if len(dirs) == 0 {
		return r, storage.ErrNoAdapters
	}
	for _, d := range dirs {
		c, err := New(d)
		if err != nil {
			return r, err
		}
		r.Backends = append(r.Backends, storage.NamedCAS{Name: d, CAS: c})
	}
	return r, nil
}
