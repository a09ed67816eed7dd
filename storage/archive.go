package storage

import (
	"fmt"

	"github.com/ipfs/go-cid"

	"github.com/zcyzhu/node-guardtime/pubfile"
)

// PutPublicationsFile stores data after checking that it decodes as a
// publications file. The signature is not verified here; archives may keep
// files signed under anchors the caller does not trust.
func PutPublicationsFile(cas CAS, data []byte) (cid.Cid, error) {
	if _, err := pubfile.Decode(data); err != nil {
		return cid.Undef, fmt.Errorf("storage: refusing to archive: %w", err)
	}
	return cas.Put(data)
}

// LoadPublicationsFile fetches id and decodes it with opts.
func LoadPublicationsFile(cas CAS, id cid.Cid, opts pubfile.Options) (*pubfile.File, error) {
	if !id.Defined() {
		return nil, ErrInvalidCID
	}
	data, err := cas.Get(id)
	if err != nil {
		return nil, err
	}
	return pubfile.DecodeWithOptions(data, opts)
}
