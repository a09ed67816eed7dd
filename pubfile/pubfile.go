package pubfile

import (
	"github.com/ipfs/go-cid"
	"go.mozilla.org/pkcs7"
	"go.uber.org/zap"

	"github.com/zcyzhu/node-guardtime/cidutil"
	"github.com/zcyzhu/node-guardtime/compliance"
	"github.com/zcyzhu/node-guardtime/pubdata"
)

// File is a decoded publications file. It owns a private copy of the input
// and is safe for concurrent read-only use.
type File struct {
	data   []byte
	header Header
	layout layout

	// pubs is nil when lazy is set.
	pubs      []cell
	lazy      bool
	keyHashes []cell

	references []string
	signature  *pkcs7.PKCS7

	anchor TrustAnchor
	log    *zap.Logger
}

// Decode parses data with default Options.
func Decode(data []byte) (*File, error) {
	return DecodeWithOptions(data, Options{})
}

// DecodeWithOptions parses and structurally validates a publications file.
// The signature is parsed but not verified; call Verify for that. Either a
// fully built *File or an error is returned, never both.
func DecodeWithOptions(data []byte, opts Options) (*File, error) {
	opts = opts.withDefaults()

	buf := make([]byte, len(data))
	copy(buf, data)

	h, l, err := decodeHeader(buf)
	if err != nil {
		return nil, err
	}

	var pubs []cell
	if !opts.LazyPublications {
		pubs, err = decodeTable(buf, l.pubBegin, l.pubCellSize, l.pubCount)
		if err != nil {
			return nil, err
		}
		if opts.Mode == compliance.Strict {
			if err := checkAscending(pubs); err != nil {
				return nil, err
			}
		}
	}

	keyHashes, err := decodeTable(buf, l.khBegin, l.khCellSize, l.khCount)
	if err != nil {
		return nil, err
	}

	refs, err := pubdata.ParseReferences(buf[l.refBegin:l.sigBegin])
	if err != nil {
		return nil, wrapError(KindInvalidFormat, "PUBFILE-REF-001", "malformed references block", err)
	}

	sig, err := pkcs7.Parse(buf[l.sigBegin:])
	if err != nil {
		return nil, wrapError(KindInvalidFormat, "PUBFILE-SIG-001", "malformed signature block", err)
	}

	f := &File{
		data:       buf,
		header:     h,
		layout:     l,
		pubs:       pubs,
		lazy:       opts.LazyPublications,
		keyHashes:  keyHashes,
		references: refs,
		signature:  sig,
		anchor:     *opts.Anchor,
		log:        opts.Logger,
	}
	f.log.Debug("decoded publications file",
		zap.Int("size", len(buf)),
		zap.Int("publications", l.pubCount),
		zap.Int("key_hashes", l.khCount),
		zap.Int64("first_publication", h.FirstPublicationIdent),
		zap.Bool("lazy", opts.LazyPublications),
		zap.Stringer("mode", opts.Mode),
	)
	return f, nil
}

func (f *File) Header() Header { return f.header }

func (f *File) PublicationCount() int { return f.layout.pubCount }

func (f *File) KeyHashCount() int { return f.layout.khCount }

// References returns the printed-media citations listed in the file.
func (f *File) References() []string {
	return append([]string(nil), f.references...)
}

// SignedBytes returns a copy of the region covered by the signature.
func (f *File) SignedBytes() []byte {
	return append([]byte(nil), f.data[:f.layout.sigBegin]...)
}

// Bytes returns a copy of the whole file.
func (f *File) Bytes() []byte {
	return append([]byte(nil), f.data...)
}

// CID returns the content identifier of the file bytes (CIDv1, raw,
// sha2-256), the key it is archived under.
func (f *File) CID() (cid.Cid, error) {
	return cidutil.CIDv1RawSHA256CID(f.data)
}

// SigningCertificate returns the DER encoding of the certificate of the
// signature's only signer.
func (f *File) SigningCertificate() ([]byte, error) {
	if len(f.signature.Signers) != 1 {
		return nil, newError(KindInvalidFormat, "PUBFILE-SIG-002", "signature must have exactly one signer")
	}
	cert := f.signature.GetOnlySigner()
	if cert == nil {
		return nil, newError(KindInvalidFormat, "PUBFILE-SIG-003", "signer certificate missing from signature")
	}
	return append([]byte(nil), cert.Raw...), nil
}

func (f *File) imprint(s span) []byte {
	return append([]byte(nil), f.data[s.off:s.off+s.len]...)
}
