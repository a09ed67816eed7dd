package pubfile

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// DefaultSignerEmail is the address the publications file signing
// certificate must be issued to.
const DefaultSignerEmail = "publications@guardtime.com"

// TrustAnchor is the root certificate a publications file signature must
// chain to, together with the email address expected in the signer's
// subject.
type TrustAnchor struct {
	RootCertificate []byte // DER
	SignerEmail     string
}

// DefaultTrustAnchor is the compiled-in anchor used by Verify.
var DefaultTrustAnchor = TrustAnchor{
	RootCertificate: verisignClass1Root,
	SignerEmail:     DefaultSignerEmail,
}

// ParseTrustAnchorPEM builds a TrustAnchor from the first CERTIFICATE block
// in pemBytes. An empty email selects DefaultSignerEmail.
func ParseTrustAnchorPEM(pemBytes []byte, email string) (TrustAnchor, error) {
	for {
		var block *pem.Block
		block, pemBytes = pem.Decode(pemBytes)
		if block == nil {
			return TrustAnchor{}, newError(KindInvalidArgument, "PUBFILE-ANCHOR-001", "no CERTIFICATE block in anchor PEM")
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		if _, err := x509.ParseCertificate(block.Bytes); err != nil {
			return TrustAnchor{}, wrapError(KindInvalidArgument, "PUBFILE-ANCHOR-002", "anchor certificate does not parse", err)
		}
		if email == "" {
			email = DefaultSignerEmail
		}
		return TrustAnchor{RootCertificate: block.Bytes, SignerEmail: email}, nil
	}
}

func (a TrustAnchor) rootCertificate() (*x509.Certificate, error) {
	if len(a.RootCertificate) == 0 {
		return nil, errors.New("empty root certificate")
	}
	root, err := x509.ParseCertificate(a.RootCertificate)
	if err != nil {
		return nil, fmt.Errorf("parse root certificate: %w", err)
	}
	return root, nil
}

// verisignClass1Root is "VeriSign Class 1 Public Primary Certification
// Authority", valid 1996-01-29 to 2028-08-01.
var verisignClass1Root = []byte{
	0x30, 0x82, 0x02, 0x3d, 0x30, 0x82, 0x01, 0xa6, 0x02, 0x11, 0x00, 0xcd,
	0xba, 0x7f, 0x56, 0xf0, 0xdf, 0xe4, 0xbc, 0x54, 0xfe, 0x22, 0xac, 0xb3,
	0x72, 0xaa, 0x55, 0x30, 0x0d, 0x06, 0x09, 0x2a, 0x86, 0x48, 0x86, 0xf7,
	0x0d, 0x01, 0x01, 0x02, 0x05, 0x00, 0x30, 0x5f, 0x31, 0x0b, 0x30, 0x09,
	0x06, 0x03, 0x55, 0x04, 0x06, 0x13, 0x02, 0x55, 0x53, 0x31, 0x17, 0x30,
	0x15, 0x06, 0x03, 0x55, 0x04, 0x0a, 0x13, 0x0e, 0x56, 0x65, 0x72, 0x69,
	0x53, 0x69, 0x67, 0x6e, 0x2c, 0x20, 0x49, 0x6e, 0x63, 0x2e, 0x31, 0x37,
	0x30, 0x35, 0x06, 0x03, 0x55, 0x04, 0x0b, 0x13, 0x2e, 0x43, 0x6c, 0x61,
	0x73, 0x73, 0x20, 0x31, 0x20, 0x50, 0x75, 0x62, 0x6c, 0x69, 0x63, 0x20,
	0x50, 0x72, 0x69, 0x6d, 0x61, 0x72, 0x79, 0x20, 0x43, 0x65, 0x72, 0x74,
	0x69, 0x66, 0x69, 0x63, 0x61, 0x74, 0x69, 0x6f, 0x6e, 0x20, 0x41, 0x75,
	0x74, 0x68, 0x6f, 0x72, 0x69, 0x74, 0x79, 0x30, 0x1e, 0x17, 0x0d, 0x39,
	0x36, 0x30, 0x31, 0x32, 0x39, 0x30, 0x30, 0x30, 0x30, 0x30, 0x30, 0x5a,
	0x17, 0x0d, 0x32, 0x38, 0x30, 0x38, 0x30, 0x31, 0x32, 0x33, 0x35, 0x39,
	0x35, 0x39, 0x5a, 0x30, 0x5f, 0x31, 0x0b, 0x30, 0x09, 0x06, 0x03, 0x55,
	0x04, 0x06, 0x13, 0x02, 0x55, 0x53, 0x31, 0x17, 0x30, 0x15, 0x06, 0x03,
	0x55, 0x04, 0x0a, 0x13, 0x0e, 0x56, 0x65, 0x72, 0x69, 0x53, 0x69, 0x67,
	0x6e, 0x2c, 0x20, 0x49, 0x6e, 0x63, 0x2e, 0x31, 0x37, 0x30, 0x35, 0x06,
	0x03, 0x55, 0x04, 0x0b, 0x13, 0x2e, 0x43, 0x6c, 0x61, 0x73, 0x73, 0x20,
	0x31, 0x20, 0x50, 0x75, 0x62, 0x6c, 0x69, 0x63, 0x20, 0x50, 0x72, 0x69,
	0x6d, 0x61, 0x72, 0x79, 0x20, 0x43, 0x65, 0x72, 0x74, 0x69, 0x66, 0x69,
	0x63, 0x61, 0x74, 0x69, 0x6f, 0x6e, 0x20, 0x41, 0x75, 0x74, 0x68, 0x6f,
	0x72, 0x69, 0x74, 0x79, 0x30, 0x81, 0x9f, 0x30, 0x0d, 0x06, 0x09, 0x2a,
	0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x01, 0x01, 0x05, 0x00, 0x03, 0x81,
	0x8d, 0x00, 0x30, 0x81, 0x89, 0x02, 0x81, 0x81, 0x00, 0xe5, 0x19, 0xbf,
	0x6d, 0xa3, 0x56, 0x61, 0x2d, 0x99, 0x48, 0x71, 0xf6, 0x67, 0xde, 0xb9,
	0x8d, 0xeb, 0xb7, 0x9e, 0x86, 0x80, 0x0a, 0x91, 0x0e, 0xfa, 0x38, 0x25,
	0xaf, 0x46, 0x88, 0x82, 0xe5, 0x73, 0xa8, 0xa0, 0x9b, 0x24, 0x5d, 0x0d,
	0x1f, 0xcc, 0x65, 0x6e, 0x0c, 0xb0, 0xd0, 0x56, 0x84, 0x18, 0x87, 0x9a,
	0x06, 0x9b, 0x10, 0xa1, 0x73, 0xdf, 0xb4, 0x58, 0x39, 0x6b, 0x6e, 0xc1,
	0xf6, 0x15, 0xd5, 0xa8, 0xa8, 0x3f, 0xaa, 0x12, 0x06, 0x8d, 0x31, 0xac,
	0x7f, 0xb0, 0x34, 0xd7, 0x8f, 0x34, 0x67, 0x88, 0x09, 0xcd, 0x14, 0x11,
	0xe2, 0x4e, 0x45, 0x56, 0x69, 0x1f, 0x78, 0x02, 0x80, 0xda, 0xdc, 0x47,
	0x91, 0x29, 0xbb, 0x36, 0xc9, 0x63, 0x5c, 0xc5, 0xe0, 0xd7, 0x2d, 0x87,
	0x7b, 0xa1, 0xb7, 0x32, 0xb0, 0x7b, 0x30, 0xba, 0x2a, 0x2f, 0x31, 0xaa,
	0xee, 0xa3, 0x67, 0xda, 0xdb, 0x02, 0x03, 0x01, 0x00, 0x01, 0x30, 0x0d,
	0x06, 0x09, 0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x01, 0x02, 0x05,
	0x00, 0x03, 0x81, 0x81, 0x00, 0x4c, 0x3f, 0xb8, 0x8b, 0xc6, 0x68, 0xdf,
	0xee, 0x43, 0x33, 0x0e, 0x5d, 0xe9, 0xa6, 0xcb, 0x07, 0x84, 0x4d, 0x7a,
	0x33, 0xff, 0x92, 0x1b, 0xf4, 0x36, 0xad, 0xd8, 0x95, 0x22, 0x36, 0x68,
	0x11, 0x6c, 0x7c, 0x42, 0xcc, 0xf3, 0x9c, 0x2e, 0xc4, 0x07, 0x3f, 0x14,
	0xb0, 0x0f, 0x4f, 0xff, 0x90, 0x92, 0x76, 0xf9, 0xe2, 0xbc, 0x4a, 0xe9,
	0x8f, 0xcd, 0xa0, 0x80, 0x0a, 0xf7, 0xc5, 0x29, 0xf1, 0x82, 0x22, 0x5d,
	0xb8, 0xb1, 0xdd, 0x81, 0x23, 0xa3, 0x7b, 0x25, 0x15, 0x46, 0x30, 0x79,
	0x16, 0xf8, 0xea, 0x05, 0x4b, 0x94, 0x7f, 0x1d, 0xc2, 0x1c, 0xc8, 0xe3,
	0xb7, 0xf4, 0x10, 0x40, 0x3c, 0x13, 0xc3, 0x5f, 0x1f, 0x53, 0xe8, 0x48,
	0xe4, 0x86, 0xb4, 0x7b, 0xa1, 0x35, 0xb0, 0x7b, 0x25, 0xba, 0xb8, 0xd3,
	0x8e, 0xab, 0x3f, 0x38, 0x9d, 0x00, 0x34, 0x00, 0x98, 0xf3, 0xd1, 0x71,
	0x94,
}
