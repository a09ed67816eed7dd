package pubfile

import (
	"crypto/x509"
	"encoding/asn1"
	"fmt"
	"strings"

	"go.mozilla.org/pkcs7"
	"go.uber.org/zap"

	"github.com/zcyzhu/node-guardtime/pubdata"
)

// NoPublicationTime marks the first/last publication time of a file
// without publications.
const NoPublicationTime int64 = -1

var oidEmailAddress = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 1}

// VerificationInfo summarizes a successfully verified publications file.
// It does not reference the File it was produced from.
type VerificationInfo struct {
	PublicationsCount    int
	KeyHashCount         int
	FirstPublicationTime int64
	LastPublicationTime  int64
	// Certificate is the signer certificate as dash-grouped base-32.
	Certificate string
}

// Verify checks the signature against the trust anchor the file was
// decoded with (DefaultTrustAnchor unless Options.Anchor was set).
func (f *File) Verify() (*VerificationInfo, error) {
	return f.VerifyWithAnchor(f.anchor)
}

// VerifyWithAnchor checks that the signature covers every byte before the
// signature block, that the signer chains to a.RootCertificate, and that
// the signer certificate was issued to a.SignerEmail. The File is not
// modified, so concurrent calls are safe.
func (f *File) VerifyWithAnchor(a TrustAnchor) (*VerificationInfo, error) {
	root, err := a.rootCertificate()
	if err != nil {
		return nil, wrapError(KindCryptoFailure, "PUBFILE-SIG-010", "cannot load trust anchor", err)
	}

	// A fresh parse keeps the shared signature untouched when Content is set.
	p7, err := pkcs7.Parse(f.data[f.layout.sigBegin:])
	if err != nil {
		return nil, wrapError(KindCryptoFailure, "PUBFILE-SIG-011", "cannot reparse signature", err)
	}
	p7.Content = f.data[:f.layout.sigBegin]

	// Signer signatures only; the chain is checked separately below.
	if err := p7.Verify(); err != nil {
		return nil, f.signatureError(err, "PUBFILE-SIG-012", "signature verification failed")
	}

	signer := p7.GetOnlySigner()
	if signer == nil {
		return nil, newError(KindInvalidSignature, "PUBFILE-SIG-013", "signature must have exactly one signer")
	}
	legacy, err := verifyChain(signer, root, p7.Certificates, signingTime(p7))
	if err != nil {
		return nil, f.signatureError(err, "PUBFILE-SIG-017", "signer does not chain to the trust anchor")
	}
	if legacy {
		f.log.Debug("signer chain accepted by issuer walk",
			zap.String("subject", signer.Subject.String()),
			zap.Stringer("algorithm", signer.SignatureAlgorithm),
		)
	}

	email, ok := subjectEmail(signer)
	if !ok {
		return nil, newError(KindInvalidSignature, "PUBFILE-SIG-014", "signer certificate has no email address")
	}
	if !strings.EqualFold(email, a.SignerEmail) {
		f.log.Warn("publications file signed by unexpected identity",
			zap.String("email", email),
			zap.String("expected", a.SignerEmail),
		)
		return nil, newError(KindInvalidSignature, "PUBFILE-SIG-015",
			fmt.Sprintf("signer email %q does not match %q", email, a.SignerEmail))
	}

	info, err := f.verificationInfo(signer)
	if err != nil {
		return nil, err
	}
	f.log.Info("publications file verified",
		zap.String("signer", email),
		zap.Int("publications", info.PublicationsCount),
		zap.Int64("last_publication", info.LastPublicationTime),
	)
	return info, nil
}

// signatureError classifies a failure from the signature or chain check.
// An algorithm the verification engine declines is a CryptoFailure; any
// other failure means the signature does not verify.
func (f *File) signatureError(err error, rule, msg string) error {
	if engineRefused(err) {
		f.log.Warn("publications file signature algorithm refused", zap.Error(err))
		return wrapError(KindCryptoFailure, "PUBFILE-SIG-016", "signature uses an unsupported or insecure algorithm", err)
	}
	f.log.Warn("publications file signature rejected", zap.Error(err))
	return wrapError(KindInvalidSignature, rule, msg, err)
}

func subjectEmail(cert *x509.Certificate) (string, bool) {
	for _, atv := range cert.Subject.Names {
		if !atv.Type.Equal(oidEmailAddress) {
			continue
		}
		if s, ok := atv.Value.(string); ok {
			return s, true
		}
	}
	return "", false
}

func (f *File) verificationInfo(signer *x509.Certificate) (*VerificationInfo, error) {
	info := &VerificationInfo{
		PublicationsCount:    f.layout.pubCount,
		KeyHashCount:         f.layout.khCount,
		FirstPublicationTime: NoPublicationTime,
		LastPublicationTime:  NoPublicationTime,
		Certificate:          pubdata.EncodeGrouped(signer.Raw, pubdata.CertificateGroup),
	}
	if n := f.layout.pubCount; n > 0 {
		first, err := f.publication(0)
		if err != nil {
			return nil, err
		}
		last, err := f.publication(n - 1)
		if err != nil {
			return nil, err
		}
		info.FirstPublicationTime = first.ident
		info.LastPublicationTime = last.ident
	}
	return info, nil
}
