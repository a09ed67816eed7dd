package pubfile

import (
	"bytes"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"go.mozilla.org/pkcs7"
)

const maxChainDepth = 8

var errNoIssuer = errors.New("no issuer certificate found")

// signingTime returns the signing-time attribute of the only signer, or
// the current time when the attribute is absent.
func signingTime(p7 *pkcs7.PKCS7) time.Time {
	var t time.Time
	if err := p7.UnmarshalSignedAttribute(pkcs7.OIDAttributeSigningTime, &t); err != nil || t.IsZero() {
		return time.Now()
	}
	return t
}

// verifyChain checks that signer chains to root at time at, using certs as
// candidate intermediates. Path building by crypto/x509 is tried first.
// When it cannot find an acceptable issuer, as happens for SHA-1 issued
// certificates in the built-in anchor's hierarchy, the chain is walked
// with (*x509.Certificate).CheckSignature instead. legacy reports whether
// the walk decided the result.
func verifyChain(signer, root *x509.Certificate, certs []*x509.Certificate, at time.Time) (legacy bool, err error) {
	roots := x509.NewCertPool()
	roots.AddCert(root)
	intermediates := x509.NewCertPool()
	for _, c := range certs {
		intermediates.AddCert(c)
	}
	_, err = signer.Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		CurrentTime:   at,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err == nil {
		return false, nil
	}

	var unknown x509.UnknownAuthorityError
	var insecure x509.InsecureAlgorithmError
	if !errors.As(err, &unknown) && !errors.As(err, &insecure) {
		return false, err
	}
	if err := walkChain(signer, root, certs, at); err != nil {
		return true, err
	}
	return true, nil
}

// walkChain follows issuer links from cert up to root. Every certificate
// on the way must be valid at at; the root's own signature is not checked.
func walkChain(cert, root *x509.Certificate, certs []*x509.Certificate, at time.Time) error {
	for depth := 0; depth <= maxChainDepth; depth++ {
		if at.Before(cert.NotBefore) || at.After(cert.NotAfter) {
			return x509.CertificateInvalidError{Cert: cert, Reason: x509.Expired}
		}
		if bytes.Equal(cert.Raw, root.Raw) {
			return nil
		}
		issuer, err := findIssuer(cert, root, certs)
		if err != nil {
			return err
		}
		cert = issuer
	}
	return fmt.Errorf("certificate chain longer than %d", maxChainDepth)
}

func findIssuer(cert, root *x509.Certificate, certs []*x509.Certificate) (*x509.Certificate, error) {
	candidates := append([]*x509.Certificate{root}, certs...)
	var firstErr error
	for _, c := range candidates {
		if bytes.Equal(c.Raw, cert.Raw) || !bytes.Equal(c.RawSubject, cert.RawIssuer) {
			continue
		}
		// v1 certificates carry no basic constraints and may still issue.
		if c != root && c.BasicConstraintsValid && !c.IsCA {
			continue
		}
		err := c.CheckSignature(cert.SignatureAlgorithm, cert.RawTBSCertificate, cert.Signature)
		if err == nil {
			return c, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return nil, fmt.Errorf("%w for %q", errNoIssuer, cert.Subject.String())
}

// engineRefused reports whether err comes from the verification engine
// declining an algorithm rather than from a signature that does not match.
func engineRefused(err error) bool {
	var insecure x509.InsecureAlgorithmError
	return errors.As(err, &insecure) ||
		errors.Is(err, x509.ErrUnsupportedAlgorithm) ||
		errors.Is(err, pkcs7.ErrUnsupportedAlgorithm)
}
