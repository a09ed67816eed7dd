package pubfile

import (
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.mozilla.org/pkcs7"

	"github.com/zcyzhu/node-guardtime/pubfile/pubfiletest"
)

func TestWalkChain(t *testing.T) {
	pki, err := pubfiletest.DefaultPKI()
	if err != nil {
		t.Fatalf("DefaultPKI: %v", err)
	}
	certs := []*x509.Certificate{pki.Signer}

	if err := walkChain(pki.Signer, pki.Root, certs, time.Now()); err != nil {
		t.Fatalf("walkChain: %v", err)
	}

	var invalid x509.CertificateInvalidError
	err = walkChain(pki.Signer, pki.Root, certs, pki.Signer.NotAfter.Add(time.Minute))
	if !errors.As(err, &invalid) || invalid.Reason != x509.Expired {
		t.Fatalf("expected expired certificate, got %v", err)
	}

	root, err := DefaultTrustAnchor.rootCertificate()
	if err != nil {
		t.Fatalf("rootCertificate: %v", err)
	}
	err = walkChain(pki.Signer, root, certs, time.Now())
	if !errors.Is(err, errNoIssuer) {
		t.Fatalf("expected errNoIssuer, got %v", err)
	}
}

func TestVerifyChain_ModernPathSkipsWalk(t *testing.T) {
	pki, err := pubfiletest.DefaultPKI()
	if err != nil {
		t.Fatalf("DefaultPKI: %v", err)
	}
	legacy, err := verifyChain(pki.Signer, pki.Root, []*x509.Certificate{pki.Signer}, time.Now())
	if err != nil || legacy {
		t.Fatalf("verifyChain = %v, %v", legacy, err)
	}

	sha1, err := pki.WithSignerAlgorithm(pubfiletest.DefaultEmail, x509.SHA1WithRSA)
	if err != nil {
		t.Fatalf("WithSignerAlgorithm: %v", err)
	}
	legacy, err = verifyChain(sha1.Signer, pki.Root, []*x509.Certificate{sha1.Signer}, time.Now())
	if err != nil || !legacy {
		t.Fatalf("verifyChain(SHA-1) = %v, %v", legacy, err)
	}
}

func TestEngineRefused(t *testing.T) {
	refused := []error{
		x509.InsecureAlgorithmError(x509.MD5WithRSA),
		fmt.Errorf("issuer: %w", x509.InsecureAlgorithmError(x509.MD2WithRSA)),
		x509.ErrUnsupportedAlgorithm,
		pkcs7.ErrUnsupportedAlgorithm,
	}
	for _, err := range refused {
		if !engineRefused(err) {
			t.Errorf("engineRefused(%v) = false", err)
		}
	}
	for _, err := range []error{rsa.ErrVerification, errNoIssuer, x509.UnknownAuthorityError{}} {
		if engineRefused(err) {
			t.Errorf("engineRefused(%v) = true", err)
		}
	}
}
