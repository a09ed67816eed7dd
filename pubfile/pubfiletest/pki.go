package pubfiletest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"math/big"
	"sync"
	"time"
)

// DefaultEmail is the signer address publications files are expected to
// carry.
const DefaultEmail = "publications@guardtime.com"

var oidEmailAddress = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 1}

// PKI is a throwaway root CA and one signer certificate issued by it.
type PKI struct {
	Root    *x509.Certificate
	RootKey *rsa.PrivateKey

	Signer    *x509.Certificate
	SignerKey *rsa.PrivateKey
}

var (
	defaultOnce sync.Once
	defaultPKI  *PKI
	defaultErr  error
)

// DefaultPKI returns a process-wide PKI whose signer carries DefaultEmail.
// RSA key generation is slow, so tests share it.
func DefaultPKI() (*PKI, error) {
	defaultOnce.Do(func() {
		defaultPKI, defaultErr = NewPKI(DefaultEmail)
	})
	return defaultPKI, defaultErr
}

// NewPKI creates a root and a signer whose subject email is email.
// Certificates are valid from an hour ago until a day from now.
func NewPKI(email string) (*PKI, error) {
	rootKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Test Publications Root", Organization: []string{"Test"}},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &rootKey.PublicKey, rootKey)
	if err != nil {
		return nil, err
	}
	root, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, err
	}
	p := &PKI{Root: root, RootKey: rootKey}
	if err := p.issue(email, 2, x509.UnknownSignatureAlgorithm); err != nil {
		return nil, err
	}
	return p, nil
}

// WithSigner returns a PKI sharing p's root with a newly issued signer.
func (p *PKI) WithSigner(email string) (*PKI, error) {
	q := &PKI{Root: p.Root, RootKey: p.RootKey}
	serial := p.Signer.SerialNumber.Int64() + 1
	if err := q.issue(email, serial, x509.UnknownSignatureAlgorithm); err != nil {
		return nil, err
	}
	return q, nil
}

// WithSignerAlgorithm is WithSigner with the root signing the new
// certificate using alg, for example x509.SHA1WithRSA.
func (p *PKI) WithSignerAlgorithm(email string, alg x509.SignatureAlgorithm) (*PKI, error) {
	q := &PKI{Root: p.Root, RootKey: p.RootKey}
	serial := p.Signer.SerialNumber.Int64() + 1
	if err := q.issue(email, serial, alg); err != nil {
		return nil, err
	}
	return q, nil
}

func (p *PKI) issue(email string, serial int64, alg x509.SignatureAlgorithm) error {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return err
	}
	now := time.Now()
	subject := pkix.Name{CommonName: "Test Publications Signer", Organization: []string{"Test"}}
	if email != "" {
		subject.ExtraNames = []pkix.AttributeTypeAndValue{{Type: oidEmailAddress, Value: email}}
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(serial),
		Subject:      subject,
		NotBefore:    now.Add(-time.Hour),
		NotAfter:     now.Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,

		SignatureAlgorithm: alg,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, p.Root, &key.PublicKey, p.RootKey)
	if err != nil {
		return err
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return err
	}
	p.Signer, p.SignerKey = cert, key
	return nil
}

// RootDER returns the root certificate in DER form.
func (p *PKI) RootDER() []byte {
	return append([]byte(nil), p.Root.Raw...)
}

// RootPEM returns the root certificate as a PEM CERTIFICATE block.
func (p *PKI) RootPEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: p.Root.Raw})
}
