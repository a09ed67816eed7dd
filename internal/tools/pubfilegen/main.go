package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/zcyzhu/node-guardtime/cidutil"
	"github.com/zcyzhu/node-guardtime/hashalg"
	"github.com/zcyzhu/node-guardtime/pubfile/pubfiletest"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("pubfilegen", flag.ContinueOnError)
	fs.SetOutput(errOut)
	dir := fs.String("out", ".", "output directory")
	count := fs.Int("count", 30, "number of daily publications")
	start := fs.String("start", "2010-01-01", "first publication date (YYYY-MM-DD, UTC)")
	algName := fs.String("alg", "SHA-256", "publication imprint algorithm")
	keyHashes := fs.Int("keyhashes", 2, "number of key hashes")
	email := fs.String("email", pubfiletest.DefaultEmail, "signer email address")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *count < 0 || *keyHashes < 0 || *keyHashes > 0xffff {
		fmt.Fprintln(errOut, "count and keyhashes must be non-negative; keyhashes at most 65535")
		return 2
	}
	day, err := time.Parse("2006-01-02", *start)
	if err != nil {
		fmt.Fprintf(errOut, "invalid -start: %v\n", err)
		return 2
	}
	alg, err := hashalg.ParseName(*algName)
	if err != nil {
		fmt.Fprintf(errOut, "invalid -alg: %v\n", err)
		return 2
	}

	pki, err := pubfiletest.NewPKI(*email)
	if err != nil {
		fmt.Fprintf(errOut, "pki: %v\n", err)
		return 1
	}
	b := &pubfiletest.Builder{
		Publications: pubfiletest.Daily(day.Unix(), *count, alg),
		References:   []string{fmt.Sprintf("pubfilegen synthetic file, %s", day.Format("2006-01-02"))},
		PKI:          pki,
	}
	for i := 0; i < *keyHashes; i++ {
		im, err := hashalg.Compute(hashalg.SHA256, []byte(fmt.Sprintf("gateway key %d", i)))
		if err != nil {
			fmt.Fprintf(errOut, "key hash: %v\n", err)
			return 1
		}
		b.KeyHashes = append(b.KeyHashes, pubfiletest.Entry{Time: day.Unix() + int64(i)*86400, Imprint: im})
	}
	data, err := b.Build()
	if err != nil {
		fmt.Fprintf(errOut, "build: %v\n", err)
		return 1
	}

	pubPath := filepath.Join(*dir, "publications.bin")
	rootPath := filepath.Join(*dir, "root.pem")
	if err := os.WriteFile(pubPath, data, 0o644); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if err := os.WriteFile(rootPath, pki.RootPEM(), 0o644); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}

	fmt.Fprintf(out, "CID=%s\n", cidutil.CIDv1RawSHA256(data))
	fmt.Fprintf(out, "FILE=%s\n", pubPath)
	fmt.Fprintf(out, "ANCHOR=%s\n", rootPath)
	fmt.Fprintf(out, "EMAIL=%s\n", *email)
	return 0
}
