package httpclient

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"path/filepath"

	"github.com/MuntasirSZN/fetchttp/internal/errdef"
)

type RootMode string

const (
	RootModeReplace RootMode = "replace"
	RootModeAppend  RootMode = "append"
)

// buildTLS loads CA bundles and the client key pair named in opts. Relative
// paths resolve against opts.BaseDir.
func buildTLS(opts Options) (*tls.Config, error) {
	tc := &tls.Config{InsecureSkipVerify: opts.Insecure} // nolint:gosec

	if len(opts.RootCAs) > 0 {
		pool, err := loadRootCAs(opts.RootCAs, opts.BaseDir, opts.RootMode == RootModeAppend)
		if err != nil {
			return nil, err
		}
		tc.RootCAs = pool
	}

	if opts.ClientCert != "" || opts.ClientKey != "" {
		if opts.ClientCert == "" || opts.ClientKey == "" {
			return nil, errdef.New(errdef.CodeTLS, "client certificate and key are both required")
		}
		cert, err := tls.LoadX509KeyPair(resolvePath(opts.ClientCert, opts.BaseDir), resolvePath(opts.ClientKey, opts.BaseDir))
		if err != nil {
			return nil, errdef.Wrap(errdef.CodeTLS, err, "load client certificate")
		}
		tc.Certificates = []tls.Certificate{cert}
	}
	return tc, nil
}

func loadRootCAs(paths []string, baseDir string, mergeSystem bool) (*x509.CertPool, error) {
	var pool *x509.CertPool
	if mergeSystem {
		pool, _ = x509.SystemCertPool()
	}
	if pool == nil {
		pool = x509.NewCertPool()
	}
	for _, p := range paths {
		data, err := os.ReadFile(resolvePath(p, baseDir))
		if err != nil {
			return nil, errdef.Wrap(errdef.CodeFilesystem, err, "read root ca %s", p)
		}
		if !pool.AppendCertsFromPEM(data) {
			return nil, errdef.New(errdef.CodeTLS, "no certificates found in %s", p)
		}
	}
	return pool, nil
}

func resolvePath(path, baseDir string) string {
	if filepath.IsAbs(path) || baseDir == "" {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(baseDir, path))
}
