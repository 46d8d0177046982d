package oci

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/remote"
)

// OCISource unpacks definitions published as an OCI artifact.
type OCISource struct {
	reference       string
	localRepository string
	auth            authn.Authenticator
	insecure        bool
}

func NewOCISource(c *Config) (*OCISource, error) {
	if c == nil {
		return nil, errors.New("need OCI config")
	}
	o := &OCISource{
		reference:       c.Reference(),
		localRepository: c.LocalRepository,
		insecure:        c.Insecure,
		auth:            authn.Anonymous,
	}
	if c.Username != "" && c.Password != "" {
		o.auth = &authn.Basic{
			Username: c.Username,
			Password: c.Password,
		}
	}
	return o, nil
}

func (o *OCISource) Sync(ctx context.Context) error {
	log.Info("pulling definitions image", "image", o.reference)
	var nameOpts []name.Option
	if o.insecure {
		nameOpts = append(nameOpts, name.Insecure)
	}
	ref, err := name.ParseReference(o.reference, nameOpts...)
	if err != nil {
		return fmt.Errorf("failed to parse image reference: %w", err)
	}
	img, err := remote.Image(ref, remote.WithAuth(o.auth), remote.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to pull image: %w", err)
	}
	if err := os.MkdirAll(o.localRepository, 0o755); err != nil {
		return fmt.Errorf("failed to create local repository: %w", err)
	}
	contents := mutate.Extract(img)
	defer func() {
		_ = contents.Close()
	}()
	if err := extract(tar.NewReader(contents), o.localRepository); err != nil {
		return err
	}
	log.Debug("extracted definitions image", "path", o.localRepository)
	return nil
}

// extract writes the regular files and directories of a tar stream under
// dest. Entries escaping dest are rejected.
func extract(tr *tar.Reader, dest string) error {
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read tar header: %w", err)
		}
		if !filepath.IsLocal(header.Name) {
			return fmt.Errorf("refusing to extract %v outside of %v", header.Name, dest)
		}
		target := filepath.Join(dest, header.Name)
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("failed to create parent directory for %s: %w", target, err)
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
			if err != nil {
				return fmt.Errorf("failed to create file %s: %w", target, err)
			}
			_, err = io.Copy(f, tr)
			_ = f.Close()
			if err != nil {
				return fmt.Errorf("failed to write file %s: %w", target, err)
			}
		default:
			log.Debug("skipping unsupported tar entry", "type", header.Typeflag, "name", header.Name)
		}
	}
}

func (o *OCISource) Clean() error {
	return os.RemoveAll(o.localRepository)
}
