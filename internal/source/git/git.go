package git

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	xssh "golang.org/x/crypto/ssh"
)

// GitSource clones the definitions repository, or pulls it when a clone
// already exists.
type GitSource struct {
	repo   string
	path   string
	branch string
	auth   transport.AuthMethod
}

func NewGitSource(c *Config) (*GitSource, error) {
	if c == nil {
		return nil, errors.New("need git config")
	}
	g := &GitSource{
		repo:   c.URL,
		path:   c.LocalRepository,
		branch: c.Branch,
	}
	switch {
	case c.PrivateKey != "":
		if _, err := os.Stat(c.PrivateKey); err != nil {
			return nil, err
		}
		publicKeys, err := ssh.NewPublicKeysFromFile("git", c.PrivateKey, "")
		if err != nil {
			return nil, err
		}
		switch {
		case c.Insecure:
			publicKeys.HostKeyCallback = xssh.InsecureIgnoreHostKey()
		case c.KnownHosts != "":
			callback, err := ssh.NewKnownHostsCallback(c.KnownHosts)
			if err != nil {
				return nil, fmt.Errorf("error loading known hosts: %w", err)
			}
			publicKeys.HostKeyCallback = callback
		}
		g.auth = publicKeys
	case c.Username != "":
		g.auth = &http.BasicAuth{
			Username: c.Username,
			Password: c.Password,
		}
	}
	return g, nil
}

func (g *GitSource) Sync(ctx context.Context) error {
	options := git.CloneOptions{
		URL:  g.repo,
		Auth: g.auth,
	}
	pullOptions := git.PullOptions{
		Auth: g.auth,
	}
	if g.branch != "" {
		options.ReferenceName = plumbing.NewBranchReferenceName(g.branch)
		options.SingleBranch = true
		pullOptions.ReferenceName = options.ReferenceName
	}
	_, err := git.PlainCloneContext(ctx, g.path, false, &options)
	if err == nil {
		log.Debug("cloned definitions", "repo", g.repo)
		return nil
	}
	if !errors.Is(err, git.ErrRepositoryAlreadyExists) {
		return err
	}
	r, err := git.PlainOpen(g.path)
	if err != nil {
		return err
	}
	w, err := r.Worktree()
	if err != nil {
		return err
	}
	err = w.PullContext(ctx, &pullOptions)
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return err
	}
	log.Debug("pulled definitions", "repo", g.repo)
	return nil
}

func (g *GitSource) Clean() error {
	return os.RemoveAll(g.path)
}
