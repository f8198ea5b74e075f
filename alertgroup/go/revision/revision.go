// Package revision turns the commit positions stored on anomalies into git
// hashes and commit metadata.
package revision

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"go.skia.org/alertgroups/go/gitiles"
	"go.skia.org/alertgroups/go/httputils"
	"go.skia.org/alertgroups/go/metrics2"
	"go.skia.org/alertgroups/go/skerr"
	"go.skia.org/alertgroups/go/util"
	"golang.org/x/oauth2"
)

const (
	// DefaultNumberingURL is the crrev numbering endpoint.
	DefaultNumberingURL = "https://cr-rev.appspot.com/_ah/api/crrev/v1/get_numbering"

	// DefaultRepoURL is the gitiles URL of the repo the commit positions
	// belong to.
	DefaultRepoURL = "https://chromium.googlesource.com/chromium/src"

	cacheSize = 10000
)

// RevisionInfo describes one end-to-end revision range of a test, used in bug
// descriptions.
type RevisionInfo struct {
	Name  string `json:"name"`
	Start string `json:"start"`
	End   string `json:"end"`
	URL   string `json:"url"`
}

// Resolver resolves commit positions.
type Resolver interface {
	// ResolveToGitHash returns the git hash of the commit at the given
	// position in the repo the benchmark runs against.
	ResolveToGitHash(ctx context.Context, revision int64, benchmark string) (string, error)

	// GetRangeRevisionInfo returns links describing the revision range of a
	// test.
	GetRangeRevisionInfo(ctx context.Context, testPath string, start, end int64) ([]RevisionInfo, error)

	// CommitAuthor returns the email of the author of the commit at the given
	// position.
	CommitAuthor(ctx context.Context, revision int64, benchmark string) (string, error)
}

// HTTPResolver implements Resolver using the crrev numbering service and
// gitiles. Resolved hashes are cached.
type HTTPResolver struct {
	httpClient   *http.Client
	numberingURL string
	repo         *gitiles.Repo
	cache        *lru.Cache

	resolveCalled metrics2.Counter
	resolveFailed metrics2.Counter
	cacheHits     metrics2.Counter
}

// New returns a new *HTTPResolver. Empty URLs are replaced with the defaults.
func New(numberingURL, repoURL string, ts oauth2.TokenSource) (*HTTPResolver, error) {
	c := httputils.DefaultClientConfig().WithTokenSource(ts).Client()
	return newWithClient(c, numberingURL, repoURL)
}

func newWithClient(c *http.Client, numberingURL, repoURL string) (*HTTPResolver, error) {
	if numberingURL == "" {
		numberingURL = DefaultNumberingURL
	}
	if repoURL == "" {
		repoURL = DefaultRepoURL
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, skerr.Wrap(err)
	}
	return &HTTPResolver{
		httpClient:    c,
		numberingURL:  numberingURL,
		repo:          gitiles.NewRepo(repoURL, c),
		cache:         cache,
		resolveCalled: metrics2.GetCounter("revision_resolve_called"),
		resolveFailed: metrics2.GetCounter("revision_resolve_failed"),
		cacheHits:     metrics2.GetCounter("revision_resolve_cache_hits"),
	}, nil
}

type numberingResponse struct {
	GitSHA string `json:"git_sha"`
}

// ResolveToGitHash implements Resolver.
func (r *HTTPResolver) ResolveToGitHash(ctx context.Context, revision int64, benchmark string) (string, error) {
	if hash, ok := r.cache.Get(revision); ok {
		r.cacheHits.Inc(1)
		return hash.(string), nil
	}
	r.resolveCalled.Inc(1)
	v := url.Values{}
	v.Set("project", "chromium")
	v.Set("repo", "chromium/src")
	v.Set("numbering_type", "COMMIT_POSITION")
	v.Set("numbering_identifier", "refs/heads/main")
	v.Set("number", fmt.Sprintf("%d", revision))
	u := r.numberingURL + "?" + v.Encode()

	resp, err := httputils.GetWithContext(ctx, r.httpClient, u)
	if err != nil {
		r.resolveFailed.Inc(1)
		return "", skerr.Wrapf(err, "resolving revision %d for %s", revision, benchmark)
	}
	defer util.Close(resp.Body)
	if resp.StatusCode != http.StatusOK {
		r.resolveFailed.Inc(1)
		return "", skerr.Fmt("Resolving revision %d got status %d", revision, resp.StatusCode)
	}
	var nr numberingResponse
	if err := json.NewDecoder(resp.Body).Decode(&nr); err != nil {
		r.resolveFailed.Inc(1)
		return "", skerr.Wrapf(err, "decoding numbering response for %d", revision)
	}
	if nr.GitSHA == "" {
		r.resolveFailed.Inc(1)
		return "", skerr.Fmt("No git hash for revision %d", revision)
	}
	r.cache.Add(revision, nr.GitSHA)
	return nr.GitSHA, nil
}

// GetRangeRevisionInfo implements Resolver.
func (r *HTTPResolver) GetRangeRevisionInfo(ctx context.Context, testPath string, start, end int64) ([]RevisionInfo, error) {
	benchmark := ""
	if parts := strings.Split(testPath, "/"); len(parts) > 2 {
		benchmark = parts[2]
	}
	startHash, err := r.ResolveToGitHash(ctx, start, benchmark)
	if err != nil {
		return nil, err
	}
	endHash, err := r.ResolveToGitHash(ctx, end, benchmark)
	if err != nil {
		return nil, err
	}
	return []RevisionInfo{
		{
			Name:  "Chromium Commit Position",
			Start: fmt.Sprintf("%d", start),
			End:   fmt.Sprintf("%d", end),
			URL:   r.repo.LogLink(startHash, endHash),
		},
	}, nil
}

// CommitAuthor implements Resolver.
func (r *HTTPResolver) CommitAuthor(ctx context.Context, revision int64, benchmark string) (string, error) {
	hash, err := r.ResolveToGitHash(ctx, revision, benchmark)
	if err != nil {
		return "", err
	}
	commit, err := r.repo.GetCommit(ctx, hash)
	if err != nil {
		return "", skerr.Wrapf(err, "loading commit %s", hash)
	}
	if commit.AuthorEmail == "" {
		return "", skerr.Fmt("Commit %s has no author", hash)
	}
	return commit.AuthorEmail, nil
}

// Confirm HTTPResolver implements Resolver.
var _ Resolver = (*HTTPResolver)(nil)
