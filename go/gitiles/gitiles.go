// Package gitiles is a small client for reading commits from a Gitiles
// server.
package gitiles

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.skia.org/alertgroups/go/httputils"
	"go.skia.org/alertgroups/go/skerr"
	"go.skia.org/alertgroups/go/util"
)

const (
	CommitURL       = "%s/+/%s?format=JSON"
	DateFormatNoTZ  = "Mon Jan 02 15:04:05 2006"
	DateFormatTZ    = "Mon Jan 02 15:04:05 2006 -0700"
	LogURL          = "%s/+log/%s..%s?format=JSON"
	LogBrowseURL    = "%s/+log/%s..%s"
	xssiGuardLength = 4
)

// Repo is an object used for interacting with a single Git repo using Gitiles.
type Repo struct {
	client *http.Client
	URL    string
}

// NewRepo creates and returns a new Repo object.
func NewRepo(url string, c *http.Client) *Repo {
	if c == nil {
		c = httputils.DefaultClientConfig().Client()
	}
	return &Repo{
		client: c,
		URL:    strings.TrimSuffix(url, "/"),
	}
}

type Author struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Time  string `json:"time"`
}

type Commit struct {
	Commit    string   `json:"commit"`
	Parents   []string `json:"parents"`
	Author    *Author  `json:"author"`
	Committer *Author  `json:"committer"`
	Message   string   `json:"message"`
}

type Log struct {
	Log []*Commit `json:"log"`
}

// LongCommit is a parsed Commit.
type LongCommit struct {
	Hash        string
	Author      string
	AuthorEmail string
	Subject     string
	Body        string
	Parents     []string
	Timestamp   time.Time
}

func commitToLongCommit(c *Commit) (*LongCommit, error) {
	if c.Author == nil || c.Committer == nil {
		return nil, skerr.Fmt("Commit %s is missing author or committer", c.Commit)
	}
	var ts time.Time
	var err error
	if strings.Contains(c.Committer.Time, " +") || strings.Contains(c.Committer.Time, " -") {
		ts, err = time.Parse(DateFormatTZ, c.Committer.Time)
	} else {
		ts, err = time.Parse(DateFormatNoTZ, c.Committer.Time)
	}
	if err != nil {
		return nil, skerr.Wrapf(err, "parsing commit time of %s", c.Commit)
	}

	split := strings.Split(c.Message, "\n")
	subject := split[0]
	split = split[1:]
	body := ""
	if len(split) > 1 && split[0] == "" {
		split = split[1:]
	}
	if len(split) > 0 {
		body = strings.Join(split, "\n")
	}
	return &LongCommit{
		Hash:        c.Commit,
		Author:      fmt.Sprintf("%s (%s)", c.Author.Name, c.Author.Email),
		AuthorEmail: c.Author.Email,
		Subject:     subject,
		Body:        body,
		Parents:     c.Parents,
		Timestamp:   ts.UTC(),
	}, nil
}

// getJSON fetches url and decodes the JSON response into dst, after removing
// the XSSI guard that Gitiles prefixes to all JSON responses.
func (r *Repo) getJSON(ctx context.Context, url string, dst interface{}) error {
	resp, err := httputils.GetWithContext(ctx, r.client, url)
	if err != nil {
		return skerr.Wrapf(err, "requesting %s", url)
	}
	defer util.Close(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return skerr.Fmt("Request to %s got status %q", url, resp.Status)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return skerr.Wrapf(err, "Failed to read response")
	}
	if len(b) < xssiGuardLength {
		return skerr.Fmt("Response from %s is too short", url)
	}
	if err := json.Unmarshal(b[xssiGuardLength:], dst); err != nil {
		return skerr.Wrapf(err, "Failed to decode response")
	}
	return nil
}

// GetCommit returns the LongCommit for the given ref.
func (r *Repo) GetCommit(ctx context.Context, ref string) (*LongCommit, error) {
	var c Commit
	if err := r.getJSON(ctx, fmt.Sprintf(CommitURL, r.URL, ref), &c); err != nil {
		return nil, err
	}
	return commitToLongCommit(&c)
}

// Log returns Gitiles' equivalent to "git log" for the given start and end
// commits.
func (r *Repo) Log(ctx context.Context, from, to string) ([]*LongCommit, error) {
	var l Log
	if err := r.getJSON(ctx, fmt.Sprintf(LogURL, r.URL, from, to), &l); err != nil {
		return nil, err
	}
	rv := make([]*LongCommit, 0, len(l.Log))
	for _, c := range l.Log {
		vc, err := commitToLongCommit(c)
		if err != nil {
			return nil, err
		}
		rv = append(rv, vc)
	}
	return rv, nil
}

// LogLink returns the URL of the human readable log between two commits.
func (r *Repo) LogLink(from, to string) string {
	return fmt.Sprintf(LogBrowseURL, r.URL, from, to)
}
