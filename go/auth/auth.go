// Package auth builds oauth2 token sources for the remote service clients.
package auth

import (
	"context"

	"go.skia.org/alertgroups/go/skerr"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	ScopeUserinfoEmail = "https://www.googleapis.com/auth/userinfo.email"
	ScopeGerrit        = "https://www.googleapis.com/auth/gerritcodereview"
)

// NewDefaultTokenSource returns the application default credentials for the
// given scopes. If local is true the returned TokenSource is nil, which the
// http clients treat as unauthenticated.
func NewDefaultTokenSource(ctx context.Context, local bool, scopes ...string) (oauth2.TokenSource, error) {
	if local {
		return nil, nil
	}
	ts, err := google.DefaultTokenSource(ctx, scopes...)
	if err != nil {
		return nil, skerr.Wrapf(err, "creating default token source for %v", scopes)
	}
	return ts, nil
}
