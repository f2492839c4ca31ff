package hosting

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"yarvis/internal/credentials"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

type githubBackend struct {
	baseURL    string
	auth       GitHubAuth
	httpClient *http.Client
}

type githubSession struct {
	client   *github.Client
	username string
}

// authenticate uses token auth or basic auth as configured; in auto mode a
// password that looks like a GitHub token is sent as one. The session client
// is a copy of the injected one so its timeout still applies.
func (b *githubBackend) authenticate(username, password string) (session, error) {
	useToken := credentials.LooksLikeToken(password)
	switch b.auth {
	case GitHubAuthBasic:
		useToken = false
	case GitHubAuthToken:
		useToken = true
	}

	httpClient := *b.httpClient
	if useToken {
		httpClient.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: password}),
			Base:   b.httpClient.Transport,
		}
	} else {
		httpClient.Transport = &github.BasicAuthTransport{
			Username:  username,
			Password:  password,
			Transport: b.httpClient.Transport,
		}
	}

	client := github.NewClient(&httpClient)
	if b.baseURL != "" {
		u, err := url.Parse(b.baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL %q: %w", b.baseURL, err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		client.BaseURL = u
	}

	return &githubSession{client: client, username: username}, nil
}

func (s *githubSession) create(ctx context.Context, name string, opts CreateOptions) (string, error) {
	repo := &github.Repository{Name: github.String(name)}
	if opts.Description != "" {
		repo.Description = github.String(opts.Description)
	}

	created, _, err := s.client.Repositories.Create(ctx, "", repo)
	if err != nil {
		return "", githubError("create", err)
	}
	if created.GetCloneURL() == "" {
		return "", &RemoteAPIError{Backend: GitHub, Op: "create", Message: "response carries no clone_url"}
	}
	return created.GetCloneURL(), nil
}

func (s *githubSession) delete(ctx context.Context, name string) error {
	if _, err := s.client.Repositories.Delete(ctx, s.username, name); err != nil {
		return githubError("delete", err)
	}
	return nil
}

func (s *githubSession) addCollaborator(ctx context.Context, name, collaborator, rights string) error {
	permission, err := githubPermission(rights)
	if err != nil {
		return err
	}

	opts := &github.RepositoryAddCollaboratorOptions{Permission: permission}
	if _, _, err := s.client.Repositories.AddCollaborator(ctx, s.username, name, collaborator, opts); err != nil {
		return githubError("add collaborator", err)
	}
	return nil
}

// githubPermission maps a/w/r flags to GitHub's vocabulary. The strongest flag wins.
func githubPermission(rights string) (string, error) {
	switch {
	case strings.Contains(rights, "a"):
		return "admin", nil
	case strings.Contains(rights, "w"):
		return "push", nil
	case strings.Contains(rights, "r"):
		return "pull", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRights, rights)
	}
}

func githubError(op string, err error) error {
	apiErr := &RemoteAPIError{Backend: GitHub, Op: op, Err: err}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) {
		apiErr.Message = ghErr.Message
		if len(ghErr.Errors) > 0 && ghErr.Errors[0].Message != "" {
			apiErr.Message += ": " + ghErr.Errors[0].Message
		}
		if ghErr.Response != nil {
			apiErr.StatusCode = ghErr.Response.StatusCode
		}
	}
	return apiErr
}
