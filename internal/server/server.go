// Package server exposes the issue creation workflow and read-only GitHub
// listings over HTTP. Every request is served with a GitHub client built
// from the caller's own access token.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielolaszy/ghm/internal/github"
	"github.com/danielolaszy/ghm/internal/issues"
	"github.com/danielolaszy/ghm/internal/logging"
	"github.com/danielolaszy/ghm/pkg/models"
)

// ClientFactory builds a GitHub client for one caller's token.
type ClientFactory func(ctx context.Context, token string) (*github.Client, error)

// DomainClientFactory returns a ClientFactory targeting a GitHub domain.
func DomainClientFactory(domain string) ClientFactory {
	return func(ctx context.Context, token string) (*github.Client, error) {
		return github.NewClient(ctx, token, domain)
	}
}

// Server provides the HTTP handlers.
type Server struct {
	newClient   ClientFactory
	corsOrigin  string
	creatorOpts []issues.Option
}

// Option configures a Server.
type Option func(*Server)

// WithCORSOrigin sets the allowed cross-origin caller, "*" by default.
func WithCORSOrigin(origin string) Option {
	return func(s *Server) {
		s.corsOrigin = origin
	}
}

// WithCreatorOptions passes options to every issue Creator the server builds.
func WithCreatorOptions(opts ...issues.Option) Option {
	return func(s *Server) {
		s.creatorOpts = append(s.creatorOpts, opts...)
	}
}

// New creates a Server that builds per-request GitHub clients with factory.
func New(factory ClientFactory, opts ...Option) *Server {
	s := &Server{
		newClient:  factory,
		corsOrigin: "*",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns an http.Handler for all routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.health)

	mux.HandleFunc("POST /issues/create", s.authed(s.createIssue))

	mux.HandleFunc("GET /user", s.authed(s.getUser))
	mux.HandleFunc("GET /repos", s.authed(s.listRepositories))
	mux.HandleFunc("GET /repos/{owner}/{repo}/branches", s.authed(s.listBranches))
	mux.HandleFunc("GET /repos/{owner}/{repo}/contributors", s.authed(s.listContributors))
	mux.HandleFunc("GET /repos/{owner}/{repo}/commits", s.authed(s.listCommits))
	mux.HandleFunc("GET /repos/{owner}/{repo}/issues", s.authed(s.listIssues))
	mux.HandleFunc("GET /repos/{owner}/{repo}/pulls", s.authed(s.listPullRequests))

	return requestID(accessLog(cors(s.corsOrigin, mux)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	body := errorBody{Error: msg}
	if err != nil {
		body.Details = err.Error()
	}
	writeJSON(w, status, body)
}

// statusFor maps GitHub errors of the read-only proxies onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, github.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, github.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, github.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// bearerToken extracts the access token from "Bearer <t>" or "token <t>".
func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok {
		return ""
	}
	if !strings.EqualFold(scheme, "bearer") && !strings.EqualFold(scheme, "token") {
		return ""
	}
	return strings.TrimSpace(token)
}

type authedHandler func(w http.ResponseWriter, r *http.Request, gh *github.Client)

// authed builds the caller's GitHub client or rejects the request.
func (s *Server) authed(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Missing access token", nil)
			return
		}

		gh, err := s.newClient(r.Context(), token)
		if err != nil {
			logging.Error("failed to create github client", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to create GitHub client", err)
			return
		}
		h(w, r, gh)
	}
}

func pageFrom(r *http.Request) github.Page {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	return github.Page{Number: page, PerPage: perPage}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createIssue(w http.ResponseWriter, r *http.Request, gh *github.Client) {
	var req models.IssueCreationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := issues.NewCreator(gh, s.creatorOpts...).Create(r.Context(), req)
	if err != nil {
		logging.Error("issue creation failed",
			"project_id", req.ProjectID,
			"title", req.Title,
			"error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create issue", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request, gh *github.Client) {
	user, err := gh.AuthenticatedUser(r.Context())
	if err != nil {
		writeError(w, statusFor(err), "Failed to fetch user", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) listRepositories(w http.ResponseWriter, r *http.Request, gh *github.Client) {
	repos, err := gh.ListRepositories(r.Context(), pageFrom(r))
	if err != nil {
		writeError(w, statusFor(err), "Failed to fetch repositories", err)
		return
	}
	writeJSON(w, http.StatusOK, repos)
}

func (s *Server) listBranches(w http.ResponseWriter, r *http.Request, gh *github.Client) {
	branches, err := gh.ListBranches(r.Context(), r.PathValue("owner"), r.PathValue("repo"), pageFrom(r))
	if err != nil {
		writeError(w, statusFor(err), "Failed to fetch branches", err)
		return
	}
	writeJSON(w, http.StatusOK, branches)
}

func (s *Server) listContributors(w http.ResponseWriter, r *http.Request, gh *github.Client) {
	contributors, err := gh.ListContributors(r.Context(), r.PathValue("owner"), r.PathValue("repo"), pageFrom(r))
	if err != nil {
		writeError(w, statusFor(err), "Failed to fetch contributors", err)
		return
	}
	writeJSON(w, http.StatusOK, contributors)
}

func (s *Server) listCommits(w http.ResponseWriter, r *http.Request, gh *github.Client) {
	commits, err := gh.ListCommits(r.Context(), r.PathValue("owner"), r.PathValue("repo"), r.URL.Query().Get("sha"), pageFrom(r))
	if err != nil {
		writeError(w, statusFor(err), "Failed to fetch commits", err)
		return
	}
	writeJSON(w, http.StatusOK, commits)
}

func (s *Server) listIssues(w http.ResponseWriter, r *http.Request, gh *github.Client) {
	list, err := gh.ListIssues(r.Context(), r.PathValue("owner"), r.PathValue("repo"), r.URL.Query().Get("state"), pageFrom(r))
	if err != nil {
		writeError(w, statusFor(err), "Failed to fetch issues", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) listPullRequests(w http.ResponseWriter, r *http.Request, gh *github.Client) {
	pulls, err := gh.ListPullRequests(r.Context(), r.PathValue("owner"), r.PathValue("repo"), r.URL.Query().Get("state"), pageFrom(r))
	if err != nil {
		writeError(w, statusFor(err), "Failed to fetch pull requests", err)
		return
	}
	writeJSON(w, http.StatusOK, pulls)
}
