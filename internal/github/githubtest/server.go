// Package githubtest provides an in-memory fake of the subset of the GitHub
// REST API used by ghm, served over httptest.
package githubtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Login is the user every accepted token authenticates as.
const Login = "octocat"

// Issue is an issue (or pull request, when IsPull is set) stored by the fake.
type Issue struct {
	Number    int
	Title     string
	Body      string
	Labels    []string
	Assignees []string
	IsPull    bool
}

// Pull is a pull request stored by the fake.
type Pull struct {
	Number int
	Title  string
	Body   string
	Head   string
	Base   string
	Draft  bool
}

// Commit is a git commit stored by the fake.
type Commit struct {
	SHA     string
	Message string
	Tree    string
	Parents []string
}

type repository struct {
	refs    map[string]string
	commits map[string]Commit
	trees   map[string]map[string]string
	blobs   map[string]string
	issues  []*Issue
	pulls   []*Pull
	next    int
}

type failure struct {
	method string
	path   string
	status int
}

// Server is a fake GitHub API. Use URL as the client's API base URL.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	repos    map[string]*repository
	failures []failure
	tokens   []string
	requests []string
	counter  int
}

// NewServer starts a fake GitHub API that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{repos: make(map[string]*repository)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /user", s.getUser)
	mux.HandleFunc("GET /user/repos", s.listRepos)
	mux.HandleFunc("GET /repos/{owner}/{repo}/branches", s.withRepo(s.listBranches))
	mux.HandleFunc("GET /repos/{owner}/{repo}/contributors", s.withRepo(s.listContributors))
	mux.HandleFunc("GET /repos/{owner}/{repo}/commits", s.withRepo(s.listCommits))
	mux.HandleFunc("GET /repos/{owner}/{repo}/issues", s.withRepo(s.listIssues))
	mux.HandleFunc("POST /repos/{owner}/{repo}/issues", s.withRepo(s.createIssue))
	mux.HandleFunc("PATCH /repos/{owner}/{repo}/issues/{number}", s.withRepo(s.editIssue))
	mux.HandleFunc("GET /repos/{owner}/{repo}/pulls", s.withRepo(s.listPulls))
	mux.HandleFunc("POST /repos/{owner}/{repo}/pulls", s.withRepo(s.createPull))
	mux.HandleFunc("GET /repos/{owner}/{repo}/git/ref/{ref...}", s.withRepo(s.getRef))
	mux.HandleFunc("POST /repos/{owner}/{repo}/git/refs", s.withRepo(s.createRef))
	mux.HandleFunc("PATCH /repos/{owner}/{repo}/git/refs/{ref...}", s.withRepo(s.updateRef))
	mux.HandleFunc("GET /repos/{owner}/{repo}/git/commits/{sha}", s.withRepo(s.getCommit))
	mux.HandleFunc("POST /repos/{owner}/{repo}/git/commits", s.withRepo(s.createCommit))
	mux.HandleFunc("POST /repos/{owner}/{repo}/git/blobs", s.withRepo(s.createBlob))
	mux.HandleFunc("POST /repos/{owner}/{repo}/git/trees", s.withRepo(s.createTree))

	s.Server = httptest.NewServer(s.middleware(mux))
	t.Cleanup(s.Close)
	return s
}

// AddRepo registers owner/repo with one root commit that every listed
// branch points at.
func (s *Server) AddRepo(owner, repo string, branches ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := &repository{
		refs:    make(map[string]string),
		commits: make(map[string]Commit),
		trees:   map[string]map[string]string{},
		blobs:   make(map[string]string),
	}
	tree := s.sha()
	r.trees[tree] = map[string]string{}
	root := Commit{SHA: s.sha(), Message: "Initial commit", Tree: tree}
	r.commits[root.SHA] = root
	for _, branch := range branches {
		r.refs[branch] = root.SHA
	}
	s.repos[owner+"/"+repo] = r
}

// AddBranch creates branch on owner/repo at the current head of from.
func (s *Server) AddBranch(owner, repo, branch, from string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.repos[owner+"/"+repo]
	r.refs[branch] = r.refs[from]
}

// Fail makes every request with method whose path ends in suffix answer status.
func (s *Server) Fail(method, suffix string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{method: method, path: suffix, status: status})
}

// Branches returns a copy of the branch → SHA map of owner/repo.
func (s *Server) Branches(owner, repo string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string)
	for name, sha := range s.repos[owner+"/"+repo].refs {
		out[name] = sha
	}
	return out
}

// Issues returns copies of the issues (pull requests excluded) of owner/repo.
func (s *Server) Issues(owner, repo string) []Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Issue
	for _, issue := range s.repos[owner+"/"+repo].issues {
		if !issue.IsPull {
			out = append(out, *issue)
		}
	}
	return out
}

// Pulls returns copies of the pull requests of owner/repo.
func (s *Server) Pulls(owner, repo string) []Pull {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Pull
	for _, pull := range s.repos[owner+"/"+repo].pulls {
		out = append(out, *pull)
	}
	return out
}

// Commit returns the commit sha of owner/repo.
func (s *Server) Commit(owner, repo, sha string) (Commit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.repos[owner+"/"+repo].commits[sha]
	return c, ok
}

// File returns the content of path at the head of branch.
func (s *Server) File(owner, repo, branch, path string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.repos[owner+"/"+repo]
	commit, ok := r.commits[r.refs[branch]]
	if !ok {
		return "", false
	}
	blob, ok := r.trees[commit.Tree][path]
	if !ok {
		return "", false
	}
	return r.blobs[blob], true
}

// Tokens returns the bearer tokens seen so far, in request order.
func (s *Server) Tokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tokens...)
}

// Requests returns "METHOD path" for every request seen so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) sha() string {
	s.counter++
	return fmt.Sprintf("%040x", s.counter)
}

func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if ok {
			s.tokens = append(s.tokens, token)
		}
		var injected *failure
		for i := range s.failures {
			f := s.failures[i]
			if f.method == r.Method && strings.HasSuffix(r.URL.Path, f.path) {
				injected = &f
				break
			}
		}
		s.mu.Unlock()

		if !ok || token == "" {
			writeMessage(w, http.StatusUnauthorized, "Requires authentication")
			return
		}
		if injected != nil {
			writeMessage(w, injected.status, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type repoHandler func(w http.ResponseWriter, r *http.Request, repo *repository)

// withRepo resolves {owner}/{repo} and holds the lock for the handler.
func (s *Server) withRepo(h repoHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		repo, ok := s.repos[r.PathValue("owner")+"/"+r.PathValue("repo")]
		if !ok {
			writeMessage(w, http.StatusNotFound, "Not Found")
			return
		}
		h(w, r, repo)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"login": Login, "id": 1})
}

func (s *Server) listRepos(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.repos))
	for name := range s.repos {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]map[string]any, 0, len(names))
	for _, full := range names {
		owner, name, _ := strings.Cut(full, "/")
		out = append(out, map[string]any{
			"name":      name,
			"full_name": full,
			"owner":     map[string]any{"login": owner},
			"html_url":  "https://github.com/" + full,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listBranches(w http.ResponseWriter, r *http.Request, repo *repository) {
	names := make([]string, 0, len(repo.refs))
	for name := range repo.refs {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]map[string]any, 0, len(names))
	for _, name := range names {
		out = append(out, map[string]any{
			"name":   name,
			"commit": map[string]any{"sha": repo.refs[name]},
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listContributors(w http.ResponseWriter, r *http.Request, repo *repository) {
	writeJSON(w, http.StatusOK, []map[string]any{
		{"login": Login, "contributions": len(repo.commits)},
	})
}

func (s *Server) listCommits(w http.ResponseWriter, r *http.Request, repo *repository) {
	shas := make([]string, 0, len(repo.commits))
	for sha := range repo.commits {
		shas = append(shas, sha)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(shas)))

	out := make([]map[string]any, 0, len(shas))
	for _, sha := range shas {
		out = append(out, map[string]any{
			"sha":    sha,
			"commit": map[string]any{"message": repo.commits[sha].Message},
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func issueJSON(issue *Issue) map[string]any {
	labels := make([]map[string]any, 0, len(issue.Labels))
	for _, name := range issue.Labels {
		labels = append(labels, map[string]any{"name": name})
	}
	assignees := make([]map[string]any, 0, len(issue.Assignees))
	for _, login := range issue.Assignees {
		assignees = append(assignees, map[string]any{"login": login})
	}

	out := map[string]any{
		"number":    issue.Number,
		"title":     issue.Title,
		"body":      issue.Body,
		"state":     "open",
		"html_url":  fmt.Sprintf("https://github.com/issues/%d", issue.Number),
		"labels":    labels,
		"assignees": assignees,
	}
	if issue.IsPull {
		out["pull_request"] = map[string]any{"url": fmt.Sprintf("https://github.com/pull/%d", issue.Number)}
	}
	return out
}

func (s *Server) listIssues(w http.ResponseWriter, r *http.Request, repo *repository) {
	out := make([]map[string]any, 0, len(repo.issues))
	for _, issue := range repo.issues {
		out = append(out, issueJSON(issue))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createIssue(w http.ResponseWriter, r *http.Request, repo *repository) {
	var req struct {
		Title     string   `json:"title"`
		Body      string   `json:"body"`
		Labels    []string `json:"labels"`
		Assignees []string `json:"assignees"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		writeMessage(w, http.StatusUnprocessableEntity, "Validation Failed")
		return
	}

	repo.next++
	issue := &Issue{
		Number:    repo.next,
		Title:     req.Title,
		Body:      req.Body,
		Labels:    req.Labels,
		Assignees: req.Assignees,
	}
	repo.issues = append(repo.issues, issue)
	writeJSON(w, http.StatusCreated, issueJSON(issue))
}

func (s *Server) editIssue(w http.ResponseWriter, r *http.Request, repo *repository) {
	number, _ := strconv.Atoi(r.PathValue("number"))

	var req struct {
		Title *string `json:"title"`
		Body  *string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, "Validation Failed")
		return
	}

	for _, issue := range repo.issues {
		if issue.Number != number {
			continue
		}
		if req.Title != nil {
			issue.Title = *req.Title
		}
		if req.Body != nil {
			issue.Body = *req.Body
		}
		writeJSON(w, http.StatusOK, issueJSON(issue))
		return
	}
	writeMessage(w, http.StatusNotFound, "Not Found")
}

func pullJSON(pull *Pull) map[string]any {
	return map[string]any{
		"number":   pull.Number,
		"title":    pull.Title,
		"body":     pull.Body,
		"draft":    pull.Draft,
		"state":    "open",
		"html_url": fmt.Sprintf("https://github.com/pull/%d", pull.Number),
		"head":     map[string]any{"ref": pull.Head},
		"base":     map[string]any{"ref": pull.Base},
	}
}

func (s *Server) listPulls(w http.ResponseWriter, r *http.Request, repo *repository) {
	out := make([]map[string]any, 0, len(repo.pulls))
	for _, pull := range repo.pulls {
		out = append(out, pullJSON(pull))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createPull(w http.ResponseWriter, r *http.Request, repo *repository) {
	var req struct {
		Title string `json:"title"`
		Head  string `json:"head"`
		Base  string `json:"base"`
		Body  string `json:"body"`
		Draft bool   `json:"draft"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, "Validation Failed")
		return
	}

	head, okHead := repo.refs[req.Head]
	base, okBase := repo.refs[req.Base]
	if !okHead || !okBase {
		writeMessage(w, http.StatusUnprocessableEntity, "Validation Failed")
		return
	}
	if head == base {
		writeMessage(w, http.StatusUnprocessableEntity, "No commits between "+req.Base+" and "+req.Head)
		return
	}

	repo.next++
	pull := &Pull{
		Number: repo.next,
		Title:  req.Title,
		Body:   req.Body,
		Head:   req.Head,
		Base:   req.Base,
		Draft:  req.Draft,
	}
	repo.pulls = append(repo.pulls, pull)
	repo.issues = append(repo.issues, &Issue{Number: pull.Number, Title: pull.Title, Body: pull.Body, IsPull: true})
	writeJSON(w, http.StatusCreated, pullJSON(pull))
}

func refJSON(name, sha string) map[string]any {
	return map[string]any{
		"ref":    "refs/heads/" + name,
		"object": map[string]any{"type": "commit", "sha": sha},
	}
}

func (s *Server) getRef(w http.ResponseWriter, r *http.Request, repo *repository) {
	name, ok := strings.CutPrefix(r.PathValue("ref"), "heads/")
	sha, exists := repo.refs[name]
	if !ok || !exists {
		writeMessage(w, http.StatusNotFound, "Not Found")
		return
	}
	writeJSON(w, http.StatusOK, refJSON(name, sha))
}

func (s *Server) createRef(w http.ResponseWriter, r *http.Request, repo *repository) {
	var req struct {
		Ref string `json:"ref"`
		SHA string `json:"sha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, "Validation Failed")
		return
	}

	name, ok := strings.CutPrefix(req.Ref, "refs/heads/")
	if !ok {
		writeMessage(w, http.StatusUnprocessableEntity, "Reference name must start with refs/")
		return
	}
	if _, exists := repo.refs[name]; exists {
		writeMessage(w, http.StatusUnprocessableEntity, "Reference already exists")
		return
	}
	if _, exists := repo.commits[req.SHA]; !exists {
		writeMessage(w, http.StatusUnprocessableEntity, "Object does not exist")
		return
	}

	repo.refs[name] = req.SHA
	writeJSON(w, http.StatusCreated, refJSON(name, req.SHA))
}

func (s *Server) updateRef(w http.ResponseWriter, r *http.Request, repo *repository) {
	var req struct {
		SHA   string `json:"sha"`
		Force bool   `json:"force"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, "Validation Failed")
		return
	}

	name, _ := strings.CutPrefix(r.PathValue("ref"), "heads/")
	current, exists := repo.refs[name]
	if !exists {
		writeMessage(w, http.StatusUnprocessableEntity, "Reference does not exist")
		return
	}
	commit, exists := repo.commits[req.SHA]
	if !exists {
		writeMessage(w, http.StatusUnprocessableEntity, "Object does not exist")
		return
	}

	if !req.Force {
		fastForward := false
		for _, parent := range commit.Parents {
			if parent == current {
				fastForward = true
			}
		}
		if !fastForward {
			writeMessage(w, http.StatusUnprocessableEntity, "Update is not a fast forward")
			return
		}
	}

	repo.refs[name] = req.SHA
	writeJSON(w, http.StatusOK, refJSON(name, req.SHA))
}

func commitJSON(c Commit) map[string]any {
	parents := make([]map[string]any, 0, len(c.Parents))
	for _, sha := range c.Parents {
		parents = append(parents, map[string]any{"sha": sha})
	}
	return map[string]any{
		"sha":     c.SHA,
		"message": c.Message,
		"tree":    map[string]any{"sha": c.Tree},
		"parents": parents,
	}
}

func (s *Server) getCommit(w http.ResponseWriter, r *http.Request, repo *repository) {
	c, ok := repo.commits[r.PathValue("sha")]
	if !ok {
		writeMessage(w, http.StatusNotFound, "Not Found")
		return
	}
	writeJSON(w, http.StatusOK, commitJSON(c))
}

func (s *Server) createCommit(w http.ResponseWriter, r *http.Request, repo *repository) {
	var req struct {
		Message string   `json:"message"`
		Tree    string   `json:"tree"`
		Parents []string `json:"parents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, "Validation Failed")
		return
	}
	if _, ok := repo.trees[req.Tree]; !ok {
		writeMessage(w, http.StatusUnprocessableEntity, "Tree SHA does not exist")
		return
	}

	c := Commit{SHA: s.sha(), Message: req.Message, Tree: req.Tree, Parents: req.Parents}
	repo.commits[c.SHA] = c
	writeJSON(w, http.StatusCreated, commitJSON(c))
}

func (s *Server) createBlob(w http.ResponseWriter, r *http.Request, repo *repository) {
	var req struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, "Validation Failed")
		return
	}

	sha := s.sha()
	repo.blobs[sha] = req.Content
	writeJSON(w, http.StatusCreated, map[string]any{"sha": sha})
}

func (s *Server) createTree(w http.ResponseWriter, r *http.Request, repo *repository) {
	var req struct {
		BaseTree string `json:"base_tree"`
		Tree     []struct {
			Path string `json:"path"`
			Mode string `json:"mode"`
			Type string `json:"type"`
			SHA  string `json:"sha"`
		} `json:"tree"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusUnprocessableEntity, "Validation Failed")
		return
	}

	files := make(map[string]string)
	if req.BaseTree != "" {
		base, ok := repo.trees[req.BaseTree]
		if !ok {
			writeMessage(w, http.StatusUnprocessableEntity, "base_tree does not exist")
			return
		}
		for path, blob := range base {
			files[path] = blob
		}
	}
	for _, entry := range req.Tree {
		files[entry.Path] = entry.SHA
	}

	sha := s.sha()
	repo.trees[sha] = files
	writeJSON(w, http.StatusCreated, map[string]any{"sha": sha})
}
