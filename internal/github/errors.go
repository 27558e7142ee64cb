package github

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v41/github"
)

// GitHub API errors, matched with errors.Is.
var (
	ErrNotFound          = errors.New("not found on github")
	ErrAlreadyExists     = errors.New("already exists on github")
	ErrValidation        = errors.New("rejected by github validation")
	ErrUnauthorized      = errors.New("unauthorized access to github api")
	ErrRateLimited       = errors.New("rate limited by github api")
	ErrInvalidRepository = errors.New("invalid repository format")
)

// wrapError classifies a go-github error by HTTP status so callers can branch
// on the sentinel while still seeing the API message.
func wrapError(op string, resp *github.Response, err error) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%s: %w: %w", op, ErrRateLimited, err)
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return fmt.Errorf("%s: %w: %w", op, ErrRateLimited, err)
	}

	if resp != nil {
		switch resp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
		case http.StatusUnprocessableEntity:
			return fmt.Errorf("%s: %w: %w", op, ErrValidation, err)
		case http.StatusUnauthorized:
			return fmt.Errorf("%s: %w: %w", op, ErrUnauthorized, err)
		case http.StatusForbidden:
			if resp.Header.Get("X-RateLimit-Remaining") == "0" {
				return fmt.Errorf("%s: %w: %w", op, ErrRateLimited, err)
			}
			return fmt.Errorf("%s: %w: %w", op, ErrUnauthorized, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
