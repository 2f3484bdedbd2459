package datarobot

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidModelURL = errors.New("not a leaderboard model url")

const idLen = 24

// ParseModelURL extracts the project and model ids from a leaderboard url such as
// https://app.datarobot.com/projects/<project id>/models/<model id>/blueprint.
func ParseModelURL(rawURL string) (projectID, modelID string, err error) {
	projectID, err = idAfter(rawURL, "projects/")
	if err != nil {
		return "", "", err
	}
	modelID, err = idAfter(rawURL, "models/")
	if err != nil {
		return "", "", err
	}
	return projectID, modelID, nil
}

func idAfter(rawURL, marker string) (string, error) {
	_, rest, found := strings.Cut(rawURL, marker)
	if !found {
		return "", fmt.Errorf("no %q in %q, %w", marker, rawURL, ErrInvalidModelURL)
	}
	if len(rest) < idLen {
		return "", fmt.Errorf("short id after %q in %q, %w", marker, rawURL, ErrInvalidModelURL)
	}
	id := rest[:idLen]
	for _, r := range id {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return "", fmt.Errorf("id %q is not hex, %w", id, ErrInvalidModelURL)
		}
	}
	return id, nil
}
