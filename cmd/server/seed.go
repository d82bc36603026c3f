package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	httpserver "github.com/fairyhunter13/ai-credit-assessor/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-credit-assessor/internal/domain"
)

type reviewersYAML struct {
	Reviewers []reviewerYAML `yaml:"reviewers"`
}

type reviewerYAML struct {
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	PasswordHash string `yaml:"password_hash"`
}

type reviewerUpserter interface {
	Upsert(ctx domain.Context, username, passwordHash string) (domain.BankUser, error)
}

// seedReviewersFromYAML upserts the reviewer accounts listed in path.
// Plain passwords are hashed with argon2id; password_hash entries are stored as given.
func seedReviewersFromYAML(ctx domain.Context, repo reviewerUpserter, path string) (int, error) {
	b, err := os.ReadFile(path) // #nosec G304 -- operator supplied seed file
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("seed file not found: %s", path)
		}
		return 0, err
	}
	var doc reviewersYAML
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return 0, fmt.Errorf("yaml parse: %w", err)
	}
	if len(doc.Reviewers) == 0 {
		return 0, fmt.Errorf("no reviewers to seed in %s", path)
	}
	n := 0
	for i, r := range doc.Reviewers {
		username := strings.TrimSpace(r.Username)
		if username == "" {
			return n, fmt.Errorf("reviewers[%d]: username required", i)
		}
		hash := strings.TrimSpace(r.PasswordHash)
		if hash == "" {
			if r.Password == "" {
				return n, fmt.Errorf("reviewers[%d]: password or password_hash required", i)
			}
			if hash, err = httpserver.HashPassword(r.Password, httpserver.DefaultArgon2Params); err != nil {
				return n, fmt.Errorf("reviewers[%d]: hash: %w", i, err)
			}
		}
		if _, err := repo.Upsert(ctx, username, hash); err != nil {
			return n, fmt.Errorf("reviewers[%d]: %w", i, err)
		}
		n++
	}
	return n, nil
}
