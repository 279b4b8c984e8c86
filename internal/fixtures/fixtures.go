// Package fixtures loads feed registrations from YAML and seeds them through the registry.
package fixtures

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cryptomonitor/internal/models"
	"github.com/cryptomonitor/internal/repository"
	"github.com/cryptomonitor/internal/service"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// File is the on-disk fixture format. Top-level Rules exists so feeds can
// share one rule list through a YAML anchor.
type File struct {
	Rules []models.RuleCreate `yaml:"rules"`
	Feeds []models.FeedCreate `yaml:"feeds"`
}

// Result counts what Seed did
type Result struct {
	Registered int
	Skipped    int
}

// Load reads and decodes a fixture file
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixtures %s: %w", path, err)
	}
	defer f.Close()

	file, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("fixtures %s: %w", path, err)
	}
	return file, nil
}

// Decode parses fixtures from r, rejecting unknown keys
func Decode(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("no feeds defined")
		}
		return nil, fmt.Errorf("decode: %w", err)
	}
	if len(file.Feeds) == 0 {
		return nil, errors.New("no feeds defined")
	}
	return &file, nil
}

// Seed registers every feed in file. Feeds whose URL is already registered
// are skipped, so seeding is safe to repeat.
func Seed(ctx context.Context, registry service.Registry, file *File, log zerolog.Logger) (Result, error) {
	var res Result
	for i := range file.Feeds {
		req := file.Feeds[i]
		feed, err := registry.RegisterFeed(ctx, &req)
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			res.Skipped++
			log.Info().Str("url", req.URL).Msg("Feed already registered, skipping")
		case err != nil:
			return res, fmt.Errorf("register feed %q: %w", req.Name, err)
		default:
			res.Registered++
			log.Info().Str("feed_id", feed.ID).Str("name", feed.Name).Int("rules", len(feed.Rules)).Msg("Feed seeded")
		}
	}
	return res, nil
}
