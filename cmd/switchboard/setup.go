package main

import (
	"context"
	"fmt"

	"github.com/mkarlsen/switchboard/internal/classifier"
	"github.com/mkarlsen/switchboard/internal/config"
	"github.com/mkarlsen/switchboard/internal/dispatch"
	"github.com/mkarlsen/switchboard/internal/resolver"
	"github.com/mkarlsen/switchboard/internal/state"
	"github.com/mkarlsen/switchboard/pkg/models"
)

// openStore opens the state database and applies pending migrations. A
// store that cannot be opened is a startup failure.
func openStore(cfg *config.Config) (*state.DB, error) {
	path := cfg.State.Path
	if path == "" {
		path = state.DefaultDBPath()
	}

	db, err := state.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate state database: %w", err)
	}
	return db, nil
}

// buildRepo assembles the pattern repository: built-in seeds, optional
// patterns file, then the learned statistics persisted from earlier runs.
func buildRepo(cfg *config.Config, store state.Store) (*classifier.MemoryRepo, error) {
	repo := classifier.NewSeededRepo()

	if cfg.Classifier.PatternsFile != "" {
		patterns, err := classifier.LoadPatternsFile(cfg.Classifier.PatternsFile)
		if err != nil {
			return nil, fmt.Errorf("load patterns file: %w", err)
		}
		for _, p := range patterns {
			if err := repo.Register(p); err != nil {
				return nil, fmt.Errorf("register pattern %q: %w", p.ID, err)
			}
		}
	}

	if err := classifier.LoadSnapshot(repo, store); err != nil {
		return nil, fmt.Errorf("restore learned patterns: %w", err)
	}
	return repo, nil
}

// buildClassifier creates the classifier over the repository with the
// configured threshold and decay.
func buildClassifier(cfg *config.Config, repo classifier.PatternRepo) *classifier.Classifier {
	return classifier.New(repo, classifier.Config{
		Threshold:     cfg.Classifier.Threshold,
		DecayHalfLife: cfg.Classifier.DecayHalfLife,
	})
}

// buildRegistry registers an advisory handler for every specialist the
// pattern table routes to, plus the fallback and meta specialists. Real
// deployments swap these for transport-backed handlers.
func buildRegistry(repo classifier.PatternRepo, res *resolver.Resolver) (*dispatch.Registry, error) {
	reg := dispatch.NewRegistry(classifier.FallbackSpecialist, classifier.MetaSpecialist)

	specialists := []models.Specialist{
		{
			ID:          classifier.FallbackSpecialist,
			Capability:  models.CapabilityGeneral,
			Description: "handles problems no domain pattern claims",
		},
		{
			ID:          classifier.MetaSpecialist,
			Capability:  models.CapabilityMeta,
			Description: "synthesizes findings across batches",
		},
	}
	for _, p := range repo.List() {
		specialists = append(specialists, models.Specialist{
			ID:          p.SpecialistID,
			Capability:  patternCapability(p.ID),
			Description: fmt.Sprintf("covers the %s domain", p.ID),
		})
	}

	seen := make(map[models.SpecialistID]bool)
	for _, spec := range specialists {
		if seen[spec.ID] {
			continue
		}
		seen[spec.ID] = true
		if err := reg.Register(spec, advisoryHandler(res, spec.ID)); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// patternCapability maps a domain pattern id to its capability. The seeded
// pattern ids are the capability names; anything else (a custom patterns
// file) routes to the general capability.
func patternCapability(patternID string) models.Capability {
	if c := models.Capability(patternID); c.Valid() {
		return c
	}
	return models.CapabilityGeneral
}

// advisoryHandler is the built-in specialist: it resolves any references
// embedded in the problem text and reports what the domain should look at.
func advisoryHandler(res *resolver.Resolver, id models.SpecialistID) dispatch.HandlerFunc {
	return func(ctx context.Context, correlationID string, b models.ContextBundle) ([]models.Finding, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		f := models.Finding{
			Summary: fmt.Sprintf("%s reviewed: %s", id, b.Problem.Text),
		}
		for _, ref := range resolver.References(b.Problem.Text) {
			r := res.Resolve(ref)
			if r.Root.Resolved {
				f.Resources = append(f.Resources, r.Root.Path)
			}
			for _, e := range r.Embedded {
				if e.Resolved {
					f.Resources = append(f.Resources, e.Path)
				}
			}
		}
		return []models.Finding{f}, nil
	}
}
