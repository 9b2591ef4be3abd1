// Package seed loads the bundled airline policy catalog into the store.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/MiguelAngelSanchezLopez/WiseSpirit/models"
	"github.com/MiguelAngelSanchezLopez/WiseSpirit/repositories"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Entry is one airline in the catalog
type Entry struct {
	Name               string   `yaml:"name"`
	MinReusePercentage *float64 `yaml:"minReusePercentage"`
	DiscardBelow       *float64 `yaml:"discardBelow"`
	CanCombine         *bool    `yaml:"canCombine"`
	PolicyText         string   `yaml:"policyText"`
}

// Catalog is the set of policies loaded by the seeder
type Catalog struct {
	Airlines []Entry `yaml:"airlines"`
}

// DefaultCatalog parses the embedded catalog
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(catalogYAML)
}

// ParseCatalog decodes and checks a YAML catalog
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	seen := make(map[string]bool, len(c.Airlines))
	for i, e := range c.Airlines {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, fmt.Errorf("catalog entry %d has no airline name", i)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate airline %q in catalog", name)
		}
		seen[name] = true
		if err := checkPercent(name, e.MinReusePercentage); err != nil {
			return nil, err
		}
		if err := checkPercent(name, e.DiscardBelow); err != nil {
			return nil, err
		}
	}

	return &c, nil
}

func checkPercent(airline string, v *float64) error {
	if v != nil && (*v < 0 || *v > 100) {
		return fmt.Errorf("airline %q: threshold %.1f outside 0-100", airline, *v)
	}
	return nil
}

// Policies converts the catalog into policy models
func (c *Catalog) Policies() []*models.AirlinePolicy {
	policies := make([]*models.AirlinePolicy, 0, len(c.Airlines))
	for _, e := range c.Airlines {
		p := models.NewAirlinePolicy(strings.TrimSpace(e.Name))
		p.MinReusePercentage = e.MinReusePercentage
		p.DiscardBelow = e.DiscardBelow
		p.CanCombine = e.CanCombine
		if text := strings.TrimSpace(e.PolicyText); text != "" {
			p.PolicyText = models.String(text)
		}
		policies = append(policies, p)
	}
	return policies
}

// Seeder resets the store to the catalog
type Seeder struct {
	tx       repositories.TransactionManager
	policies repositories.PolicyRepository
	logs     repositories.DecisionLogRepository
	catalog  *Catalog
	logger   *zap.Logger
}

// NewSeeder creates a seeder for the given catalog
func NewSeeder(tx repositories.TransactionManager, policies repositories.PolicyRepository, logs repositories.DecisionLogRepository, catalog *Catalog, logger *zap.Logger) *Seeder {
	return &Seeder{
		tx:       tx,
		policies: policies,
		logs:     logs,
		catalog:  catalog,
		logger:   logger,
	}
}

// Run deletes every decision log and policy, then inserts the catalog, all
// in one transaction. Returns the number of policies inserted.
func (s *Seeder) Run(ctx context.Context) (int, error) {
	policies := s.catalog.Policies()

	err := s.tx.InTransaction(ctx, func(ctx context.Context, _ repositories.Transaction) error {
		if err := s.logs.DeleteAll(ctx); err != nil {
			return fmt.Errorf("failed to clear decision logs: %w", err)
		}
		if err := s.policies.DeleteAll(ctx); err != nil {
			return fmt.Errorf("failed to clear policies: %w", err)
		}
		for _, p := range policies {
			if err := s.policies.Upsert(ctx, p); err != nil {
				return fmt.Errorf("failed to insert policy for %s: %w", p.AirlineName, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("seed data inserted", zap.Int("airlines", len(policies)))
	return len(policies), nil
}
