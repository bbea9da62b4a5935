package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/costaverde/billing-backend/internal/domain"
	"github.com/costaverde/billing-backend/internal/store"
)

// ConfigRepository reads the per-client billing configuration documents.
// Configuration is treated as immutable while the engine runs; the write
// methods exist for provisioning and seeding only.
type ConfigRepository struct {
	store store.Store
}

func NewConfigRepository(s store.Store) *ConfigRepository {
	return &ConfigRepository{store: s}
}

// GetClientConfig assembles the client's configuration from the hoaDues
// and waterBills config documents. Missing documents or fields surface
// as ErrConfigMissing; there are no defaults.
func (r *ConfigRepository) GetClientConfig(ctx context.Context, clientID string) (*domain.ClientConfig, error) {
	cfg := &domain.ClientConfig{ClientID: clientID}

	data, err := r.store.GetDoc(ctx, hoaConfigPath(clientID))
	if err != nil {
		if errors.Is(err, store.ErrDocNotFound) {
			return nil, fmt.Errorf("%w: clients/%s/config/hoaDues", domain.ErrConfigMissing, clientID)
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &cfg.HOA); err != nil {
		return nil, fmt.Errorf("config hoaDues %s: %w", clientID, err)
	}

	data, err = r.store.GetDoc(ctx, waterConfigPath(clientID))
	if err != nil {
		if errors.Is(err, store.ErrDocNotFound) {
			return nil, fmt.Errorf("%w: clients/%s/config/waterBills", domain.ErrConfigMissing, clientID)
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &cfg.Water); err != nil {
		return nil, fmt.Errorf("config waterBills %s: %w", clientID, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveHOAConfig writes the hoaDues config document.
func (r *ConfigRepository) SaveHOAConfig(ctx context.Context, clientID string, cfg domain.HOADuesConfig) error {
	return r.store.SetDoc(ctx, hoaConfigPath(clientID), cfg)
}

// SaveWaterConfig writes the waterBills config document.
func (r *ConfigRepository) SaveWaterConfig(ctx context.Context, clientID string, cfg domain.WaterConfig) error {
	return r.store.SetDoc(ctx, waterConfigPath(clientID), cfg)
}

// AccessRoster maps identity-provider subjects to a role for one client.
type AccessRoster struct {
	Users map[string]string `json:"users"`
}

// GetAccessRoster loads the client's access roster for the auth
// middleware.
func (r *ConfigRepository) GetAccessRoster(ctx context.Context, clientID string) (*AccessRoster, error) {
	data, err := r.store.GetDoc(ctx, accessConfigPath(clientID))
	if err != nil {
		if errors.Is(err, store.ErrDocNotFound) {
			return nil, fmt.Errorf("access roster %s: %w", clientID, domain.ErrNotFound)
		}
		return nil, err
	}
	var roster AccessRoster
	if err := json.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("access roster %s: %w", clientID, err)
	}
	return &roster, nil
}

// SaveAccessRoster writes the client's access roster.
func (r *ConfigRepository) SaveAccessRoster(ctx context.Context, clientID string, roster *AccessRoster) error {
	return r.store.SetDoc(ctx, accessConfigPath(clientID), roster)
}
