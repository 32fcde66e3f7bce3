package weights

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wonny/stex/backend/pkg/logger"
)

// Service loads and saves the effective weight configuration
type Service struct {
	store Store
	log   *logger.Logger
}

// NewService creates a new weight service
func NewService(store Store, log *logger.Logger) *Service {
	return &Service{
		store: store,
		log:   log.Component("weights"),
	}
}

// Load returns the stored config merged over Defaults().
// A missing or malformed blob yields Defaults(); store failures are returned.
func (s *Service) Load(ctx context.Context) (Config, error) {
	raw, err := s.store.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}

	if raw != "" && !json.Valid([]byte(raw)) {
		s.log.Warn("Stored score weights are not valid JSON, using defaults")
	}

	return ParseBlob(raw), nil
}

// Save persists payload as-is. Payload must be a JSON object.
func (s *Service) Save(ctx context.Context, payload any) error {
	if _, ok := payload.(map[string]any); !ok {
		return ErrInvalidPayload
	}

	blob, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode score weights: %w", err)
	}

	if err := s.store.SaveRaw(ctx, string(blob)); err != nil {
		return err
	}

	s.log.WithField("bytes", len(blob)).Info("Score weights saved")
	return nil
}

// SaveConfig persists a typed config
func (s *Service) SaveConfig(ctx context.Context, c Config) error {
	if err := Validate(c); err != nil {
		return err
	}
	m, err := c.ToMap()
	if err != nil {
		return err
	}
	return s.Save(ctx, m)
}

// Reset stores Defaults()
func (s *Service) Reset(ctx context.Context) error {
	return s.SaveConfig(ctx, Defaults())
}
