package store

import (
	"context"
	"fmt"
)

// Setting keys read by the retrieval core.
const (
	SettingEmbeddingProvider = "embedding_provider"
	SettingOpenAIAPIKey      = "openai_api_key"
	SettingGeminiAPIKey      = "gemini_api_key"
	SettingEmbeddingModel    = "embedding_model"
	SettingPipelineThreshold = "pipeline_threshold"
	SettingPipelineTopK      = "pipeline_top_k"
)

// Setting reads one value from the settings table. ok is false when the key is absent.
// Values are never cached: each call hits the database.
func (s *Store) Setting(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.conn.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if notFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: setting %s: %w", key, err)
	}
	return value, true, nil
}

// SetSetting writes one value. Settings are normally owned by the desktop
// app; this exists for seeding and tests.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("store: set setting %s: %w", key, err)
	}
	return nil
}
