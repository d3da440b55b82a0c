package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/riskibarqy/match-predictor/internal/ml/predictor"
)

const trainEnvPrefix = "TRAIN_"

// Training is the tunable part of a training run.
type Training struct {
	Fit predictor.FitConfig `koanf:"fit" validate:"required"`
	// Limit caps the completed matches used for training.
	Limit int `koanf:"limit" validate:"gte=0"`
}

func DefaultTraining() Training {
	return Training{
		Fit:   predictor.DefaultFitConfig(),
		Limit: 5000,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadTraining layers defaults, an optional YAML file and TRAIN_ env vars
// (low to high). Nested keys use a double underscore:
// TRAIN_FIT__BOOSTER__LEARNING_RATE=0.05 sets fit.booster.learning_rate.
func LoadTraining(path string) (Training, error) {
	k := koanf.New(".")

	if path = strings.TrimSpace(path); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Training{}, fmt.Errorf("load training config %s: %w", path, err)
		}
	}

	envProvider := env.Provider(trainEnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, trainEnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Training{}, fmt.Errorf("load training env: %w", err)
	}

	cfg := DefaultTraining()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Training{}, fmt.Errorf("decode training config: %w", err)
	}
	if err := cfg.Fit.Validate(); err != nil {
		return Training{}, err
	}
	if err := validate.Struct(cfg); err != nil {
		return Training{}, fmt.Errorf("validate training config: %w", err)
	}
	return cfg, nil
}
