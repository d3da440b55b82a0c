package predictor

import (
	crerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/match-predictor/internal/ml"
	"github.com/riskibarqy/match-predictor/internal/ml/gbdt"
)

const DefaultThreshold = 0.5

// FitConfig holds every knob of a training run.
type FitConfig struct {
	ValidationFraction  float64     `koanf:"validation_fraction" json:"validation_fraction" validate:"gt=0,lt=1"`
	Seed                uint64      `koanf:"seed" json:"seed"`
	EarlyStoppingRounds int         `koanf:"early_stopping_rounds" json:"early_stopping_rounds" validate:"gte=0"`
	LogEvery            int         `koanf:"log_every" json:"log_every" validate:"gte=0"`
	Booster             gbdt.Params `koanf:"booster" json:"booster"`
}

func DefaultFitConfig() FitConfig {
	return FitConfig{
		ValidationFraction:  0.2,
		Seed:                42,
		EarlyStoppingRounds: 50,
		LogEvery:            20,
		Booster:             gbdt.DefaultParams(),
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c FitConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return crerr.Wrapf(ml.ErrInvalidConfig, "fit config: %v", err)
	}
	return c.Booster.Validate()
}
