package gbdt

import (
	crerr "github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/match-predictor/internal/ml"
)

const (
	MetricAUC     = "auc"
	MetricLogLoss = "binary_logloss"
)

// Params are the booster hyperparameters. Defaults follow the usual binary
// gbdt setup: 31 leaves, 255 bins, 20 rows per leaf.
type Params struct {
	NumRounds           int     `koanf:"num_rounds" json:"num_rounds" validate:"gte=1,lte=100000"`
	LearningRate        float64 `koanf:"learning_rate" json:"learning_rate" validate:"gt=0,lte=1"`
	NumLeaves           int     `koanf:"num_leaves" json:"num_leaves" validate:"gte=2,lte=4096"`
	MaxDepth            int     `koanf:"max_depth" json:"max_depth" validate:"gte=-1"`
	MinDataInLeaf       int     `koanf:"min_data_in_leaf" json:"min_data_in_leaf" validate:"gte=1"`
	MinSumHessianInLeaf float64 `koanf:"min_sum_hessian_in_leaf" json:"min_sum_hessian_in_leaf" validate:"gte=0"`
	LambdaL2            float64 `koanf:"lambda_l2" json:"lambda_l2" validate:"gte=0"`
	MinGainToSplit      float64 `koanf:"min_gain_to_split" json:"min_gain_to_split" validate:"gte=0"`
	MaxBins             int     `koanf:"max_bins" json:"max_bins" validate:"gte=2,lte=65535"`
	Metric              string  `koanf:"metric" json:"metric" validate:"oneof=auc binary_logloss"`
}

func DefaultParams() Params {
	return Params{
		NumRounds:           100,
		LearningRate:        0.1,
		NumLeaves:           31,
		MaxDepth:            -1,
		MinDataInLeaf:       20,
		MinSumHessianInLeaf: 1e-3,
		LambdaL2:            0,
		MinGainToSplit:      0,
		MaxBins:             255,
		Metric:              MetricAUC,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return crerr.Wrapf(ml.ErrInvalidConfig, "booster params: %v", err)
	}
	if p.MaxDepth == 0 {
		return crerr.Wrap(ml.ErrInvalidConfig, "booster params: max_depth must be -1 or > 0")
	}
	return nil
}

func (p Params) higherIsBetter() bool {
	return p.Metric != MetricLogLoss
}
