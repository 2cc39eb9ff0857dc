package similarity

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"gopkg.in/yaml.v3"
)

// DefaultKernelStdv is the Gaussian kernel width used when a resource omits it
const DefaultKernelStdv = 12.0

// ResourceName is the file name of the classifier override
const ResourceName = "svm-similarity.yaml"

//go:embed resources/svm-similarity.yaml
var defaultResource []byte

// ErrModelResourceLoad is returned when the classifier resource is missing or corrupt
var ErrModelResourceLoad = errors.New("failed to load classifier resource")

// ModelSource says where the classifier resource comes from. An empty or
// missing OverridePath selects the embedded default.
type ModelSource struct {
	OverridePath string `mapstructure:"override_path"`
}

// ModelResource holds the normalisation parameters and classifier weights
type ModelResource struct {
	Version    int              `yaml:"version"`
	Distance   string           `yaml:"distance"`
	Normalizer NormalizerParams `yaml:"normalizer"`
	Kernel     KernelParams     `yaml:"kernel"`
	SVM        SVMParams        `yaml:"svm"`
}

// NormalizerParams are the per-feature mean and standard deviation
type NormalizerParams struct {
	Mean  []float64 `yaml:"mean"`
	Stdev []float64 `yaml:"stdev"`
}

// KernelParams configure the radial basis kernel exp(-|x-y|^2 / stdv^2)
type KernelParams struct {
	Stdv float64 `yaml:"stdv"`
}

// SVMParams are the weights of a two-class kernel machine
type SVMParams struct {
	Bias           float64         `yaml:"bias"`
	SupportVectors []SupportVector `yaml:"support_vectors"`
}

// SupportVector is one support vector with its signed coefficient (alpha * y)
type SupportVector struct {
	Coef float64   `yaml:"coef"`
	X    []float64 `yaml:"x"`
}

// Validate checks that the resource fits the feature layout
func (r *ModelResource) Validate() error {
	if len(r.Normalizer.Mean) != NumFeatures {
		return fmt.Errorf("normalizer has %d means, expected %d", len(r.Normalizer.Mean), NumFeatures)
	}
	if len(r.Normalizer.Stdev) != NumFeatures {
		return fmt.Errorf("normalizer has %d deviations, expected %d", len(r.Normalizer.Stdev), NumFeatures)
	}
	if r.Kernel.Stdv <= 0 {
		return fmt.Errorf("kernel stdv must be positive")
	}
	if len(r.SVM.SupportVectors) == 0 {
		return fmt.Errorf("classifier has no support vectors")
	}
	for i, sv := range r.SVM.SupportVectors {
		if len(sv.X) != NumFeatures {
			return fmt.Errorf("support vector %d has %d values, expected %d", i, len(sv.X), NumFeatures)
		}
	}
	return nil
}

// ParseModelResource decodes and validates a classifier resource
func ParseModelResource(data []byte) (*ModelResource, error) {
	res := &ModelResource{Kernel: KernelParams{Stdv: DefaultKernelStdv}}
	if err := yaml.Unmarshal(data, res); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelResourceLoad, err)
	}
	if err := res.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelResourceLoad, err)
	}
	return res, nil
}

// LoadModelResource reads the override file if it exists, else the embedded default
func LoadModelResource(src ModelSource) (*ModelResource, string, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "model_resource",
	})

	if src.OverridePath != "" {
		data, err := os.ReadFile(src.OverridePath)
		switch {
		case err == nil:
			logger.Info("Overriding the built in model", logging.Fields{
				"path": src.OverridePath,
			})
			res, err := ParseModelResource(data)
			if err != nil {
				return nil, src.OverridePath, fmt.Errorf("%s: %w", src.OverridePath, err)
			}
			return res, src.OverridePath, nil
		case !errors.Is(err, os.ErrNotExist):
			return nil, src.OverridePath, fmt.Errorf("%w: %w", ErrModelResourceLoad, err)
		}
	}

	res, err := ParseModelResource(defaultResource)
	if err != nil {
		return nil, "embedded", err
	}
	return res, "embedded", nil
}
