// Package enhancement turns raw fingerprint uploads into enhanced binary images.
//
// The pipeline is a fixed sequence of registered commands exchanging PNG bytes:
// grayscale decode, ridge enhancement, inverted binarization, contrast stretch and
// paste onto a white canvas. It holds no shared mutable state and is safe for
// concurrent use.
package enhancement

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jo-hoe/fingerprint-enhancer/internal/backend/commands"
	"github.com/jo-hoe/fingerprint-enhancer/internal/backend/commandstructure"
	"github.com/jo-hoe/fingerprint-enhancer/internal/ridge"
	"gopkg.in/yaml.v3"
)

// RawImage is an uploaded image file as received from the client
type RawImage struct {
	Filename string
	Data     []byte
}

// DefaultCommandConfigs returns the standard enhancement sequence
func DefaultCommandConfigs() []commandstructure.CommandConfig {
	return []commandstructure.CommandConfig{
		{Name: commands.GrayscaleCommandName, Params: map[string]any{}},
		{Name: commands.RidgeEnhanceCommandName, Params: map[string]any{"enhancer": ridge.GaborName}},
		{Name: commands.ThresholdCommandName, Params: map[string]any{"threshold": commands.DefaultThreshold, "invert": true}},
		{Name: commands.ContrastCommandName, Params: map[string]any{"factor": commands.DefaultContrastFactor}},
		{Name: commands.WhiteBackgroundCommandName, Params: map[string]any{}},
	}
}

// excludedSteps are registered commands that must not run inside the pipeline
var excludedSteps = map[string]string{
	commands.MirrorCommandName:     "the mirror is applied once after enhancement",
	commands.PixelScaleCommandName: "enhancement must keep the input dimensions",
}

// CheckCommandConfigs rejects steps that cannot be part of the enhancement sequence
func CheckCommandConfigs(configs []commandstructure.CommandConfig) error {
	for i, config := range configs {
		if reason, excluded := excludedSteps[config.Name]; excluded {
			return fmt.Errorf("command %s at index %d is not allowed in the enhancement pipeline: %s", config.Name, i, reason)
		}
	}
	return nil
}

type Option func(*Pipeline)

// WithRidgeEnhancer replaces the enhancer of every RidgeEnhanceCommand in the pipeline
func WithRidgeEnhancer(enhancer ridge.Enhancer) Option {
	return func(p *Pipeline) {
		p.enhancer = enhancer
	}
}

// WithRegistry creates commands from registry instead of commandstructure.DefaultRegistry
func WithRegistry(registry *commandstructure.CommandRegistry) Option {
	return func(p *Pipeline) {
		p.registry = registry
	}
}

type Pipeline struct {
	registry  *commandstructure.CommandRegistry
	enhancer  ridge.Enhancer
	configs   []commandstructure.CommandConfig
	invoker   *commandstructure.CommandInvoker
	signature string
}

// NewPipeline builds the pipeline from configs; an empty list selects DefaultCommandConfigs
func NewPipeline(configs []commandstructure.CommandConfig, opts ...Option) (*Pipeline, error) {
	if len(configs) == 0 {
		configs = DefaultCommandConfigs()
	}
	p := &Pipeline{
		registry: commandstructure.DefaultRegistry,
		configs:  configs,
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := CheckCommandConfigs(configs); err != nil {
		return nil, err
	}

	created, err := p.registry.CreateAll(configs)
	if err != nil {
		return nil, fmt.Errorf("failed to create enhancement commands: %w", err)
	}
	if p.enhancer != nil {
		for i, command := range created {
			if command.Name() != commands.RidgeEnhanceCommandName {
				continue
			}
			replacement, err := commands.NewRidgeEnhanceCommandWithEnhancer(p.enhancer)
			if err != nil {
				return nil, err
			}
			created[i] = replacement
		}
	}

	p.invoker = commandstructure.NewCommandInvoker(created)
	p.signature, err = p.computeSignature()
	if err != nil {
		return nil, err
	}

	slog.Info("enhancement pipeline ready", "commands", strings.Join(p.CommandNames(), ","))
	return p, nil
}

// Enhance runs raw through all pipeline steps. The result has the dimensions of the decoded input.
func (p *Pipeline) Enhance(raw RawImage) (result *image.Gray, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("enhancement panicked", "filename", raw.Filename, "panic", r)
			result = nil
			err = &EnhancementError{Source: raw.Filename, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if len(raw.Data) == 0 {
		return nil, &EnhancementError{Source: raw.Filename, Err: fmt.Errorf("image data is empty")}
	}

	output, err := p.invoker.Execute(raw.Data)
	if err != nil {
		slog.Warn("enhancement failed", "filename", raw.Filename, "error", err)
		return nil, &EnhancementError{Source: raw.Filename, Err: err}
	}

	decoded, err := png.Decode(bytes.NewReader(output))
	if err != nil {
		return nil, &EnhancementError{Source: raw.Filename, Err: fmt.Errorf("failed to decode pipeline output: %w", err)}
	}
	gray, ok := decoded.(*image.Gray)
	if !ok {
		return nil, &EnhancementError{Source: raw.Filename, Err: fmt.Errorf("pipeline produced %T, expected a grayscale image", decoded)}
	}

	input, _, err := image.DecodeConfig(bytes.NewReader(raw.Data))
	if err != nil {
		return nil, &EnhancementError{Source: raw.Filename, Err: fmt.Errorf("failed to read input dimensions: %w", err)}
	}
	if size := gray.Bounds().Size(); size.X != input.Width || size.Y != input.Height {
		return nil, &EnhancementError{Source: raw.Filename, Err: fmt.Errorf("pipeline changed dimensions from %dx%d to %dx%d", input.Width, input.Height, size.X, size.Y)}
	}
	return gray, nil
}

// EnhanceFile reads the image at path and enhances it
func (p *Pipeline) EnhanceFile(path string) (*image.Gray, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &EnhancementError{Source: path, Err: err}
	}
	return p.Enhance(RawImage{Filename: filepath.Base(path), Data: data})
}

// Signature identifies the configured step sequence; results are only comparable between equal signatures
func (p *Pipeline) Signature() string {
	return p.signature
}

// CommandNames returns the step names in execution order
func (p *Pipeline) CommandNames() []string {
	return p.invoker.Names()
}

func (p *Pipeline) computeSignature() (string, error) {
	encoded, err := yaml.Marshal(p.configs)
	if err != nil {
		return "", fmt.Errorf("failed to encode pipeline configuration: %w", err)
	}
	sum := sha256.New()
	sum.Write(encoded)
	if p.enhancer != nil {
		sum.Write([]byte(p.enhancer.Name()))
	}
	return hex.EncodeToString(sum.Sum(nil)), nil
}
