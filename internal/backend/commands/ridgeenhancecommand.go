package commands

import (
	"fmt"
	"log/slog"

	"github.com/jo-hoe/fingerprint-enhancer/internal/backend/commandstructure"
	"github.com/jo-hoe/fingerprint-enhancer/internal/ridge"
)

// RidgeEnhanceCommand runs a ridge.Enhancer over the grayscale fingerprint
type RidgeEnhanceCommand struct {
	name     string
	enhancer ridge.Enhancer
}

// NewRidgeEnhanceCommand builds the enhancer named by the "enhancer" parameter.
// Gabor tuning parameters: blockSize, segmentThreshold, orientationRadius, frequency,
// sigmaAcross, sigmaAlong, angleStep.
func NewRidgeEnhanceCommand(params map[string]any) (commandstructure.Command, error) {
	defaults := ridge.DefaultGaborOptions()
	opts := ridge.GaborOptions{
		BlockSize:         commandstructure.GetIntParam(params, "blockSize", defaults.BlockSize),
		SegmentThreshold:  commandstructure.GetFloatParam(params, "segmentThreshold", defaults.SegmentThreshold),
		OrientationRadius: commandstructure.GetIntParam(params, "orientationRadius", defaults.OrientationRadius),
		Frequency:         commandstructure.GetFloatParam(params, "frequency", defaults.Frequency),
		SigmaAcross:       commandstructure.GetFloatParam(params, "sigmaAcross", defaults.SigmaAcross),
		SigmaAlong:        commandstructure.GetFloatParam(params, "sigmaAlong", defaults.SigmaAlong),
		AngleStep:         commandstructure.GetFloatParam(params, "angleStep", defaults.AngleStep),
	}

	enhancer, err := ridge.New(commandstructure.GetStringParam(params, "enhancer", ridge.GaborName), opts)
	if err != nil {
		return nil, err
	}
	command, err := NewRidgeEnhanceCommandWithEnhancer(enhancer)
	if err != nil {
		return nil, err
	}
	return command, nil
}

// NewRidgeEnhanceCommandWithEnhancer wraps an existing enhancer, e.g. a stub in tests
func NewRidgeEnhanceCommandWithEnhancer(enhancer ridge.Enhancer) (*RidgeEnhanceCommand, error) {
	if enhancer == nil {
		return nil, fmt.Errorf("ridge enhancer cannot be nil")
	}
	return &RidgeEnhanceCommand{
		name:     RidgeEnhanceCommandName,
		enhancer: enhancer,
	}, nil
}

func (c *RidgeEnhanceCommand) Name() string {
	return c.name
}

func (c *RidgeEnhanceCommand) Execute(imageData []byte) ([]byte, error) {
	src, err := decodeGray(imageData)
	if err != nil {
		slog.Error("RidgeEnhanceCommand: failed to decode image", "error", err)
		return nil, err
	}

	enhanced, err := c.enhancer.Enhance(src)
	if err != nil {
		return nil, fmt.Errorf("ridge enhancer %s failed: %w", c.enhancer.Name(), err)
	}
	if enhanced.Bounds().Size() != src.Bounds().Size() {
		return nil, fmt.Errorf("ridge enhancer %s changed dimensions from %v to %v",
			c.enhancer.Name(), src.Bounds().Size(), enhanced.Bounds().Size())
	}

	slog.Debug("RidgeEnhanceCommand: ridges enhanced",
		"enhancer", c.enhancer.Name(),
		"width", enhanced.Bounds().Dx(),
		"height", enhanced.Bounds().Dy())

	return encodePNG(toGray(enhanced))
}

func (c *RidgeEnhanceCommand) Enhancer() ridge.Enhancer {
	return c.enhancer
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(RidgeEnhanceCommandName, NewRidgeEnhanceCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", RidgeEnhanceCommandName, err))
	}
}
