package commands

// Names under which the pipeline commands are registered in commandstructure.DefaultRegistry
const (
	GrayscaleCommandName       = "GrayscaleCommand"
	RidgeEnhanceCommandName    = "RidgeEnhanceCommand"
	ThresholdCommandName       = "ThresholdCommand"
	ContrastCommandName        = "ContrastCommand"
	WhiteBackgroundCommandName = "WhiteBackgroundCommand"
	MirrorCommandName          = "MirrorCommand"
	PixelScaleCommandName      = "PixelScaleCommand"
)
