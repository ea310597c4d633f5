package commandstructure

import "context"

// Command is a single step of the image post-processing pipeline.
// Execute receives encoded image bytes and returns the transformed encoding.
type Command interface {
	Name() string
	Execute(ctx context.Context, imageData []byte) ([]byte, error)
}

// CommandFactory creates a command from configuration parameters
type CommandFactory func(params map[string]any) (Command, error)

// CommandConfig names a registered command together with its parameters
type CommandConfig struct {
	Name   string
	Params map[string]any
}
