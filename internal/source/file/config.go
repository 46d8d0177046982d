package file

import (
	"errors"
	"fmt"
)

type Config struct {
	SourcePath  string
	Destination string
}

func NewConfig(destination, path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("need file source path")
	}
	if destination == "" {
		return nil, errors.New("need file source destination")
	}
	return &Config{
		SourcePath:  path,
		Destination: destination,
	}, nil
}

func (c *Config) String() string {
	return fmt.Sprintf("Path: %v\nDestination: %v\n", c.SourcePath, c.Destination)
}
