package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	// EmbeddedRootConfigurationReference identifies the embedded fallback configuration source.
	EmbeddedRootConfigurationReference = "embedded default configuration"
	// PathEnvironmentVariable names a configuration file to use when no explicit path is given.
	PathEnvironmentVariable                     = "LLM_STEPS_CONFIG"
	explicitConfigurationReadErrorFormat        = "read explicit configuration %s: %w"
	loaderInitializationWorkingDirectoryError   = "determine working directory: %w"
	loaderHomeEnvironmentVariableName           = "HOME"
	workingDirectoryConfigurationFileName       = "config.yaml"
	homeDirectoryConfigurationRelativeDirectory = ".llm-steps"
)

//go:embed default_root_configuration.yaml
var embeddedRootConfigurationBytes []byte

// RootConfigurationSource holds the raw configuration data and its origin.
type RootConfigurationSource struct {
	Reference string
	Content   []byte
}

// RootConfigurationLoader locates configuration files across supported search paths:
// explicit path, $LLM_STEPS_CONFIG, ./config.yaml, ~/.llm-steps/config.yaml, embedded default.
type RootConfigurationLoader struct {
	workingDirectory string
	homeDirectory    string
	environmentPath  string
	fileReader       func(string) ([]byte, error)
}

// NewRootConfigurationLoader constructs a loader with the provided directories.
func NewRootConfigurationLoader(workingDirectory string, homeDirectory string) RootConfigurationLoader {
	return RootConfigurationLoader{
		workingDirectory: workingDirectory,
		homeDirectory:    homeDirectory,
		fileReader:       os.ReadFile,
	}
}

// NewDefaultRootConfigurationLoader builds a loader from the process working directory, HOME and
// LLM_STEPS_CONFIG.
func NewDefaultRootConfigurationLoader() (RootConfigurationLoader, error) {
	workingDirectory, workingDirectoryError := os.Getwd()
	if workingDirectoryError != nil {
		return RootConfigurationLoader{}, fmt.Errorf(loaderInitializationWorkingDirectoryError, workingDirectoryError)
	}
	loader := NewRootConfigurationLoader(workingDirectory, os.Getenv(loaderHomeEnvironmentVariableName))
	return loader.WithEnvironmentPath(os.Getenv(PathEnvironmentVariable)), nil
}

// WithEnvironmentPath returns a copy of the loader that tries path right after the explicit one.
func (loader RootConfigurationLoader) WithEnvironmentPath(path string) RootConfigurationLoader {
	loader.environmentPath = strings.TrimSpace(path)
	return loader
}

// WithFileReader swaps the function used to read candidate files.
func (loader RootConfigurationLoader) WithFileReader(reader func(string) ([]byte, error)) RootConfigurationLoader {
	loader.fileReader = reader
	return loader
}

type configurationCandidate struct {
	path       string
	isExplicit bool
}

// Load resolves the configuration source using the preferred search order. Only an explicit path
// that exists but cannot be read is an error; every other miss falls through.
func (loader RootConfigurationLoader) Load(explicitPath string) (RootConfigurationSource, error) {
	for _, candidate := range loader.candidates(explicitPath) {
		if candidate.path == "" {
			continue
		}
		content, readError := loader.fileReader(candidate.path)
		if readError != nil {
			if candidate.isExplicit && !errors.Is(readError, fs.ErrNotExist) && !errors.Is(readError, fs.ErrPermission) {
				return RootConfigurationSource{}, fmt.Errorf(explicitConfigurationReadErrorFormat, candidate.path, readError)
			}
			continue
		}
		return RootConfigurationSource{Reference: candidate.path, Content: content}, nil
	}
	return RootConfigurationSource{Reference: EmbeddedRootConfigurationReference, Content: embeddedRootConfigurationBytes}, nil
}

func (loader RootConfigurationLoader) candidates(explicitPath string) []configurationCandidate {
	candidates := []configurationCandidate{
		{path: explicitPath, isExplicit: explicitPath != ""},
		{path: loader.environmentPath, isExplicit: loader.environmentPath != ""},
	}
	if loader.workingDirectory != "" {
		candidates = append(candidates, configurationCandidate{path: filepath.Join(loader.workingDirectory, workingDirectoryConfigurationFileName)})
	}
	if loader.homeDirectory != "" {
		homeConfigurationPath := filepath.Join(loader.homeDirectory, homeDirectoryConfigurationRelativeDirectory, workingDirectoryConfigurationFileName)
		candidates = append(candidates, configurationCandidate{path: homeConfigurationPath})
	}
	return candidates
}
