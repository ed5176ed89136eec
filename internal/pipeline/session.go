package pipeline

import (
	"sync"

	"github.com/temirov/llm-steps/internal/datasource"
)

// Side-channel keys stashed by the built-in units.
const (
	ArtifactLastPrompt        = "last_prompt"
	ArtifactLastLLMResponse   = "last_llm_response"
	ArtifactLastCodeGenerated = "last_code_generated"
	ArtifactLastCodeCleaned   = "last_code_cleaned"
)

// SessionConfig is fixed when the session is created.
type SessionConfig struct {
	LLM         LLM
	DataSources []datasource.Connector
	DirectSQL   bool
	// DisallowedCode lists substrings that code cleaning rejects.
	DisallowedCode []string
}

// Session is the state shared by every unit of a run. Configuration is read-only after
// NewSession; units pass side-channel artifacts through Stash and Lookup.
//
// Artifacts survive between runs. Call ResetArtifacts when they must not leak.
type Session struct {
	config SessionConfig

	mu        sync.RWMutex
	artifacts map[string]any
}

func NewSession(config SessionConfig) *Session {
	sources := make([]datasource.Connector, len(config.DataSources))
	copy(sources, config.DataSources)
	config.DataSources = sources
	return &Session{config: config, artifacts: map[string]any{}}
}

func (s *Session) LLM() LLM { return s.config.LLM }

func (s *Session) DirectSQL() bool { return s.config.DirectSQL }

// DataSources returns a copy of the registered connectors.
func (s *Session) DataSources() []datasource.Connector {
	out := make([]datasource.Connector, len(s.config.DataSources))
	copy(out, s.config.DataSources)
	return out
}

func (s *Session) DisallowedCode() []string {
	out := make([]string, len(s.config.DisallowedCode))
	copy(out, s.config.DisallowedCode)
	return out
}

func (s *Session) Stash(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[key] = value
}

func (s *Session) Lookup(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.artifacts[key]
	return value, ok
}

// LookupString returns the artifact as a string, or "" when absent or of another type.
func (s *Session) LookupString(key string) string {
	value, ok := s.Lookup(key)
	if !ok {
		return ""
	}
	text, _ := value.(string)
	return text
}

// ResetArtifacts drops every side-channel artifact. Configuration is untouched.
func (s *Session) ResetArtifacts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts = map[string]any{}
}
