package main

import (
	"github.com/linnemanlabs/ethicamind/internal/cfg"
	"github.com/linnemanlabs/ethicamind/internal/provider"
	"github.com/linnemanlabs/ethicamind/internal/provider/claude"
	"github.com/linnemanlabs/ethicamind/internal/provider/gemini"
	"github.com/linnemanlabs/ethicamind/internal/provider/mock"
	"github.com/linnemanlabs/ethicamind/internal/provider/openai"
	"github.com/linnemanlabs/ethicamind/internal/provider/palm"
)

// buildProviders returns the adapters in -providers order. Listed providers
// without credentials stay in the chain as unavailable stand-ins so the
// attempt is still counted and logged. Mock mode replaces the whole chain.
func buildProviders(c *cfg.Config) []provider.Provider {
	if c.MockReplies {
		return []provider.Provider{mock.New()}
	}

	reg := provider.NewRegistry()
	for _, name := range c.ProviderNames() {
		key := c.APIKey(name)
		if key == "" {
			reg.Register(provider.Unavailable(name, "no API key configured"))
			continue
		}
		switch name {
		case cfg.ProviderGemini:
			reg.Register(gemini.New(key, c.GeminiModel, c.GeminiEndpoint))
		case cfg.ProviderPaLM:
			reg.Register(palm.New(key, c.PaLMModel, c.PaLMEndpoint))
		case cfg.ProviderClaude:
			reg.Register(claude.New(key, c.ClaudeModel, c.ClaudeBaseURL))
		case cfg.ProviderOpenAI:
			reg.Register(openai.New(key, c.OpenAIModel, c.OpenAIBaseURL))
		}
	}
	return reg.Ordered(c.ProviderNames())
}
