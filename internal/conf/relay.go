package conf

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/devricklin/echo-relay/internal/biz/domain"
)

// RelayConfig contains the file configuration loaded from YAML
type RelayConfig struct {
	DefaultTopic string                 `yaml:"default_topic"`
	Classifier   ClassifierPrompts      `yaml:"classifier"`
	SampleList   []domain.SampleMessage `yaml:"samples"`
}

// ClassifierPrompts contains the relevance prompt templates
type ClassifierPrompts struct {
	SystemPrompt   string  `yaml:"system_prompt"`
	PromptTemplate string  `yaml:"prompt_template"`
	Temperature    float32 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
}

// LoadRelayConfig loads the relay configuration from a YAML file
func LoadRelayConfig(configPath string) (*RelayConfig, error) {
	// Try multiple paths
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/relay.yaml",
			"/etc/echo-relay/relay.yaml",
		}
		// Add path relative to executable
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "relay.yaml"))
		}
	}

	var data []byte
	var loadedPath string

	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err == nil {
			data = b
			loadedPath = p
			break
		}
	}

	if data == nil {
		if configPath != "" {
			return nil, fmt.Errorf("read relay config %s: file not found", configPath)
		}
		// Return default config if no file found
		slog.Debug("No relay.yaml found, using defaults")
		return DefaultRelayConfig(), nil
	}

	slog.Debug("Loading relay config", "path", loadedPath)

	var config RelayConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse relay.yaml: %w", err)
	}

	// Fill in defaults for empty values
	config.fillDefaults()

	return &config, nil
}

// fillDefaults fills in default values for empty fields
func (c *RelayConfig) fillDefaults() {
	defaults := DefaultRelayConfig()

	if strings.TrimSpace(c.DefaultTopic) == "" {
		c.DefaultTopic = defaults.DefaultTopic
	}
	if c.Classifier.SystemPrompt == "" {
		c.Classifier.SystemPrompt = defaults.Classifier.SystemPrompt
	}
	if c.Classifier.PromptTemplate == "" {
		c.Classifier.PromptTemplate = defaults.Classifier.PromptTemplate
	}
	if c.Classifier.MaxTokens == 0 {
		c.Classifier.MaxTokens = defaults.Classifier.MaxTokens
	}

	// Drop blank entries; an empty list falls back to the built-in sequence
	samples := c.SampleList[:0]
	for _, s := range c.SampleList {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		if strings.TrimSpace(s.Sender) == "" {
			s.Sender = "Unknown"
		}
		samples = append(samples, s)
	}
	c.SampleList = samples
	if len(c.SampleList) == 0 {
		c.SampleList = defaults.SampleList
	}
}

// Samples implements repo.SampleRepo
func (c *RelayConfig) Samples() []domain.SampleMessage {
	out := make([]domain.SampleMessage, len(c.SampleList))
	copy(out, c.SampleList)
	return out
}

// RenderPrompt fills the prompt template with the message and topic
func (c *ClassifierPrompts) RenderPrompt(message, topic string) string {
	// Single pass so placeholder text inside message or topic is left alone
	return strings.NewReplacer("{{message}}", message, "{{topic}}", topic).Replace(c.PromptTemplate)
}

// DefaultRelayConfig returns the default relay configuration
func DefaultRelayConfig() *RelayConfig {
	return &RelayConfig{
		DefaultTopic: "Project Phoenix Status Updates",
		Classifier: ClassifierPrompts{
			SystemPrompt: `You are a message filter for a chat relay. Answer only with a JSON object that matches the provided schema: {"isRelevant": boolean, "reason": string}.`,
			PromptTemplate: `You are an AI assistant tasked with filtering messages for a specific group.

You will determine if a given message is relevant to the group's topic.

Message: {{message}}
Group Topic: {{topic}}

Determine if the message is relevant to the group topic. If it is, set isRelevant to true. If not, set isRelevant to false. Provide a brief reason for your decision.`,
			Temperature: 0,
			MaxTokens:   200,
		},
		SampleList: []domain.SampleMessage{
			{Sender: "Alice", Text: "Project Phoenix update: We are on track for the Q3 deadline. All modules are passing tests."},
			{Sender: "Bob", Text: "I found a great new coffee shop downtown! Who wants to go?"},
			{Sender: "Charlie", Text: "Weekly report is ready. Key metric for Project Phoenix is up by 5%."},
			{Sender: "Diana", Text: "Anyone have a charger I can borrow?"},
			{Sender: "Ethan", Text: "Critical bug found in the authentication service. All hands on deck for Project Phoenix."},
			{Sender: "Fiona", Text: "Happy birthday, Bob!"},
			{Sender: "George", Text: "The new designs for Project Phoenix are approved. I will share them shortly."},
			{Sender: "Hannah", Text: "Let's schedule the Project Phoenix review for next Monday."},
			{Sender: "Ian", Text: "My cat learned a new trick!"},
			{Sender: "Julia", Text: "Reminder: Project Phoenix code freeze is this Friday EOD."},
		},
	}
}
