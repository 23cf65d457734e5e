package command

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type exportFile struct {
	Commands []exportEntry `yaml:"commands"`
}

type exportEntry struct {
	Name           string   `yaml:"name"`
	SignalPhrase   []string `yaml:"signal_phrase"`
	MatchPosition  string   `yaml:"match_position"`
	Action         []string `yaml:"action,omitempty"`
	Template       string   `yaml:"template,omitempty"`
	ModelOverride  string   `yaml:"model_override,omitempty"`
	OverlayMessage string   `yaml:"overlay_message,omitempty"`
}

// MarshalYAML renders a table in the same shape Load accepts.
func MarshalYAML(table []Definition) ([]byte, error) {
	file := exportFile{Commands: make([]exportEntry, 0, len(table))}
	for _, def := range table {
		file.Commands = append(file.Commands, exportEntry{
			Name:           def.Name,
			SignalPhrase:   def.SignalPhrases,
			MatchPosition:  string(def.MatchPosition),
			Action:         def.Actions,
			Template:       def.Template,
			ModelOverride:  def.ModelOverride,
			OverlayMessage: def.OverlayMessage,
		})
	}

	out, err := yaml.Marshal(file)
	if err != nil {
		return nil, fmt.Errorf("encode command table: %w", err)
	}
	return out, nil
}
