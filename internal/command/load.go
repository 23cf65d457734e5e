package command

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Loaded captures the resolved command file, its table, and skipped-entry warnings.
type Loaded struct {
	Path     string
	Table    []Definition
	Warnings []string
	Exists   bool
}

// record mirrors one command entry as written in the command file.
type record struct {
	Name             string `mapstructure:"name"`
	SignalPhrase     any    `mapstructure:"signal_phrase"`
	SignalPhrases    any    `mapstructure:"signal_phrases"`
	MatchPosition    string `mapstructure:"match_position"`
	Action           any    `mapstructure:"action"`
	Actions          any    `mapstructure:"actions"`
	Template         string `mapstructure:"template"`
	ModelOverride    string `mapstructure:"model_override"`
	LLMModelOverride string `mapstructure:"llm_model_override"`
	OverlayMessage   string `mapstructure:"overlay_message"`
}

// ResolvePath applies explicit/XDG/home fallback rules for the command file.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "murmur", "commands.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for command file fallback")
	}
	return filepath.Join(home, ".config", "murmur", "commands.yaml"), nil
}

// Load reads the command file, falling back to Default when it does not exist.
//
// Malformed entries are skipped with a warning; only an unreadable or
// unparsable file is an error.
func Load(explicitPath string) (Loaded, error) {
	path, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Loaded{
				Path:     path,
				Table:    Default(),
				Warnings: []string{fmt.Sprintf("command file %q not found; using built-in commands", path)},
			}, nil
		}
		return Loaded{}, fmt.Errorf("stat command file %q: %w", path, err)
	}

	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return Loaded{}, fmt.Errorf("read command file %q: %w", path, err)
	}

	table, warnings := Decode(v.Get("commands"))
	return Loaded{Path: path, Table: table, Warnings: warnings, Exists: true}, nil
}

// Watch re-reads the command file on change and hands each decoded table to onChange.
func Watch(path string, logger *slog.Logger, onChange func([]Definition)) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("watch command file %q: %w", path, err)
	}

	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read command file %q: %w", path, err)
	}

	v.OnConfigChange(func(event fsnotify.Event) {
		table, warnings := Decode(v.Get("commands"))
		if logger != nil {
			for _, w := range warnings {
				logger.Warn("command table warning", "message", w)
			}
			logger.Info("command table reloaded", "path", event.Name, "commands", len(table))
		}
		onChange(table)
	})
	v.WatchConfig()
	return nil
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	if ext := strings.ToLower(filepath.Ext(path)); ext == "" {
		v.SetConfigType("yaml")
	}
	return v
}

// Decode validates raw command records in order and keeps the usable ones.
func Decode(raw any) ([]Definition, []string) {
	if raw == nil {
		return []Definition{}, []string{"command file has no \"commands\" list"}
	}

	entries, ok := raw.([]any)
	if !ok {
		return []Definition{}, []string{fmt.Sprintf("\"commands\" must be a list, got %T", raw)}
	}

	table := make([]Definition, 0, len(entries))
	warnings := make([]string, 0)
	seen := make(map[string]struct{}, len(entries))

	for i, entry := range entries {
		def, entryWarnings, err := decodeEntry(entry)
		for _, w := range entryWarnings {
			warnings = append(warnings, fmt.Sprintf("commands[%d]: %s", i, w))
		}
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("commands[%d]: %v; skipped", i, err))
			continue
		}
		if _, dup := seen[def.Name]; dup {
			warnings = append(warnings, fmt.Sprintf("commands[%d]: duplicate name %q; skipped", i, def.Name))
			continue
		}
		seen[def.Name] = struct{}{}
		table = append(table, def)
	}

	return table, warnings
}

func decodeEntry(entry any) (Definition, []string, error) {
	fields, ok := entry.(map[string]any)
	if !ok {
		return Definition{}, nil, fmt.Errorf("entry must be a map, got %T", entry)
	}

	var (
		rec      record
		metadata mapstructure.Metadata
	)
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:   &rec,
		Metadata: &metadata,
	})
	if err != nil {
		return Definition{}, nil, err
	}
	if err := decoder.Decode(fields); err != nil {
		return Definition{}, nil, fmt.Errorf("decode entry: %w", err)
	}

	warnings := make([]string, 0)
	if len(metadata.Unused) > 0 {
		unused := append([]string(nil), metadata.Unused...)
		sort.Strings(unused)
		warnings = append(warnings, fmt.Sprintf("ignoring unknown keys %s", strings.Join(unused, ", ")))
	}

	name := strings.TrimSpace(rec.Name)
	if name == "" {
		return Definition{}, warnings, errors.New("name is missing")
	}

	rawPhrases := rec.SignalPhrase
	if rawPhrases == nil {
		rawPhrases = rec.SignalPhrases
	}
	phrases, err := phraseList(rawPhrases)
	if err != nil {
		return Definition{}, warnings, fmt.Errorf("command %q: %w", name, err)
	}

	position, ok := ParseMatchPosition(rec.MatchPosition)
	if !ok {
		return Definition{}, warnings, fmt.Errorf("command %q: unknown match_position %q", name, rec.MatchPosition)
	}

	rawActions := rec.Action
	if rawActions == nil {
		rawActions = rec.Actions
	}
	actions, actionWarnings := actionList(rawActions)
	for _, w := range actionWarnings {
		warnings = append(warnings, fmt.Sprintf("command %q: %s", name, w))
	}

	model := strings.TrimSpace(rec.ModelOverride)
	if model == "" {
		model = strings.TrimSpace(rec.LLMModelOverride)
	}

	return Definition{
		Name:           name,
		SignalPhrases:  phrases,
		MatchPosition:  position,
		Actions:        actions,
		Template:       rec.Template,
		ModelOverride:  model,
		OverlayMessage: strings.TrimSpace(rec.OverlayMessage),
	}, warnings, nil
}

// phraseList accepts a single string or a list of strings.
func phraseList(raw any) ([]string, error) {
	switch value := raw.(type) {
	case nil:
		return nil, errors.New("signal_phrase is missing")
	case string:
		if strings.TrimSpace(value) == "" {
			return nil, errors.New("signal_phrase is empty")
		}
		return []string{value}, nil
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			phrase, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("signal_phrase entries must be strings, got %T", item)
			}
			out = append(out, phrase)
		}
		if len(out) == 0 {
			return nil, errors.New("signal_phrase list is empty")
		}
		return out, nil
	case []string:
		if len(value) == 0 {
			return nil, errors.New("signal_phrase list is empty")
		}
		return append([]string(nil), value...), nil
	default:
		return nil, fmt.Errorf("signal_phrase must be a string or list of strings, got %T", raw)
	}
}

// actionList accepts a single string or a list; non-string entries are dropped.
func actionList(raw any) ([]string, []string) {
	switch value := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{value}, nil
	case []string:
		return append([]string(nil), value...), nil
	case []any:
		out := make([]string, 0, len(value))
		warnings := make([]string, 0)
		for i, item := range value {
			action, ok := item.(string)
			if !ok {
				warnings = append(warnings, fmt.Sprintf("action[%d] is %T, not a string; skipped", i, item))
				continue
			}
			out = append(out, action)
		}
		return out, warnings
	default:
		return nil, []string{fmt.Sprintf("action must be a string or list, got %T; ignored", raw)}
	}
}
