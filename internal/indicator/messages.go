package indicator

import (
	"os"
	"strings"

	"github.com/rbright/murmur/internal/config"
)

type locale string

const (
	localeEnglish locale = "en"
	localeGerman  locale = "de"
)

type messages struct {
	recording    string
	transcribing string
	processing   string
	errorText    string
	pastedPrefix string
}

// messagesFor resolves locale defaults and applies the configured overrides.
func messagesFor(cfg config.IndicatorConfig) messages {
	msg := indicatorMessages(resolveLocale(os.Getenv("LANG")))
	if text := strings.TrimSpace(cfg.TextRecording); text != "" {
		msg.recording = text
	}
	if text := strings.TrimSpace(cfg.TextProcessing); text != "" {
		msg.transcribing = text
	}
	if text := strings.TrimSpace(cfg.TextError); text != "" {
		msg.errorText = text
	}
	return msg
}

func resolveLocale(raw string) locale {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(raw, "de") {
		return localeGerman
	}
	return localeEnglish
}

func indicatorMessages(tag locale) messages {
	switch tag {
	case localeGerman:
		return messages{
			recording:    "Aufnahme…",
			transcribing: "Transkribiere…",
			processing:   "Verarbeite…",
			errorText:    "Fehler bei der Spracherkennung",
			pastedPrefix: "Eingefügt: ",
		}
	default:
		return messages{
			recording:    "Recording…",
			transcribing: "Transcribing…",
			processing:   "Processing…",
			errorText:    "Speech recognition error",
			pastedPrefix: "Pasted: ",
		}
	}
}
