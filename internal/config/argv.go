package config

import (
	"fmt"
	"os"
	"strings"
	"unicode"
)

// argvSplitter turns a shell-like command string into argv without a shell.
// $VAR and ${VAR} expand outside single quotes; a leading ~/ expands to home.
type argvSplitter struct {
	lookup func(string) (string, bool)
	home   func() (string, error)

	argv   []string
	word   strings.Builder
	inWord bool
}

func parseArgv(input string) ([]string, error) {
	return newArgvSplitter(os.LookupEnv, os.UserHomeDir).split(input)
}

func newArgvSplitter(lookup func(string) (string, bool), home func() (string, error)) *argvSplitter {
	return &argvSplitter{lookup: lookup, home: home}
}

func (s *argvSplitter) split(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.HasPrefix(input, "#") {
		return nil, nil
	}
	s.argv = nil
	s.word.Reset()
	s.inWord = false

	runes := []rune(input)
	var quote rune
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\\' && quote != '\'':
			if i+1 >= len(runes) {
				return nil, fmt.Errorf("unterminated escape sequence in command: %q", input)
			}
			i++
			s.write(runes[i])
		case quote != 0 && r == quote:
			quote = 0
		case quote == 0 && (r == '\'' || r == '"'):
			quote = r
			s.inWord = true
		case r == '$' && quote != '\'':
			n, err := s.expandVar(runes[i+1:])
			if err != nil {
				return nil, fmt.Errorf("%w in command: %q", err, input)
			}
			i += n
		case r == '~' && quote == 0 && !s.inWord && (i+1 == len(runes) || runes[i+1] == '/'):
			home, err := s.home()
			if err != nil {
				return nil, fmt.Errorf("expand ~ in command: %w", err)
			}
			s.word.WriteString(home)
			s.inWord = true
		case quote == 0 && unicode.IsSpace(r):
			s.flush()
		default:
			s.write(r)
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote in command: %q", input)
	}

	s.flush()
	return s.argv, nil
}

// expandVar consumes a variable name after '$' and returns how many runes it
// used. A bare '$' not followed by a name stays literal.
func (s *argvSplitter) expandVar(rest []rune) (int, error) {
	if len(rest) > 0 && rest[0] == '{' {
		end := 1
		for end < len(rest) && rest[end] != '}' {
			end++
		}
		if end == len(rest) {
			return 0, fmt.Errorf("unterminated ${")
		}
		name := string(rest[1:end])
		if !isEnvName(name) {
			return 0, fmt.Errorf("invalid variable name %q", name)
		}
		s.writeEnv(name)
		return end + 1, nil
	}

	n := 0
	for n < len(rest) && isEnvRune(rest[n], n == 0) {
		n++
	}
	if n == 0 {
		s.write('$')
		return 0, nil
	}
	s.writeEnv(string(rest[:n]))
	return n, nil
}

// writeEnv appends the value of name. An unset or empty variable outside
// quotes adds no word of its own.
func (s *argvSplitter) writeEnv(name string) {
	value, _ := s.lookup(name)
	if value == "" {
		return
	}
	s.word.WriteString(value)
	s.inWord = true
}

func (s *argvSplitter) write(r rune) {
	s.word.WriteRune(r)
	s.inWord = true
}

// flush ends the current word. Quoted empty strings survive as "".
func (s *argvSplitter) flush() {
	if !s.inWord {
		return
	}
	s.argv = append(s.argv, s.word.String())
	s.word.Reset()
	s.inWord = false
}

func isEnvName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if !isEnvRune(r, i == 0) {
			return false
		}
	}
	return true
}

func isEnvRune(r rune, first bool) bool {
	switch {
	case r == '_', r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return !first
	}
	return false
}

func mustParseArgv(input string) []string {
	argv, err := parseArgv(input)
	if err != nil {
		panic(err)
	}
	return argv
}
