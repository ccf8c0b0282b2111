// Package profile manages the user's study preferences.
// The profile is stored at ~/.config/syllabus/profile.json and is created
// once via the interactive setup flow, then read on every command.
package profile

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fakeyudi/syllabus/internal/backend"
	"github.com/fakeyudi/syllabus/internal/voice"
)

// ErrNoProfile is returned by Load when setup has never been run.
var ErrNoProfile = errors.New("profile not found: run 'syllabus setup' to configure")

// Profile holds user-level preferences set during first-run setup.
type Profile struct {
	Name        string  `json:"name"`
	AnswerStyle string  `json:"answer_style"` // concise | detailed | step-by-step
	VoiceRate   float64 `json:"voice_rate"`   // playback speed multiplier
}

// Default returns the profile used before setup has run.
func Default() Profile {
	return Profile{AnswerStyle: backend.StyleConcise, VoiceRate: voice.DefaultRate}
}

// Normalize replaces out-of-range values with defaults.
func (p *Profile) Normalize() {
	if !backend.ValidStyle(p.AnswerStyle) {
		p.AnswerStyle = backend.StyleConcise
	}
	if p.VoiceRate < voice.MinRate || p.VoiceRate > voice.MaxRate {
		p.VoiceRate = voice.DefaultRate
	}
}

func profilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "syllabus", "profile.json"), nil
}

// Exists reports whether a profile file is present on disk.
func Exists() bool {
	p, err := profilePath()
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Load reads the profile from disk. A missing file yields ErrNoProfile.
func Load() (*Profile, error) {
	p, err := profilePath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoProfile
		}
		return nil, err
	}
	var prof Profile
	if err := json.Unmarshal(data, &prof); err != nil {
		return nil, fmt.Errorf("malformed profile at %s: %w", p, err)
	}
	prof.Normalize()
	return &prof, nil
}

// Save writes the profile to disk, creating the config directory if needed.
func Save(prof *Profile) error {
	p, err := profilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(prof, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

// RunSetup runs the interactive setup wizard reading answers from in and
// writing prompts to out. If existing is non-nil, its values are the defaults
// for each prompt (edit mode). The result is not saved.
func RunSetup(in io.Reader, out io.Writer, existing *Profile) (*Profile, error) {
	r := bufio.NewReader(in)

	ask := func(prompt, defaultVal string) (string, error) {
		if defaultVal != "" {
			fmt.Fprintf(out, "%s [%s]: ", prompt, defaultVal)
		} else {
			fmt.Fprintf(out, "%s: ", prompt)
		}
		line, err := r.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return defaultVal, nil
		}
		return line, nil
	}

	prof := Default()
	if existing != nil {
		prof = *existing
		prof.Normalize()
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "  ┌─────────────────────────────────┐")
	fmt.Fprintln(out, "  │   syllabus · first-time setup   │")
	fmt.Fprintln(out, "  └─────────────────────────────────┘")
	fmt.Fprintln(out)

	var err error
	prof.Name, err = ask("  Your name", prof.Name)
	if err != nil {
		return nil, err
	}

	style, err := ask("  Answer style ("+strings.Join(backend.Styles, "/")+")", prof.AnswerStyle)
	if err != nil {
		return nil, err
	}
	if backend.ValidStyle(strings.ToLower(style)) {
		prof.AnswerStyle = strings.ToLower(style)
	} else {
		fmt.Fprintf(out, "  unknown style %q, keeping %s\n", style, prof.AnswerStyle)
	}

	rate, err := ask(fmt.Sprintf("  Voice speed (%.1f-%.1f)", voice.MinRate, voice.MaxRate),
		strconv.FormatFloat(prof.VoiceRate, 'f', -1, 64))
	if err != nil {
		return nil, err
	}
	if v, perr := strconv.ParseFloat(rate, 64); perr == nil && v >= voice.MinRate && v <= voice.MaxRate {
		prof.VoiceRate = v
	} else {
		fmt.Fprintf(out, "  invalid speed %q, keeping %g\n", rate, prof.VoiceRate)
	}

	fmt.Fprintln(out)
	return &prof, nil
}
