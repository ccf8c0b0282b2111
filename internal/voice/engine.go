package voice

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// baseWPM is the normal speaking speed of the espeak family and say.
const baseWPM = 175

// CommandRecognizer runs an external program that prints one recognized
// fragment per line on stdout, for example a whisper.cpp stream wrapper.
type CommandRecognizer struct {
	Args []string
}

// Listen starts the program. The channel closes when the program exits or
// ctx is cancelled, which kills it.
func (r *CommandRecognizer) Listen(ctx context.Context) (<-chan string, error) {
	if len(r.Args) == 0 {
		return nil, ErrUnsupported
	}
	cmd := exec.CommandContext(ctx, r.Args[0], r.Args[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("run recognizer %s: %w", r.Args[0], err)
	}

	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(stdout)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			select {
			case out <- line:
			case <-ctx.Done():
			}
		}
		_ = cmd.Wait()
	}()
	return out, nil
}

// CommandSynthesizer speaks through an external program.
type CommandSynthesizer struct {
	Name string
	// Args builds the argument list for one utterance.
	Args func(text string, rate float64) []string
}

func (s *CommandSynthesizer) Speak(ctx context.Context, text string, rate float64) error {
	cmd := exec.CommandContext(ctx, s.Name, s.Args(text, rate)...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run %s: %w", s.Name, err)
	}
	return nil
}

// NewRecognizer returns the recognizer configured by command, or
// ErrUnsupported when none is configured or the program is missing.
func NewRecognizer(command string) (Recognizer, error) {
	args := strings.Fields(command)
	if len(args) == 0 {
		return nil, ErrUnsupported
	}
	if _, err := exec.LookPath(args[0]); err != nil {
		return nil, fmt.Errorf("%w: %s not found", ErrUnsupported, args[0])
	}
	return &CommandRecognizer{Args: args}, nil
}

// ErrNoSynthesizer is returned by NewSynthesizer when no engine is found.
var ErrNoSynthesizer = errors.New("no speech synthesizer found")

// NewSynthesizer returns the synthesizer configured by command, or the first
// known engine on PATH. A configured command receives the text as its last
// argument and the rate in SYLLABUS_VOICE_RATE.
func NewSynthesizer(command string) (Synthesizer, error) {
	if args := strings.Fields(command); len(args) > 0 {
		if _, err := exec.LookPath(args[0]); err != nil {
			return nil, fmt.Errorf("%w: %s not found", ErrNoSynthesizer, args[0])
		}
		return &envRateSynthesizer{args: args}, nil
	}
	for _, eng := range knownEngines {
		if _, err := exec.LookPath(eng.Name); err == nil {
			return eng, nil
		}
	}
	return nil, ErrNoSynthesizer
}

var knownEngines = []*CommandSynthesizer{
	{Name: "espeak-ng", Args: wpmArgs("-s")},
	{Name: "espeak", Args: wpmArgs("-s")},
	{Name: "say", Args: wpmArgs("-r")},
	{Name: "spd-say", Args: func(text string, rate float64) []string {
		return []string{"-w", "-r", strconv.Itoa(spdRate(rate)), text}
	}},
}

func wpmArgs(flag string) func(string, float64) []string {
	return func(text string, rate float64) []string {
		return []string{flag, strconv.Itoa(int(math.Round(baseWPM * rate))), text}
	}
}

// spdRate maps a multiplier onto speech-dispatcher's -100..100 scale.
func spdRate(rate float64) int {
	r := int(math.Round((rate - 1) * 100))
	return max(-100, min(100, r))
}

type envRateSynthesizer struct {
	args []string
}

func (s *envRateSynthesizer) Speak(ctx context.Context, text string, rate float64) error {
	args := append(append([]string{}, s.args[1:]...), text)
	cmd := exec.CommandContext(ctx, s.args[0], args...)
	cmd.Env = append(os.Environ(), "SYLLABUS_VOICE_RATE="+strconv.FormatFloat(rate, 'f', 2, 64))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run %s: %w", s.args[0], err)
	}
	return nil
}
