package narration

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"golang.org/x/text/language"
)

// ExecSpeaker speaks through an espeak-ng compatible binary.
type ExecSpeaker struct {
	Binary string
}

func NewExecSpeaker(binary string) *ExecSpeaker {
	if binary == "" {
		binary = "espeak-ng"
	}
	return &ExecSpeaker{Binary: binary}
}

// args maps the utterance onto espeak-ng flags: voice from the language
// tag's base language, speed around 175 wpm and pitch around 50 scaled by Rate and Pitch.
func (s *ExecSpeaker) args(u Utterance) []string {
	voice := "es"
	if u.Lang != language.Und {
		base, _ := u.Lang.Base()
		voice = base.String()
	}
	rate, pitch := u.Rate, u.Pitch
	if rate <= 0 {
		rate = 1
	}
	if pitch <= 0 {
		pitch = 1
	}
	return []string{
		"-v", voice,
		"-s", strconv.Itoa(int(175 * rate)),
		"-p", strconv.Itoa(min(int(50*pitch), 99)),
		"--", u.Text,
	}
}

func (s *ExecSpeaker) Speak(ctx context.Context, u Utterance) error {
	cmd := exec.CommandContext(ctx, s.Binary, s.args(u)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w: %s", s.Binary, err, out)
	}
	return nil
}
