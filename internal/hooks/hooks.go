// Package hooks runs user-configured commands after worktree lifecycle
// events. Hook configuration lives in .gw/settings.json under the
// repository root; unknown settings keys are preserved across writes so
// other tools can share the file.
package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/raphi011/gw/internal/log"
)

// PostWorktreeCreation is the hook step run after a new worktree is
// created, with the new worktree as working directory.
const PostWorktreeCreation = "PostWorktreeCreation"

// Entry is a single configured hook command.
type Entry struct {
	Type    string `json:"type"`
	Command string `json:"command"`
}

// StepError reports a hook command that exited non-zero.
type StepError struct {
	Step     string
	Command  string
	ExitCode int
	Output   string
}

func (e *StepError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("hook %s failed (exit %d): `%s`: %s", e.Step, e.ExitCode, e.Command, e.Output)
	}
	return fmt.Sprintf("hook %s failed (exit %d): `%s`", e.Step, e.ExitCode, e.Command)
}

func settingsPath(repoRoot string) string {
	return filepath.Join(repoRoot, ".gw", "settings.json")
}

// loadSettings reads the settings file as a loose key→raw map so keys
// this tool does not understand survive a round-trip.
func loadSettings(repoRoot string) (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(settingsPath(repoRoot))
	if os.IsNotExist(err) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", settingsPath(repoRoot), err)
	}
	var settings map[string]json.RawMessage
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("invalid JSON in %s: %w", settingsPath(repoRoot), err)
	}
	return settings, nil
}

func saveSettings(repoRoot string, settings map[string]json.RawMessage) error {
	path := settingsPath(repoRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func loadEntries(settings map[string]json.RawMessage) (map[string][]Entry, error) {
	hooksByStep := map[string][]Entry{}
	raw, ok := settings["hooks"]
	if !ok {
		return hooksByStep, nil
	}
	if err := json.Unmarshal(raw, &hooksByStep); err != nil {
		return nil, fmt.Errorf("invalid hooks section: %w", err)
	}
	return hooksByStep, nil
}

// Commands returns the configured commands for a hook step, in order.
// Entries of a type this tool does not understand are skipped and
// returned as unknown so callers can warn about them.
func Commands(repoRoot, step string) (commands, unknown []string, err error) {
	settings, err := loadSettings(repoRoot)
	if err != nil {
		return nil, nil, err
	}
	hooksByStep, err := loadEntries(settings)
	if err != nil {
		return nil, nil, err
	}

	for _, entry := range hooksByStep[step] {
		if entry.Type != "command" {
			unknown = append(unknown, entry.Type)
			continue
		}
		if cmd := strings.TrimSpace(entry.Command); cmd != "" {
			commands = append(commands, cmd)
		}
	}
	return commands, unknown, nil
}

// Add appends a command hook to a step, creating the settings file if
// needed.
func Add(repoRoot, step, command string) error {
	command = strings.TrimSpace(command)
	if command == "" {
		return fmt.Errorf("hook command cannot be empty")
	}

	settings, err := loadSettings(repoRoot)
	if err != nil {
		return err
	}
	hooksByStep, err := loadEntries(settings)
	if err != nil {
		return err
	}

	hooksByStep[step] = append(hooksByStep[step], Entry{Type: "command", Command: command})
	raw, err := json.Marshal(hooksByStep)
	if err != nil {
		return err
	}
	settings["hooks"] = raw
	return saveSettings(repoRoot, settings)
}

// Run executes every command of a step sequentially in workDir, stopping
// at the first failure. A non-zero exit surfaces as *StepError.
func Run(ctx context.Context, repoRoot, step, workDir string) error {
	commands, unknown, err := Commands(repoRoot, step)
	if err != nil {
		return err
	}
	for _, kind := range unknown {
		log.FromContext(ctx).Warnf("skipping %s hook of unknown type %q\n", step, kind)
	}
	if workDir == "" {
		workDir = repoRoot
	}

	for _, command := range commands {
		log.FromContext(ctx).Command("sh", "-c", command)

		c := exec.CommandContext(ctx, "sh", "-c", command)
		c.Dir = workDir
		out, err := c.CombinedOutput()
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return &StepError{
			Step:     step,
			Command:  command,
			ExitCode: exitCode,
			Output:   strings.TrimSpace(string(out)),
		}
	}
	return nil
}
