package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// prompter reads answers from the command's input one line at a time.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.OutOrStdout()}
}

// ask prints label and returns the trimmed answer. io.EOF is returned once
// the input is exhausted and nothing was typed.
func (p *prompter) ask(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// confirm asks a yes/no question. Anything but y/yes is a no.
func (p *prompter) confirm(label string) bool {
	answer, err := p.ask(label + " [y/N]: ")
	if err != nil {
		return false
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}

// requireSetting returns the value of key, asking for it when it is not
// configured. It reports whether the value was entered interactively.
func (p *prompter) requireSetting(key, label string) (string, bool, error) {
	if v := viper.GetString(key); v != "" {
		return v, false, nil
	}
	v, err := p.ask(label + ": ")
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", label, err)
	}
	if v == "" {
		return "", false, fmt.Errorf("%s cannot be empty", label)
	}
	viper.Set(key, v)
	return v, true, nil
}

// offerSave writes the current settings to the config file when the user
// agrees.
func (p *prompter) offerSave() error {
	if !p.confirm("Save these settings for next time?") {
		return nil
	}
	path := viper.ConfigFileUsed()
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return fmt.Errorf("could not get home directory: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", filepath.Dir(path), err)
	}
	// WriteConfigAs saves *all* current viper settings, not just the prompted ones.
	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to save settings to %s: %w", path, err)
	}
	fmt.Fprintf(p.out, "Settings saved to %s\n", path)
	return nil
}
