package launchagent

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"howett.net/plist"
)

// Parse reads a single launchd descriptor. The returned agent is always NotLoaded;
// status is filled in by Reconcile.
func Parse(path string) (LaunchAgent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return LaunchAgent{}, &OpError{Op: OpParse, Path: path, Err: ErrNotFound}
		}
		return LaunchAgent{}, &OpError{Op: OpParse, Path: path, Err: err}
	}

	var d map[string]any
	if _, err := plist.Unmarshal(data, &d); err != nil {
		return LaunchAgent{}, &OpError{Op: OpParse, Path: path, Err: fmt.Errorf("%w: %v", ErrInvalidFormat, err)}
	}
	if d == nil {
		return LaunchAgent{}, &OpError{Op: OpParse, Path: path, Err: ErrInvalidFormat}
	}

	label, ok := d[keyLabel].(string)
	if !ok || label == "" {
		return LaunchAgent{}, &OpError{Op: OpParse, Path: path, Err: ErrMissingIdentity}
	}

	agent := LaunchAgent{
		Label:            label,
		Path:             path,
		ProgramArguments: programArguments(d),
		Schedule:         scheduleFromDescriptor(d),
		Status:           NotLoaded(),
	}
	agent.StdoutPath, _ = d[keyStandardOutPath].(string)
	agent.StderrPath, _ = d[keyStandardErrorPath].(string)

	return agent, nil
}

// programArguments returns ProgramArguments when present and every entry is a
// string, otherwise an empty list
func programArguments(d map[string]any) []string {
	raw, ok := d[keyProgramArguments].([]any)
	if !ok {
		return []string{}
	}
	args := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			return []string{}
		}
		args = append(args, s)
	}
	return args
}

// ScanDirectory parses every visible *.plist file in dir. Files that fail to parse
// are skipped; only a failure to list dir is returned.
func ScanDirectory(dir string) ([]LaunchAgent, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &OpError{Op: OpScan, Path: dir, Err: err}
	}

	agents := make([]LaunchAgent, 0, len(entries))
	for _, entry := range entries {
		if !isDescriptorName(entry.Name()) || entry.IsDir() {
			continue
		}

		agent, err := Parse(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Debug().Err(err).Str("file", entry.Name()).Msg("skipping descriptor")
			continue
		}
		agents = append(agents, agent)
	}

	return agents, nil
}

func isDescriptorName(name string) bool {
	return !strings.HasPrefix(name, ".") && filepath.Ext(name) == DescriptorExt
}
