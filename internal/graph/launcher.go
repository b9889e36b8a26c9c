package graph

import (
	"github.com/Divas-Gupta30/kg-studio/internal/config"
	"github.com/Divas-Gupta30/kg-studio/internal/runner"
)

// Launcher turns a script and its arguments into a runner.Command using the
// configured interpreter, working directory and environment.
type Launcher struct {
	cfg config.GraphConfig
	env []string
}

// NewLauncher creates a Launcher. env is the complete child environment,
// normally config.Config.ProcessEnv().
func NewLauncher(cfg config.GraphConfig, env []string) *Launcher {
	return &Launcher{cfg: cfg, env: env}
}

// Command builds the invocation of script with args. With a conda environment
// configured the interpreter runs under `conda run`; the environment name and
// every argument are separate argv elements.
func (l *Launcher) Command(script string, args ...string) runner.Command {
	argv := make([]string, 0, len(args)+6)
	path := l.cfg.Python
	if l.cfg.CondaEnv != "" {
		path = l.cfg.Conda
		argv = append(argv, "run", "-n", l.cfg.CondaEnv, "--no-capture-output", l.cfg.Python)
	}
	argv = append(argv, script)
	argv = append(argv, args...)

	return runner.Command{
		Path: path,
		Args: argv,
		Dir:  l.cfg.WorkDir,
		Env:  l.env,
	}
}
