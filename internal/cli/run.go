package cli

// RunOptions contains all the configuration for the Run command.
type RunOptions struct {
	// LibraryPath is the story to open: a loam library directory or a
	// single project document.
	LibraryPath string

	Headless bool
	Watch    bool
	Debug    bool

	// Slot resumes from a save slot when non-negative.
	Slot int

	// Store overrides the VINE_STORE backend for this invocation.
	Store string

	// Audio plays story audio through the system output device.
	Audio bool
}

// Execute handles the 'run' command logic, dispatching to Session or Watch
// mode.
func Execute(opts RunOptions) error {
	if opts.Watch {
		return RunWatch(opts)
	}

	cfg, err := ParseEnv()
	if err != nil {
		return err
	}
	if opts.Store != "" {
		cfg.Store = opts.Store
	}
	return RunSession(opts, cfg)
}
