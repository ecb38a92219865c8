package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/joeycumines/script-garden/internal/config"
	"github.com/joeycumines/script-garden/internal/module"
	"github.com/joeycumines/script-garden/internal/scripting"
	"github.com/joeycumines/script-garden/internal/state"
	"github.com/joeycumines/script-garden/internal/storage"
)

// workspacePath maps a workspace argument to a path. Bare names live in the
// configured workspaces directory; anything that looks like a path is used
// as given.
func workspacePath(s config.Settings, arg string) string {
	if filepath.IsAbs(arg) || strings.ContainsRune(arg, filepath.Separator) || strings.ContainsRune(arg, '/') || strings.HasPrefix(arg, ".") {
		return arg
	}
	return filepath.Join(s.WorkspacesDir, arg)
}

func openBackend(s config.Settings) (storage.Backend, error) {
	backend, err := storage.GetBackend(s.StorageBackend)
	if err != nil {
		return nil, fmt.Errorf("%w (available: %s)", err, strings.Join(storage.BackendNames(), ", "))
	}
	return backend, nil
}

func exampleContent(name string) (module.Content, error) {
	content, ok := module.ExampleByName(name)
	if !ok {
		names := []string{"default"}
		for _, e := range module.Examples() {
			names = append(names, e.Name)
		}
		return module.Content{}, fmt.Errorf("unknown example %q (available: %s)", name, strings.Join(names, ", "))
	}
	return content, nil
}

// sourceFlags selects module content for commands that run a module.
type sourceFlags struct {
	workspace string
	example   string
}

func (f *sourceFlags) setup(fs *flag.FlagSet) {
	fs.StringVar(&f.workspace, "workspace", "", "Workspace to load (name under workspaces-dir, or a path)")
	fs.StringVar(&f.example, "example", "", "Packaged example to load when no workspace is given (default from config)")
}

// resolve loads the selected source. The returned label names it for
// humans.
func (f *sourceFlags) resolve(s config.Settings, backend storage.Backend) (state.Source, string, error) {
	if f.workspace != "" && f.example != "" {
		return state.Source{}, "", errors.New("--workspace and --example are mutually exclusive")
	}
	if f.workspace != "" {
		path := workspacePath(s, f.workspace)
		w, err := backend.Load(path)
		if err != nil {
			return state.Source{}, "", err
		}
		return state.Source{Mode: state.SourceWorkspace, Draft: module.Default(), Workspace: w}, path, nil
	}
	name := f.example
	if name == "" {
		name = s.Example
	}
	content, err := exampleContent(name)
	if err != nil {
		return state.Source{}, "", err
	}
	return state.Source{Mode: state.SourceDraft, Draft: content}, "example " + name, nil
}

// InitCommand creates a workspace.
type InitCommand struct {
	*BaseCommand
	config  *config.Config
	example string
}

// NewInitCommand creates a new init command.
func NewInitCommand(cfg *config.Config) *InitCommand {
	return &InitCommand{
		BaseCommand: NewBaseCommand(
			"init",
			"Create a workspace from the default module or a packaged example",
			"init [options] <workspace>",
		),
		config: cfg,
	}
}

// SetupFlags configures the flags for the init command.
func (c *InitCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.example, "example", "default", "Packaged module to start from")
}

// Execute creates the workspace.
func (c *InitCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		_, _ = fmt.Fprintln(stderr, "Usage: garden init [options] <workspace>")
		return fmt.Errorf("expected one workspace argument")
	}
	s, err := c.config.Resolve()
	if err != nil {
		return err
	}
	content, err := exampleContent(c.example)
	if err != nil {
		return err
	}
	backend, err := openBackend(s)
	if err != nil {
		return err
	}
	defer backend.Close()

	w, err := backend.Create(workspacePath(s, args[0]), content)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "Created workspace %s (module %s)\n", w.Path, w.ID())
	return nil
}

// ExamplesCommand lists the packaged modules.
type ExamplesCommand struct {
	*BaseCommand
}

// NewExamplesCommand creates a new examples command.
func NewExamplesCommand() *ExamplesCommand {
	return &ExamplesCommand{
		BaseCommand: NewBaseCommand(
			"examples",
			"List the packaged example modules",
			"examples",
		),
	}
}

// Execute lists every packaged module with its identity and the metadata
// its init script declares.
func (c *ExamplesCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
		return fmt.Errorf("unexpected arguments")
	}
	entries := append([]module.Example{{Name: "default", Content: module.Default()}}, module.Examples()...)

	w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tHASH\tABOUT")
	for _, e := range entries {
		about := describe(e.Content)
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", e.Name, e.Content.ID(), about)
	}
	return w.Flush()
}

// describe runs the init phase of content in a scratch interpreter to read
// its metadata.
func describe(content module.Content) string {
	m, err := scripting.New(content, 48000)
	if err != nil {
		return "error: " + err.Error()
	}
	defer m.Close()
	meta, err := m.Init()
	if err != nil {
		return "error: " + err.Error()
	}
	return fmt.Sprintf("%s by %s: %s", meta.Name, meta.Author, meta.Description)
}

// WorkspacesCommand lists the workspaces in the workspaces directory.
type WorkspacesCommand struct {
	*BaseCommand
	config *config.Config
}

// NewWorkspacesCommand creates a new workspaces command.
func NewWorkspacesCommand(cfg *config.Config) *WorkspacesCommand {
	return &WorkspacesCommand{
		BaseCommand: NewBaseCommand(
			"workspaces",
			"List workspaces in the configured workspaces directory",
			"workspaces",
		),
		config: cfg,
	}
}

// Execute lists workspaces with their module identity.
func (c *WorkspacesCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
		return fmt.Errorf("unexpected arguments")
	}
	s, err := c.config.Resolve()
	if err != nil {
		return err
	}
	backend, err := openBackend(s)
	if err != nil {
		return err
	}
	defer backend.Close()

	paths, err := backend.List(s.WorkspacesDir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		_, _ = fmt.Fprintf(stdout, "No workspaces in %s\n", s.WorkspacesDir)
		return nil
	}
	w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
	for _, p := range paths {
		ws, err := backend.Load(p)
		if err != nil {
			_, _ = fmt.Fprintf(w, "%s\t%v\n", filepath.Base(p), err)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", filepath.Base(p), ws.ID())
	}
	return w.Flush()
}

// HashCommand prints the identity or share code of a workspace.
type HashCommand struct {
	*BaseCommand
	config *config.Config
	code   bool
}

// NewHashCommand creates a new hash command.
func NewHashCommand(cfg *config.Config) *HashCommand {
	return &HashCommand{
		BaseCommand: NewBaseCommand(
			"hash",
			"Print the module identity of a workspace",
			"hash [options] <workspace>",
		),
		config: cfg,
	}
}

// SetupFlags configures the flags for the hash command.
func (c *HashCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.code, "code", false, "Print the full share code instead of the hash")
}

// Execute prints the identity.
func (c *HashCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		_, _ = fmt.Fprintln(stderr, "Usage: garden hash [options] <workspace>")
		return fmt.Errorf("expected one workspace argument")
	}
	s, err := c.config.Resolve()
	if err != nil {
		return err
	}
	backend, err := openBackend(s)
	if err != nil {
		return err
	}
	defer backend.Close()

	w, err := backend.Load(workspacePath(s, args[0]))
	if err != nil {
		return err
	}
	if c.code {
		_, _ = fmt.Fprintln(stdout, w.Content.Encode())
	} else {
		_, _ = fmt.Fprintln(stdout, w.ID())
	}
	return nil
}

// ImportCommand creates a workspace from a share code.
type ImportCommand struct {
	*BaseCommand
	config *config.Config
	stdin  io.Reader
}

// NewImportCommand creates a new import command. A code of "-" is read from
// stdin.
func NewImportCommand(cfg *config.Config, stdin io.Reader) *ImportCommand {
	if stdin == nil {
		stdin = os.Stdin
	}
	return &ImportCommand{
		BaseCommand: NewBaseCommand(
			"import",
			"Create a workspace from a share code printed by 'hash --code'",
			"import <code|-> <workspace>",
		),
		config: cfg,
		stdin:  stdin,
	}
}

// Execute decodes the code and writes the workspace.
func (c *ImportCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) != 2 {
		_, _ = fmt.Fprintln(stderr, "Usage: garden import <code|-> <workspace>")
		return fmt.Errorf("expected a code and a workspace argument")
	}
	code := args[0]
	if code == "-" {
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			return fmt.Errorf("reading code from stdin: %w", err)
		}
		code = string(data)
	}
	content, err := module.Decode(code)
	if err != nil {
		return err
	}
	s, err := c.config.Resolve()
	if err != nil {
		return err
	}
	backend, err := openBackend(s)
	if err != nil {
		return err
	}
	defer backend.Close()

	w, err := backend.Create(workspacePath(s, args[1]), content)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "Imported module %s into %s\n", w.ID(), w.Path)
	return nil
}
