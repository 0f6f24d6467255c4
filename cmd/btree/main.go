// Command btree loads a BehaviorTree XML document, builds and drives the
// named tree, and optionally serves the visualizer wire protocol while it
// runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/arborist-labs/bteng/internal/behavior"
	"github.com/arborist-labs/bteng/internal/blackboard"
	"github.com/arborist-labs/bteng/internal/driver"
	"github.com/arborist-labs/bteng/internal/observer"
	"github.com/arborist-labs/bteng/internal/registry"
	"github.com/arborist-labs/bteng/internal/script"
	"github.com/arborist-labs/bteng/internal/xmlfmt"
)

const version = "0.1.0"

func main() {
	if err := run(os.Args[1:]); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("btree", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		file      string
		treeID    string
		serveAddr string
		logLevel  string
		subConfig string
		showHelp  bool
	)
	fs.StringVar(&file, "file", "", "path to the root BehaviorTree XML document")
	fs.StringVar(&treeID, "tree", "", "tree id to run (defaults to main_tree_to_execute)")
	fs.StringVar(&serveAddr, "serve", "", "address to serve the visualizer wire protocol on, e.g. :1667")
	fs.StringVar(&logLevel, "log-level", "info", "debug|info|warn|error")
	fs.StringVar(&subConfig, "substitution-config", "", "path to a JSON substitution/mock config (§6.3)")
	fs.BoolVar(&showHelp, "h", false, "show help")
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			printUsage(os.Stdout)
			return nil
		}
		return err
	}
	if showHelp || file == "" {
		printUsage(os.Stdout)
		if file == "" {
			return fmt.Errorf("missing required -file")
		}
		return nil
	}

	logger := newLogger(logLevel)

	source, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", file, err)
	}

	sc := script.NewRuntime()
	f := registry.NewFactory(sc)
	reg := f.Registry
	if err := f.RegisterBuiltins(registry.FeatureAll); err != nil {
		return fmt.Errorf("registering built-ins: %w", err)
	}

	baseDir := filepath.Dir(file)
	resolve := func(path string) (string, error) {
		data, err := os.ReadFile(filepath.Join(baseDir, path))
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	if err := xmlfmt.Register(reg, string(source), resolve); err != nil {
		return fmt.Errorf("registering tree definitions: %w", err)
	}

	if subConfig != "" {
		data, err := os.ReadFile(subConfig)
		if err != nil {
			return fmt.Errorf("reading substitution config: %w", err)
		}
		if err := f.LoadSubstitutionConfig(data); err != nil {
			return fmt.Errorf("loading substitution config: %w", err)
		}
	}

	if treeID == "" {
		treeID = reg.MainTreeID()
	}
	if treeID == "" {
		return fmt.Errorf("no -tree given and document has no main_tree_to_execute")
	}

	root, err := xmlfmt.Build(f, treeID, blackboard.New())
	if err != nil {
		return fmt.Errorf("building tree %q: %w", treeID, err)
	}

	rt := behavior.NewRuntime(logger, sc.Clone())
	tree := driver.New(root, rt, reg)
	tree.Start()
	defer tree.Stop()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if serveAddr != "" {
		ln, err := net.Listen("tcp", serveAddr)
		if err != nil {
			return fmt.Errorf("listening on %s: %w", serveAddr, err)
		}
		defer ln.Close()
		stats := observer.NewStats(nil)
		stats.Attach(root)
		srv := observer.NewServer(tree, stats, observer.NewBreakpoints(), treeID)
		go func() {
			if err := srv.Serve(ln); err != nil {
				logger.Warn("observer server stopped", "error", err)
			}
		}()
		logger.Info("serving visualizer wire protocol", "addr", serveAddr)
	}

	status, err := tree.TickWhileRunning(ctx)
	if err != nil {
		return fmt.Errorf("ticking %q: %w", treeID, err)
	}
	fmt.Println(status)
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "btree %s\n\n", version)
	fmt.Fprintln(w, "Usage: btree -file tree.xml [-tree ID] [-serve :1667] [-substitution-config config.json]")
}
