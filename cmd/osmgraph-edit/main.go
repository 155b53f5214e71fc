// Package main provides the osmgraph-edit CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/osmgraph/core/config"
	"github.com/osmgraph/core/editsystem"
	"github.com/osmgraph/core/internal/obslog"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "osmgraph-edit",
		Short: "osmgraph-edit - drive an editable topological graph's history from the command line",
		Long: `osmgraph-edit loads, inspects, and steps through a JSON-persisted
edit history on top of an osmgraph core EditSystem.

Each subcommand works on the history file named by its first argument;
undo, redo and restore write the changed history back out, so it
survives between invocations.`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("osmgraph-edit v%s\n", version)
		},
	})

	initCmd := &cobra.Command{
		Use:   "init [file]",
		Short: "Create a fresh, empty history file",
		Args:  cobra.ExactArgs(1),
		RunE:  runInit,
	}
	rootCmd.AddCommand(initCmd)

	showCmd := &cobra.Command{
		Use:   "show [file]",
		Short: "Print the current index, undo/redo annotations, and whether there is work in progress",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}
	rootCmd.AddCommand(showCmd)

	undoCmd := &cobra.Command{
		Use:   "undo [file]",
		Short: "Move the history index back one annotated step",
		Args:  cobra.ExactArgs(1),
		RunE:  runUndo,
	}
	rootCmd.AddCommand(undoCmd)

	redoCmd := &cobra.Command{
		Use:   "redo [file]",
		Short: "Move the history index forward one annotated step",
		Args:  cobra.ExactArgs(1),
		RunE:  runRedo,
	}
	rootCmd.AddCommand(redoCmd)

	// Checkpoints outlive a single CLI invocation, so unlike undo/redo
	// (held entirely in the JSON file) they persist to a badger store
	// sitting alongside it rather than in System's in-memory map.
	checkpointCmd := &cobra.Command{
		Use:   "checkpoint [file] [id]",
		Short: "Persist the current (history, index) under a named checkpoint",
		Args:  cobra.ExactArgs(2),
		RunE:  runCheckpoint,
	}
	rootCmd.AddCommand(checkpointCmd)

	restoreCmd := &cobra.Command{
		Use:   "restore [file] [id]",
		Short: "Restore a previously persisted checkpoint",
		Args:  cobra.ExactArgs(2),
		RunE:  runRestore,
	}
	rootCmd.AddCommand(restoreCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func logger() *obslog.Logger {
	cfg := config.LoadFromEnv()
	return obslog.New(os.Stderr, obslog.ParseLevel(cfg.Logging.Level))
}

func loadOrDie(path string) (*editsystem.System, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	s, err := editsystem.FromJSONAsync(string(b))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	s.SetLogger(logger())
	return s, nil
}

func save(path string, s *editsystem.System) error {
	payload, err := s.ToJSON()
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(payload), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	s := editsystem.New()
	s.SetLogger(logger())
	if err := save(path, s); err != nil {
		return err
	}
	fmt.Printf("initialized empty history at %s\n", path)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	s, err := loadOrDie(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("index:  %d\n", s.Index())
	fmt.Printf("undo:   %q\n", s.UndoAnnotation())
	fmt.Printf("redo:   %q\n", s.RedoAnnotation())
	fmt.Printf("dirty:  %v\n", s.HasWorkInProgress())
	return nil
}

func runUndo(cmd *cobra.Command, args []string) error {
	path := args[0]
	s, err := loadOrDie(path)
	if err != nil {
		return err
	}
	s.Undo()
	return save(path, s)
}

func runRedo(cmd *cobra.Command, args []string) error {
	path := args[0]
	s, err := loadOrDie(path)
	if err != nil {
		return err
	}
	s.Redo()
	return save(path, s)
}

func checkpointDir(historyPath string) string { return historyPath + ".checkpoints" }

func runCheckpoint(cmd *cobra.Command, args []string) error {
	path, id := args[0], args[1]
	s, err := loadOrDie(path)
	if err != nil {
		return err
	}
	store, err := editsystem.OpenBadgerCheckpointStore(checkpointDir(path))
	if err != nil {
		return err
	}
	defer store.Close()
	if err := s.Save(store, id); err != nil {
		return err
	}
	fmt.Printf("checkpoint %q saved at index %d\n", id, s.Index())
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	path, id := args[0], args[1]
	s, err := loadOrDie(path)
	if err != nil {
		return err
	}
	store, err := editsystem.OpenBadgerCheckpointStore(checkpointDir(path))
	if err != nil {
		return err
	}
	defer store.Close()
	if err := s.Load(store, id); err != nil {
		return err
	}
	return save(path, s)
}
