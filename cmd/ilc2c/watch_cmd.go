package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/Hawkynt/Hawkynt.github.io-sub003/ilast"
	"github.com/Hawkynt/Hawkynt.github.io-sub003/internal/lower"
	"github.com/Hawkynt/Hawkynt.github.io-sub003/internal/render"
)

var (
	watchOut      string
	watchDebounce int
)

var watchCmd = &cobra.Command{
	Use:   "watch <input.json>",
	Short: "Re-run transform whenever the input IL AST file changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if watchOut == "" {
			return fmt.Errorf("--out is required for watch")
		}
		cfg, err := effectiveConfig(cmd)
		if err != nil {
			return err
		}

		absInput, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolving %s: %w", args[0], err)
		}

		run := func() {
			if err := runOnce(absInput, watchOut, cfg.ToOptions()); err != nil {
				fmt.Fprintln(os.Stderr, "ilc2c watch:", err)
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", watchOut)
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("creating watcher: %w", err)
		}
		defer watcher.Close()
		if err := watcher.Add(absInput); err != nil {
			return fmt.Errorf("watching %s: %w", absInput, err)
		}

		run()
		fmt.Fprintf(cmd.OutOrStdout(), "watching %s (ctrl+C to stop)...\n", absInput)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		var (
			mu    sync.Mutex
			timer *time.Timer
		)
		debounce := time.Duration(watchDebounce) * time.Millisecond

		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					mu.Lock()
					if timer != nil {
						timer.Stop()
					}
					timer = time.AfterFunc(debounce, run)
					mu.Unlock()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				fmt.Fprintln(os.Stderr, "ilc2c watch error:", err)
			case <-sigCh:
				return nil
			}
		}
	},
}

func init() {
	watchCmd.Flags().StringVarP(&watchOut, "out", "o", "", "output .c file path (required)")
	watchCmd.Flags().IntVar(&watchDebounce, "debounce", 150, "debounce delay in milliseconds")
}

func runOnce(inputPath, outPath string, opts lower.Options) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}
	program, err := ilast.Decode(data)
	if err != nil {
		return err
	}
	t := lower.NewTransformer(opts)
	file, diags, err := t.Transform(program)
	if err != nil {
		return err
	}
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, d.String())
	}
	return os.WriteFile(outPath, []byte(render.File(file)), 0o644)
}
