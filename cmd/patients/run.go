package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"patientdesk/cmd/patients/ui"
	"patientdesk/internal/edit"
	"patientdesk/internal/logging"
	"patientdesk/internal/store"
	"patientdesk/internal/watch"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// runEditor runs the table editor. With watching enabled a file watcher
// runs next to the program and asks it to refresh on every change; either
// one ending stops the other.
func runEditor(cmd *cobra.Command, args []string) error {
	ctx, stop := commandContext(cmd)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s, err := store.New()
	if err != nil {
		return err
	}
	defer s.Subscribe(s.AuditObserver())()
	ctrl := edit.NewController(s, newProvider(cfg))

	g, gctx := errgroup.WithContext(ctx)
	model := ui.NewEditorPage(gctx, ctrl, ui.StylesFor(cfg.Theme))
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(gctx))

	if cfg.Data.Watch {
		fw, err := watch.New(cfg.Data.Path, cfg.GetDebounce(), func() {
			p.Send(ui.RefreshMsg{})
		})
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		g.Go(func() error {
			return fw.Run(gctx)
		})
	}

	g.Go(func() error {
		defer cancel()
		final, err := p.Run()
		if err != nil {
			return fmt.Errorf("program failed: %w", err)
		}
		if m, ok := final.(ui.EditorPageModel); ok && m.Err() != nil {
			return m.Err()
		}
		return nil
	})

	err = g.Wait()
	logging.Boot("editor exited: %v", err)
	return err
}

// runForm runs the detail form view. The initial load happens before the
// program starts; a failure is reported instead of an empty window.
func runForm(cmd *cobra.Command, args []string) error {
	ctx, stop := commandContext(cmd)
	defer stop()

	s, err := store.New()
	if err != nil {
		return err
	}
	defer s.Subscribe(s.AuditObserver())()
	if err := s.Load(ctx, newProvider(cfg)); err != nil {
		return fmt.Errorf("failed to load patients: %w", err)
	}

	model := ui.NewFormPage(s, ui.StylesFor(cfg.Theme))
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("program failed: %w", err)
	}
	return nil
}

// runList prints the patient table once.
func runList(cmd *cobra.Command, args []string) error {
	ctx, stop := commandContext(cmd)
	defer stop()

	s, err := store.New()
	if err != nil {
		return err
	}
	if err := s.Load(ctx, newProvider(cfg)); err != nil {
		return fmt.Errorf("failed to load patients: %w", err)
	}

	table := ui.PatientTable(ui.EditorTitle, s.Records(), time.Now())
	fmt.Fprint(cmd.OutOrStdout(), table.View(ui.StylesFor(cfg.Theme)))

	logger.Debug("listed patients", zap.Int("count", s.Len()), zap.String("data", cfg.Data.Path))
	return nil
}
