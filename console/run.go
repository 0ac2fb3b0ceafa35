package console

import (
	"context"
	stderrors "errors"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/c360/ticketfront/client"
	"github.com/c360/ticketfront/errors"
)

// Run drives manager and the console until the user quits or ctx ends.
// manager must have been created with inbox.Handler(); Run subscribes the
// inbox to its events.
func Run(ctx context.Context, manager *client.Manager, inbox *Inbox, opts ...Option) error {
	unsubscribe := manager.Subscribe(inbox.Observer())
	defer unsubscribe()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return manager.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		defer inbox.Close()

		program := tea.NewProgram(NewModel(manager, inbox, opts...), tea.WithContext(gctx))
		if _, err := program.Run(); err != nil {
			if stderrors.Is(err, tea.ErrProgramKilled) && gctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "console", "Run", "run terminal program")
		}
		return nil
	})

	err := g.Wait()
	_ = manager.Close()
	return err
}
