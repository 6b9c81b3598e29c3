package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/omnidesk/internal/hooks"
	"github.com/dmitrijs2005/omnidesk/internal/models"
	"github.com/spf13/cobra"
)

// watchCommand prints the collection, or one record with --id, every time
// it settles to a new value, until interrupted or --count results were
// printed.
func watchCommand[E models.Record[E], C models.Validator, P models.Patch](r *runner, name string, table func(*App) *hooks.Table[E, C, P]) *cobra.Command {
	var (
		id    string
		count int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print " + name + " whenever they change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			r.app.follow(ctx)

			t := table(r.app)
			if id != "" {
				q, err := t.GetQuery(ctx, id)
				if err != nil {
					return err
				}
				defer q.Close()
				return watch(ctx, r, q, count)
			}

			q, err := t.ListQuery(ctx)
			if err != nil {
				return err
			}
			defer q.Close()
			return watch(ctx, r, q, count)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "watch a single record")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "stop after this many results, 0 for no limit")
	return cmd
}

func watch[T any](ctx context.Context, r *runner, q *hooks.Query[T], count int) error {
	printed := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case res, ok := <-q.Updates():
			if !ok {
				return nil
			}
			if res.IsLoading {
				continue
			}
			if res.Err != nil {
				fmt.Fprintln(r.errOut, "error:", res.Err)
			} else if err := r.app.print(res.Data); err != nil {
				return err
			}
			printed++
			if count > 0 && printed >= count {
				return nil
			}
		}
	}
}
