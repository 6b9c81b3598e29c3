package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dmitrijs2005/omnidesk/internal/common"
	"github.com/dmitrijs2005/omnidesk/internal/hooks"
	"github.com/dmitrijs2005/omnidesk/internal/models"
	"github.com/spf13/cobra"
)

// entityCommand builds the list/get/create/update/delete/watch subcommands
// of one entity.
func entityCommand[E models.Record[E], C models.Validator, P models.Patch](r *runner, name string, table func(*App) *hooks.Table[E, C, P]) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name,
		Short: "Manage " + name,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List " + name + " of the current user, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			recs, err := table(r.app).List(cmd.Context())
			if err != nil {
				return err
			}
			return r.app.print(recs)
		},
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, ok, err := table(r.app).Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return r.app.print(nil)
			}
			return r.app.print(rec)
		},
	}

	var createData string
	create := &cobra.Command{
		Use:   "create --data <json>",
		Short: "Create a record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fields, err := decodeInput[C](createData, cmd.InOrStdin())
			if err != nil {
				return err
			}
			rec, err := table(r.app).Create(cmd.Context(), fields)
			if err != nil {
				return err
			}
			return r.app.print(rec)
		},
	}
	create.Flags().StringVarP(&createData, "data", "d", "", "record fields as JSON, - for stdin")
	_ = create.MarkFlagRequired("data")

	var updateData string
	update := &cobra.Command{
		Use:   "update <id> --data <json>",
		Short: "Change the given fields of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := decodeInput[P](updateData, cmd.InOrStdin())
			if err != nil {
				return err
			}
			rec, err := table(r.app).Update(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			return r.app.print(rec)
		},
	}
	update.Flags().StringVarP(&updateData, "data", "d", "{}", "fields to change as JSON, - for stdin")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := table(r.app).Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintln(r.out, "deleted", args[0])
			return err
		},
	}

	cmd.AddCommand(list, get, create, update, del, watchCommand(r, name, table))
	return cmd
}

// decodeInput parses data, or stdin when data is "-", into T. Unknown
// fields are rejected.
func decodeInput[T any](data string, stdin io.Reader) (T, error) {
	var v T

	raw := []byte(data)
	if data == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return v, fmt.Errorf("read stdin: %w", err)
		}
		raw = b
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, &common.ValidationError{Field: "data", Reason: "is not valid: " + err.Error()}
	}
	return v, nil
}
