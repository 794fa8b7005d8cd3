package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/goliatone/go-settings/field"
	"github.com/goliatone/go-settings/internal/codec"
	"github.com/goliatone/go-settings/registry"
	"github.com/goliatone/go-settings/rules"
)

var (
	// ErrInvalidPath indicates a field path not of the form group.field.
	ErrInvalidPath = errors.New("settingsctl: path must be group.field")
	// ErrUnknownField indicates a path the catalog does not declare.
	ErrUnknownField = errors.New("settingsctl: unknown field")
	// ErrUnknownOption indicates a select value outside the declared options.
	ErrUnknownOption = errors.New("settingsctl: unknown option")
	// ErrSaveFailed indicates the store could not persist the document.
	ErrSaveFailed = errors.New("settingsctl: save failed")
)

func (c *cli) newLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Load, repair and persist the tenant document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withSession(cmd, func(ctx context.Context, s *session) error {
				doc := s.store.Load(ctx, s.cfg.Tenant)
				fmt.Fprintf(out(cmd), "loaded %s: %d groups\n", doc.Tenant(), len(doc.GroupCodes()))
				return nil
			})
		},
	}
}

func (c *cli) newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the tenant document in canonical form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withSession(cmd, func(ctx context.Context, s *session) error {
				s.store.Load(ctx, s.cfg.Tenant)
				blob, err := s.store.Encode(s.cfg.Tenant)
				if err != nil {
					return err
				}
				_, err = out(cmd).Write(blob)
				return err
			})
		},
	}
}

func (c *cli) newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <path>",
		Short: "Print a value, e.g. customSettings.onlyOnceDaily",
		Long: `Print the value at path inside settingGroups. The path uses gjson syntax,
so customSettings.autoHandleOnceDailyTimes.0 and customSettings.@keys work.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withSession(cmd, func(ctx context.Context, s *session) error {
				s.store.Load(ctx, s.cfg.Tenant)
				blob, err := s.store.Encode(s.cfg.Tenant)
				if err != nil {
					return err
				}
				value := gjson.GetBytes(blob, codec.GroupsKey+"."+args[0])
				if !value.Exists() {
					return fmt.Errorf("%w: %s", ErrUnknownField, args[0])
				}
				fmt.Fprintln(out(cmd), value.Raw)
				return nil
			})
		},
	}
}

func (c *cli) newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <group.field> <value>",
		Short: "Change one field and save the document",
		Long: `Change one field and save the document. The value is parsed as JSON and
falls back to a plain string, so both 'set base.checkInterval 30' and
'set base.timeZone Europe/Madrid' work.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withSession(cmd, func(ctx context.Context, s *session) error {
				doc := s.store.Load(ctx, s.cfg.Tenant)
				group, code, ok := strings.Cut(args[0], ".")
				if !ok || group == "" || code == "" {
					return fmt.Errorf("%w: %q", ErrInvalidPath, args[0])
				}
				target, ok := doc.Field(group, code)
				if !ok {
					return fmt.Errorf("%w: %s", ErrUnknownField, args[0])
				}
				payload, err := parseValue(args[1])
				if err != nil {
					return err
				}
				if sel, ok := target.(*field.Select); ok {
					if err := checkOptions(sel, payload); err != nil {
						return err
					}
				}
				if err := field.Copy(target, field.NewRaw(code, payload)); err != nil {
					return err
				}
				if !s.store.Save(ctx, s.cfg.Tenant, false) {
					return ErrSaveFailed
				}
				s.logger.Info("field updated", "tenant", doc.Tenant(), "group", group, "field", code)
				return nil
			})
		},
	}
}

func (c *cli) newSaveCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save the tenant document when it differs from the persisted blob",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withSession(cmd, func(ctx context.Context, s *session) error {
				s.store.Load(ctx, s.cfg.Tenant)
				modified := s.store.IsModified(ctx, s.cfg.Tenant)
				if !s.store.Save(ctx, s.cfg.Tenant, force) {
					return ErrSaveFailed
				}
				fmt.Fprintf(out(cmd), "saved (modified=%t forced=%t)\n", modified, force)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "write even when nothing changed")
	return cmd
}

func (c *cli) newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset every field to its default and save",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withSession(cmd, func(ctx context.Context, s *session) error {
				s.store.Load(ctx, s.cfg.Tenant)
				s.store.Unload(ctx, s.cfg.Tenant)
				if !s.store.Save(ctx, s.cfg.Tenant, true) {
					return ErrSaveFailed
				}
				fmt.Fprintln(out(cmd), "reset to defaults")
				return nil
			})
		},
	}
}

func (c *cli) newEvalCmd() *cobra.Command {
	var args map[string]string
	cmd := &cobra.Command{
		Use:   "eval <expression>",
		Short: "Evaluate a rule over the tenant document",
		Long: `Evaluate a rule over the tenant document with the configured engine.
Groups are variables (customSettings.onlyOnceDaily); tenant, now, args and
metadata are always bound.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, positional []string) error {
			return c.withSession(cmd, func(ctx context.Context, s *session) error {
				s.store.Load(ctx, s.cfg.Tenant)
				bound := make(map[string]any, len(args))
				for k, v := range args {
					bound[k] = v
				}
				value, err := s.store.EvaluateWith(ctx, s.cfg.Tenant, positional[0], rules.Context{Args: bound})
				if err != nil {
					return err
				}
				encoded, err := json.Marshal(value)
				if err != nil {
					return err
				}
				fmt.Fprintln(out(cmd), string(encoded))
				return nil
			})
		},
	}
	cmd.Flags().StringToStringVar(&args, "arg", nil, "bind args.<key>=<value> (repeatable)")
	return cmd
}

func (c *cli) newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the persisted document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := Catalog()
			if err != nil {
				return err
			}
			doc, err := registry.Schema(reg)
			if err != nil {
				return err
			}
			encoded, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out(cmd), string(encoded))
			return nil
		},
	}
}

func parseValue(raw string) ([]byte, error) {
	if gjson.Valid(raw) {
		return []byte(raw), nil
	}
	return json.Marshal(raw)
}

func checkOptions(sel *field.Select, payload []byte) error {
	parsed := gjson.ParseBytes(payload)
	if !parsed.IsArray() {
		return nil
	}
	known := map[string]struct{}{}
	for _, opt := range sel.Options() {
		known[opt.ID] = struct{}{}
	}
	for _, id := range parsed.Array() {
		if _, ok := known[id.String()]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownOption, id.String())
		}
	}
	return nil
}
