package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/adminkit/internal/dataprovider"
	"github.com/muurk/adminkit/internal/dialog"
	"github.com/muurk/adminkit/internal/form"
	"github.com/muurk/adminkit/internal/i18n"
	"github.com/muurk/adminkit/internal/tui"
)

// Record command flags
var (
	recordSets   []string
	recordSchema string
	recordYes    bool
)

func init() {
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(showCmd)

	for _, c := range []*cobra.Command{createCmd, editCmd} {
		c.Flags().StringArrayVar(&recordSets, "set", nil, "Field value as key=value (repeatable)")
		c.Flags().StringVar(&recordSchema, "schema", "", "JSON Schema file describing the form fields")
	}
	editCmd.Flags().BoolVarP(&recordYes, "yes", "y", false, "Save without asking for confirmation")
}

var createCmd = &cobra.Command{
	Use:   "create <resource>",
	Short: "Create a record",
	Long: `Create a record in a backend resource.

Values come from --set flags, from a form described by --schema, or both:
--set values prefill the form. With a schema, values are typed and
validated before anything is sent.`,
	Example: `  # Non-interactive
  adminkit create users --set name=Ann --set role=editor

  # Form dialog
  adminkit create users --schema user.schema.json`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

var editCmd = &cobra.Command{
	Use:   "edit <resource> <id>",
	Short: "Edit a record",
	Long: `Load a record, change it and save it back.

With --set only the given fields change; the update is confirmed in a
dialog unless --yes is passed. With --schema the loaded record fills a form.`,
	Example: `  adminkit edit users u-1 --set role=admin --yes
  adminkit edit users u-1 --schema user.schema.json`,
	Args: cobra.ExactArgs(2),
	RunE: runEdit,
}

var showCmd = &cobra.Command{
	Use:   "show <resource> <id>",
	Short: "Show a record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.ensureSession(ctx); err != nil {
			return err
		}
		path := resourcePath(args[0])
		resp, err := a.client.GetOne(ctx, path, args[1])
		if err != nil {
			return a.reportDataError(ctx, err)
		}
		a.out.PrintRecord(fmt.Sprintf("%s/%s", path, args[1]), resp.Data)
		return nil
	},
}

func resourcePath(resource string) string {
	return "/" + strings.Trim(resource, "/")
}

func loadSchema(path string) (*dialog.Schema, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	return dialog.CompileSchema(string(data))
}

// typedValues converts --set values, typing the fields schema knows.
// Fields outside the schema stay strings.
func typedValues(schema *dialog.Schema, raw map[string]string) (map[string]any, error) {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	if schema == nil {
		return out, nil
	}
	typed, err := schema.Coerce(raw)
	if err != nil {
		return nil, err
	}
	for k, v := range typed {
		out[k] = v
	}
	return out, nil
}

// submitForm submits ctrl, reporting to n, and returns the saved record.
func submitForm(ctx context.Context, ctrl *form.Controller, n form.Notifier, tr i18n.Translator) (dataprovider.Record, error) {
	var saved dataprovider.Record
	form.HostCallbacks(n, tr, ctrl.Callbacks(), func(v any) {
		saved, _ = v.(dataprovider.Record)
	}).Apply(ctrl)
	if err := ctrl.Submit(ctx); err != nil {
		return nil, err
	}
	return saved, nil
}

// fillForm runs the interactive part of create and edit: the form surface
// in the terminal UI, a schema prompt followed by a submit in line mode.
func fillForm(ctx context.Context, a *app, title string, schema *dialog.Schema, ctrl *form.Controller) (dataprovider.Record, error) {
	var saved dataprovider.Record
	err := withDialogs(ctx, a.cfg, a.tr, func(ctx context.Context, d *dialog.Dialogs, h dialogHost) error {
		if h.tui {
			v, err := tui.ShowForm(h.manager, tui.FormSpec{
				Title:      title,
				Footer:     "Fields marked * are required",
				Schema:     schema,
				Controller: ctrl,
			}).Await(ctx)
			if err != nil {
				return err
			}
			saved, _ = v.(dataprovider.Record)
			return nil
		}

		v, err := d.Prompt(dialog.Request{Title: title, FormSchema: schema}).Await(ctx)
		if err != nil {
			return err
		}
		for k, val := range v.(map[string]any) {
			ctrl.Form().Set(k, val)
		}
		saved, err = submitForm(ctx, ctrl, h.notifier, a.tr)
		return err
	})
	return saved, err
}

func runCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp()
	if err != nil {
		return err
	}
	path := resourcePath(args[0])
	schema, err := loadSchema(recordSchema)
	if err != nil {
		return err
	}
	if schema == nil && len(recordSets) == 0 {
		return fmt.Errorf("nothing to create (use --set or --schema)")
	}
	raw, err := parseAssignments(recordSets)
	if err != nil {
		return err
	}
	values, err := typedValues(schema, raw)
	if err != nil {
		return err
	}
	if err := a.ensureSession(ctx); err != nil {
		return err
	}

	ctrl := form.New(a.client, form.Options{
		Path:       path,
		Form:       form.NewBinding(values),
		Action:     form.ActionCreate,
		Translator: a.tr,
	})

	var saved dataprovider.Record
	if schema != nil {
		saved, err = fillForm(ctx, a, "New "+strings.TrimPrefix(path, "/"), schema, ctrl)
	} else {
		saved, err = submitForm(ctx, ctrl, a.out, a.tr)
	}
	if err != nil {
		return a.reportDataError(ctx, err)
	}
	return a.recordSaved(path, saved)
}

func runEdit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp()
	if err != nil {
		return err
	}
	path, id := resourcePath(args[0]), args[1]
	schema, err := loadSchema(recordSchema)
	if err != nil {
		return err
	}
	if schema == nil && len(recordSets) == 0 {
		return fmt.Errorf("nothing to change (use --set or --schema)")
	}
	raw, err := parseAssignments(recordSets)
	if err != nil {
		return err
	}
	values, err := typedValues(schema, raw)
	if err != nil {
		return err
	}
	if err := a.ensureSession(ctx); err != nil {
		return err
	}

	ctrl := form.New(a.client, form.Options{
		Path:       path,
		ID:         id,
		Action:     form.ActionEdit,
		Translator: a.tr,
	})
	if err := ctrl.Load(ctx); err != nil {
		return a.reportDataError(ctx, err)
	}
	for k, v := range values {
		ctrl.Form().Set(k, v)
	}

	var saved dataprovider.Record
	switch {
	case schema != nil:
		saved, err = fillForm(ctx, a, fmt.Sprintf("Edit %s/%s", strings.TrimPrefix(path, "/"), id), schema, ctrl)
	case recordYes:
		saved, err = submitForm(ctx, ctrl, a.out, a.tr)
	default:
		err = withDialogs(ctx, a.cfg, a.tr, func(ctx context.Context, d *dialog.Dialogs, h dialogHost) error {
			if _, err := d.Confirm(dialog.Request{
				Title:   fmt.Sprintf("Save %s/%s?", strings.TrimPrefix(path, "/"), id),
				Content: describeChanges(values),
			}).Await(ctx); err != nil {
				return err
			}
			saved, err = submitForm(ctx, ctrl, h.notifier, a.tr)
			return err
		})
	}
	if err != nil {
		return a.reportDataError(ctx, err)
	}
	return a.recordSaved(path, saved)
}

// recordSaved remembers the resource and prints the saved record.
func (a *app) recordSaved(path string, rec dataprovider.Record) error {
	a.cfg.AddResource(a.name, path)
	if err := a.save(); err != nil {
		return err
	}
	a.out.PrintRecord(path, rec)
	return nil
}

func describeChanges(values map[string]any) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s → %v\n", k, values[k])
	}
	return strings.TrimRight(b.String(), "\n")
}
