package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	"lasdesk/internal/client"
	"lasdesk/internal/shared/telemetry"
	"lasdesk/internal/views"
)

// Options customise a CLI. Zero values use the process environment,
// stdout and stderr, and interactive prompts.
type Options struct {
	Out       io.Writer
	Err       io.Writer
	Lookuper  envconfig.Lookuper
	Confirmer views.Confirmer
}

// CLI is the lasctl command tree and the App it builds on first use.
type CLI struct {
	opts   Options
	root   *cobra.Command
	app    *App
	yes    bool
	apiURL string
}

// New builds the command tree.
func New(opts Options) *CLI {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	opts.Out = &syncWriter{w: opts.Out}
	c := &CLI{opts: opts}

	root := &cobra.Command{
		Use:               "lasctl",
		Short:             "Upload, process and manage LAS well-log files",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}
	root.PersistentFlags().BoolVarP(&c.yes, "yes", "y", false, "skip confirmation prompts")
	root.PersistentFlags().StringVar(&c.apiURL, "api-url", "", "API base URL (overrides LASDESK_API_URL)")
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)

	files := &cobra.Command{Use: "files", Short: "Manage uploaded LAS files"}
	files.AddCommand(
		c.listCmd(),
		c.uploadCmd(),
		c.showCmd(),
		c.processCmd(),
		c.watchCmd(),
		c.downloadCmd(),
		c.importantCmd(),
		c.statusCmd("archive", "Archive files", []string{client.StatusActive}, (*views.ListView).Archive, (*views.ListView).BulkArchive),
		c.statusCmd("delete", "Move files to the trash", []string{""}, (*views.ListView).SoftDelete, (*views.ListView).BulkSoftDelete),
		c.statusCmd("restore", "Restore files from the trash or archive", []string{client.StatusDeleted, client.StatusArchived}, (*views.ListView).Restore, (*views.ListView).BulkRestore),
		c.statusCmd("purge", "Permanently delete trashed files", []string{client.StatusDeleted}, (*views.ListView).DeletePermanent, (*views.ListView).BulkDeletePermanent),
	)
	root.AddCommand(files, c.wellsCmd())
	c.root = root
	return c
}

// Command returns the root cobra command.
func (c *CLI) Command() *cobra.Command { return c.root }

// Execute runs args and releases the App afterwards.
func (c *CLI) Execute(ctx context.Context, args []string) error {
	c.root.SetArgs(args)
	err := c.root.ExecuteContext(ctx)
	if c.app != nil {
		c.app.Close()
		c.app = nil
	}
	if errors.Is(err, views.ErrCancelled) {
		fmt.Fprintln(c.opts.Out, "Cancelled")
		return nil
	}
	return err
}

func (c *CLI) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := LoadConfig(cmd.Context(), c.opts.Lookuper)
	if err != nil {
		return err
	}
	if c.apiURL != "" {
		cfg.APIURL = c.apiURL
		if err := cfg.validate(); err != nil {
			return err
		}
	}
	telemetry.Configure(telemetry.Options{Output: c.opts.Err, Level: cfg.LogLevel})
	app, err := NewApp(cfg, c.opts.Out, confirmer(c.yes, c.opts.Confirmer))
	if err != nil {
		return err
	}
	c.app = app
	return nil
}

func (c *CLI) listCmd() *cobra.Command {
	var (
		status    string
		important bool
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if status == "all" {
				status = ""
			}
			lv := views.NewListView(c.app.Deps())
			if err := lv.SetFilter(cmd.Context(), client.Filter{Status: status, ImportantOnly: important, Limit: limit}); err != nil {
				return err
			}
			fmt.Fprintln(c.opts.Out, RenderRows(lv.Rows()))
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", client.StatusActive, "active, archived, deleted or all")
	cmd.Flags().BoolVar(&important, "important", false, "only important files")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of files")
	return cmd
}

func (c *CLI) uploadCmd() *cobra.Command {
	var process bool
	cmd := &cobra.Command{
		Use:   "upload PATH...",
		Short: "Upload LAS files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uploads := make([]client.UploadFile, 0, len(args))
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				uploads = append(uploads, client.UploadFile{Name: filepath.Base(path), Body: f})
			}
			res, err := c.app.API.Upload(cmd.Context(), uploads, process)
			if err != nil {
				c.app.Toasts.Error("Upload failed: " + client.Detail(err))
				return err
			}
			failed := 0
			for _, item := range res.Uploads {
				switch {
				case item.Error != "":
					failed++
					c.app.Toasts.Error(fmt.Sprintf("%s: %s", item.FileName, item.Error))
				case item.ProcessingError != "":
					c.app.Toasts.Error(fmt.Sprintf("%s uploaded as #%d but processing failed to start: %s", item.File.FileName, item.File.ID, item.ProcessingError))
				default:
					c.app.Toasts.Success(fmt.Sprintf("Uploaded %s as #%d (%s)", item.File.FileName, item.File.ID, item.File.WellName))
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d uploads failed", failed, len(res.Uploads))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&process, "process", false, "start processing after upload")
	return cmd
}

func (c *CLI) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			dv := views.NewDetailView(c.app.Deps(), id, nil)
			err = dv.Mount(cmd.Context())
			defer dv.Unmount()
			m := dv.Render()
			fmt.Fprintln(c.opts.Out, RenderDetail(m))
			if err != nil {
				return err
			}
			if m.State == views.DetailNotFound {
				return fmt.Errorf("file %d not found", id)
			}
			return nil
		},
	}
}

func (c *CLI) processCmd() *cobra.Command {
	var detach bool
	cmd := &cobra.Command{
		Use:   "process ID",
		Short: "Parse a file into well curves and follow its progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			dv := views.NewDetailView(c.app.Deps(), id, nil)
			if err := dv.Mount(cmd.Context()); err != nil {
				return err
			}
			defer dv.Unmount()
			if dv.Render().State == views.DetailNotFound {
				return fmt.Errorf("file %d not found", id)
			}
			if err := dv.Process(cmd.Context()); err != nil {
				return err
			}
			if detach {
				return nil
			}
			err = c.app.Watch(cmd.Context(), id)
			if errors.Is(err, ErrNoActiveJob) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&detach, "detach", false, "return once processing has started")
	return cmd
}

func (c *CLI) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [ID]",
		Short: "Follow the file being processed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job := c.app.Store.Active()
			if len(args) == 1 {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				if !job.IsActive(id) {
					return fmt.Errorf("file %d: %w", id, ErrNoActiveJob)
				}
			}
			if job.FileID == nil {
				return ErrNoActiveJob
			}
			fmt.Fprintf(c.opts.Out, "Watching file %d\n%s\n", *job.FileID, ProgressBar(job.Progress))
			return c.app.Watch(cmd.Context(), *job.FileID)
		},
	}
}

func (c *CLI) downloadCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "download ID",
		Short: "Download the original file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			w := c.opts.Out
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			n, err := c.app.API.Download(cmd.Context(), id, w)
			if err != nil {
				c.app.Toasts.Error("Download failed: " + client.Detail(err))
				return err
			}
			if output != "" {
				c.app.Toasts.Success(fmt.Sprintf("Saved %d bytes to %s", n, output))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this path instead of stdout")
	return cmd
}

func (c *CLI) importantCmd() *cobra.Command {
	var unset bool
	cmd := &cobra.Command{
		Use:   "important ID...",
		Short: "Mark files as important",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			lv, err := c.loadList(cmd.Context(), []string{""}, ids)
			if err != nil {
				return err
			}
			if len(ids) > 1 {
				lv.Select(ids...)
				return lv.BulkSetImportant(cmd.Context(), !unset)
			}
			f, _ := lv.File(ids[0])
			if f.IsImportant == !unset {
				c.app.Toasts.Success("Nothing to change")
				return nil
			}
			return lv.ToggleImportant(cmd.Context(), ids[0])
		},
	}
	cmd.Flags().BoolVar(&unset, "unset", false, "clear the important flag instead")
	return cmd
}

type (
	singleAction func(*views.ListView, context.Context, int64) error
	bulkAction   func(*views.ListView, context.Context) error
)

// statusCmd builds a command that acts on one id or on a selection of ids.
// The ids must all be visible under one of statuses, tried in order.
func (c *CLI) statusCmd(use, short string, statuses []string, one singleAction, many bulkAction) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			lv, err := c.loadList(cmd.Context(), statuses, ids)
			if err != nil {
				return err
			}
			if len(ids) == 1 {
				return one(lv, cmd.Context(), ids[0])
			}
			lv.Select(ids...)
			return many(lv, cmd.Context())
		},
	}
}

// loadList returns a list view under the first status showing every id.
func (c *CLI) loadList(ctx context.Context, statuses []string, ids []int64) (*views.ListView, error) {
	var missing int64
	for _, status := range statuses {
		lv := views.NewListView(c.app.Deps())
		if err := lv.SetFilter(ctx, client.Filter{Status: status}); err != nil {
			return nil, err
		}
		missing = 0
		for _, id := range ids {
			if _, ok := lv.File(id); !ok {
				missing = id
				break
			}
		}
		if missing == 0 {
			return lv, nil
		}
	}
	return nil, fmt.Errorf("file %d not found among %s files", missing, describeStatuses(statuses))
}

func describeStatuses(statuses []string) string {
	out := ""
	for i, s := range statuses {
		if s == "" {
			s = "active or archived"
		}
		if i > 0 {
			out += " or "
		}
		out += s
	}
	return out
}

func (c *CLI) wellsCmd() *cobra.Command {
	wells := &cobra.Command{Use: "wells", Short: "Inspect wells"}
	wells.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List wells",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := c.app.API.ListWells(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(c.opts.Out, mutedStyle.Render("no wells"))
				return nil
			}
			fmt.Fprintln(c.opts.Out, headerStyle.Render(fmt.Sprintf("%-6s %s", "ID", "WELL")))
			for _, w := range list {
				fmt.Fprintf(c.opts.Out, "%-6d %s\n", w.ID, w.Name)
			}
			return nil
		},
	}, &cobra.Command{
		Use:   "curves ID",
		Short: "Show the curves and depth range of a well",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			names, err := c.app.API.CurveNames(cmd.Context(), id)
			if err != nil {
				return err
			}
			rng, err := c.app.API.DepthRange(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.opts.Out, "Curves: %v\n", names)
			fmt.Fprintf(c.opts.Out, "Depth:  %g to %g\n", rng.Min, rng.Max)
			return nil
		},
	}, c.curveQueryCmd("data ID", "Print curve values by depth", func(cmd *cobra.Command, id int64, q client.CurveQuery) error {
		series, err := c.app.API.CurveData(cmd.Context(), id, q)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.opts.Out, RenderSeries(series, q.CurveNames))
		return nil
	}), c.curveQueryCmd("interpret ID", "Summarise curve statistics and flag anomalies", func(cmd *cobra.Command, id int64, q client.CurveQuery) error {
		out, err := c.app.API.Interpret(cmd.Context(), id, q)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.opts.Out, RenderInterpretation(out))
		return nil
	}))
	return wells
}

// curveQueryCmd builds a well command taking --curves, --from and --to.
// Omitted flags default to every curve and the well's full depth range.
func (c *CLI) curveQueryCmd(use, short string, run func(*cobra.Command, int64, client.CurveQuery) error) *cobra.Command {
	var q client.CurveQuery
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid well id %q", args[0])
			}
			query := q
			if len(query.CurveNames) == 0 {
				if query.CurveNames, err = c.app.API.CurveNames(cmd.Context(), id); err != nil {
					return err
				}
			}
			flags := cmd.Flags()
			if !flags.Changed("from") || !flags.Changed("to") {
				rng, err := c.app.API.DepthRange(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !flags.Changed("from") {
					query.DepthMin = rng.Min
				}
				if !flags.Changed("to") {
					query.DepthMax = rng.Max
				}
			}
			return run(cmd, id, query)
		},
	}
	cmd.Flags().StringSliceVar(&q.CurveNames, "curves", nil, "curve mnemonics, default all")
	cmd.Flags().Float64Var(&q.DepthMin, "from", 0, "top depth, default the shallowest sample")
	cmd.Flags().Float64Var(&q.DepthMax, "to", 0, "bottom depth, default the deepest sample")
	return cmd
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid file id %q", raw)
	}
	return id, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := parseID(a)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
