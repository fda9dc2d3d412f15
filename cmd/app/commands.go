package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/starford/marginalia/internal"
	"github.com/starford/marginalia/internal/annotation"
	"github.com/starford/marginalia/internal/annotationservice"
	"github.com/starford/marginalia/internal/listview"
	"github.com/starford/marginalia/internal/popup"
)

var errPathRequired = errors.New("a document path is required")

// withWorkspace opens the configured vault for one command. Logs go to
// stderr so stdout stays clean for piping.
func withWorkspace(ctx context.Context, cmd *cli.Command, fn func(context.Context, *internal.Workspace) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))
	ws, err := internal.OpenWorkspace(internal.WithConfig(cfg), internal.WithLogger(logger))
	if err != nil {
		return err
	}
	defer ws.Close()
	return fn(ctx, ws)
}

func docArg(cmd *cli.Command) (string, error) {
	p := cmd.Args().First()
	if p == "" {
		return "", errPathRequired
	}
	return p, nil
}

// kindsFlag parses --kind, falling back to the configured kinds.
func kindsFlag(cmd *cli.Command, ws *internal.Workspace) ([]annotation.Kind, error) {
	names := cmd.StringSlice("kind")
	if len(names) == 0 {
		return ws.Config.Annotations.ParsedKinds(), nil
	}
	return annotation.ParseKinds(names)
}

// Flags carry parse state, so every command gets its own instances.

func kindFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:    "kind",
		Aliases: []string{"k"},
		Usage:   "Restrict to annotation kinds (note, comment)",
	}
}

func offsetFlag() cli.Flag {
	return &cli.IntFlag{
		Name:     "offset",
		Aliases:  []string{"o"},
		Usage:    "Byte offset inside the marker",
		Required: true,
	}
}

func ifMatchFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "if-match",
		Usage: "Only change the document if its checksum matches",
	}
}

func printChange(w io.Writer, ch *annotationservice.Change) {
	fmt.Fprintf(w, "%s %s at %s:%d (checksum %s)\n",
		ch.Action, ch.Marker.Kind, ch.Path, ch.Marker.Line, ch.Checksum)
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Insert an annotation, wrapping the text between --start and --end",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "kind", Aliases: []string{"k"}, Usage: "note or comment (default from config)"},
			&cli.StringFlag{Name: "body", Aliases: []string{"b"}, Usage: "Annotation body", Required: true},
			&cli.IntFlag{Name: "start", Usage: "Region start offset, or the insertion point"},
			&cli.IntFlag{Name: "end", Usage: "Region end offset; omit for an annotation without text"},
			ifMatchFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path, err := docArg(cmd)
			if err != nil {
				return err
			}
			return withWorkspace(ctx, cmd, func(ctx context.Context, ws *internal.Workspace) error {
				kind := ws.Config.Annotations.Default()
				if k := cmd.String("kind"); k != "" {
					if kind, err = annotation.ParseKind(k); err != nil {
						return err
					}
				}
				ch, err := ws.Service.Add(ctx, annotationservice.AddRequest{
					Path:    path,
					Kind:    kind,
					Body:    cmd.String("body"),
					Start:   cmd.Int("start"),
					End:     cmd.Int("end"),
					IfMatch: cmd.String("if-match"),
				})
				if err != nil {
					return err
				}
				printChange(cmd.Root().Writer, ch)
				return nil
			})
		},
	}
}

func editCommand() *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Change the body or kind of the annotation at --offset",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			offsetFlag(),
			kindFlag(),
			&cli.StringFlag{Name: "body", Aliases: []string{"b"}, Usage: "New body"},
			&cli.StringFlag{Name: "to", Usage: "New kind"},
			ifMatchFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path, err := docArg(cmd)
			if err != nil {
				return err
			}
			return withWorkspace(ctx, cmd, func(ctx context.Context, ws *internal.Workspace) error {
				kinds, err := kindsFlag(cmd, ws)
				if err != nil {
					return err
				}
				req := annotationservice.EditRequest{MarkerRequest: annotationservice.MarkerRequest{
					Path:    path,
					Offset:  cmd.Int("offset"),
					Kinds:   kinds,
					IfMatch: cmd.String("if-match"),
				}}
				if cmd.IsSet("body") {
					body := cmd.String("body")
					req.Body = &body
				}
				if cmd.IsSet("to") {
					k, err := annotation.ParseKind(cmd.String("to"))
					if err != nil {
						return err
					}
					req.Kind = &k
				}
				ch, err := ws.Service.Edit(ctx, req)
				if err != nil {
					return err
				}
				printChange(cmd.Root().Writer, ch)
				return nil
			})
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Remove the annotation at --offset, keeping its text",
		ArgsUsage: "<path>",
		Flags:     []cli.Flag{offsetFlag(), kindFlag(), ifMatchFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path, err := docArg(cmd)
			if err != nil {
				return err
			}
			return withWorkspace(ctx, cmd, func(ctx context.Context, ws *internal.Workspace) error {
				kinds, err := kindsFlag(cmd, ws)
				if err != nil {
					return err
				}
				ch, err := ws.Service.Delete(ctx, annotationservice.MarkerRequest{
					Path:    path,
					Offset:  cmd.Int("offset"),
					Kinds:   kinds,
					IfMatch: cmd.String("if-match"),
				})
				if err != nil {
					if annotation.IsNotAMarker(err) {
						return fmt.Errorf("no %s annotation at offset %d", kindNames(kinds), cmd.Int("offset"))
					}
					return err
				}
				printChange(cmd.Root().Writer, ch)
				return nil
			})
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "List the annotations of a document or of some of its subtrees",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			kindFlag(),
			&cli.StringSliceFlag{Name: "heading", Usage: "Only the subtree under this heading (repeatable)"},
			&cli.StringFlag{Name: "sort", Value: "position", Usage: "position, text or body"},
			&cli.BoolFlag{Name: "desc", Usage: "Reverse the sort order"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path, err := docArg(cmd)
			if err != nil {
				return err
			}
			col, err := listview.ParseColumn(cmd.String("sort"))
			if err != nil {
				return err
			}
			return withWorkspace(ctx, cmd, func(ctx context.Context, ws *internal.Workspace) error {
				kinds, err := kindsFlag(cmd, ws)
				if err != nil {
					return err
				}
				views, err := ws.Service.Views(ctx, path, cmd.StringSlice("heading"), kinds, col, cmd.Bool("desc"))
				if err != nil {
					return err
				}
				defer views.CloseAll()

				out := cmd.Root().Writer
				keys := views.Keys()
				if len(keys) == 0 {
					fmt.Fprintln(out, "No annotations found")
					return nil
				}
				for _, key := range keys {
					v, _ := views.Get(key)
					fmt.Fprintf(out, "%s\n", key)
					if err := v.Render(out); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func tableCommand() *cli.Command {
	return &cli.Command{
		Name:      "table",
		Usage:     "Print annotations as text<TAB>body lines, or as an Org table",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			kindFlag(),
			&cli.StringFlag{Name: "heading", Usage: "Only the subtree under this heading"},
			&cli.BoolFlag{Name: "org", Usage: "Emit an aligned Org table"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path, err := docArg(cmd)
			if err != nil {
				return err
			}
			return withWorkspace(ctx, cmd, func(ctx context.Context, ws *internal.Workspace) error {
				kinds, err := kindsFlag(cmd, ws)
				if err != nil {
					return err
				}
				out, err := ws.Service.Table(ctx, annotationservice.ListRequest{
					Path:    path,
					Heading: cmd.String("heading"),
					Kinds:   kinds,
				}, cmd.Bool("org"))
				if err != nil {
					return err
				}
				if out == "" {
					fmt.Fprintln(cmd.Root().ErrWriter, "No annotations found")
					return nil
				}
				_, err = io.WriteString(cmd.Root().Writer, out)
				return err
			})
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show the body of the annotation at --offset",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			offsetFlag(),
			kindFlag(),
			&cli.BoolFlag{Name: "copy", Usage: "Copy the body to the clipboard"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path, err := docArg(cmd)
			if err != nil {
				return err
			}
			return withWorkspace(ctx, cmd, func(ctx context.Context, ws *internal.Workspace) error {
				kinds, err := kindsFlag(cmd, ws)
				if err != nil {
					return err
				}
				ann, err := ws.Service.Show(ctx, annotationservice.MarkerRequest{
					Path:   path,
					Offset: cmd.Int("offset"),
					Kinds:  kinds,
				})
				if err != nil {
					return err
				}
				p := popup.NewPresenter(nil)
				p.Show(ann.Body)
				defer p.Hide()
				fmt.Fprintln(cmd.Root().Writer, p.Render())
				if cmd.Bool("copy") {
					if err := p.Copy(); err != nil {
						return fmt.Errorf("copy to clipboard: %w", err)
					}
					ws.Logger.Info("copied annotation body", slog.String("path", path))
				}
				return nil
			})
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Render a document with its annotations converted for a backend",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "backend", Aliases: []string{"b"}, Value: "html", Usage: "html, latex, odt or any other name"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path, err := docArg(cmd)
			if err != nil {
				return err
			}
			return withWorkspace(ctx, cmd, func(ctx context.Context, ws *internal.Workspace) error {
				out, err := ws.Service.Export(ctx, path, cmd.String("backend"))
				if err != nil {
					return err
				}
				_, err = io.WriteString(cmd.Root().Writer, out)
				return err
			})
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search annotation bodies and texts across the vault",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			kindFlag(),
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			query := cmd.Args().First()
			if query == "" {
				return errors.New("a search query is required")
			}
			return withWorkspace(ctx, cmd, func(ctx context.Context, ws *internal.Workspace) error {
				kinds, err := kindsFlag(cmd, ws)
				if err != nil {
					return err
				}
				hits, err := ws.Service.Search(ctx, query, kinds, cmd.Int("limit"))
				if err != nil {
					return err
				}
				out := cmd.Root().Writer
				if len(hits) == 0 {
					fmt.Fprintln(out, "No annotations found")
					return nil
				}
				for _, h := range hits {
					text := h.Snippet
					if text == "" {
						text = h.Body
					}
					fmt.Fprintf(out, "%s:%d  %-7s  %s\n", h.Path, h.Line, h.Kind, text)
				}
				return nil
			})
		},
	}
}

func kindNames(kinds []annotation.Kind) string {
	if len(kinds) == 0 {
		return "note or comment"
	}
	s := kinds[0].String()
	for _, k := range kinds[1:] {
		s += " or " + k.String()
	}
	return s
}
