package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"text/tabwriter"
	"time"

	"Go_Shelf/client"
	"Go_Shelf/internal/dto"

	"github.com/urfave/cli/v2"
)

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "shelfctl",
		Usage:     "manage the Go_Shelf catalog from the command line",
		Writer:    out,
		ErrWriter: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Usage:   "API base URL",
				EnvVars: []string{"SHELF_URL"},
				Value:   "http://localhost:5000",
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "admin session token (see `shelfctl login`)",
				EnvVars: []string{"SHELF_TOKEN"},
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "per-request timeout",
				Value: 60 * time.Second,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "exchange admin credentials for a session token",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Value: "admin"},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, EnvVars: []string{"SHELF_PASSWORD"}, Required: true},
				},
				Action: func(c *cli.Context) error {
					resp, err := newClient(c).Login(c.Context, c.String("username"), c.String("password"))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "export SHELF_TOKEN=%s\n", resp.Token)
					fmt.Fprintf(c.App.Writer, "# expires %s\n", resp.ExpiresAt.Format(time.RFC3339))
					return nil
				},
			},
			{
				Name:  "resources",
				Usage: "list, upload and remove academic files",
				Subcommands: []*cli.Command{
					{
						Name:  "list",
						Usage: "[--semester N] [--category C] [--subject S] [--search Q]",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "semester", Aliases: []string{"s"}},
							&cli.StringFlag{Name: "category"},
							&cli.StringFlag{Name: "subject"},
							&cli.StringFlag{Name: "search", Aliases: []string{"q"}},
						},
						Action: listResources,
					},
					{
						Name:      "upload",
						Usage:     "upload one file",
						ArgsUsage: "<file>",
						Flags:     uploadFlags(true),
						Action:    uploadResource,
					},
					{
						Name:      "bulk-upload",
						Usage:     "upload several files one after another",
						ArgsUsage: "<file>...",
						Flags:     uploadFlags(false),
						Action:    bulkUpload,
					},
					{
						Name:      "url",
						Usage:     "print a signed download (or --preview) link",
						ArgsUsage: "<id>",
						Flags: []cli.Flag{
							&cli.BoolFlag{Name: "preview", Usage: "inline disposition for in-browser viewing"},
						},
						Action: resourceURL,
					},
					{
						Name:      "delete",
						Usage:     "remove a resource and its blob",
						ArgsUsage: "<id>",
						Action:    deleteResource,
					},
				},
			},
			{
				Name:  "videos",
				Usage: "manage lecture video links",
				Subcommands: []*cli.Command{
					{
						Name: "list",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "semester", Aliases: []string{"s"}},
							&cli.StringFlag{Name: "subject"},
							&cli.StringFlag{Name: "search", Aliases: []string{"q"}},
						},
						Action: listVideos,
					},
					{
						Name:      "add",
						ArgsUsage: "<url>",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Required: true},
							&cli.StringFlag{Name: "subject", Required: true},
							&cli.IntFlag{Name: "semester", Aliases: []string{"s"}, Required: true},
						},
						Action: addVideo,
					},
					{
						Name:      "delete",
						ArgsUsage: "<id>",
						Action:    deleteVideo,
					},
				},
			},
			{
				Name:  "health",
				Usage: "show database, storage and cache status",
				Action: func(c *cli.Context) error {
					resp, err := newClient(c).Health(c.Context)
					if err != nil {
						return err
					}
					return printJSON(c.App.Writer, resp)
				},
			},
		},
	}
}

func uploadFlags(withTitle bool) []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "semester", Aliases: []string{"s"}, Required: true},
		&cli.StringFlag{Name: "category"},
		&cli.StringFlag{Name: "subject"},
	}
	if withTitle {
		flags = append(flags, &cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "defaults to the file name"})
	}
	return flags
}

func newClient(c *cli.Context) *client.Client {
	opts := []client.Option{client.WithHTTPClient(&http.Client{Timeout: c.Duration("timeout")})}
	if token := c.String("token"); token != "" {
		opts = append(opts, client.WithToken(token))
	}
	return client.New(c.String("url"), opts...)
}

func requireArg(c *cli.Context, name string) (string, error) {
	if c.NArg() < 1 {
		return "", fmt.Errorf("missing <%s>", name)
	}
	return c.Args().First(), nil
}

func listResources(c *cli.Context) error {
	resources, err := newClient(c).ListResources(c.Context, dto.ResourceListQuery{
		Semester: c.String("semester"),
		Category: c.String("category"),
		Subject:  c.String("subject"),
		Search:   c.String("search"),
	})
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSEM\tSUBJECT\tCATEGORY\tTITLE\tFILE\tSIZE")
	for _, r := range resources {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%d\n", r.ID, r.Semester, r.Subject, r.Category, r.Title, r.FileName, r.FileSize)
	}
	return tw.Flush()
}

func uploadResource(c *cli.Context) error {
	path, err := requireArg(c, "file")
	if err != nil {
		return err
	}
	results, err := newClient(c).BulkUpload(c.Context, []client.BulkFile{{
		Path:     path,
		Title:    c.String("title"),
		Semester: c.String("semester"),
		Category: c.String("category"),
		Subject:  c.String("subject"),
	}}, nil)
	if err != nil {
		return err
	}
	if res := results[0]; res.Err != nil {
		return res.Err
	}
	return printJSON(c.App.Writer, results[0].Resource)
}

func bulkUpload(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("missing <file>...")
	}
	files := make([]client.BulkFile, 0, c.NArg())
	for _, path := range c.Args().Slice() {
		files = append(files, client.BulkFile{
			Path:     path,
			Semester: c.String("semester"),
			Category: c.String("category"),
			Subject:  c.String("subject"),
		})
	}
	out := c.App.Writer
	reported := map[string]string{}
	results, err := newClient(c).BulkUpload(c.Context, files, func(s map[string]string) {
		for path, status := range s {
			if reported[path] == status || status == client.StatusQueued {
				continue
			}
			reported[path] = status
			fmt.Fprintf(out, "%-9s %s\n", status, filepath.Base(path))
		}
	})
	if err != nil {
		return err
	}
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(out, "  %s: %v\n", filepath.Base(r.Path), r.Err)
		}
	}
	fmt.Fprintf(out, "%d uploaded, %d failed\n", len(results)-failed, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(results))
	}
	return nil
}

func resourceURL(c *cli.Context) error {
	id, err := requireArg(c, "id")
	if err != nil {
		return err
	}
	link, err := newClient(c).ResourceDownloadURL(c.Context, id, c.Bool("preview"))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, link.URL)
	return nil
}

func deleteResource(c *cli.Context) error {
	id, err := requireArg(c, "id")
	if err != nil {
		return err
	}
	resp, err := newClient(c).DeleteResource(c.Context, id)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, resp)
}

func listVideos(c *cli.Context) error {
	videos, err := newClient(c).ListVideos(c.Context, dto.VideoListQuery{
		Semester: c.String("semester"),
		Subject:  c.String("subject"),
		Search:   c.String("search"),
	})
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSEM\tSUBJECT\tTITLE\tURL")
	for _, v := range videos {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", v.ID, v.Semester, v.Subject, v.Title, v.URL)
	}
	return tw.Flush()
}

func addVideo(c *cli.Context) error {
	link, err := requireArg(c, "url")
	if err != nil {
		return err
	}
	video, err := newClient(c).CreateVideo(c.Context, dto.VideoCreateRequest{
		Title:    c.String("title"),
		URL:      link,
		Subject:  c.String("subject"),
		Semester: dto.Int(c.Int("semester")),
	})
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, video)
}

func deleteVideo(c *cli.Context) error {
	id, err := requireArg(c, "id")
	if err != nil {
		return err
	}
	resp, err := newClient(c).DeleteVideo(c.Context, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, resp.Message)
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
