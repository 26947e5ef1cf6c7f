// spookctl queries a running spook server from the command line.
//
// Usage:
//
//	spookctl list --domain light --value name --value area
//	spookctl hidden --output json
//	spookctl options integrations
//	spookctl token --secret "$JWT_SECRET" --subject dashboard
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ekobres/spook/internal/api/middleware"
	"github.com/ekobres/spook/internal/client"
	"github.com/ekobres/spook/pkg/version"
	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "spookctl",
		Usage:   "query a spook server",
		Version: version.GetVersion(),
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Value:   "http://localhost:3001",
				Usage:   "base URL of the spook server",
				Sources: cli.EnvVars("SPOOK_URL"),
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "bearer token for servers with auth enabled",
				Sources: cli.EnvVars("SPOOK_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   formatTable,
				Usage:   "output format: table, json or yaml",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 30 * time.Second,
				Usage: "request timeout",
			},
		},
		Commands: []*cli.Command{
			listCommand(),
			hiddenCommand(),
			fieldsCommand(),
			optionsCommand(),
			statusCommand(),
			refreshCommand(),
			callsCommand(),
			tokenCommand(),
		},
	}
}

func newClient(cmd *cli.Command) *client.Client {
	opts := []client.Option{}
	if token := cmd.String("token"); token != "" {
		opts = append(opts, client.WithToken(token))
	}
	return client.New(cmd.String("url"), opts...)
}

func withTimeout(ctx context.Context, cmd *cli.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, cmd.Duration("timeout"))
}

func printer(cmd *cli.Command) (*Printer, error) {
	return NewPrinter(cmd.Root().Writer, cmd.String("output"))
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "search the entity registry (list_filtered_entities)",
		Flags: filterFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := printer(cmd)
			if err != nil {
				return err
			}
			data, err := filterData(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(ctx, cmd)
			defer cancel()

			result, _, err := newClient(cmd).ListFilteredEntities(ctx, data)
			if err != nil {
				return err
			}
			return p.List(result)
		},
	}
}

func hiddenCommand() *cli.Command {
	return &cli.Command{
		Name:  "hidden",
		Usage: "list hidden entities (list_hidden_entities)",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := printer(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(ctx, cmd)
			defer cancel()

			result, _, err := newClient(cmd).ListHiddenEntities(ctx)
			if err != nil {
				return err
			}
			return p.Hidden(result)
		},
	}
}

func fieldsCommand() *cli.Command {
	return &cli.Command{
		Name:  "fields",
		Usage: "print the list_filtered_entities field schema",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, cancel := withTimeout(ctx, cmd)
			defer cancel()

			c := newClient(cmd)
			if cmd.String("output") == formatJSON {
				raw, err := c.Fields(ctx)
				if err != nil {
					return err
				}
				p, err := printer(cmd)
				if err != nil {
					return err
				}
				return p.Value(raw)
			}

			doc, err := c.FieldsYAML(ctx)
			if err != nil {
				return err
			}
			_, err = cmd.Root().Writer.Write(doc)
			return err
		},
	}
}

func optionsCommand() *cli.Command {
	return &cli.Command{
		Name:      "options",
		Usage:     "list selector choices of one kind",
		ArgsUsage: "<areas|devices|domains|integrations|labels>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			kind := cmd.Args().First()
			if kind == "" {
				return cli.Exit("options requires a kind", 2)
			}
			p, err := printer(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(ctx, cmd)
			defer cancel()

			opts, err := newClient(cmd).Options(ctx, kind)
			if err != nil {
				return err
			}
			return p.Options(opts)
		},
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "show the registry mirror status",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := printer(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(ctx, cmd)
			defer cancel()

			status, err := newClient(cmd).RegistryStatus(ctx)
			if err != nil {
				return err
			}
			return p.Value(status)
		},
	}
}

func refreshCommand() *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "queue a full registry reload",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, cancel := withTimeout(ctx, cmd)
			defer cancel()

			if err := newClient(cmd).Refresh(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.Root().Writer, color.GreenString("Refresh queued"))
			return nil
		},
	}
}

func callsCommand() *cli.Command {
	return &cli.Command{
		Name:  "calls",
		Usage: "list recently served action calls",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "number of calls to show"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := printer(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := withTimeout(ctx, cmd)
			defer cancel()

			calls, err := newClient(cmd).RecentCalls(ctx, int(cmd.Int("limit")))
			if err != nil {
				return err
			}
			return p.Calls(calls)
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "mint a bearer token for a server with auth enabled",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "secret",
				Usage:    "the server's auth.jwt_secret",
				Sources:  cli.EnvVars("JWT_SECRET"),
				Required: true,
			},
			&cli.StringFlag{Name: "subject", Value: "spookctl", Usage: "token subject"},
			&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour, Usage: "token lifetime, 0 for no expiry"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			token, err := middleware.GenerateToken(cmd.String("secret"), cmd.String("subject"), cmd.Duration("ttl"))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.Root().Writer, token)
			return nil
		},
	}
}
