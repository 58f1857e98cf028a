package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/absmach/fldash/monitor"
	"github.com/absmach/fldash/pkg/auth"
	"github.com/absmach/fldash/pkg/sdk"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

const (
	serverArg = "server"
	clientArg = "client"
	detailArg = "detail"
)

var (
	errUnknownView = errors.New("unknown view")
	errDenied      = errors.New("access denied")

	svc  monitor.Service
	fsdk sdk.SDK

	refresh = 3 * time.Second
	asJSON  = false
	asRole  = ""
)

func SetService(s monitor.Service) {
	svc = s
}

func SetSDK(s sdk.SDK) {
	fsdk = s
}

func NewLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login [server|client]",
		Short: "Log in and watch the role's home view",
		Long:  `Select a role, enter its home view and keep rendering it until interrupted. Without an argument the role is chosen interactively.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) > 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			var role auth.Role
			if len(args) == 1 {
				role = auth.Role(args[0])
			} else {
				r, err := selectRole()
				if err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				role = r
			}

			ctx := cmd.Context()
			s, route, err := svc.Login(ctx, role)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, s)

			watch(ctx, *cmd, route)
		},
	}
	addRenderFlags(cmd)

	return cmd
}

func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <server|client|detail> [client-id]",
		Short: "Watch a view",
		Long:  `Enter a view and keep rendering it until interrupted. The session role defaults to the role the view needs; --as picks another.`,
		Run: func(cmd *cobra.Command, args []string) {
			route, err := parseRoute(args)
			if err != nil {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			role := route.Role()
			if asRole != "" {
				role = auth.Role(asRole)
			}

			ctx := cmd.Context()
			if _, _, err := svc.Login(ctx, role); err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			got, err := svc.Navigate(ctx, route)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			if got != route {
				logErrorCmd(*cmd, fmt.Errorf("%w: %s may not enter %s", errDenied, role, route.Path()))
				logout(*cmd)

				return
			}

			watch(ctx, *cmd, got)
		},
	}
	cmd.Flags().StringVar(&asRole, "as", asRole, "Role to log in as")
	addRenderFlags(cmd)

	return cmd
}

func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [client <id>]",
		Short: "Print a one-shot coordinator snapshot",
		Long:  `Read the round status, roster and logs from the coordinator once, or one client's record.`,
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()

			switch len(args) {
			case 0:
				st, err := snapshot(ctx)
				if err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				if asJSON {
					logJSONCmd(*cmd, st)

					return
				}
				renderServer(cmd.OutOrStdout(), st)
			case 2:
				if args[0] != clientArg {
					logUsageCmd(*cmd, cmd.Use)

					return
				}
				c, err := fsdk.Client(ctx, args[1])
				if err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				cs := monitor.Classify(c)
				if asJSON {
					logJSONCmd(*cmd, cs)

					return
				}
				renderClient(cmd.OutOrStdout(), monitor.ClientState{ClientID: c.ID, Client: &cs})
			default:
				logUsageCmd(*cmd, cmd.Use)
			}
		},
	}
	cmd.Flags().BoolVarP(&asJSON, "json", "j", asJSON, "Print JSON instead of a table")

	return cmd
}

func addRenderFlags(cmd *cobra.Command) {
	cmd.Flags().DurationVarP(&refresh, "refresh", "r", refresh, "Render interval")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", asJSON, "Print JSON instead of a table")
}

func selectRole() (auth.Role, error) {
	var role string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Continue as").
				Options(
					huh.NewOption("Server (aggregate view)", string(auth.Server)),
					huh.NewOption("Client (own trust and accuracy)", string(auth.Client)),
				).
				Value(&role),
		),
	)
	if err := form.Run(); err != nil {
		return auth.None, err
	}

	return auth.Role(role), nil
}

func parseRoute(args []string) (monitor.Route, error) {
	switch {
	case len(args) == 1 && args[0] == serverArg:
		return monitor.ServerRoute(), nil
	case len(args) == 1 && args[0] == clientArg:
		return monitor.ClientRoute(), nil
	case len(args) == 2 && args[0] == detailArg && args[1] != "":
		return monitor.ClientDetailRoute(args[1]), nil
	default:
		return monitor.Route{}, errUnknownView
	}
}

// watch renders route every refresh interval until ctx is done, then logs
// out.
func watch(ctx context.Context, cmd cobra.Command, route monitor.Route) {
	defer logout(cmd)

	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	for {
		if err := render(ctx, cmd, route); err != nil {
			logErrorCmd(cmd, err)

			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func render(ctx context.Context, cmd cobra.Command, route monitor.Route) error {
	out := cmd.OutOrStdout()

	switch route.View {
	case monitor.ServerView:
		st, err := svc.ServerState(ctx)
		if err != nil {
			return err
		}
		if asJSON {
			logJSONCmd(cmd, st)

			return nil
		}
		clearScreen(out)
		renderServer(out, st)
	case monitor.ClientView, monitor.ClientDetail:
		st, err := svc.ClientState(ctx)
		if err != nil {
			return err
		}
		if asJSON {
			logJSONCmd(cmd, st)

			return nil
		}
		clearScreen(out)
		renderClient(out, st)
	}

	return nil
}

func logout(cmd cobra.Command) {
	ctx, cancel := context.WithTimeout(context.Background(), refresh)
	defer cancel()

	if err := svc.Logout(ctx); err != nil {
		logErrorCmd(cmd, err)

		return
	}
	logOKCmd(cmd, "logged out")
}

func snapshot(ctx context.Context) (monitor.ServerState, error) {
	r, err := fsdk.ServerStatus(ctx)
	if err != nil {
		return monitor.ServerState{}, err
	}
	roster, err := fsdk.Clients(ctx)
	if err != nil {
		return monitor.ServerState{}, err
	}
	logs, err := fsdk.Logs(ctx)
	if err != nil {
		return monitor.ServerState{}, err
	}

	st := monitor.ServerState{
		Round:   &r,
		Clients: make([]monitor.ClientStatus, 0, len(roster)),
		Logs:    logs,
	}
	for _, c := range roster {
		st.Clients = append(st.Clients, monitor.Classify(c))
	}

	return st, nil
}

func clearScreen(w io.Writer) {
	_, _ = io.WriteString(w, "\033[H\033[2J")
}
