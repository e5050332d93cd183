package main

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shop-admin-api/internal/client"
	"shop-admin-api/internal/config"
	"shop-admin-api/internal/logger"
)

// app carries what every command needs once the root command has run its
// setup.
type app struct {
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	baseURL string
	shop    string

	cfg     *config.ClientConfig
	log     *zap.Logger
	session *client.Session
	api     *client.Client
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{in: bufio.NewReader(in), out: out, errOut: errOut}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:               "shopctl",
		Short:             "Manage shops, stock and transactions from the terminal",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	root.PersistentFlags().StringVar(&a.baseURL, "base-url", "", "API base URL (default $SHOPCTL_BASE_URL)")
	root.PersistentFlags().StringVar(&a.shop, "shop", "", "shop ID (default: the shop chosen with `shopctl use`)")

	root.AddCommand(
		loginCmd(a),
		logoutCmd(a),
		whoamiCmd(a),
		passwdCmd(a),
		shopsCmd(a),
		useCmd(a),
		entityCmd(a, customers),
		entityCmd(a, vendors),
		entityCmd(a, uoms),
		entityCmd(a, inventory),
		entityCmd(a, expenses),
		entityCmd(a, transactions),
		entityCmd(a, plans),
		entityCmd(a, users),
		ledgerCmd(a),
		reportCmd(a),
	)
	return root
}

func (a *app) setup(*cobra.Command, []string) error {
	a.cfg = config.LoadClient()
	if a.baseURL != "" {
		a.cfg.BaseURL = strings.TrimRight(a.baseURL, "/")
	}
	a.log = logger.New(a.cfg.Log)

	var err error
	if a.session, err = client.OpenSession(a.cfg.SessionFile); err != nil {
		return err
	}
	a.api, err = client.New(a.cfg.BaseURL, a.session,
		client.WithHTTPClient(&http.Client{Timeout: a.cfg.Timeout}),
		client.WithLogger(a.log),
		client.WithNavigator(client.NavigatorFunc(a.navigate)),
	)
	return err
}

// navigate maps client navigation onto commands; sign-in is `shopctl login`.
func (a *app) navigate(path string) {
	if path == client.SignInPath {
		fmt.Fprintln(a.errOut, "Your session has ended. Run `shopctl login` to sign in again.")
	}
}

// shopID is the --shop flag or the shop stored in the session.
func (a *app) shopID() string {
	if s := strings.TrimSpace(a.shop); s != "" {
		return s
	}
	return a.session.ShopID()
}

// confirm asks a yes/no question on the terminal; anything but y or yes is no.
func (a *app) confirm(question string) bool {
	fmt.Fprintf(a.out, "%s [y/N]: ", question)
	line, _ := a.in.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func (a *app) readLine(prompt string) string {
	fmt.Fprint(a.out, prompt)
	line, _ := a.in.ReadString('\n')
	return strings.TrimSpace(line)
}
