package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/talkincode/prodcatalog/internal/client"
)

const defaultServer = "http://localhost:5000"

type globalOptions struct {
	server    string
	tokenFile string
	timeout   time.Duration
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:          "catalogctl",
		Short:        "Command line client of the product catalog",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.server, "server", envOr("PRODCATALOG_URL", defaultServer), "catalog server base URL")
	root.PersistentFlags().StringVar(&opts.tokenFile, "token-file", defaultTokenFile(), "file holding the access token")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 15*time.Second, "request timeout")

	root.AddCommand(
		newSignupCommand(opts),
		newLoginCommand(opts),
		newProductsCommand(opts),
	)
	return root
}

func envOr(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return fallback
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".prodcatalog-token"
	}
	return filepath.Join(home, ".prodcatalog", "token")
}

func (o *globalOptions) client() *client.Client {
	return client.New(o.server, client.WithTimeout(o.timeout))
}

// authorizedClient loads the token saved by login
func (o *globalOptions) authorizedClient() (*client.Client, error) {
	token, err := readToken(o.tokenFile)
	if err != nil {
		return nil, err
	}
	c := o.client()
	c.SetToken(token)
	return c, nil
}

func readToken(file string) (string, error) {
	data, err := os.ReadFile(file)
	if os.IsNotExist(err) {
		return "", errors.New("not logged in, run catalogctl login first")
	}
	if err != nil {
		return "", errors.Wrap(err, "read token file")
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", errors.New("token file is empty, run catalogctl login again")
	}
	return token, nil
}

func writeToken(file, token string) error {
	if err := os.MkdirAll(filepath.Dir(file), 0o700); err != nil {
		return errors.Wrap(err, "create token dir")
	}
	return errors.Wrap(os.WriteFile(file, []byte(token+"\n"), 0o600), "write token file")
}

type credentialFlags struct {
	email    string
	password string
}

func (f *credentialFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.email, "email", "", "account email")
	cmd.Flags().StringVar(&f.password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
}

func newSignupCommand(opts *globalOptions) *cobra.Command {
	creds := &credentialFlags{}
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a new account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.client().Signup(cmd.Context(), creds.email, creds.password); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "User registered successfully")
			return nil
		},
	}
	creds.register(cmd)
	return cmd
}

func newLoginCommand(opts *globalOptions) *cobra.Command {
	creds := &credentialFlags{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := opts.client().Login(cmd.Context(), creds.email, creds.password)
			if err != nil {
				return err
			}
			if err := writeToken(opts.tokenFile, token); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in, token saved to %s\n", opts.tokenFile)
			return nil
		},
	}
	creds.register(cmd)
	return cmd
}
