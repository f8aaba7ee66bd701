package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muurk/adminkit/internal/server"
)

// SecretEnvVar supplies the token signing secret for 'adminkit serve'.
const SecretEnvVar = "ADMINKIT_SECRET"

// Serve command flags
var (
	serveHost      string
	servePort      int
	serveCert      string
	serveKey       string
	serveTokenTTL  time.Duration
	serveAccounts  string
	serveAdvertise bool
	serveInstance  string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen address (empty = all interfaces)")
	serveCmd.Flags().IntVar(&servePort, "port", server.DefaultPort, "Listen port")
	serveCmd.Flags().StringVar(&serveCert, "cert", "", "Path to TLS certificate file (optional)")
	serveCmd.Flags().StringVar(&serveKey, "key", "", "Path to TLS private key file (optional)")
	serveCmd.Flags().DurationVar(&serveTokenTTL, "token-ttl", time.Hour, "Session token lifetime")
	serveCmd.Flags().StringVar(&serveAccounts, "accounts", "", "YAML file with users, default roles and policies")
	serveCmd.Flags().BoolVar(&serveAdvertise, "advertise", false, "Advertise the backend over mDNS")
	serveCmd.Flags().StringVar(&serveInstance, "name", "", "mDNS instance name (default: adminkit-<hostname>)")
}

// accountsFile is the layout of the --accounts file.
type accountsFile struct {
	Users        []server.UserSpec `yaml:"users"`
	DefaultRoles []string          `yaml:"default_roles,omitempty"`
	Policies     map[string]string `yaml:"policies,omitempty"`
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a development admin backend",
	Long: `Run a development admin backend with JWT sessions, CEL permission
policies and an in-memory record store.

Without --accounts a single admin/admin account is created. The token
signing secret is read from ` + SecretEnvVar + `; a random one is used when
it is unset, which ends every session on restart.`,
	Example: `  # Local backend on the default port
  adminkit serve

  # Advertised on the LAN with custom accounts
  adminkit serve --host 0.0.0.0 --advertise --accounts accounts.yaml

  # HTTPS
  adminkit serve --cert fullchain.pem --key privkey.pem`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if (serveCert != "") != (serveKey != "") {
		return fmt.Errorf("both --cert and --key must be provided together, or neither")
	}
	for _, path := range []string{serveCert, serveKey} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", path)
		}
	}

	level := logLevel
	if level == "" {
		level = "info"
	}
	cfg := &server.Config{
		Host:         serveHost,
		Port:         servePort,
		CertPath:     serveCert,
		KeyPath:      serveKey,
		Secret:       os.Getenv(SecretEnvVar),
		TokenTTL:     serveTokenTTL,
		Advertise:    serveAdvertise,
		InstanceName: serveInstance,
		LogLevel:     level,
	}

	if serveAccounts != "" {
		accounts, err := readAccounts(serveAccounts)
		if err != nil {
			return err
		}
		cfg.Users = accounts.Users
		cfg.DefaultRoles = accounts.DefaultRoles
		cfg.Policies = accounts.Policies
	}

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Start()
}

func readAccounts(path string) (*accountsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts file: %w", err)
	}
	var f accountsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse accounts file: %w", err)
	}
	for i, u := range f.Users {
		if u.Username == "" || u.Password == "" {
			return nil, fmt.Errorf("accounts file: user %d needs a username and a password", i+1)
		}
	}
	return &f, nil
}
