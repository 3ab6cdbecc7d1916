package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/iho/gymledger/internal/infrastructure/postgres"
)

var (
	baseURL string
	token   string
	timeout time.Duration

	// bcryptGenerate is swapped in tests.
	bcryptGenerate = bcrypt.GenerateFromPassword
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gymledger-cli",
		Short:         "GymLedger CLI tool",
		Long:          `A command line interface for operating the GymLedger back office API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&baseURL, "url", envOr("GYMLEDGER_URL", "http://localhost:8080"), "Base URL of the GymLedger API")
	root.PersistentFlags().StringVar(&token, "token", os.Getenv("GYMLEDGER_TOKEN"), "Bearer token for the API")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")

	root.AddCommand(billingCmd(), overdueCmd(), registerCmd(), accountsCmd(), migrateCmd(), hashPasswordCmd())
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Billing commands
func billingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "billing",
		Short: "Recurring billing operations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Generate the receivables due for the current period",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result generationResult
			if err := newClient().do(http.MethodPost, "/api/v1/jobs/billing", &result); err != nil {
				return err
			}
			printGeneration(result)
			return nil
		},
	})
	return cmd
}

func overdueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "Overdue obligation operations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Mark past-due obligations OVERDUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result struct {
				Updated int64 `json:"updated"`
			}
			if err := newClient().do(http.MethodPost, "/api/v1/jobs/overdue-sweep", &result); err != nil {
				return err
			}
			fmt.Printf("Marked %d obligations overdue\n", result.Updated)
			return nil
		},
	})
	return cmd
}

// Register commands
func registerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Cash register operations",
	}
	cmd.AddCommand(
		jsonCmd("get <id>", "Show a register session with its movements", "/api/v1/registers/%s"),
		jsonCmd("report <id>", "Show the closing report of a register session", "/api/v1/registers/%s/report"),
		&cobra.Command{
			Use:   "reconcile <id>",
			Short: "Compare register totals with the sum of its movements",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var result registerReconciliation
				if err := newClient().do(http.MethodGet, "/api/v1/registers/"+args[0]+"/reconcile", &result); err != nil {
					return err
				}
				printRegisterReconciliation(result)
				if !result.IsReconciled {
					return errors.New("register totals are inconsistent")
				}
				return nil
			},
		},
	)
	return cmd
}

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Receivable and payable operations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "reconcile",
		Short: "Check remaining and paid amounts of every obligation",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result accountsReconciliation
			if err := newClient().do(http.MethodGet, "/api/v1/reconciliation/accounts", &result); err != nil {
				return err
			}
			printAccountsReconciliation(result)
			if !result.IsReconciled {
				return fmt.Errorf("%d inconsistent obligations", len(result.Discrepancies))
			}
			return nil
		},
	})
	return cmd
}

// jsonCmd fetches pathFormat with the single argument and prints the JSON body.
func jsonCmd(use, short, pathFormat string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result json.RawMessage
			if err := newClient().do(http.MethodGet, fmt.Sprintf(pathFormat, args[0]), &result); err != nil {
				return err
			}
			printJSON(result)
			return nil
		},
	}
}

// Migration commands run against the database directly.
func migrateCmd() *cobra.Command {
	var databaseURL, migrationsPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database schema migrations",
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	cmd.PersistentFlags().StringVar(&migrationsPath, "path", envOr("MIGRATIONS_PATH", "migrations"), "Directory holding the migration files")

	withMigrator := func(fn func(*postgres.Migrator) error) error {
		if databaseURL == "" {
			return errors.New("--database-url or DATABASE_URL is required")
		}
		logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		mg, err := postgres.NewMigrator(databaseURL, migrationsPath, logger)
		if err != nil {
			return err
		}
		defer mg.Close()
		return fn(mg)
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(func(mg *postgres.Migrator) error { return mg.Up() })
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the last migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(func(mg *postgres.Migrator) error { return mg.Down() })
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied migration version",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(func(mg *postgres.Migrator) error {
					v, dirty, err := mg.Version()
					if err != nil {
						return err
					}
					fmt.Printf("version %d (dirty: %v)\n", v, dirty)
					return nil
				})
			},
		},
	)
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print the bcrypt hash of a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := bcryptGenerate([]byte(args[0]), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			fmt.Println(string(hash))
			return nil
		},
	}
}

type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newClient() *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// do calls the API with an empty JSON object as body on writes and decodes a 2xx response into out.
func (c *apiClient) do(method, path string, out any) error {
	var body io.Reader
	if method != http.MethodGet {
		body = bytes.NewReader([]byte("{}"))
	}
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			if apiErr.Message != "" {
				return fmt.Errorf("%s (status %d): %s", apiErr.Error, resp.StatusCode, apiErr.Message)
			}
			return fmt.Errorf("%s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, truncate(string(data), 200))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

type generationResult struct {
	Generated int `json:"generated"`
	Existing  int `json:"existing"`
	Skipped   int `json:"skipped"`
	Errored   int `json:"errored"`
	Details   []struct {
		Code    string `json:"code"`
		Outcome string `json:"outcome"`
		Reason  string `json:"reason"`
	} `json:"details"`
}

type registerReconciliation struct {
	RegisterID      string `json:"register_id"`
	Number          string `json:"number"`
	RecordedIn      string `json:"recorded_in"`
	CalculatedIn    string `json:"calculated_in"`
	RecordedOut     string `json:"recorded_out"`
	CalculatedOut   string `json:"calculated_out"`
	MovementCount   int    `json:"movement_count"`
	NegativeBalance bool   `json:"negative_balance"`
	IsReconciled    bool   `json:"is_reconciled"`
}

type accountsReconciliation struct {
	TotalAccounts int `json:"total_accounts"`
	Discrepancies []struct {
		Number  string `json:"number"`
		Problem string `json:"problem"`
	} `json:"discrepancies"`
	IsReconciled bool `json:"is_reconciled"`
}

func printGeneration(r generationResult) {
	fmt.Printf("Billing run: %d generated, %d existing, %d skipped, %d errors\n", r.Generated, r.Existing, r.Skipped, r.Errored)
	for _, d := range r.Details {
		if d.Outcome == "error" {
			fmt.Printf("  %-12s %s\n", d.Code, truncate(d.Reason, 60))
		}
	}
}

func printRegisterReconciliation(r registerReconciliation) {
	status := "PASSED"
	if !r.IsReconciled {
		status = "FAILED"
	}
	fmt.Printf("Register %s reconciliation %s (%d movements)\n", r.Number, status, r.MovementCount)
	fmt.Printf("  in:  recorded %s, calculated %s\n", r.RecordedIn, r.CalculatedIn)
	fmt.Printf("  out: recorded %s, calculated %s\n", r.RecordedOut, r.CalculatedOut)
	if r.NegativeBalance {
		fmt.Println("  available balance is negative")
	}
}

func printAccountsReconciliation(r accountsReconciliation) {
	fmt.Printf("Checked %d obligations, %d discrepancies\n", r.TotalAccounts, len(r.Discrepancies))
	for _, d := range r.Discrepancies {
		fmt.Printf("  %-12s %s\n", d.Number, truncate(d.Problem, 60))
	}
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(out))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
