package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/genfin/internal/adapter/http/dto"
	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/infrastructure/auth"
)

type options struct {
	baseURL string
	token   string
	timeout time.Duration
	asJSON  bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "genfin-cli",
		Short:         "GenFin CLI tool",
		Long:          `A command line interface for the GenFin books: ledger, receivables, payables, checks and bank reconciliation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "Base URL of the GenFin API")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("GENFIN_TOKEN"), "Bearer token for the API (defaults to $GENFIN_TOKEN)")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "Print raw JSON responses")

	rootCmd.AddCommand(
		newLedgerCmd(opts),
		newAccountsCmd(opts),
		newInvoicesCmd(opts),
		newBillsCmd(opts),
		newChecksCmd(opts),
		newBankCmd(opts),
		newReconcileCmd(opts),
		newTokenCmd(),
	)

	return rootCmd
}

func (o *options) client() *apiClient {
	return newAPIClient(o.baseURL, o.token, o.timeout)
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func newLedgerCmd(opts *options) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	consistencyCmd := &cobra.Command{
		Use:   "consistency",
		Short: "Check that total debits equal total credits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var report dto.ConsistencyResponse
			err := opts.client().get(cmd.Context(), "/api/v1/ledger/consistency", &report)

			var apiErr *apiError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
				if jsonErr := json.Unmarshal(apiErr.Body, &report); jsonErr != nil {
					return err
				}
			} else if err != nil {
				return err
			}

			if opts.asJSON {
				if err := printJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Debits:  %s\n", report.Debits)
				fmt.Fprintf(out, "Credits: %s\n", report.Credits)
			}

			if !report.Balanced {
				return fmt.Errorf("consistency check FAILED: debits %s, credits %s", report.Debits, report.Credits)
			}

			fmt.Fprintln(cmd.ErrOrStderr(), "Consistency check PASSED")
			return nil
		},
	}

	var asOf string
	balanceCmd := &cobra.Command{
		Use:   "balance <account-id>",
		Short: "Show an account balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if asOf != "" {
				q.Set("as_of", asOf)
			}

			var balance dto.BalanceResponse
			path := withQuery("/api/v1/accounts/"+url.PathEscape(args[0])+"/balance", q)
			if err := opts.client().get(cmd.Context(), path, &balance); err != nil {
				return err
			}

			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), balance)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", balance.AccountID, balance.Balance)
			return nil
		},
	}
	balanceCmd.Flags().StringVar(&asOf, "as-of", "", "Balance as of this date (YYYY-MM-DD or RFC 3339)")

	ledgerCmd.AddCommand(consistencyCmd, balanceCmd)
	return ledgerCmd
}

func newAccountsCmd(opts *options) *cobra.Command {
	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "Chart of accounts",
	}

	var limit, offset int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var list dto.ListResponse[dto.AccountResponse]
			path := withQuery("/api/v1/accounts/", pageQuery(limit, offset))
			if err := opts.client().get(cmd.Context(), path, &list); err != nil {
				return err
			}

			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), list)
			}

			t := newTable(cmd.OutOrStdout(), "CODE", "NAME", "TYPE", "NORMAL")
			for _, a := range list.Items {
				t.row(a.Code, truncate(a.Name, 40), a.Type, a.NormalBalance)
			}
			return t.flush()
		},
	}
	addPageFlags(listCmd, &limit, &offset)

	accountsCmd.AddCommand(listCmd)
	return accountsCmd
}

func pageQuery(limit, offset int) url.Values {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	return q
}

func addPageFlags(cmd *cobra.Command, limit, offset *int) {
	cmd.Flags().IntVar(limit, "limit", 0, "Maximum rows to return")
	cmd.Flags().IntVar(offset, "offset", 0, "Rows to skip")
}

// documentCmds builds the list and per-document actions shared by invoices and bills.
func documentCmds(opts *options, resource, partyFlag string, actions map[string]string) []*cobra.Command {
	var (
		party         string
		limit, offset int
	)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List " + resource,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := pageQuery(limit, offset)
			if party != "" {
				q.Set(partyFlag+"_id", party)
			}

			var list dto.ListResponse[dto.DocumentResponse]
			if err := opts.client().get(cmd.Context(), withQuery("/api/v1/"+resource+"/", q), &list); err != nil {
				return err
			}

			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), list)
			}

			t := newTable(cmd.OutOrStdout(), "ID", "NUMBER", strings.ToUpper(partyFlag), "STATUS", "TOTAL", "DUE")
			for _, d := range list.Items {
				t.row(d.ID, d.Number, d.PartyID, d.StatusLabel, d.Total.String(), d.BalanceDue.String())
			}
			return t.flush()
		},
	}
	listCmd.Flags().StringVar(&party, partyFlag, "", "Only "+resource+" for this "+partyFlag)
	addPageFlags(listCmd, &limit, &offset)

	cmds := []*cobra.Command{listCmd}
	for _, action := range slices.Sorted(maps.Keys(actions)) {
		cmds = append(cmds, &cobra.Command{
			Use:   action + " <id>",
			Short: actions[action],
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var doc dto.DocumentResponse
				path := "/api/v1/" + resource + "/" + url.PathEscape(args[0]) + "/" + action
				if err := opts.client().post(cmd.Context(), path, nil, &doc); err != nil {
					return err
				}

				if opts.asJSON {
					return printJSON(cmd.OutOrStdout(), doc)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s, balance due %s\n", resource, doc.ID, doc.StatusLabel, doc.BalanceDue)
				return nil
			},
		})
	}

	return cmds
}

func newInvoicesCmd(opts *options) *cobra.Command {
	invoicesCmd := &cobra.Command{
		Use:   "invoices",
		Short: "Receivables: customer invoices",
	}

	invoicesCmd.AddCommand(documentCmds(opts, "invoices", "customer", map[string]string{
		"send": "Send a draft invoice",
		"void": "Void an invoice with no payments",
	})...)
	return invoicesCmd
}

func newBillsCmd(opts *options) *cobra.Command {
	billsCmd := &cobra.Command{
		Use:   "bills",
		Short: "Payables: vendor bills",
	}

	billsCmd.AddCommand(documentCmds(opts, "bills", "vendor", map[string]string{
		"post": "Post a draft bill",
		"void": "Void a bill with no payments",
	})...)
	return billsCmd
}

func newChecksCmd(opts *options) *cobra.Command {
	checksCmd := &cobra.Command{
		Use:   "checks",
		Short: "Check writer",
	}

	var limit, offset int
	listCmd := &cobra.Command{
		Use:   "list <bank-account-id>",
		Short: "List checks drawn on a bank account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var list dto.ListResponse[dto.CheckResponse]
			path := withQuery("/api/v1/bank-accounts/"+url.PathEscape(args[0])+"/checks", pageQuery(limit, offset))
			if err := opts.client().get(cmd.Context(), path, &list); err != nil {
				return err
			}
			return printChecks(cmd, opts, list)
		},
	}
	addPageFlags(listCmd, &limit, &offset)

	var format string
	printCmd := &cobra.Command{
		Use:   "print <check-id>...",
		Short: "Mark checks printed in a layout",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var list dto.ListResponse[dto.CheckResponse]
			req := dto.PrintChecksRequest{CheckIDs: args, Format: format}
			if err := opts.client().post(cmd.Context(), "/api/v1/checks/print", req, &list); err != nil {
				return err
			}
			return printChecks(cmd, opts, list)
		},
	}
	printCmd.Flags().StringVar(&format, "format", "standard", "Print layout: standard, voucher or wallet")

	voidCmd := &cobra.Command{
		Use:   "void <check-id>",
		Short: "Void a check",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var check dto.CheckResponse
			if err := opts.client().post(cmd.Context(), "/api/v1/checks/"+url.PathEscape(args[0])+"/void", nil, &check); err != nil {
				return err
			}
			return printChecks(cmd, opts, *dto.NewListResponse([]dto.CheckResponse{check}, 1, 0))
		},
	}

	checksCmd.AddCommand(listCmd, printCmd, voidCmd)
	return checksCmd
}

func printChecks(cmd *cobra.Command, opts *options, list dto.ListResponse[dto.CheckResponse]) error {
	if opts.asJSON {
		return printJSON(cmd.OutOrStdout(), list)
	}

	t := newTable(cmd.OutOrStdout(), "NUMBER", "PAYEE", "AMOUNT", "STATUS", "ID")
	for _, c := range list.Items {
		t.row(strconv.FormatInt(c.Number, 10), truncate(c.Payee, 30), c.Amount.String(), c.Status, c.ID)
	}
	return t.flush()
}

func newBankCmd(opts *options) *cobra.Command {
	bankCmd := &cobra.Command{
		Use:   "bank",
		Short: "Bank accounts and registers",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List bank accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var list dto.ListResponse[dto.BankAccountResponse]
			if err := opts.client().get(cmd.Context(), "/api/v1/bank-accounts/", &list); err != nil {
				return err
			}

			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), list)
			}

			t := newTable(cmd.OutOrStdout(), "ID", "NAME", "LEDGER", "RECONCILED", "NEXT CHECK")
			for _, a := range list.Items {
				t.row(a.ID, truncate(a.Name, 30), a.LedgerAccountID, a.LastReconciledBalance.String(),
					strconv.FormatInt(a.NextCheckNumber, 10))
			}
			return t.flush()
		},
	}

	var limit, offset int
	registerCmd := &cobra.Command{
		Use:   "register <bank-account-id>",
		Short: "Show a bank register and its balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := opts.client()
			base := "/api/v1/bank-accounts/" + url.PathEscape(args[0])

			var txns dto.ListResponse[dto.BankTransactionResponse]
			if err := client.get(cmd.Context(), withQuery(base+"/transactions", pageQuery(limit, offset)), &txns); err != nil {
				return err
			}

			var balance dto.RegisterBalanceResponse
			if err := client.get(cmd.Context(), base+"/register-balance", &balance); err != nil {
				return err
			}

			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), map[string]any{"transactions": txns, "balance": balance})
			}

			t := newTable(cmd.OutOrStdout(), "DATE", "TYPE", "AMOUNT", "CLEARED", "MEMO", "ID")
			for _, txn := range txns.Items {
				t.row(txn.PostedAt.Format(time.DateOnly), txn.Type, txn.Amount.String(),
					strconv.FormatBool(txn.Cleared), truncate(txn.Memo, 30), txn.ID)
			}
			if err := t.flush(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Register balance: %s\n", balance.Balance)
			return nil
		},
	}
	addPageFlags(registerCmd, &limit, &offset)

	bankCmd.AddCommand(listCmd, registerCmd)
	return bankCmd
}

func newReconcileCmd(opts *options) *cobra.Command {
	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Bank reconciliation",
	}

	var bankAccountID, statementBalance, statementDate string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start a reconciliation session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := dto.StartReconciliationRequest{BankAccountID: bankAccountID, StatementBalance: statementBalance}
			if statementDate != "" {
				d, err := time.Parse(time.DateOnly, statementDate)
				if err != nil {
					return fmt.Errorf("statement date must be YYYY-MM-DD: %w", err)
				}
				req.StatementDate = &dto.Date{Time: d}
			}

			var session dto.ReconciliationSessionResponse
			if err := opts.client().post(cmd.Context(), "/api/v1/reconciliations/", req, &session); err != nil {
				return err
			}
			return printSession(cmd, opts, session)
		},
	}
	startCmd.Flags().StringVar(&bankAccountID, "bank-account", "", "Bank account to reconcile")
	startCmd.Flags().StringVar(&statementBalance, "statement-balance", "", "Ending balance on the statement, e.g. 1250.00")
	startCmd.Flags().StringVar(&statementDate, "statement-date", "", "Statement date (YYYY-MM-DD)")
	_ = startCmd.MarkFlagRequired("bank-account")
	_ = startCmd.MarkFlagRequired("statement-balance")

	clearCmd := &cobra.Command{
		Use:   "clear <session-id> <transaction-id>...",
		Short: "Toggle the cleared flag on register rows",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cleared dto.ListResponse[dto.BankTransactionResponse]
			req := dto.MarkClearedRequest{TransactionIDs: args[1:]}
			path := "/api/v1/reconciliations/" + url.PathEscape(args[0]) + "/cleared"
			if err := opts.client().post(cmd.Context(), path, req, &cleared); err != nil {
				return err
			}

			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), cleared)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d transaction(s) cleared in session %s\n", len(cleared.Items), args[0])
			return nil
		},
	}

	completeCmd := &cobra.Command{
		Use:   "complete <session-id>",
		Short: "Complete a session when the book balance matches the statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result dto.ReconciliationResultResponse
			path := "/api/v1/reconciliations/" + url.PathEscape(args[0]) + "/complete"
			err := opts.client().post(cmd.Context(), path, nil, &result)

			var apiErr *apiError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnprocessableEntity {
				if jsonErr := json.Unmarshal(apiErr.Body, &result); jsonErr != nil || result.SessionID == "" {
					return err
				}
			} else if err != nil {
				return err
			}

			if opts.asJSON {
				if err := printJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Book balance:      %s\n", result.BookBalance)
				fmt.Fprintf(out, "Statement balance: %s\n", result.StatementBalance)
				fmt.Fprintf(out, "Difference:        %s\n", result.Difference)
			}

			if !result.Success {
				return fmt.Errorf("reconciliation %s is out of balance by %s", result.SessionID, result.Difference)
			}
			return nil
		},
	}

	reopenCmd := &cobra.Command{
		Use:   "reopen <session-id>",
		Short: "Reopen the latest completed session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var session dto.ReconciliationSessionResponse
			path := "/api/v1/reconciliations/" + url.PathEscape(args[0]) + "/reopen"
			if err := opts.client().post(cmd.Context(), path, nil, &session); err != nil {
				return err
			}
			return printSession(cmd, opts, session)
		},
	}

	reconcileCmd.AddCommand(startCmd, clearCmd, completeCmd, reopenCmd)
	return reconcileCmd
}

func printSession(cmd *cobra.Command, opts *options, s dto.ReconciliationSessionResponse) error {
	if opts.asJSON {
		return printJSON(cmd.OutOrStdout(), s)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Session %s (%s): beginning %s, statement %s on %s\n",
		s.ID, s.Status, s.BeginningBalance, s.StatementBalance, s.StatementDate.Format(time.DateOnly))
	return nil
}

func newTokenCmd() *cobra.Command {
	var (
		secret  string
		subject string
		role    string
		ttl     time.Duration
	)

	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token signed with the server's JWT secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return errors.New("--secret or JWT_SECRET is required")
			}

			token, err := auth.NewJWTManager(secret, ttl).Generate(&domain.User{ID: subject, Role: domain.Role(role)})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "HMAC secret (defaults to $JWT_SECRET)")
	tokenCmd.Flags().StringVar(&subject, "subject", "", "User ID carried in the token")
	tokenCmd.Flags().StringVar(&role, "role", string(domain.RoleAccountant), "Role: admin, accountant or viewer")
	tokenCmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("subject")

	return tokenCmd
}
