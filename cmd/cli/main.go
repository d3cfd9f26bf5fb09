package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/amirasaad/bankcore/infra/initializer"
	"github.com/amirasaad/bankcore/pkg/app"
	"github.com/amirasaad/bankcore/pkg/config"
	"github.com/amirasaad/bankcore/pkg/domain/account"
	"github.com/amirasaad/bankcore/pkg/domain/transaction"
	"github.com/amirasaad/bankcore/pkg/domain/user"
	"github.com/amirasaad/bankcore/pkg/money"
	accountsvc "github.com/amirasaad/bankcore/pkg/service/account"
	"github.com/amirasaad/bankcore/pkg/transfer"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const usage = `Usage: cli <command> [arguments]
Commands:
  open <user_id> [checking|savings] [interest_rate]
  deposit <account_id> <amount> [description]
  withdraw <account_id> <amount> [description]
  transfer <from_account_id> <to_account_id> <amount> [description]
  balance <account_id>
  history <user_id>`

var (
	errUsage = errors.New("invalid arguments")

	okColor   = color.New(color.FgGreen, color.Bold)
	errColor  = color.New(color.FgRed, color.Bold)
	infoColor = color.New(color.FgCyan)
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(2)
	}
	if err := run(os.Args[1:]); err != nil {
		errColor.Fprintln(os.Stderr, "error:", err) //nolint: errcheck
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	ctx := context.Background()
	cfg, err := config.Load(config.GetEnv("ENV_FILE", ".env"))
	if err != nil {
		return fmt.Errorf("failed to load application configuration: %w", err)
	}
	deps, cleanup, err := initializer.InitializeDependencies(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer cleanup()

	a := app.New(deps, cfg)
	return execute(ctx, a.AccountService, os.Stdout, args)
}

// execute runs one operator command. The operator acts as an admin; commands that
// create or list on behalf of a user act as that user with admin rights.
func execute(ctx context.Context, svc *accountsvc.Service, out io.Writer, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	operator := user.Principal{UserID: uuid.New(), Role: user.RoleAdmin}
	scale := svc.Scale()

	switch cmd, rest := args[0], args[1:]; cmd {
	case "open":
		if len(rest) < 1 {
			return errUsage
		}
		owner, err := parseID("user_id", rest[0])
		if err != nil {
			return err
		}
		typ := account.Checking
		if len(rest) > 1 {
			typ = account.Type(rest[1])
		}
		rate := decimal.Zero
		if len(rest) > 2 {
			if rate, err = decimal.NewFromString(rest[2]); err != nil {
				return fmt.Errorf("%w: interest_rate: %w", errUsage, err)
			}
		}
		a, err := svc.OpenAccount(ctx, user.Principal{UserID: owner, Role: user.RoleAdmin}, typ, rate)
		if err != nil {
			return err
		}
		okColor.Fprintf(out, "Account opened: ID=%s Number=%s Type=%s\n", a.ID, a.Number, a.Type) //nolint: errcheck
	case "deposit", "withdraw":
		if len(rest) < 2 {
			return errUsage
		}
		id, err := parseID("account_id", rest[0])
		if err != nil {
			return err
		}
		amount, err := parseAmount(rest[1])
		if err != nil {
			return err
		}
		op := svc.Deposit
		if cmd == "withdraw" {
			op = svc.Withdraw
		}
		tx, err := op(ctx, operator, id, amount, optional(rest, 2))
		if err != nil {
			return err
		}
		printTransaction(out, tx, scale)
	case "transfer":
		if len(rest) < 3 {
			return errUsage
		}
		from, err := parseID("from_account_id", rest[0])
		if err != nil {
			return err
		}
		to, err := parseID("to_account_id", rest[1])
		if err != nil {
			return err
		}
		amount, err := parseAmount(rest[2])
		if err != nil {
			return err
		}
		tx, err := svc.Transfer(ctx, operator, from, to, amount, optional(rest, 3))
		if err != nil {
			if transfer.IsRetryable(err) {
				infoColor.Fprintln(out, "The store did not commit; the transfer can be retried.") //nolint: errcheck
			}
			return err
		}
		printTransaction(out, tx, scale)
	case "balance":
		if len(rest) < 1 {
			return errUsage
		}
		id, err := parseID("account_id", rest[0])
		if err != nil {
			return err
		}
		a, err := svc.GetAccount(ctx, operator, id)
		if err != nil {
			return err
		}
		state := "active"
		if !a.Active {
			state = "inactive"
		}
		okColor.Fprintf(out, "Balance: %s (%s)\n", money.Format(a.Balance, scale), state) //nolint: errcheck
	case "history":
		if len(rest) < 1 {
			return errUsage
		}
		owner, err := parseID("user_id", rest[0])
		if err != nil {
			return err
		}
		txs, err := svc.ListTransactions(ctx, user.Principal{UserID: owner, Role: user.RoleAdmin})
		if err != nil {
			return err
		}
		if len(txs) == 0 {
			infoColor.Fprintln(out, "No transactions") //nolint: errcheck
		}
		for _, tx := range txs {
			printTransaction(out, tx, scale)
		}
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
	return nil
}

func parseID(name, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s: %w", errUsage, name, err)
	}
	return id, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := money.Parse(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: amount: %w", errUsage, err)
	}
	return amount, nil
}

func optional(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return ""
}

func printTransaction(out io.Writer, tx *transaction.Transaction, scale int32) {
	c := okColor
	if tx.Status == transaction.StatusFailed {
		c = errColor
	}
	c.Fprintf(out, "%s %-10s %12s %s", tx.CreatedAt.Format("2006-01-02 15:04:05"), tx.Type, money.Format(tx.Amount, scale), tx.Status) //nolint: errcheck
	if tx.FromAccountID != nil {
		fmt.Fprintf(out, " from=%s", tx.FromAccountID)
	}
	if tx.ToAccountID != nil {
		fmt.Fprintf(out, " to=%s", tx.ToAccountID)
	}
	fmt.Fprintf(out, " id=%s\n", tx.ID)
}
