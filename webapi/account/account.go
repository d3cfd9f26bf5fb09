package account

import (
	"context"

	"github.com/amirasaad/bankcore/pkg/config"
	"github.com/amirasaad/bankcore/pkg/domain/account"
	"github.com/amirasaad/bankcore/pkg/domain/transaction"
	"github.com/amirasaad/bankcore/pkg/domain/user"
	"github.com/amirasaad/bankcore/pkg/middleware"
	accountsvc "github.com/amirasaad/bankcore/pkg/service/account"
	"github.com/amirasaad/bankcore/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Routes registers the account and transfer endpoints. Every route requires a bearer token.
//
// Routes:
//   - POST   /transfer                : Move funds from one of the caller's accounts to any account.
//   - POST   /accounts                : Open an account for the caller.
//   - GET    /accounts                : List the caller's accounts (?user_id= for staff and admins).
//   - GET    /accounts/:id            : Fetch one account.
//   - DELETE /accounts/:id            : Deactivate an account.
//   - POST   /accounts/:id/deposit    : Deposit funds from outside the bank.
//   - POST   /accounts/:id/withdraw   : Withdraw funds out of the bank.
//   - GET    /transactions            : List ledger records touching the caller's accounts.
func Routes(app *fiber.App, accountSvc *accountsvc.Service, cfg *config.App) {
	protected := middleware.JwtProtected(cfg.Auth.Jwt)
	app.Post("/transfer", protected, Transfer(accountSvc))
	app.Post("/accounts", protected, OpenAccount(accountSvc))
	app.Get("/accounts", protected, ListAccounts(accountSvc))
	app.Get("/accounts/:id", protected, GetAccount(accountSvc))
	app.Delete("/accounts/:id", protected, Deactivate(accountSvc))
	app.Post("/accounts/:id/deposit", protected, Deposit(accountSvc))
	app.Post("/accounts/:id/withdraw", protected, Withdraw(accountSvc))
	app.Get("/transactions", protected, ListTransactions(accountSvc))
}

// Transfer returns a handler that moves funds between two accounts and responds with
// the completed ledger record.
func Transfer(accountSvc *accountsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := middleware.Principal(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		input, err := common.BindAndValidate[TransferRequest](c)
		if input == nil {
			return err
		}
		fromID := uuid.MustParse(input.FromAccountID)
		toID := uuid.MustParse(input.ToAccountID)

		tx, err := accountSvc.Transfer(c.UserContext(), p, fromID, toID, input.Amount, input.Description)
		if err != nil {
			log.Errorf("Transfer from %s to %s failed: %v", fromID, toID, err)
			return common.ProblemDetailsJSON(c, "Transfer failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Transfer successful", ToTransactionDTO(tx, accountSvc.Scale()))
	}
}

// OpenAccount returns a handler that opens an empty account for the caller.
func OpenAccount(accountSvc *accountsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := middleware.Principal(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		input, err := common.BindAndValidate[OpenAccountRequest](c)
		if input == nil {
			return err
		}
		a, err := accountSvc.OpenAccount(c.UserContext(), p, account.Type(input.AccountType), input.InterestRate)
		if err != nil {
			log.Errorf("Failed to open account: %v", err)
			return common.ProblemDetailsJSON(c, "Failed to open account", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Account created", ToAccountDTO(a, accountSvc.Scale()))
	}
}

// ListAccounts returns a handler listing the caller's accounts, or another user's
// accounts when user_id is given.
func ListAccounts(accountSvc *accountsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := middleware.Principal(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		var accounts []*account.Account
		if raw := c.Query("user_id"); raw != "" {
			userID, perr := uuid.Parse(raw)
			if perr != nil {
				return common.ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid user ID", "user_id must be a valid UUID")
			}
			accounts, err = accountSvc.ListAccountsForUser(c.UserContext(), p, userID)
		} else {
			accounts, err = accountSvc.ListAccounts(c.UserContext(), p)
		}
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list accounts", err)
		}
		dtos := make([]*AccountDTO, 0, len(accounts))
		for _, a := range accounts {
			dtos = append(dtos, ToAccountDTO(a, accountSvc.Scale()))
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Accounts fetched", dtos)
	}
}

// GetAccount returns a handler fetching a single account.
func GetAccount(accountSvc *accountsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, id, ok, err := principalAndAccount(c)
		if !ok {
			return err
		}
		a, err := accountSvc.GetAccount(c.UserContext(), p, id)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to fetch account", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Account fetched", ToAccountDTO(a, accountSvc.Scale()))
	}
}

// Deactivate returns a handler that soft-closes an account.
func Deactivate(accountSvc *accountsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, id, ok, err := principalAndAccount(c)
		if !ok {
			return err
		}
		a, err := accountSvc.Deactivate(c.UserContext(), p, id)
		if err != nil {
			log.Errorf("Failed to deactivate account %s: %v", id, err)
			return common.ProblemDetailsJSON(c, "Failed to deactivate account", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Account deactivated", ToAccountDTO(a, accountSvc.Scale()))
	}
}

// Deposit returns a handler crediting an account from outside the bank.
func Deposit(accountSvc *accountsvc.Service) fiber.Handler {
	return amountHandler(accountSvc, "Deposit", accountSvc.Deposit)
}

// Withdraw returns a handler debiting an account out of the bank.
func Withdraw(accountSvc *accountsvc.Service) fiber.Handler {
	return amountHandler(accountSvc, "Withdrawal", accountSvc.Withdraw)
}

// ListTransactions returns a handler listing the caller's ledger, newest first.
func ListTransactions(accountSvc *accountsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := middleware.Principal(c)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		txs, err := accountSvc.ListTransactions(c.UserContext(), p)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to list transactions", err)
		}
		dtos := make([]*TransactionDTO, 0, len(txs))
		for _, t := range txs {
			dtos = append(dtos, ToTransactionDTO(t, accountSvc.Scale()))
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Transactions fetched", dtos)
	}
}

type amountOperation func(
	ctx context.Context,
	p user.Principal,
	id uuid.UUID,
	amount decimal.Decimal,
	description string,
) (*transaction.Transaction, error)

func amountHandler(accountSvc *accountsvc.Service, name string, op amountOperation) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, id, ok, err := principalAndAccount(c)
		if !ok {
			return err
		}
		input, err := common.BindAndValidate[AmountRequest](c)
		if input == nil {
			return err
		}
		tx, err := op(c.UserContext(), p, id, input.Amount, input.Description)
		if err != nil {
			log.Errorf("%s on account %s failed: %v", name, id, err)
			return common.ProblemDetailsJSON(c, name+" failed", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, name+" successful", ToTransactionDTO(tx, accountSvc.Scale()))
	}
}

// principalAndAccount reads the caller and the :id parameter. When ok is false the
// problem response has already been written and err is the result of writing it.
func principalAndAccount(c *fiber.Ctx) (p user.Principal, id uuid.UUID, ok bool, err error) {
	p, err = middleware.Principal(c)
	if err != nil {
		return p, uuid.Nil, false, common.ProblemDetailsJSON(c, "Unauthorized", err)
	}
	id, err = uuid.Parse(c.Params("id"))
	if err != nil {
		return p, uuid.Nil, false, common.ErrorResponseJSON(c, fiber.StatusBadRequest, "Invalid account ID", "Account ID must be a valid UUID")
	}
	return p, id, true, nil
}
