package ledger

import (
	"context"
	"fmt"

	"github.com/aviate-labs/agent-go"
	"github.com/aviate-labs/agent-go/candid/idl"
	"github.com/aviate-labs/agent-go/principal"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// CkBTCTransferFee ckBTC ledger 的转账手续费（sats）
const CkBTCTransferFee uint64 = 10

// Account ICRC-1 账户
type Account struct {
	Owner      principal.Principal `ic:"owner"`
	Subaccount *[]byte             `ic:"subaccount"`
}

// ApproveArgs icrc2_approve 的参数
type ApproveArgs struct {
	FromSubaccount    *[]byte  `ic:"from_subaccount"`
	Spender           Account  `ic:"spender"`
	Amount            idl.Nat  `ic:"amount"`
	ExpectedAllowance *idl.Nat `ic:"expected_allowance"`
	ExpiresAt         *uint64  `ic:"expires_at"`
	Fee               *idl.Nat `ic:"fee"`
	Memo              *[]byte  `ic:"memo"`
	CreatedAtTime     *uint64  `ic:"created_at_time"`
}

// ApproveError icrc2_approve 的错误 variant
type ApproveError struct {
	BadFee *struct {
		ExpectedFee idl.Nat `ic:"expected_fee"`
	} `ic:"BadFee,variant"`
	InsufficientFunds *struct {
		Balance idl.Nat `ic:"balance"`
	} `ic:"InsufficientFunds,variant"`
	AllowanceChanged *struct {
		CurrentAllowance idl.Nat `ic:"current_allowance"`
	} `ic:"AllowanceChanged,variant"`
	Expired *struct {
		LedgerTime uint64 `ic:"ledger_time"`
	} `ic:"Expired,variant"`
	TooOld          *idl.Null `ic:"TooOld,variant"`
	CreatedInFuture *struct {
		LedgerTime uint64 `ic:"ledger_time"`
	} `ic:"CreatedInFuture,variant"`
	Duplicate *struct {
		DuplicateOf idl.Nat `ic:"duplicate_of"`
	} `ic:"Duplicate,variant"`
	TemporarilyUnavailable *idl.Null `ic:"TemporarilyUnavailable,variant"`
	GenericError           *struct {
		ErrorCode idl.Nat `ic:"error_code"`
		Message   string  `ic:"message"`
	} `ic:"GenericError,variant"`
}

func (e ApproveError) Error() string {
	switch {
	case e.BadFee != nil:
		return fmt.Sprintf("BadFee (expected %v)", e.BadFee.ExpectedFee.BigInt())
	case e.InsufficientFunds != nil:
		return fmt.Sprintf("InsufficientFunds (balance %v)", e.InsufficientFunds.Balance.BigInt())
	case e.AllowanceChanged != nil:
		return fmt.Sprintf("AllowanceChanged (current %v)", e.AllowanceChanged.CurrentAllowance.BigInt())
	case e.Expired != nil:
		return "Expired"
	case e.TooOld != nil:
		return "TooOld"
	case e.CreatedInFuture != nil:
		return "CreatedInFuture"
	case e.Duplicate != nil:
		return fmt.Sprintf("Duplicate (of block %v)", e.Duplicate.DuplicateOf.BigInt())
	case e.TemporarilyUnavailable != nil:
		return "TemporarilyUnavailable"
	case e.GenericError != nil:
		return e.GenericError.Message
	default:
		return "unknown ledger error"
	}
}

// ApproveResult icrc2_approve 的响应 union
type ApproveResult struct {
	Ok  *idl.Nat      `ic:"Ok,variant"`
	Err *ApproveError `ic:"Err,variant"`
}

// Client fee token ledger 客户端，只承担付费门需要的 approve 授权
type Client struct {
	agent      *agent.Agent
	canisterID principal.Principal
	log        zerolog.Logger
}

// NewClient 创建 ledger 客户端。agent 必须携带持币钱包的身份。
func NewClient(a *agent.Agent, canisterID principal.Principal, log zerolog.Logger) *Client {
	return &Client{
		agent:      a,
		canisterID: canisterID,
		log:        log.With().Str("component", "ledger").Logger(),
	}
}

// Approve 执行 icrc2_approve，授权 spender 划扣 amount，返回 block index
func (c *Client) Approve(_ context.Context, spender principal.Principal, amount uint64) (uint64, error) {
	c.log.Info().
		Str("spender", spender.Encode()).
		Uint64("amount", amount).
		Msg("Submitting icrc2_approve")

	args := ApproveArgs{
		Spender: Account{Owner: spender},
		Amount:  idl.NewNat(amount),
	}

	var out ApproveResult
	if err := c.agent.Call(c.canisterID, "icrc2_approve", []any{args}, []any{&out}); err != nil {
		return 0, errors.Wrap(err, "icrc2_approve call failed")
	}
	if out.Err != nil {
		return 0, errors.Wrap(*out.Err, "icrc2_approve rejected")
	}
	return out.Ok.BigInt().Uint64(), nil
}

// TransferFee ledger 的转账手续费
func (c *Client) TransferFee() uint64 {
	return CkBTCTransferFee
}
