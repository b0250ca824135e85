package ledger

import (
	"testing"

	"github.com/aviate-labs/agent-go/candid/idl"
	"github.com/stretchr/testify/assert"
)

func TestApproveError_Messages(t *testing.T) {
	tests := []struct {
		name string
		err  ApproveError
		want string
	}{
		{
			"insufficient funds",
			ApproveError{InsufficientFunds: &struct {
				Balance idl.Nat `ic:"balance"`
			}{Balance: idl.NewNat(uint64(5))}},
			"InsufficientFunds (balance 5)",
		},
		{
			"too old",
			ApproveError{TooOld: &idl.Null{}},
			"TooOld",
		},
		{
			"generic",
			ApproveError{GenericError: &struct {
				ErrorCode idl.Nat `ic:"error_code"`
				Message   string  `ic:"message"`
			}{ErrorCode: idl.NewNat(uint64(1)), Message: "ledger is on fire"}},
			"ledger is on fire",
		},
		{
			"empty variant",
			ApproveError{},
			"unknown ledger error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestTransferFee(t *testing.T) {
	c := &Client{}
	assert.Equal(t, uint64(10), c.TransferFee())
}
