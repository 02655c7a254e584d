package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TxRequest is a contract call ready to be signed.
type TxRequest struct {
	To       common.Address
	Data     []byte
	GasLimit uint64
	GasPrice *big.Int
}

// ReceiptStatus is the on-chain outcome of a transaction.
type ReceiptStatus string

const (
	ReceiptSuccess   ReceiptStatus = "success"
	ReceiptReverted  ReceiptStatus = "reverted"
	ReceiptSimulated ReceiptStatus = "simulated"
)

// Receipt summarises a mined (or simulated) transaction.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	Status      ReceiptStatus
}
