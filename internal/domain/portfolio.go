package domain

import (
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

type TokenWeight struct {
	Address solana.PublicKey `json:"address"`
	Symbol  string           `json:"symbol"`
	Weight  float64          `json:"weight"`
}

type Portfolio struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Tokens      []TokenWeight `json:"tokens"`
}

// WalletToken is a priced SPL balance held by a wallet.
type WalletToken struct {
	Mint     solana.PublicKey `json:"mint"`
	Account  solana.PublicKey `json:"account"`
	Amount   decimal.Decimal  `json:"amount"`
	Raw      uint64           `json:"raw"`
	Decimals uint8            `json:"decimals"`
	ValueUSD decimal.Decimal  `json:"value"`
	Symbol   string           `json:"symbol"`
	Name     string           `json:"name"`
	LogoURI  string           `json:"logoURI,omitempty"`
}

type TokenMetadata struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
	LogoURI  string `json:"logo_uri"`
}
