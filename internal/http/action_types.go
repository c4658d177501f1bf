package http

import (
	"strconv"
	"strings"

	"github.com/hxuan190/portfolio-swap/internal/domain"
)

type ActionRule struct {
	PathPattern string `json:"pathPattern"`
	APIPath     string `json:"apiPath"`
}

type ActionsManifest struct {
	Rules []ActionRule `json:"rules"`
}

type ActionError struct {
	Message string `json:"message"`
}

type ActionOption struct {
	Label    string `json:"label"`
	Value    string `json:"value"`
	Selected bool   `json:"selected"`
}

type ActionParameter struct {
	Name     string         `json:"name"`
	Label    string         `json:"label"`
	Type     string         `json:"type,omitempty"`
	Required bool           `json:"required"`
	Options  []ActionOption `json:"options,omitempty"`
}

type LinkedAction struct {
	Type       string            `json:"type"`
	Href       string            `json:"href"`
	Label      string            `json:"label"`
	Parameters []ActionParameter `json:"parameters,omitempty"`
}

type ActionLinks struct {
	Actions []LinkedAction `json:"actions,omitempty"`
}

// Action is the card a wallet renders for GET and for chained POST steps.
type Action struct {
	Type        string       `json:"type"`
	Icon        string       `json:"icon"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Label       string       `json:"label"`
	Disabled    bool         `json:"disabled,omitempty"`
	Links       *ActionLinks `json:"links,omitempty"`
	Error       *ActionError `json:"error,omitempty"`
}

type NextLink struct {
	Type  string `json:"type"`
	Href  string `json:"href"`
	Label string `json:"label"`
}

// MessageResponse asks the wallet to sign Data and post the signature to Links.Next.
type MessageResponse struct {
	Type  string `json:"type"`
	Data  string `json:"data"`
	Links struct {
		Next NextLink `json:"next"`
	} `json:"links"`
}

type TransactionResponse struct {
	Type         string               `json:"type"`
	Transaction  string               `json:"transaction"`
	Message      string               `json:"message"`
	Continuation *domain.Continuation `json:"continuation,omitempty"`
}

type VerifySignatureRequest struct {
	Account   string `json:"account" binding:"required"`
	Signature string `json:"signature"`
}

// FlexUint accepts 100 and "100"; wallets post form values as strings.
type FlexUint uint64

func (f *FlexUint) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	*f = FlexUint(v)
	return nil
}
