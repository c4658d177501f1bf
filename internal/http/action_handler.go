package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/hxuan190/portfolio-swap/internal/aggregator"
	"github.com/hxuan190/portfolio-swap/internal/common"
	"github.com/hxuan190/portfolio-swap/internal/domain"
)

const (
	// ConnectMessage is what the wallet signs to prove ownership before its balances are listed.
	ConnectMessage = "Connect your wallet to swap tokens into a diversified portfolio"

	actionIconPath  = "/public/media/portfolio.jpg"
	actionTitle     = "Swap to Portfolio"
	actionLabel     = "Swap tokens into a diversified portfolio with a single click"
	maxTokenOptions = 5
)

var slippageOptions = []ActionOption{
	{Label: "0.1%", Value: "10"},
	{Label: "0.5%", Value: "50"},
	{Label: "1.0%", Value: "100", Selected: true},
	{Label: "2.0%", Value: "200"},
}

type ActionTransactionRequest struct {
	Account string `json:"account" binding:"required"`
	Data    struct {
		InputToken  string          `json:"inputToken"`
		Amount      decimal.Decimal `json:"amount"`
		SlippageBps FlexUint        `json:"slippageBps"`
	} `json:"data"`
}

// ActionHandler serves the wallet action flow: connect, sign, pick a token, swap.
type ActionHandler struct {
	aggregatorSvc *aggregator.Service
	baseURL       string
}

func NewActionHandler(aggregatorSvc *aggregator.Service, baseURL string) *ActionHandler {
	return &ActionHandler{aggregatorSvc: aggregatorSvc, baseURL: strings.TrimRight(baseURL, "/")}
}

func (h *ActionHandler) Mount(r gin.IRouter) {
	r.GET("/actions.json", h.manifest)

	g := r.Group("/api/actions/portfolio-swap/:portfolioId")
	g.GET("", h.getAction)
	g.POST("", h.signMessage)
	g.POST("/verify-signature", h.verifySignature)
	g.POST("/transaction", h.buildTransaction)
}

func (h *ActionHandler) icon() string {
	return h.baseURL + actionIconPath
}

func (h *ActionHandler) href(portfolioID, step string) string {
	href := "/api/actions/portfolio-swap/" + portfolioID
	if step != "" {
		href += "/" + step
	}
	return href
}

func actionFailure(c *gin.Context, err error) {
	httpErr := common.FromDomainError(err)
	c.JSON(httpErr.StatusCode, ActionError{Message: httpErr.Message})
}

// @Summary Action rules
// @Tags actions
// @Produce json
// @Success 200 {object} ActionsManifest
// @Router /actions.json [get]
func (h *ActionHandler) manifest(c *gin.Context) {
	c.JSON(http.StatusOK, ActionsManifest{Rules: []ActionRule{
		{PathPattern: "/*", APIPath: "/api/actions/*"},
		{PathPattern: "/api/actions/**", APIPath: "/api/actions/**"},
	}})
}

// @Summary Connect wallet action for a portfolio
// @Tags actions
// @Produce json
// @Param portfolioId path string true "Portfolio id"
// @Success 200 {object} Action
// @Failure 404 {object} ActionError
// @Router /api/actions/portfolio-swap/{portfolioId} [get]
func (h *ActionHandler) getAction(c *gin.Context) {
	portfolioID := c.Param("portfolioId")
	p, err := h.aggregatorSvc.Portfolio(portfolioID)
	if err != nil {
		actionFailure(c, err)
		return
	}

	c.JSON(http.StatusOK, Action{
		Type:        "action",
		Icon:        h.icon(),
		Title:       "Connect wallet",
		Description: fmt.Sprintf("%s to %s", ConnectMessage, p.Name),
		Label:       "Connect wallet",
		Links: &ActionLinks{Actions: []LinkedAction{
			{Type: "message", Href: h.href(portfolioID, ""), Label: "Connect Wallet"},
		}},
	})
}

// @Summary Message for the wallet to sign
// @Tags actions
// @Produce json
// @Param portfolioId path string true "Portfolio id"
// @Success 200 {object} MessageResponse
// @Router /api/actions/portfolio-swap/{portfolioId} [post]
func (h *ActionHandler) signMessage(c *gin.Context) {
	resp := MessageResponse{Type: "message", Data: ConnectMessage}
	resp.Links.Next = NextLink{
		Type:  "post",
		Href:  h.href(c.Param("portfolioId"), "verify-signature"),
		Label: "Verify Signature",
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Verify the signed message and list swappable tokens
// @Tags actions
// @Accept json
// @Produce json
// @Param portfolioId path string true "Portfolio id"
// @Param request body VerifySignatureRequest true "Signed message"
// @Success 200 {object} Action
// @Failure 400 {object} ActionError
// @Router /api/actions/portfolio-swap/{portfolioId}/verify-signature [post]
func (h *ActionHandler) verifySignature(c *gin.Context) {
	var req VerifySignatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ActionError{Message: "invalid request body: " + err.Error()})
		return
	}
	if req.Signature == "" {
		c.JSON(http.StatusBadRequest, ActionError{Message: "Signature is required"})
		return
	}

	portfolioID := c.Param("portfolioId")
	owner, err := h.aggregatorSvc.VerifySignature(req.Account, req.Signature, ConnectMessage)
	if err != nil {
		c.JSON(http.StatusOK, Action{
			Type:        "action",
			Icon:        h.icon(),
			Title:       "Signature invalid",
			Description: fmt.Sprintf("Invalid message signature!\naccount = %s\nmessage = %s\nsignature = %s", req.Account, ConnectMessage, req.Signature),
			Label:       "Invalid Signature",
		})
		return
	}

	tokens, err := h.aggregatorSvc.WalletTokens(c.Request.Context(), owner)
	if err != nil {
		log.Error().Err(err).Str("account", owner.String()).Msg("[ActionHandler] failed to fetch wallet tokens")
		c.JSON(http.StatusOK, Action{
			Type:        "action",
			Icon:        h.icon(),
			Title:       "Error",
			Description: "Failed to fetch your token balances. Please try again.",
			Label:       "Error",
		})
		return
	}

	if len(tokens) == 0 {
		c.JSON(http.StatusOK, Action{
			Type:        "action",
			Icon:        h.icon(),
			Title:       actionTitle,
			Description: actionLabel,
			Label:       actionLabel,
			Disabled:    true,
			Error:       &ActionError{Message: "No tokens with sufficient balance were found in your wallet"},
		})
		return
	}

	c.JSON(http.StatusOK, Action{
		Type:        "action",
		Icon:        h.icon(),
		Title:       actionTitle,
		Description: actionLabel,
		Label:       actionLabel,
		Links: &ActionLinks{Actions: []LinkedAction{{
			Type:  "transaction",
			Label: actionTitle,
			Href:  h.href(portfolioID, "transaction"),
			Parameters: []ActionParameter{
				{Name: "inputToken", Label: "Select Token to Swap", Type: "select", Required: true, Options: tokenOptions(tokens)},
				{Name: "amount", Label: "Amount to Swap", Type: "number", Required: true},
				{Name: "slippageBps", Label: "Slippage Tolerance", Type: "select", Options: slippageOptions},
			},
		}}},
	})
}

// tokenOptions expects tokens sorted by value, highest first.
func tokenOptions(tokens []domain.WalletToken) []ActionOption {
	if len(tokens) > maxTokenOptions {
		tokens = tokens[:maxTokenOptions]
	}
	opts := make([]ActionOption, len(tokens))
	for i, t := range tokens {
		symbol := t.Symbol
		if symbol == "" {
			symbol = t.Mint.Short(4)
		}
		opts[i] = ActionOption{
			Label:    fmt.Sprintf("%s (%s)", symbol, t.Amount.StringFixed(2)),
			Value:    t.Mint.String(),
			Selected: i == 0,
		}
	}
	return opts
}

// @Summary Build the portfolio swap transaction
// @Tags actions
// @Accept json
// @Produce json
// @Param portfolioId path string true "Portfolio id"
// @Param request body ActionTransactionRequest true "Swap input"
// @Success 200 {object} TransactionResponse
// @Failure 400 {object} ActionError
// @Failure 404 {object} ActionError
// @Failure 422 {object} ActionError
// @Failure 502 {object} ActionError
// @Router /api/actions/portfolio-swap/{portfolioId}/transaction [post]
func (h *ActionHandler) buildTransaction(c *gin.Context) {
	var req ActionTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ActionError{Message: "invalid request body: " + err.Error()})
		return
	}

	signer, err := solana.PublicKeyFromBase58(req.Account)
	if err != nil {
		actionFailure(c, fmt.Errorf("%w: %w", domain.ErrInvalidSigner, err))
		return
	}
	inputToken, err := solana.PublicKeyFromBase58(req.Data.InputToken)
	if err != nil {
		c.JSON(http.StatusBadRequest, ActionError{Message: "invalid inputToken"})
		return
	}
	if req.Data.SlippageBps > domain.MaxSlippageBps {
		actionFailure(c, fmt.Errorf("%w: slippage %d bps", domain.ErrInvalidPlan, req.Data.SlippageBps))
		return
	}

	res, err := h.aggregatorSvc.BuildPortfolioSwap(c.Request.Context(), aggregator.PortfolioSwapRequest{
		Signer:      signer,
		PortfolioID: c.Param("portfolioId"),
		InputToken:  inputToken,
		Amount:      req.Data.Amount,
		SlippageBps: uint16(req.Data.SlippageBps),
	})
	if err != nil {
		log.Warn().Err(err).Str("account", req.Account).Msg("[ActionHandler] portfolio swap failed")
		actionFailure(c, err)
		return
	}

	c.JSON(http.StatusOK, TransactionResponse{
		Type:         "transaction",
		Transaction:  res.Transaction,
		Message:      res.Message,
		Continuation: res.Continuation,
	})
}
