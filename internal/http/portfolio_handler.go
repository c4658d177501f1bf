package http

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/portfolio-swap/internal/aggregator"
	"github.com/hxuan190/portfolio-swap/internal/http/httputil"
)

type PortfolioHandler struct {
	aggregatorSvc *aggregator.Service
}

func NewPortfolioHandler(aggregatorSvc *aggregator.Service) *PortfolioHandler {
	return &PortfolioHandler{aggregatorSvc: aggregatorSvc}
}

func (h *PortfolioHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.list)
	pub.GET("/:id", h.get)
	pub.GET("/wallets/:owner", h.walletTokens)
}

func (h *PortfolioHandler) Root() string {
	return "/portfolios"
}

// @Summary List portfolios
// @Tags portfolios
// @Produce json
// @Success 200 {object} httputil.Response{data=[]domain.Portfolio}
// @Router /api/v1/portfolios [get]
func (h *PortfolioHandler) list(c *gin.Context) {
	httputil.HandleSuccess(c, h.aggregatorSvc.Portfolios())
}

// @Summary Get a portfolio
// @Tags portfolios
// @Produce json
// @Param id path string true "Portfolio id"
// @Success 200 {object} httputil.Response{data=domain.Portfolio}
// @Failure 404 {object} httputil.Response
// @Router /api/v1/portfolios/{id} [get]
func (h *PortfolioHandler) get(c *gin.Context) {
	p, err := h.aggregatorSvc.Portfolio(c.Param("id"))
	if err != nil {
		httputil.HandleError(c, err, nil)
		return
	}
	httputil.HandleSuccess(c, p)
}

// @Summary Swappable tokens held by a wallet
// @Description Priced balances above MIN_TOKEN_VALUE_USD, highest value first.
// @Tags portfolios
// @Produce json
// @Param owner path string true "Wallet address"
// @Success 200 {object} httputil.Response{data=[]domain.WalletToken}
// @Failure 400 {object} httputil.Response
// @Router /api/v1/portfolios/wallets/{owner} [get]
func (h *PortfolioHandler) walletTokens(c *gin.Context) {
	owner, err := solana.PublicKeyFromBase58(c.Param("owner"))
	if err != nil {
		httputil.HandleBadRequest(c, "invalid owner address")
		return
	}
	tokens, err := h.aggregatorSvc.WalletTokens(c.Request.Context(), owner)
	if err != nil {
		httputil.HandleError(c, err, nil)
		return
	}
	httputil.HandleSuccess(c, tokens)
}
