package http

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/portfolio-swap/internal/aggregator"
	"github.com/hxuan190/portfolio-swap/internal/domain"
	"github.com/hxuan190/portfolio-swap/internal/http/httputil"
	"github.com/hxuan190/portfolio-swap/internal/metrics"
)

const (
	PlanTypeTransfer = "transfer"
	PlanTypeSwap     = "swap"
)

// SwapHandler builds unsigned transactions from raw plans, without a portfolio.
type SwapHandler struct {
	aggregatorSvc *aggregator.Service
}

func NewSwapHandler(aggregatorSvc *aggregator.Service) *SwapHandler {
	return &SwapHandler{aggregatorSvc: aggregatorSvc}
}

func (h *SwapHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.POST("", h.buildSwap)
	pub.POST("/continue", h.continueSwap)
}

func (h *SwapHandler) Root() string {
	return "/swap"
}

type LegRequest struct {
	// Input token mint address (base58)
	InputToken string `json:"inputToken" binding:"required" example:"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"`
	// Output token mint address (base58)
	OutputToken string `json:"outputToken" binding:"required" example:"So11111111111111111111111111111111111111112"`
	// Amount in base units, as a decimal string
	Amount string `json:"amount" binding:"required" example:"1000000"`
	// Per leg slippage, defaults to the plan slippage when omitted. 0 is a valid value.
	SlippageBps *uint16 `json:"slippageBps,omitempty" example:"50"`
}

// PlanRequest is a tagged plan: "transfer" uses inputToken/outputToken/amount,
// "swap" uses legs.
type PlanRequest struct {
	Type        string       `json:"type" binding:"required,oneof=transfer swap" enums:"transfer,swap" example:"transfer"`
	Signer      string       `json:"signer" binding:"required" example:"9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"`
	InputToken  string       `json:"inputToken,omitempty"`
	OutputToken string       `json:"outputToken,omitempty"`
	Amount      string       `json:"amount,omitempty"`
	Legs        []LegRequest `json:"legs,omitempty"`
	SlippageBps uint16       `json:"slippageBps" example:"100"`
	// Platform fee in base units of the first leg's input token
	FeeAmount string `json:"feeAmount,omitempty" example:"0"`
}

func parseKey(field, raw string) (solana.PublicKey, error) {
	pk, err := solana.PublicKeyFromBase58(raw)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %s: %w", domain.ErrInvalidPlan, field, err)
	}
	return pk, nil
}

func parseAmount(field, raw string, allowEmpty bool) (uint64, error) {
	if raw == "" && allowEmpty {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an unsigned integer", domain.ErrInvalidPlan, field)
	}
	return v, nil
}

// ToPlan converts the request into the boundary plan variant it names.
func (r PlanRequest) ToPlan() (domain.TransactionPlan, error) {
	signer, err := solana.PublicKeyFromBase58(r.Signer)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidSigner, err)
	}
	fee, err := parseAmount("feeAmount", r.FeeAmount, true)
	if err != nil {
		return nil, err
	}

	switch r.Type {
	case PlanTypeTransfer:
		in, err := parseKey("inputToken", r.InputToken)
		if err != nil {
			return nil, err
		}
		out, err := parseKey("outputToken", r.OutputToken)
		if err != nil {
			return nil, err
		}
		amount, err := parseAmount("amount", r.Amount, false)
		if err != nil {
			return nil, err
		}
		return domain.TransferPlan{
			Signer:      signer,
			InputToken:  in,
			OutputToken: out,
			Amount:      amount,
			SlippageBps: r.SlippageBps,
			FeeAmount:   fee,
		}, nil
	case PlanTypeSwap:
		legs := make([]domain.SwapLeg, 0, len(r.Legs))
		for i, l := range r.Legs {
			in, err := parseKey(fmt.Sprintf("legs[%d].inputToken", i), l.InputToken)
			if err != nil {
				return nil, err
			}
			out, err := parseKey(fmt.Sprintf("legs[%d].outputToken", i), l.OutputToken)
			if err != nil {
				return nil, err
			}
			amount, err := parseAmount(fmt.Sprintf("legs[%d].amount", i), l.Amount, false)
			if err != nil {
				return nil, err
			}
			slippage := r.SlippageBps
			if l.SlippageBps != nil {
				slippage = *l.SlippageBps
			}
			legs = append(legs, domain.SwapLeg{InputToken: in, OutputToken: out, Amount: amount, SlippageBps: slippage})
		}
		return domain.MultiSwapPlan{Signer: signer, Legs: legs, SlippageBps: r.SlippageBps, FeeAmount: fee}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", domain.ErrInvalidPlan, r.Type)
	}
}

// @Summary Build swap transaction
// @Description Builds an unsigned v0 transaction for the first batch of the plan.
// @Description When the plan does not fit, the response carries a continuation to post to /swap/continue.
// @Tags swap
// @Accept json
// @Produce json
// @Param request body PlanRequest true "Transaction plan"
// @Success 200 {object} httputil.Response{data=domain.BuildResult}
// @Failure 400 {object} httputil.Response "Invalid plan"
// @Failure 502 {object} httputil.Response "No route or upstream failure"
// @Router /api/v1/swap [post]
func (h *SwapHandler) buildSwap(c *gin.Context) {
	start := time.Now()

	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequest(c, "invalid request body: "+err.Error())
		return
	}
	plan, err := req.ToPlan()
	if err != nil {
		httputil.HandleError(c, err, nil)
		return
	}

	res, err := h.aggregatorSvc.BuildPlan(c.Request.Context(), plan)
	metrics.HTTPBuildDuration.WithLabelValues(req.Type).Observe(time.Since(start).Seconds())
	if err != nil {
		httputil.HandleError(c, err, nil)
		return
	}
	httputil.HandleSuccess(c, res)
}

// @Summary Build the next batch of a plan
// @Tags swap
// @Accept json
// @Produce json
// @Param request body domain.Continuation true "Continuation from a previous build"
// @Success 200 {object} httputil.Response{data=domain.BuildResult}
// @Failure 400 {object} httputil.Response
// @Router /api/v1/swap/continue [post]
func (h *SwapHandler) continueSwap(c *gin.Context) {
	start := time.Now()

	var cont domain.Continuation
	if err := c.ShouldBindJSON(&cont); err != nil {
		httputil.HandleBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	res, err := h.aggregatorSvc.BuildContinuation(c.Request.Context(), cont)
	metrics.HTTPBuildDuration.WithLabelValues("continuation").Observe(time.Since(start).Seconds())
	if err != nil {
		httputil.HandleError(c, err, nil)
		return
	}
	httputil.HandleSuccess(c, res)
}
