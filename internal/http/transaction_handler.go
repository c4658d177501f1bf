package http

import (
	"github.com/gin-gonic/gin"

	"github.com/hxuan190/portfolio-swap/internal/aggregator"
	"github.com/hxuan190/portfolio-swap/internal/http/httputil"
)

type TransactionHandler struct {
	aggregatorSvc *aggregator.Service
}

func NewTransactionHandler(aggregatorSvc *aggregator.Service) *TransactionHandler {
	return &TransactionHandler{aggregatorSvc: aggregatorSvc}
}

func (h *TransactionHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.POST("/submit", h.submit)
	pub.GET("/:signature", h.attempts)
}

func (h *TransactionHandler) Root() string {
	return "/transactions"
}

type SubmitRequest struct {
	// Signed transaction, base64 encoded
	Transaction string `json:"transaction" binding:"required"`
}

// @Summary Submit a signed transaction
// @Description Sends the transaction with preflight skipped and waits for confirmation,
// @Description retrying up to SUBMIT_MAX_RETRIES times. Every attempt is recorded.
// @Tags transactions
// @Accept json
// @Produce json
// @Param request body SubmitRequest true "Signed transaction"
// @Success 200 {object} httputil.Response{data=domain.SubmissionResult}
// @Failure 400 {object} httputil.Response "Malformed, unsigned or expired transaction"
// @Failure 502 {object} httputil.Response{data=domain.SubmissionResult} "Retries exhausted"
// @Router /api/v1/transactions/submit [post]
func (h *TransactionHandler) submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	res, err := h.aggregatorSvc.Submit(c.Request.Context(), req.Transaction)
	if err != nil {
		// exhausted submissions still report their attempts
		var data any
		if res != nil {
			data = res
		}
		httputil.HandleError(c, err, data)
		return
	}
	httputil.HandleSuccess(c, res)
}

// @Summary Recorded submission attempts
// @Tags transactions
// @Produce json
// @Param signature path string true "Transaction signature (base58)"
// @Success 200 {object} httputil.Response{data=[]domain.SubmissionAttempt}
// @Failure 400 {object} httputil.Response
// @Failure 404 {object} httputil.Response
// @Router /api/v1/transactions/{signature} [get]
func (h *TransactionHandler) attempts(c *gin.Context) {
	attempts, err := h.aggregatorSvc.Attempts(c.Param("signature"))
	if err != nil {
		httputil.HandleError(c, err, nil)
		return
	}
	if len(attempts) == 0 {
		httputil.HandleNotFound(c, "no submission attempts recorded for signature")
		return
	}
	httputil.HandleSuccess(c, attempts)
}
