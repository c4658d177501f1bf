package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hxuan190/portfolio-swap/internal/aggregator"
	"github.com/hxuan190/portfolio-swap/internal/aggregator/services/portfolio"
	"github.com/hxuan190/portfolio-swap/internal/common"
	"github.com/hxuan190/portfolio-swap/internal/domain"
	"github.com/hxuan190/portfolio-swap/internal/http/httputil"
)

type stubBuilder struct {
	plans []domain.SwapPlan
}

func (s *stubBuilder) Build(_ context.Context, plan domain.SwapPlan) (*domain.BuildResult, error) {
	s.plans = append(s.plans, plan)
	return &domain.BuildResult{Transaction: "dHg=", Legs: plan.Legs}, nil
}

type stubSubmitter struct {
	result   *domain.SubmissionResult
	err      error
	attempts []domain.SubmissionAttempt
}

func (s *stubSubmitter) Submit(context.Context, string) (*domain.SubmissionResult, error) {
	return s.result, s.err
}

func (s *stubSubmitter) Attempts(string) ([]domain.SubmissionAttempt, error) {
	return s.attempts, nil
}

type stubWallets struct {
	tokens []domain.WalletToken
}

func (s *stubWallets) GetWalletTokens(context.Context, solana.PublicKey) ([]domain.WalletToken, error) {
	return s.tokens, nil
}

type testEnv struct {
	router    *gin.Engine
	builder   *stubBuilder
	submitter *stubSubmitter
	wallets   *stubWallets
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry, err := portfolio.NewRegistry(portfolio.Builtin()...)
	require.NoError(t, err)

	env := &testEnv{
		builder:   &stubBuilder{},
		submitter: &stubSubmitter{},
		wallets: &stubWallets{tokens: []domain.WalletToken{
			{Mint: common.USDCMint, Symbol: "USDC", Amount: decimal.NewFromInt(250), Decimals: 6, ValueUSD: decimal.NewFromInt(250)},
			{Mint: common.BONKMint, Symbol: "BONK", Amount: decimal.NewFromInt(1_000_000), Decimals: 5, ValueUSD: decimal.NewFromInt(20)},
		}},
	}
	svc := aggregator.NewService(env.builder, env.submitter, env.wallets, registry, 0)
	env.router = NewRouter(svc, "https://swap.example", nil)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestActionsManifest(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/actions.json", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2.1.3", w.Header().Get("X-Action-Version"))
	assert.Equal(t, "solana:5eykt4UsFv8P8NJdTREpY1vzqKqZKvdp", w.Header().Get("X-Blockchain-Ids"))

	manifest := decode[ActionsManifest](t, w)
	assert.Equal(t, []ActionRule{
		{PathPattern: "/*", APIPath: "/api/actions/*"},
		{PathPattern: "/api/actions/**", APIPath: "/api/actions/**"},
	}, manifest.Rules)
}

func TestActionPreflight(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodOptions, "/api/actions/portfolio-swap/defi-portfolio", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2.1.3", w.Header().Get("X-Action-Version"))

	w = env.do(t, http.MethodGet, "/health", nil)
	assert.Empty(t, w.Header().Get("X-Action-Version"))
}

func TestGetAction(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/actions/portfolio-swap/defi-portfolio", nil)
	require.Equal(t, http.StatusOK, w.Code)
	action := decode[Action](t, w)
	assert.Equal(t, "https://swap.example/public/media/portfolio.jpg", action.Icon)
	require.Len(t, action.Links.Actions, 1)
	assert.Equal(t, "message", action.Links.Actions[0].Type)
	assert.Equal(t, "Connect Wallet", action.Links.Actions[0].Label)

	w = env.do(t, http.MethodGet, "/api/actions/portfolio-swap/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decode[ActionError](t, w).Message, "portfolio not found")
}

func TestSignMessage(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/actions/portfolio-swap/high-risk", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[MessageResponse](t, w)
	assert.Equal(t, "message", resp.Type)
	assert.Equal(t, ConnectMessage, resp.Data)
	assert.Equal(t, "/api/actions/portfolio-swap/high-risk/verify-signature", resp.Links.Next.Href)
}

func TestVerifySignature(t *testing.T) {
	env := newTestEnv(t)
	wallet := solana.NewWallet()
	sig, err := wallet.PrivateKey.Sign([]byte(ConnectMessage))
	require.NoError(t, err)
	path := "/api/actions/portfolio-swap/defi-portfolio/verify-signature"

	t.Run("valid", func(t *testing.T) {
		w := env.do(t, http.MethodPost, path, VerifySignatureRequest{Account: wallet.PublicKey().String(), Signature: sig.String()})
		require.Equal(t, http.StatusOK, w.Code)

		action := decode[Action](t, w)
		require.NotNil(t, action.Links)
		require.Len(t, action.Links.Actions, 1)
		link := action.Links.Actions[0]
		assert.Equal(t, "/api/actions/portfolio-swap/defi-portfolio/transaction", link.Href)
		require.Len(t, link.Parameters, 3)

		tokens := link.Parameters[0].Options
		require.Len(t, tokens, 2)
		assert.Equal(t, "USDC (250.00)", tokens[0].Label)
		assert.True(t, tokens[0].Selected)
		assert.Equal(t, common.BONKMint.String(), tokens[1].Value)

		slippage := link.Parameters[2].Options
		require.Len(t, slippage, 4)
		assert.True(t, slippage[2].Selected)
		assert.Equal(t, "100", slippage[2].Value)
	})

	t.Run("wrong message signer", func(t *testing.T) {
		other := solana.NewWallet().PublicKey()
		w := env.do(t, http.MethodPost, path, VerifySignatureRequest{Account: other.String(), Signature: sig.String()})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Signature invalid", decode[Action](t, w).Title)
	})

	t.Run("missing signature", func(t *testing.T) {
		w := env.do(t, http.MethodPost, path, VerifySignatureRequest{Account: wallet.PublicKey().String()})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Signature is required", decode[ActionError](t, w).Message)
	})

	t.Run("empty wallet", func(t *testing.T) {
		env.wallets.tokens = nil
		w := env.do(t, http.MethodPost, path, VerifySignatureRequest{Account: wallet.PublicKey().String(), Signature: sig.String()})
		require.Equal(t, http.StatusOK, w.Code)
		action := decode[Action](t, w)
		require.NotNil(t, action.Error)
		assert.Contains(t, action.Error.Message, "No tokens")
	})
}

func TestActionTransaction(t *testing.T) {
	env := newTestEnv(t)
	signer := solana.NewWallet().PublicKey()
	path := "/api/actions/portfolio-swap/stable-portfolio/transaction"

	body := map[string]any{
		"account": signer.String(),
		"data": map[string]any{
			"inputToken":  common.BONKMint.String(),
			"amount":      "1000",
			"slippageBps": "50",
		},
	}
	w := env.do(t, http.MethodPost, path, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[TransactionResponse](t, w)
	assert.Equal(t, "transaction", resp.Type)
	assert.Equal(t, "dHg=", resp.Transaction)
	assert.Equal(t, "Swapping 1000 tokens to Stable Portfolio: 80.0% USDC, 20.0% SOL", resp.Message)

	require.Len(t, env.builder.plans, 1)
	assert.Equal(t, uint16(50), env.builder.plans[0].SlippageBps)
	assert.Equal(t, uint64(80_000_000), env.builder.plans[0].Legs[0].Amount)

	t.Run("numeric slippage defaults", func(t *testing.T) {
		body["data"] = map[string]any{"inputToken": common.BONKMint.String(), "amount": 10}
		w := env.do(t, http.MethodPost, path, body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, uint16(aggregator.DefaultSlippageBps), env.builder.plans[1].SlippageBps)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		body["data"] = map[string]any{"inputToken": common.USDCMint.String(), "amount": "251"}
		w := env.do(t, http.MethodPost, path, body)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, decode[ActionError](t, w).Message, "insufficient balance")
	})

	t.Run("token not held", func(t *testing.T) {
		body["data"] = map[string]any{"inputToken": common.MSOLMint.String(), "amount": "1"}
		w := env.do(t, http.MethodPost, path, body)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("bad account", func(t *testing.T) {
		w := env.do(t, http.MethodPost, path, map[string]any{"account": "xyz", "data": map[string]any{}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSwapEndpoint(t *testing.T) {
	env := newTestEnv(t)
	signer := solana.NewWallet().PublicKey()

	w := env.do(t, http.MethodPost, "/api/v1/swap", PlanRequest{
		Type:        PlanTypeTransfer,
		Signer:      signer.String(),
		InputToken:  common.USDCMint.String(),
		OutputToken: common.NativeMint.String(),
		Amount:      "5000000",
		SlippageBps: 30,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[httputil.Response](t, w)
	assert.True(t, resp.Success)
	require.Len(t, env.builder.plans, 1)
	assert.Equal(t, uint64(5_000_000), env.builder.plans[0].Legs[0].Amount)

	w = env.do(t, http.MethodPost, "/api/v1/swap", PlanRequest{
		Type:   PlanTypeSwap,
		Signer: signer.String(),
		Legs: []LegRequest{
			{InputToken: common.USDCMint.String(), OutputToken: common.BONKMint.String(), Amount: "10"},
			{InputToken: common.USDCMint.String(), OutputToken: common.NativeMint.String(), Amount: "20", SlippageBps: bps(5)},
			{InputToken: common.USDCMint.String(), OutputToken: common.MSOLMint.String(), Amount: "30", SlippageBps: bps(0)},
		},
		SlippageBps: 100,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, env.builder.plans, 2)
	assert.Equal(t, uint16(100), env.builder.plans[1].Legs[0].SlippageBps)
	assert.Equal(t, uint16(5), env.builder.plans[1].Legs[1].SlippageBps)
	assert.Equal(t, uint16(0), env.builder.plans[1].Legs[2].SlippageBps)

	tests := []struct {
		name string
		req  PlanRequest
	}{
		{"unknown type", PlanRequest{Type: "bridge", Signer: signer.String()}},
		{"bad signer", PlanRequest{Type: PlanTypeTransfer, Signer: "nope"}},
		{"bad amount", PlanRequest{Type: PlanTypeTransfer, Signer: signer.String(), InputToken: common.USDCMint.String(), OutputToken: common.NativeMint.String(), Amount: "-1"}},
		{"empty swap", PlanRequest{Type: PlanTypeSwap, Signer: signer.String()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/swap", tt.req)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestContinueEndpoint(t *testing.T) {
	env := newTestEnv(t)
	cont := domain.Continuation{
		Signer:      solana.NewWallet().PublicKey(),
		SlippageBps: 100,
		RemainingLegs: []domain.SwapLeg{
			{InputToken: common.USDCMint, OutputToken: common.BONKMint, Amount: 42, SlippageBps: 100},
		},
	}
	w := env.do(t, http.MethodPost, "/api/v1/swap/continue", cont)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, env.builder.plans, 1)
	assert.Equal(t, uint64(42), env.builder.plans[0].Legs[0].Amount)
	assert.Zero(t, env.builder.plans[0].FeeAmount)
}

func TestSubmitEndpoint(t *testing.T) {
	env := newTestEnv(t)
	sig := solana.Signature{3}.String()

	env.submitter.result = &domain.SubmissionResult{Signature: sig, Attempts: []domain.SubmissionAttempt{
		{Signature: sig, AttemptNumber: 1, Status: domain.SubmissionConfirmed},
	}}
	w := env.do(t, http.MethodPost, "/api/v1/transactions/submit", SubmitRequest{Transaction: "AQ=="})
	require.Equal(t, http.StatusOK, w.Code)

	env.submitter.err = fmt.Errorf("%w after 3 attempts: %w", domain.ErrSubmissionExhausted, context.DeadlineExceeded)
	w = env.do(t, http.MethodPost, "/api/v1/transactions/submit", SubmitRequest{Transaction: "AQ=="})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	resp := decode[httputil.Response](t, w)
	assert.Equal(t, "UPSTREAM_FAILURE", resp.Code)
	assert.NotNil(t, resp.Data)

	env.submitter.result, env.submitter.err = nil, domain.ErrInvalidTransaction
	w = env.do(t, http.MethodPost, "/api/v1/transactions/submit", SubmitRequest{Transaction: "AQ=="})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/transactions/submit", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttemptsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	sig := solana.Signature{4}.String()

	w := env.do(t, http.MethodGet, "/api/v1/transactions/"+sig, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	env.submitter.attempts = []domain.SubmissionAttempt{{Signature: sig, AttemptNumber: 1, Status: domain.SubmissionFailed}}
	w = env.do(t, http.MethodGet, "/api/v1/transactions/"+sig, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/transactions/not-base58!", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPortfolioEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/portfolios", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data []domain.Portfolio `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list.Data, 3)

	w = env.do(t, http.MethodGet, "/api/v1/portfolios/stable-portfolio", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/portfolios/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/portfolios/wallets/"+solana.NewWallet().PublicKey().String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFlexUint(t *testing.T) {
	var v FlexUint
	require.NoError(t, json.Unmarshal([]byte(`"200"`), &v))
	assert.Equal(t, FlexUint(200), v)
	require.NoError(t, json.Unmarshal([]byte(`50`), &v))
	assert.Equal(t, FlexUint(50), v)
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &v))
}

func bps(v uint16) *uint16 { return &v }
