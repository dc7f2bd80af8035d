package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"escrow-settlement-engine/internal/adapter/http/dto"
	"escrow-settlement-engine/internal/core/domain"
	"escrow-settlement-engine/internal/core/ports"
	"escrow-settlement-engine/internal/core/ports/mocks"
	"escrow-settlement-engine/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- Wallet Handler Tests ---

func TestTopUp_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewWalletHandler(mockLedger, nil)

	walletID := uuid.New()
	txID := uuid.New()
	now := time.Now().UTC()

	mockLedger.EXPECT().ApplyTopUp(gomock.Any(), ports.TopUpRequest{
		OwnerRef:     "user-1",
		OwnerKind:    domain.OwnerKindUser,
		Currency:     "USD",
		Amount:       5000,
		ProviderTxID: "prov-tx-1",
	}).Return(&domain.WalletTransaction{
		ID:             txID,
		WalletID:       walletID,
		Amount:         5000,
		BalanceAfter:   5000,
		Kind:           domain.TransactionKindTopUp,
		Reference:      "prov-tx-1",
		IdempotencyKey: "top_up:prov-tx-1",
		CreatedAt:      now,
	}, nil)

	body, _ := json.Marshal(dto.TopUpRequest{
		OwnerRef:     "user-1",
		OwnerKind:    "USER",
		Currency:     "USD",
		Amount:       5000,
		ProviderTxID: "prov-tx-1",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.TopUp(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, txID.String(), data["id"])
	assert.Equal(t, "TOPUP", data["kind"])
	assert.Equal(t, float64(5000), data["balance_after"])
}

func TestTopUp_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewWalletHandler(mockLedger, nil)

	// Empty body => binding error
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{}")))
	c.Request.Header.Set("Content-Type", "application/json")

	h.TopUp(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTopUp_DeactivatedWallet(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewWalletHandler(mockLedger, nil)

	mockLedger.EXPECT().ApplyTopUp(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrWalletDeactivated())

	body, _ := json.Marshal(dto.TopUpRequest{
		OwnerRef:     "user-1",
		OwnerKind:    "USER",
		Currency:     "USD",
		Amount:       5000,
		ProviderTxID: "prov-tx-1",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.TopUp(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdjust_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewWalletHandler(mockLedger, nil)

	txID := uuid.New()
	mockLedger.EXPECT().ApplyAdjustment(gomock.Any(), ports.AdjustmentRequest{
		OwnerRef:       "user-1",
		Amount:         -200,
		Reason:         "chargeback",
		IdempotencyKey: "adj-1",
	}).Return(&domain.WalletTransaction{
		ID:           txID,
		Amount:       -200,
		BalanceAfter: 4800,
		Kind:         domain.TransactionKindAdjustment,
		Reference:    "chargeback",
		CreatedAt:    time.Now().UTC(),
	}, nil)

	body, _ := json.Marshal(dto.AdjustmentRequest{
		OwnerRef:       "user-1",
		Amount:         -200,
		Reason:         "chargeback",
		IdempotencyKey: "adj-1",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Adjust(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ADJUSTMENT", data["kind"])
	assert.Equal(t, float64(-200), data["amount"])
}

func TestGetWallet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewWalletHandler(mockLedger, nil)

	walletID := uuid.New()
	mockLedger.EXPECT().GetWalletByOwner(gomock.Any(), "user-1").Return(&domain.Wallet{
		ID:        walletID,
		OwnerRef:  "user-1",
		OwnerKind: domain.OwnerKindUser,
		Currency:  "USD",
		Balance:   1000,
		Version:   3,
		Active:    true,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "owner_ref", Value: "user-1"}}

	h.GetWallet(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, walletID.String(), data["id"])
	assert.Equal(t, float64(1000), data["balance"])
	assert.Equal(t, float64(3), data["version"])
}

func TestGetWallet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewWalletHandler(mockLedger, nil)

	mockLedger.EXPECT().GetWalletByOwner(gomock.Any(), "ghost").Return(nil, apperror.ErrNotFound("wallet"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "owner_ref", Value: "ghost"}}

	h.GetWallet(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListTransactions_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewWalletHandler(mockLedger, nil)

	walletID := uuid.New()
	mockLedger.EXPECT().GetWalletByOwner(gomock.Any(), "user-1").Return(&domain.Wallet{
		ID:       walletID,
		OwnerRef: "user-1",
		Active:   true,
	}, nil)
	mockLedger.EXPECT().ListTransactions(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, params ports.TransactionListParams) ([]domain.WalletTransaction, int64, error) {
			assert.Equal(t, walletID, params.WalletID)
			assert.Equal(t, 1, params.Page)
			assert.Equal(t, 20, params.PageSize)
			return []domain.WalletTransaction{
				{
					ID:           uuid.New(),
					WalletID:     walletID,
					Amount:       500,
					BalanceAfter: 500,
					Kind:         domain.TransactionKindTopUp,
					CreatedAt:    time.Now().UTC(),
				},
			}, 1, nil
		})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=1&page_size=20", nil)
	c.Params = gin.Params{{Key: "owner_ref", Value: "user-1"}}

	h.ListTransactions(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	assert.Len(t, items, 1)
	assert.Equal(t, float64(1), data["total"])
	assert.Equal(t, float64(1), data["total_pages"])
}

func TestListTransactions_ClampsBadPagination(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewWalletHandler(mockLedger, nil)

	walletID := uuid.New()
	mockLedger.EXPECT().GetWalletByOwner(gomock.Any(), "user-1").Return(&domain.Wallet{
		ID:       walletID,
		OwnerRef: "user-1",
		Active:   true,
	}, nil)
	mockLedger.EXPECT().ListTransactions(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, params ports.TransactionListParams) ([]domain.WalletTransaction, int64, error) {
			assert.Equal(t, 1, params.Page)
			assert.Equal(t, 20, params.PageSize)
			return nil, 0, nil
		})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=-2&page_size=0", nil)
	c.Params = gin.Params{{Key: "owner_ref", Value: "user-1"}}

	h.ListTransactions(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListHolds_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	mockEscrow := mocks.NewMockEscrowService(ctrl)
	h := NewWalletHandler(mockLedger, mockEscrow)

	walletID := uuid.New()
	mockLedger.EXPECT().GetWalletByOwner(gomock.Any(), "user-1").Return(&domain.Wallet{
		ID:       walletID,
		OwnerRef: "user-1",
		Active:   true,
	}, nil)
	mockEscrow.EXPECT().GetHoldsForWallet(gomock.Any(), walletID).Return([]domain.EscrowHold{
		{
			ID:            uuid.New(),
			ContractRef:   "contract-1",
			PayerWalletID: walletID,
			PayeeWalletID: uuid.New(),
			Amount:        600,
			Currency:      "USD",
			Status:        domain.HoldStatusHeld,
			CreatedAt:     time.Now().UTC(),
		},
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "owner_ref", Value: "user-1"}}

	h.ListHolds(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	items := resp["data"].([]interface{})
	require.Len(t, items, 1)
	hold := items[0].(map[string]interface{})
	assert.Equal(t, "contract-1", hold["contract_ref"])
	assert.Equal(t, "HELD", hold["status"])
}

// --- Hold Handler Tests ---

func TestCreateHold_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEscrow := mocks.NewMockEscrowService(ctrl)
	h := NewHoldHandler(mockEscrow)

	holdID := uuid.New()
	mockEscrow.EXPECT().CreateHold(gomock.Any(), ports.CreateHoldRequest{
		ContractRef:    "contract-1",
		PayerOwnerRef:  "client-1",
		PayerOwnerKind: domain.OwnerKindUser,
		PayeeOwnerRef:  "agency-1",
		PayeeOwnerKind: domain.OwnerKindAgency,
		Amount:         600,
		Currency:       "USD",
		IdempotencyKey: "key-1",
	}).Return(&domain.EscrowHold{
		ID:            holdID,
		ContractRef:   "contract-1",
		PayerWalletID: uuid.New(),
		PayeeWalletID: uuid.New(),
		Amount:        600,
		Currency:      "USD",
		Status:        domain.HoldStatusHeld,
		CreatedAt:     time.Now().UTC(),
	}, nil)

	body, _ := json.Marshal(dto.CreateHoldRequest{
		ContractRef:    "contract-1",
		PayerOwnerRef:  "client-1",
		PayerOwnerKind: "USER",
		PayeeOwnerRef:  "agency-1",
		PayeeOwnerKind: "AGENCY",
		Amount:         600,
		Currency:       "USD",
		IdempotencyKey: "key-1",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.CreateHold(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, holdID.String(), data["id"])
	assert.Equal(t, "HELD", data["status"])
}

func TestCreateHold_InsufficientFunds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEscrow := mocks.NewMockEscrowService(ctrl)
	h := NewHoldHandler(mockEscrow)

	mockEscrow.EXPECT().CreateHold(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrInsufficientFunds())

	body, _ := json.Marshal(dto.CreateHoldRequest{
		ContractRef:    "contract-1",
		PayerOwnerRef:  "client-1",
		PayerOwnerKind: "USER",
		PayeeOwnerRef:  "agency-1",
		PayeeOwnerKind: "AGENCY",
		Amount:         999999,
		Currency:       "USD",
		IdempotencyKey: "key-1",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.CreateHold(c)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestDisputeHold_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEscrow := mocks.NewMockEscrowService(ctrl)
	h := NewHoldHandler(mockEscrow)

	holdID := uuid.New()
	now := time.Now().UTC()
	mockEscrow.EXPECT().DisputeHold(gomock.Any(), ports.DisputeHoldRequest{
		HoldID:         holdID,
		Reason:         "deliverable rejected",
		IdempotencyKey: "dispute-1",
	}).Return(&domain.EscrowHold{
		ID:               holdID,
		ContractRef:      "contract-1",
		Status:           domain.HoldStatusDisputed,
		ResolvedAt:       &now,
		ResolutionReason: "deliverable rejected",
		CreatedAt:        now,
	}, nil)

	body, _ := json.Marshal(dto.DisputeHoldRequest{
		Reason:         "deliverable rejected",
		IdempotencyKey: "dispute-1",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: holdID.String()}}

	h.DisputeHold(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "DISPUTED", data["status"])
}

func TestDisputeHold_BadID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEscrow := mocks.NewMockEscrowService(ctrl)
	h := NewHoldHandler(mockEscrow)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}

	h.DisputeHold(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetHold_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEscrow := mocks.NewMockEscrowService(ctrl)
	h := NewHoldHandler(mockEscrow)

	holdID := uuid.New()
	mockEscrow.EXPECT().GetHoldByID(gomock.Any(), holdID).Return(&domain.EscrowHold{
		ID:          holdID,
		ContractRef: "contract-1",
		Status:      domain.HoldStatusReleased,
		CreatedAt:   time.Now().UTC(),
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: holdID.String()}}

	h.GetHold(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetHoldByContract_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockEscrow := mocks.NewMockEscrowService(ctrl)
	h := NewHoldHandler(mockEscrow)

	mockEscrow.EXPECT().GetHoldByContract(gomock.Any(), "no-escrow").Return(nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "ref", Value: "no-escrow"}}

	h.GetHoldByContract(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- Review Handler Tests ---

func TestApplyDecision_Approved(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockReview := mocks.NewMockReviewService(ctrl)
	h := NewReviewHandler(mockReview)

	holdID := uuid.New()
	mockReview.EXPECT().ApplyReviewDecision(gomock.Any(), ports.ReviewRequest{
		TargetRef:   "contract-1",
		DecisionID:  "dec-001",
		Decision:    domain.DecisionApproved,
		ReviewerRef: "reviewer-9",
	}).Return(&ports.ReviewResult{
		Outcome: domain.ResolutionReleased,
		Hold: &domain.EscrowHold{
			ID:          holdID,
			ContractRef: "contract-1",
			Status:      domain.HoldStatusReleased,
			CreatedAt:   time.Now().UTC(),
		},
	}, nil)

	body, _ := json.Marshal(dto.ReviewDecisionRequest{
		TargetRef:   "contract-1",
		DecisionID:  "dec-001",
		Decision:    "APPROVED",
		ReviewerRef: "reviewer-9",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.ApplyDecision(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "RELEASED", data["outcome"])
	hold := data["hold"].(map[string]interface{})
	assert.Equal(t, holdID.String(), hold["id"])
}

func TestApplyDecision_NoOpHasNoHold(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockReview := mocks.NewMockReviewService(ctrl)
	h := NewReviewHandler(mockReview)

	mockReview.EXPECT().ApplyReviewDecision(gomock.Any(), gomock.Any()).Return(&ports.ReviewResult{
		Outcome: domain.ResolutionNoOp,
	}, nil)

	body, _ := json.Marshal(dto.ReviewDecisionRequest{
		TargetRef:   "contract-1",
		DecisionID:  "dec-002",
		Decision:    "REVISION_REQUESTED",
		ReviewerRef: "reviewer-9",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.ApplyDecision(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "NO_OP", data["outcome"])
	_, hasHold := data["hold"]
	assert.False(t, hasHold)
}

func TestApplyDecision_ConflictPropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockReview := mocks.NewMockReviewService(ctrl)
	h := NewReviewHandler(mockReview)

	mockReview.EXPECT().ApplyReviewDecision(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrInvalidStateTransition("hold is REFUNDED, cannot RELEASE"))

	body, _ := json.Marshal(dto.ReviewDecisionRequest{
		TargetRef:   "contract-1",
		DecisionID:  "dec-003",
		Decision:    "APPROVED",
		ReviewerRef: "reviewer-9",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.ApplyDecision(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

// --- Health Check Tests ---

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Ping(context.Context) error { return s.err }
func (s stubChecker) Name() string               { return s.name }

func TestHealthCheck_AllHealthy(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(stubChecker{name: "postgresql"}, stubChecker{name: "redis"})(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	deps := resp["dependencies"].(map[string]interface{})
	assert.Len(t, deps, 2)
}

func TestHealthCheck_Degraded(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(stubChecker{name: "postgresql"}, stubChecker{name: "redis", err: errors.New("connection refused")})(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])
	deps := resp["dependencies"].(map[string]interface{})
	redisDep := deps["redis"].(map[string]interface{})
	assert.Equal(t, "unhealthy", redisDep["status"])
}
