package dto

// TopUpRequest is the request body for recording a verified gateway top-up.
type TopUpRequest struct {
	OwnerRef     string `json:"owner_ref" binding:"required,max=100"`
	OwnerKind    string `json:"owner_kind" binding:"required,oneof=USER AGENCY"`
	Currency     string `json:"currency" binding:"required,len=3"`
	Amount       int64  `json:"amount" binding:"required,gt=0"`
	ProviderTxID string `json:"provider_tx_id" binding:"required,max=200"`
}

// AdjustmentRequest is the request body for a manual ledger correction.
// Amount is signed; zero is rejected.
type AdjustmentRequest struct {
	OwnerRef       string `json:"owner_ref" binding:"required,max=100"`
	Amount         int64  `json:"amount" binding:"required"`
	Reason         string `json:"reason" binding:"required,max=500"`
	IdempotencyKey string `json:"idempotency_key" binding:"required,max=200"`
}

// CreateHoldRequest is the request body for placing an escrow hold.
type CreateHoldRequest struct {
	ContractRef    string `json:"contract_ref" binding:"required,max=200"`
	PayerOwnerRef  string `json:"payer_owner_ref" binding:"required,max=100"`
	PayerOwnerKind string `json:"payer_owner_kind" binding:"required,oneof=USER AGENCY"`
	PayeeOwnerRef  string `json:"payee_owner_ref" binding:"required,max=100"`
	PayeeOwnerKind string `json:"payee_owner_kind" binding:"required,oneof=USER AGENCY"`
	Amount         int64  `json:"amount" binding:"required,gt=0"`
	Currency       string `json:"currency" binding:"required,len=3"`
	IdempotencyKey string `json:"idempotency_key" binding:"required,max=200"`
}

// DisputeHoldRequest is the request body for flagging a hold as disputed.
type DisputeHoldRequest struct {
	Reason         string `json:"reason" binding:"required,max=500"`
	IdempotencyKey string `json:"idempotency_key" binding:"required,max=200"`
}

// ReviewDecisionRequest is the request body for applying a POT/POP review
// decision to the contract's escrow.
type ReviewDecisionRequest struct {
	TargetRef   string `json:"target_ref" binding:"required,max=200"`
	DecisionID  string `json:"decision_id" binding:"required,max=200"`
	Decision    string `json:"decision" binding:"required,oneof=APPROVED REJECTED REVISION_REQUESTED"`
	ReviewerRef string `json:"reviewer_ref" binding:"required,max=100"`
	Notes       string `json:"notes" binding:"max=2000"`
}

// WalletResponse is the balance projection for an owner.
type WalletResponse struct {
	ID                string  `json:"id"`
	OwnerRef          string  `json:"owner_ref"`
	OwnerKind         string  `json:"owner_kind"`
	Currency          string  `json:"currency"`
	Balance           int64   `json:"balance"`
	Version           int64   `json:"version"`
	LastTransactionID *string `json:"last_transaction_id,omitempty"`
	Active            bool    `json:"active"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}

// TransactionResponse is one ledger entry.
type TransactionResponse struct {
	ID           string `json:"id"`
	WalletID     string `json:"wallet_id"`
	Amount       int64  `json:"amount"`
	BalanceAfter int64  `json:"balance_after"`
	Kind         string `json:"kind"`
	Reference    string `json:"reference"`
	CreatedAt    string `json:"created_at"`
}

// TransactionListResponse wraps paginated ledger history.
type TransactionListResponse struct {
	Items      []TransactionResponse `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}

// HoldResponse is one escrow hold.
type HoldResponse struct {
	ID               string  `json:"id"`
	ContractRef      string  `json:"contract_ref"`
	PayerWalletID    string  `json:"payer_wallet_id"`
	PayeeWalletID    string  `json:"payee_wallet_id"`
	Amount           int64   `json:"amount"`
	Currency         string  `json:"currency"`
	Status           string  `json:"status"`
	CreatedAt        string  `json:"created_at"`
	ResolvedAt       *string `json:"resolved_at,omitempty"`
	ResolutionReason string  `json:"resolution_reason,omitempty"`
}

// ReviewResponse reports the effect of a review decision.
type ReviewResponse struct {
	Outcome string        `json:"outcome"`
	Hold    *HoldResponse `json:"hold,omitempty"`
}
