package api

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"celomind/apps/relay/internal/chains"
	"celomind/apps/relay/internal/model"
)

// SwapStore is the intake-side ledger surface: create records, read them
// back, backfill the real deposit hash once it is known.
type SwapStore interface {
	CreateSwap(swap model.SwapRecord) error
	GetByID(swapID string) (*model.SwapRecord, error)
	BackfillSourceTx(swapID, sourceTxHash string) error
}

// SwapHandler handles swap intake API endpoints. It only writes ledger
// records; settlement belongs to the relay scheduler and the escrow key
// never comes near this surface.
type SwapHandler struct {
	store    SwapStore
	registry *chains.Registry
	logger   *zap.Logger
}

// NewSwapHandler creates a new SwapHandler
func NewSwapHandler(store SwapStore, registry *chains.Registry, logger *zap.Logger) *SwapHandler {
	return &SwapHandler{
		store:    store,
		registry: registry,
		logger:   logger,
	}
}

// CreateSwap handles POST /api/swaps
func (h *SwapHandler) CreateSwap(w http.ResponseWriter, r *http.Request) {
	var req CreateSwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid_request_body", "Invalid JSON in request body")
		return
	}

	if !h.registry.IsSupported(req.SourceChain) {
		h.writeErrorResponse(w, http.StatusBadRequest, "unsupported_source_chain", "Unsupported source chain: "+req.SourceChain)
		return
	}

	if req.TargetChain == req.SourceChain {
		h.writeErrorResponse(w, http.StatusBadRequest, "same_chain_pair", "Source and target chains must differ")
		return
	}

	if req.TargetChain == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, "missing_target_chain", "Target chain is required")
		return
	}

	if !common.IsHexAddress(req.RecipientAddress) {
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid_recipient_address", "Invalid recipient address format")
		return
	}

	if !isPositiveDecimal(req.SourceAmount) {
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid_source_amount", "Source amount must be a positive decimal")
		return
	}

	if !isPositiveDecimal(req.TargetAmount) {
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid_target_amount", "Target amount must be a positive decimal")
		return
	}

	swapID := uuid.New().String()

	// Intake may register the swap before the user's deposit is broadcast;
	// the relay treats the placeholder as "not yet ready".
	sourceTxHash := req.SourceTxHash
	if sourceTxHash == "" {
		sourceTxHash = fmt.Sprintf("pending-%s", swapID)
	}

	swap := model.SwapRecord{
		SwapID:           swapID,
		SourceChain:      req.SourceChain,
		TargetChain:      req.TargetChain,
		SourceTxHash:     sourceTxHash,
		SourceAmount:     req.SourceAmount,
		TargetAmount:     req.TargetAmount,
		RecipientAddress: req.RecipientAddress,
		Status:           model.StatusPending,
	}

	if err := h.store.CreateSwap(swap); err != nil {
		h.logger.Error("Failed to create swap", zap.String("swap_id", swapID), zap.Error(err))
		h.writeErrorResponse(w, http.StatusInternalServerError, "database_error", "Failed to create swap")
		return
	}

	created, err := h.store.GetByID(swapID)
	if err != nil || created == nil {
		h.logger.Error("Failed to read back created swap", zap.String("swap_id", swapID), zap.Error(err))
		h.writeErrorResponse(w, http.StatusInternalServerError, "database_error", "Failed to read created swap")
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, toSwapResponse(created))
}

// GetSwap handles GET /api/swaps/{swap_id}
func (h *SwapHandler) GetSwap(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	swapID := vars["swap_id"]

	if swapID == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, "missing_swap_id", "Swap id is required")
		return
	}

	swap, err := h.store.GetByID(swapID)
	if err != nil {
		h.logger.Error("Failed to get swap", zap.String("swap_id", swapID), zap.Error(err))
		h.writeErrorResponse(w, http.StatusInternalServerError, "database_error", "Failed to retrieve swap")
		return
	}

	if swap == nil {
		h.writeErrorResponse(w, http.StatusNotFound, "swap_not_found", "Swap not found")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, toSwapResponse(swap))
}

// BackfillSourceTx handles PATCH /api/swaps/{swap_id}/source-tx
func (h *SwapHandler) BackfillSourceTx(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	swapID := vars["swap_id"]

	var req BackfillSourceTxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "invalid_request_body", "Invalid JSON in request body")
		return
	}

	if req.SourceTxHash == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, "missing_source_tx_hash", "Source tx hash is required")
		return
	}

	if err := h.store.BackfillSourceTx(swapID, req.SourceTxHash); err != nil {
		h.logger.Error("Failed to backfill source tx hash", zap.String("swap_id", swapID), zap.Error(err))
		h.writeErrorResponse(w, http.StatusNotFound, "swap_not_found", "No pending swap with that id")
		return
	}

	swap, err := h.store.GetByID(swapID)
	if err != nil || swap == nil {
		h.writeErrorResponse(w, http.StatusInternalServerError, "database_error", "Failed to read updated swap")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, toSwapResponse(swap))
}

func toSwapResponse(swap *model.SwapRecord) SwapResponse {
	return SwapResponse{
		SwapID:           swap.SwapID,
		SourceChain:      swap.SourceChain,
		TargetChain:      swap.TargetChain,
		SourceTxHash:     swap.SourceTxHash,
		SourceAmount:     swap.SourceAmount,
		TargetAmount:     swap.TargetAmount,
		RecipientAddress: swap.RecipientAddress,
		Status:           swap.Status,
		TargetTxHash:     swap.TargetTxHash,
		ErrorNote:        swap.ErrorNote,
		CreatedAt:        swap.CreatedAt,
		UpdatedAt:        swap.UpdatedAt,
	}
}

func isPositiveDecimal(amount string) bool {
	value, ok := new(big.Float).SetString(amount)
	if !ok {
		return false
	}
	return value.Sign() > 0
}

// writeJSONResponse writes a JSON response with the specified status code
func (h *SwapHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// writeErrorResponse writes an error response
func (h *SwapHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) {
	errorResponse := ErrorResponse{
		Error:   errorCode,
		Message: message,
	}
	h.writeJSONResponse(w, statusCode, errorResponse)
}
