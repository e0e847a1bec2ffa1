// Package fio is the client for the ledger collaborators: the pending
// request source, the accept/reject sink and the reward issuer. It talks
// JSON over HTTP to a FIO wallet gateway which holds the signing keys;
// the wire protocol behind that gateway is opaque to this service.
package fio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"fio-word-game/internal/config"
)

// ErrUnexpectedStatus is returned when the gateway answers with a
// non-2xx HTTP status.
var ErrUnexpectedStatus = errors.New("unexpected gateway status")

const settlementMemo = "Congratulations on winning the FIO Request Game"

// Client implements the ledger collaborator interfaces over a FIO
// wallet gateway.
type Client struct {
	baseURL      string
	publicKey    string
	guessHandle  string
	requestLimit int
	maxFee       int64
	tpid         string
	http         *http.Client
}

// NewClient creates a ledger client for the configured gateway.
func NewClient(cfg *config.FioConfig) *Client {
	return &Client{
		baseURL:      strings.TrimSuffix(cfg.APIURL, "/"),
		publicKey:    cfg.PublicKey,
		guessHandle:  cfg.GuessHandle,
		requestLimit: cfg.RequestLimit,
		maxFee:       cfg.MaxFee,
		tpid:         cfg.TPID,
		http:         &http.Client{Timeout: 30 * time.Second},
	}
}

// PendingRequests fetches the currently pending payment requests
// addressed to this account. A 404 from the gateway means no pending
// requests and yields an empty slice, not an error.
func (c *Client) PendingRequests(ctx context.Context) ([]Request, error) {
	body := map[string]any{
		"fio_public_key": c.publicKey,
		"limit":          c.requestLimit,
		"offset":         0,
	}

	var resp pendingRequestsResponse
	err := c.post(ctx, "/wallet/pending_requests", body, &resp)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pending requests: %w", err)
	}
	return resp.Requests, nil
}

// Reject acknowledges a request as rejected so it is no longer offered
// as pending.
func (c *Client) Reject(ctx context.Context, requestID int64) error {
	body := map[string]any{
		"fio_request_id":         requestID,
		"max_fee":                c.maxFee,
		"technology_provider_id": c.tpid,
	}

	var resp rejectResponse
	if err := c.post(ctx, "/wallet/reject_request", body, &resp); err != nil {
		return fmt.Errorf("failed to reject request %d: %w", requestID, err)
	}
	if resp.Status != "request_rejected" {
		return fmt.Errorf("reject request %d: unexpected result status %q", requestID, resp.Status)
	}
	return nil
}

// Pay transfers amount SUF to the destination public key and returns the
// ledger transaction id.
func (c *Client) Pay(ctx context.Context, payeePublicKey string, amount int64) (string, error) {
	body := map[string]any{
		"payee_public_key": payeePublicKey,
		"amount":           amount,
		"max_fee":          c.maxFee,
		"tpid":             c.tpid,
	}

	var resp transactionResponse
	if err := c.post(ctx, "/wallet/transfer_tokens", body, &resp); err != nil {
		return "", fmt.Errorf("failed to send payment: %w", err)
	}
	if resp.TransactionID == "" {
		return "", errors.New("payment accepted but no transaction id received")
	}

	log.Info().
		Str("payee", payeePublicKey).
		Int64("amount_suf", amount).
		Str("tx", resp.TransactionID).
		Msg("Reward payment sent")

	return resp.TransactionID, nil
}

// RecordSettlement records the payout against the originating request id,
// which doubles as the idempotency key distinguishing a retried payout
// from a new one. This is the accept-side acknowledgement of a request.
func (c *Client) RecordSettlement(ctx context.Context, requestID int64, payeeHandle, payeePublicKey string, amount int64, txID string) error {
	body := map[string]any{
		"fio_request_id":    requestID,
		"payer_fio_address": c.guessHandle,
		"payee_fio_address": payeeHandle,
		"payee_public_key":  payeePublicKey,
		"amount":            amount,
		"chain_code":        "FIO",
		"token_code":        "FIO",
		"status":            "sent_to_blockchain",
		"obt_id":            txID,
		"memo":              settlementMemo,
		"max_fee":           c.maxFee,
	}

	var resp transactionResponse
	if err := c.post(ctx, "/wallet/record_obt_data", body, &resp); err != nil {
		return fmt.Errorf("failed to record settlement for request %d: %w", requestID, err)
	}
	if resp.TransactionID == "" {
		return fmt.Errorf("settlement for request %d accepted but no transaction id received", requestID)
	}

	log.Info().
		Int64("request_id", requestID).
		Str("tx", resp.TransactionID).
		Msg("Settlement recorded")

	return nil
}

// Balance returns the available account balance in SUF.
func (c *Client) Balance(ctx context.Context) (int64, error) {
	body := map[string]any{"fio_public_key": c.publicKey}

	var resp balanceResponse
	if err := c.post(ctx, "/chain/get_fio_balance", body, &resp); err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return resp.Available, nil
}

var errNotFound = fmt.Errorf("%w: 404", ErrUnexpectedStatus)

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %d %s: %s", ErrUnexpectedStatus, resp.StatusCode, path, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
