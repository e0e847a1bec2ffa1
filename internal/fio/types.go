package fio

// SUFPerFIO is the number of smallest units (SUF) in one FIO token.
// Prizes are stored as whole FIO and converted at the wire boundary.
const SUFPerFIO int64 = 1_000_000_000

// Request is one pending payment request observed on the ledger. The
// payer is the channel identity the request was addressed to (guess or
// admin channel); the payee is the counterparty that submitted it. The
// memo carries the guess text or the candidate phrase, and the amount is
// the requested payment as a decimal string.
type Request struct {
	ID             int64  `json:"fio_request_id"`
	PayerHandle    string `json:"payer_fio_address"`
	PayeeHandle    string `json:"payee_fio_address"`
	PayeePublicKey string `json:"payee_public_address"`
	Amount         string `json:"amount"`
	Memo           string `json:"memo"`
}

type pendingRequestsResponse struct {
	Requests []Request `json:"requests"`
}

type rejectResponse struct {
	Status string `json:"status"`
}

type transactionResponse struct {
	TransactionID string `json:"transaction_id"`
}

type balanceResponse struct {
	Available int64 `json:"available"`
}
