package types

// InstantiateMsg creates an account bound to a single public key
type InstantiateMsg struct {
	TypeURL string `json:"type_url"`
	Key     Binary `json:"key"`
}

// ExecuteMsg is the tagged union of execute variants. Exactly one field is set.
type ExecuteMsg struct {
	SendTx *SendTxMsg `json:"send_tx,omitempty"`
}

// SendTxMsg carries a signed inner transaction (TxRaw bytes) for relay
type SendTxMsg struct {
	Tx Binary `json:"tx"`
}

// MigrateMsg has no variants; migration only updates contract bookkeeping
type MigrateMsg struct{}

// QueryMsg is the tagged union of query variants. Exactly one field is set.
type QueryMsg struct {
	SignerInfo *SignerInfoQuery `json:"signer_info,omitempty"`
}

// SignerInfoQuery requests the account's public key and sequence
type SignerInfoQuery struct{}

// SignerInfoResponse is returned by the signer_info query
type SignerInfoResponse struct {
	PublicKey PubKey `json:"public_key"`
	Sequence  uint64 `json:"sequence"`
}

// Attribute is a key/value pair attached to a host response
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
