package types

// InstantiateRequest is the body of POST /accounts/{address}/instantiate
type InstantiateRequest struct {
	Sender string         `json:"sender"`
	Msg    InstantiateMsg `json:"msg"`
}

// ExecuteRequest is the body of POST /accounts/{address}/execute
type ExecuteRequest struct {
	Sender string     `json:"sender"`
	Msg    ExecuteMsg `json:"msg"`
}

// MigrateRequest is the body of POST /accounts/{address}/migrate
type MigrateRequest struct {
	Sender string     `json:"sender"`
	Msg    MigrateMsg `json:"msg"`
}

// AccountsResponse lists instantiated accounts
type AccountsResponse struct {
	Accounts []string `json:"accounts"`
}

// ErrorResponse is returned with every non-2xx status. Error is a stable
// machine-readable kind.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is returned by GET /healthz
type HealthResponse struct {
	Status  string `json:"status"`
	ChainID string `json:"chain_id"`
}
