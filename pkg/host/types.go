package host

import (
	"errors"
	"time"

	"github.com/Layr-Labs/eigenx-relay-go/pkg/types"
)

// Contract bookkeeping written at instantiation and checked on migration
const (
	ContractName    = "crates.io:account"
	ContractVersion = "0.1.0"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrAlreadyInitialized = errors.New("account already initialized")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrContractMismatch   = errors.New("stored contract does not match")
)

// Env describes the block and contract a call executes in
type Env struct {
	ChainID         string
	ContractAddress string
	BlockHeight     uint64
	BlockTime       time.Time
}

// MessageInfo identifies who sent a call
type MessageInfo struct {
	Sender string
}

// Request is the tagged union of host entry points. Exactly one field is set.
type Request struct {
	Instantiate *types.InstantiateMsg
	Execute     *types.ExecuteMsg
	Migrate     *types.MigrateMsg
	Query       *types.QueryMsg
}

// SubMsg is an operation dispatched by the account with itself as sender
type SubMsg struct {
	Sender  string       `json:"sender"`
	TypeURL string       `json:"type_url"`
	Value   types.Binary `json:"value"`
}

// Response is what a host entry point hands back to the runtime
type Response struct {
	Messages   []*SubMsg         `json:"messages"`
	Attributes []types.Attribute `json:"attributes"`
	Data       types.Binary      `json:"data,omitempty"`
}

func (r *Response) addAttribute(key, value string) *Response {
	r.Attributes = append(r.Attributes, types.Attribute{Key: key, Value: value})
	return r
}

// Attribute returns the value of the first attribute with key
func (r *Response) Attribute(key string) (string, bool) {
	for _, a := range r.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}
