package reconciler

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// PaymentType is the closed set of payment purposes the platform sells.
// Anything else arriving in gateway metadata is rejected at the boundary.
type PaymentType string

const (
	PaymentContract     PaymentType = "contract_payment"
	PaymentFinderTokens PaymentType = "finder_tokens"
	PaymentClientTokens PaymentType = "client_tokens"
)

// PaymentMeta is the validated metadata attached to a payment at checkout.
type PaymentMeta struct {
	Type       PaymentType
	UserID     uint
	ContractID uint // contract payments only
	Tokens     int  // token purchases only
}

func (m PaymentMeta) validate() error {
	if m.UserID == 0 {
		return fmt.Errorf("%w: missing user id", ErrInvalidMetadata)
	}
	switch m.Type {
	case PaymentContract:
		if m.ContractID == 0 {
			return fmt.Errorf("%w: contract payment without contract id", ErrInvalidMetadata)
		}
	case PaymentFinderTokens, PaymentClientTokens:
		if m.Tokens <= 0 {
			return fmt.Errorf("%w: token purchase without token count", ErrInvalidMetadata)
		}
	default:
		return fmt.Errorf("%w: unknown payment type %q", ErrInvalidMetadata, m.Type)
	}
	return nil
}

// metaFromStrings builds PaymentMeta from the string map a gateway
// verification returns.
func metaFromStrings(m map[string]string) (PaymentMeta, error) {
	meta := PaymentMeta{Type: PaymentType(m["type"])}
	if v := m["user_id"]; v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return meta, fmt.Errorf("%w: bad user_id %q", ErrInvalidMetadata, v)
		}
		meta.UserID = uint(id)
	}
	if v := m["contract_id"]; v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return meta, fmt.Errorf("%w: bad contract_id %q", ErrInvalidMetadata, v)
		}
		meta.ContractID = uint(id)
	}
	if v := m["tokens"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return meta, fmt.Errorf("%w: bad tokens %q", ErrInvalidMetadata, v)
		}
		meta.Tokens = n
	}
	return meta, meta.validate()
}

// Event is one verified payment fact, regardless of whether it arrived as
// a webhook push or a verification pull. Both paths converge on Reconcile.
type Event struct {
	Reference string
	Amount    decimal.Decimal
	Status    string
	Meta      PaymentMeta
}

// WebhookPayload is the inbound webhook body.
type WebhookPayload struct {
	Event string      `json:"event"`
	Data  WebhookData `json:"data"`
}

type WebhookData struct {
	TxRef  string          `json:"tx_ref"`
	Amount decimal.Decimal `json:"amount"`
	Status string          `json:"status"`
	Meta   WebhookMeta     `json:"meta"`
}

type WebhookMeta struct {
	UserID     uint   `json:"userId"`
	Type       string `json:"type"`
	ContractID uint   `json:"contractId,omitempty"`
	Tokens     int    `json:"tokens,omitempty"`
}
