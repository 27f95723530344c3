package provider

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// ChargeIntent is the provider-side handle for a pending payment: the
// transaction id the provider will echo back in its callback, and the QR code
// the payer scans.
type ChargeIntent struct {
	TransactionId string
	QRCodeUrl     string
}

// PaymentProvider creates charge intents with an external payment processor.
type PaymentProvider interface {
	CreateCharge(ctx context.Context, paymentId string, amount decimal.Decimal) (*ChargeIntent, error)
}

// StaticProvider issues locally generated transaction ids and QR urls. It
// stands in for a real processor integration in development and tests.
type StaticProvider struct {
	BaseUrl string
}

func NewStaticProvider(baseUrl string) *StaticProvider {
	if baseUrl == "" {
		baseUrl = "https://pay.example.com/qr"
	}
	return &StaticProvider{BaseUrl: baseUrl}
}

// CreateCharge derives the transaction id from the payment id, so repeated
// calls for the same payment return the same intent.
func (p *StaticProvider) CreateCharge(_ context.Context, paymentId string, amount decimal.Decimal) (*ChargeIntent, error) {
	transactionId := "txn-" + paymentId
	return &ChargeIntent{
		TransactionId: transactionId,
		QRCodeUrl:     fmt.Sprintf("%s/%s?amount=%s&ref=%s", p.BaseUrl, transactionId, amount.String(), paymentId),
	}, nil
}
