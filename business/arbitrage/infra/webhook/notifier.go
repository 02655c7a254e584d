// Package webhook posts execution outcomes to a chat webhook.
package webhook

import (
	"context"
	"fmt"
	"strings"

	"github.com/fd1az/flashloan-arb/business/arbitrage/app"
	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/httpclient"
)

var _ app.Notifier = (*Notifier)(nil)

// Payload is Discord-compatible: content is rendered, the rest is for other consumers.
type Payload struct {
	Content      string `json:"content"`
	ExecutionID  string `json:"execution_id"`
	Block        uint64 `json:"block"`
	Direction    string `json:"direction"`
	Status       string `json:"status"`
	PredictedNet string `json:"predicted_net"`
	TxHash       string `json:"tx_hash,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Notifier sends one POST per finished execution.
type Notifier struct {
	client *httpclient.Client
	url    string
}

func New(client *httpclient.Client, url string) *Notifier {
	return &Notifier{client: client, url: url}
}

func (n *Notifier) Notify(ctx context.Context, e *domain.Execution) error {
	_, err := n.client.PostJSON(ctx, n.url, NewPayload(e))
	return err
}

// NewPayload renders e for the webhook.
func NewPayload(e *domain.Execution) Payload {
	p := Payload{
		ExecutionID: e.ID.String(),
		Block:       e.BlockNumber,
		Direction:   e.Direction.String(),
		Status:      string(e.Status),
		Error:       e.Error,
	}
	if a := e.Notional.Asset(); a != nil {
		p.PredictedNet = asset.FormatSigned(a, e.PredictedNet, 4)
	}
	if e.TxHash.Big().Sign() != 0 {
		p.TxHash = e.TxHash.Hex()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s** flash loan at block #%d: %s", strings.ToUpper(p.Status), e.BlockNumber, p.Direction)
	if p.PredictedNet != "" {
		fmt.Fprintf(&sb, "\nExpected profit: %s (notional %s)", p.PredictedNet, e.Notional.StringFixed(0))
	}
	if p.TxHash != "" {
		fmt.Fprintf(&sb, "\nTransaction hash: %s", p.TxHash)
	}
	if p.Error != "" {
		fmt.Fprintf(&sb, "\nError: %s", p.Error)
	}
	p.Content = sb.String()
	return p
}
