package mocks

import (
	"context"
	"fmt"

	"github.com/eculver/aws-idp-token/pkg/token"
)

type Exchanger struct {
	ExchangeFunc func(ctx context.Context, req token.Request) (token.Result, error)

	ExchangeCalls int
	LastRequest   token.Request
}

func (m *Exchanger) Exchange(ctx context.Context, req token.Request) (token.Result, error) {
	m.ExchangeCalls++
	m.LastRequest = req
	if m.ExchangeFunc == nil {
		return token.Result{}, fmt.Errorf("ExchangeFunc is not set")
	}
	return m.ExchangeFunc(ctx, req)
}
