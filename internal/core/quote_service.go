package core

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// QuoteRequest asks for a premium. The client's CNP is read from ClientID when set,
// otherwise ClientCNP is used as given.
type QuoteRequest struct {
	ProductID         int64           `json:"product_id"`
	ClientID          int64           `json:"client_id,omitempty"`
	ClientCNP         string          `json:"client_cnp,omitempty"`
	SumInsured        decimal.Decimal `json:"sum_insured"`
	StartDate         Date            `json:"start_date"`
	EndDate           Date            `json:"end_date"`
	CustomFieldValues map[string]any  `json:"custom_field_values"`
}

// QuoteService wraps the rating engine with the reads it needs.
type QuoteService interface {
	Calculate(ctx context.Context, actor Actor, in QuoteRequest) (PremiumQuote, error)
}

type quoteService struct {
	products ProductRepo
	clients  ClientRepo
	clock    func() time.Time
}

func NewQuoteService(repos Repositories, opts ...Option) QuoteService {
	o := buildOptions(opts)
	return &quoteService{
		products: repos.Products,
		clients:  repos.Clients,
		clock:    o.clock,
	}
}

func (s *quoteService) Calculate(ctx context.Context, actor Actor, in QuoteRequest) (PremiumQuote, error) {
	// 1) validate inputs
	if err := requireAuthenticated(actor); err != nil {
		return PremiumQuote{}, err
	}
	if in.ProductID <= 0 {
		return PremiumQuote{}, invalid("product_id", "is required")
	}

	// 2) load product
	p, err := s.products.Get(ctx, in.ProductID)
	if err != nil {
		return PremiumQuote{}, err
	}
	if !p.Active {
		return PremiumQuote{}, fmt.Errorf("%w: %s", ErrProductInactive, p.Code)
	}

	// 3) resolve the client identifier
	cnp := in.ClientCNP
	if in.ClientID > 0 {
		c, err := s.clients.Get(ctx, in.ClientID)
		if err != nil {
			return PremiumQuote{}, err
		}
		if !actor.CanSee(c.BrokerID) {
			return PremiumQuote{}, ErrClientNotFound
		}
		cnp = c.CNP
	}

	// 4) price
	return CalculatePremium(RatingInput{
		Product:           p,
		SumInsured:        in.SumInsured,
		StartDate:         in.StartDate.Time,
		EndDate:           in.EndDate.Time,
		CustomFieldValues: in.CustomFieldValues,
		ClientCNP:         cnp,
	}, s.clock())
}
