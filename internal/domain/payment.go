package domain

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

// MembershipPlan is a purchasable membership tier
type MembershipPlan struct {
	Name         string `json:"name"`
	Amount       int64  `json:"amount"` // minor units
	Currency     string `json:"currency"`
	DurationDays int    `json:"durationDays"`
}

var membershipPlans = map[string]MembershipPlan{
	"silver": {Name: "silver", Amount: 30000, Currency: "INR", DurationDays: 90},
	"gold":   {Name: "gold", Amount: 70000, Currency: "INR", DurationDays: 180},
}

// Order is a payment intent. Orders are never charged or persisted.
type Order struct {
	ID        uuid.UUID `json:"orderId"`
	UserID    uuid.UUID `json:"userId"`
	Plan      string    `json:"membershipType"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// PaymentService is a stub that prices memberships without a payment provider
type PaymentService struct {
	now func() time.Time
}

func NewPaymentService() *PaymentService {
	return &PaymentService{now: time.Now}
}

// Plans lists the membership tiers, cheapest first
func (s *PaymentService) Plans() []MembershipPlan {
	plans := make([]MembershipPlan, 0, len(membershipPlans))
	for _, p := range membershipPlans {
		plans = append(plans, p)
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].Amount < plans[j].Amount })
	return plans
}

// CreateOrder prices plan for userID and returns an order in "created" state
func (s *PaymentService) CreateOrder(_ context.Context, userID uuid.UUID, plan string) (*Order, error) {
	p, ok := membershipPlans[plan]
	if !ok {
		return nil, invalidInput("unknown membership type %q", plan)
	}
	return &Order{
		ID:        uuid.New(),
		UserID:    userID,
		Plan:      p.Name,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Status:    "created",
		CreatedAt: s.now().UTC(),
	}, nil
}
