package simulated

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/Zhima-Mochi/joyeria/internal/domain/payment"
	"github.com/google/uuid"
)

var ErrUnknownSession = errors.New("simulated: unknown payment session")

// Processor is an in-process payment processor for development. Sessions settle
// on first retrieval with probability successRate.
type Processor struct {
	mu          sync.Mutex
	random      *rand.Rand
	successRate float64
	sessions    map[string]*session
}

type session struct {
	payment.Session
	method  string
	settled *payment.Settlement
}

func NewProcessor(successRate float64) *Processor {
	if successRate <= 0 || successRate > 1 {
		successRate = 1
	}
	return &Processor{
		random:      rand.New(rand.NewSource(time.Now().UnixNano())),
		successRate: successRate,
		sessions:    make(map[string]*session),
	}
}

func (p *Processor) Open(ctx context.Context, amount int64, currency string) (payment.Session, error) {
	if err := ctx.Err(); err != nil {
		return payment.Session{}, err
	}
	if amount <= 0 {
		return payment.Session{}, payment.ErrInvalidAmount
	}
	id := "sim_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	s := payment.Session{ID: id, ClientSecret: id + "_secret_" + uuid.NewString()[:8], Amount: amount, Currency: currency}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[id] = &session{Session: s, method: "card"}
	return s, nil
}

// UseVoucher marks a session as paid by cash voucher, as the buyer UI would.
func (p *Processor) UseVoucher(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[id]
	if !ok {
		return ErrUnknownSession
	}
	s.method = "oxxo"
	return nil
}

// Retrieve settles the session on first call and reports the same result afterwards.
func (p *Processor) Retrieve(ctx context.Context, id string) (payment.Settlement, error) {
	if err := ctx.Err(); err != nil {
		return payment.Settlement{}, err
	}
	if strings.TrimSpace(id) == "" {
		return payment.Settlement{}, payment.ErrInvalidSession
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[id]
	if !ok {
		return payment.Settlement{}, ErrUnknownSession
	}
	if s.settled != nil {
		return *s.settled, nil
	}

	st := payment.Settlement{SessionID: id, MethodType: s.method}
	switch {
	case p.random.Float64() > p.successRate:
		st.Status = payment.StatusFailed
		st.FailureReason = "payment_declined"
	case s.method == "oxxo":
		st.Status = payment.StatusRequiresOfflineAction
	default:
		st.Status = payment.StatusSucceeded
	}
	s.settled = &st
	return st, nil
}

func (p *Processor) SuccessRate() float64 { return p.successRate }
