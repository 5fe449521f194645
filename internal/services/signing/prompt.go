package signing

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"ticket-wallet/internal/status"
)

// Prompt parks sign requests until someone approves or rejects them, or
// the requesting context ends.
type Prompt struct {
	mu      sync.Mutex
	pending map[string]*pendingRequest
}

type pendingRequest struct {
	req      Request
	decision chan error
}

func NewPrompt() *Prompt {
	return &Prompt{pending: make(map[string]*pendingRequest)}
}

func (p *Prompt) RequestApproval(ctx context.Context, req Request) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	pr := &pendingRequest{req: req, decision: make(chan error, 1)}

	p.mu.Lock()
	p.pending[req.ID] = pr
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.pending, req.ID)
		p.mu.Unlock()
	}()

	select {
	case err := <-pr.decision:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending lists waiting requests, oldest first.
func (p *Prompt) Pending() []Request {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := make([]Request, 0, len(p.pending))
	for _, pr := range p.pending {
		result = append(result, pr.req)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (p *Prompt) Approve(id string) error {
	return p.resolve(id, nil)
}

func (p *Prompt) Reject(id string) error {
	return p.resolve(id, status.ErrUserRejected)
}

func (p *Prompt) resolve(id string, decision error) error {
	p.mu.Lock()
	pr, ok := p.pending[id]
	if ok {
		delete(p.pending, id)
	}
	p.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", status.ErrSignRequestNotFound, id)
	}

	pr.decision <- decision
	return nil
}
