package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ecotrack/internal/core"
	"ecotrack/internal/log"
	"ecotrack/internal/ports"
)

// InquiryService stores business contact requests.
type InquiryService struct {
	store  ports.InquiryStore
	logger *log.Logger
	now    func() time.Time
}

func NewInquiryService(store ports.InquiryStore, logger *log.Logger) *InquiryService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &InquiryService{store: store, logger: logger.WithComponent(log.ComponentApp), now: time.Now}
}

// Submit trims and validates the inquiry, then stores it with a new id.
func (s *InquiryService) Submit(ctx context.Context, inq core.BusinessInquiry) (core.BusinessInquiry, error) {
	inq.CompanyName = strings.TrimSpace(inq.CompanyName)
	inq.ContactName = strings.TrimSpace(inq.ContactName)
	inq.Email = strings.TrimSpace(inq.Email)
	inq.Phone = strings.TrimSpace(inq.Phone)
	inq.Message = strings.TrimSpace(inq.Message)
	if err := inq.Validate(); err != nil {
		return core.BusinessInquiry{}, err
	}
	inq.ID = uuid.NewString()
	inq.CreatedAt = s.now()

	out, err := s.store.CreateInquiry(ctx, inq)
	if err != nil {
		return core.BusinessInquiry{}, fmt.Errorf("store inquiry: %w", err)
	}
	s.logger.InfoContext(ctx, "Business inquiry received", "inquiry_id", out.ID, "company", out.CompanyName)
	return out, nil
}
